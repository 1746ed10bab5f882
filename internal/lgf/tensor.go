package lgf

import "errors"

// ErrConfig marks a malformed or inconsistent LGF resource. Loading
// errors are always fatal to the run: a wrong Green's function corrupts
// the relaxed structure silently, so the only safe policy is to stop.
var ErrConfig = errors.New("lgf: invalid configuration")

// Range is an inclusive interval of 1-based ion indices.
type Range struct {
	Min, Max int
}

func (r Range) Len() int { return r.Max - r.Min + 1 }

func (r Range) Contains(i int) bool { return i >= r.Min && i <= r.Max }

// Pair records one explicitly loaded (boundary ion, displaced ion)
// tensor block, in file order. Kept for diagnostics only; the
// contraction never consults it.
type Pair struct {
	Region2   int
	Displaced int
}

// Tensor is the loaded lattice Green's function. It is immutable after
// Load returns; every block not present in the resource file stays zero,
// which is what makes it safe to contract over the full declared ranges.
type Tensor struct {
	region2   Range
	displaced Range
	nIons     int

	// data is laid out [force axis][region2 site][disp axis][displaced
	// site], flattened with the displaced site fastest.
	data []float64

	pairs   []Pair
	hasData map[int]bool
}

func newTensor(region2, displaced Range, nIons int) *Tensor {
	return &Tensor{
		region2:   region2,
		displaced: displaced,
		nIons:     nIons,
		data:      make([]float64, 3*region2.Len()*3*displaced.Len()),
		hasData:   make(map[int]bool),
	}
}

// Region2 returns the boundary-ion index range covered by the tensor.
func (t *Tensor) Region2() Range { return t.region2 }

// Displaced returns the ion index range for which displacement can be
// evaluated.
func (t *Tensor) Displaced() Range { return t.displaced }

// NIons returns the total simulated ion count the tensor was sized for.
func (t *Tensor) NIons() int { return t.nIons }

// Pairs returns the explicitly loaded index pairs in file order.
func (t *Tensor) Pairs() []Pair { return t.pairs }

// HasData reports whether boundary ion j contributed any loaded block.
// Sites absent here have all-zero tensor rows and contribute nothing to
// any contraction.
func (t *Tensor) HasData(j int) bool { return t.hasData[j] }

// At returns the component for force axis a at boundary ion j and
// displacement axis k at ion i. Axes are 1..3 and ion indices 1-based,
// matching the resource file.
func (t *Tensor) At(a, j, k, i int) float64 {
	return t.data[t.offset(a, j, k, i)]
}

func (t *Tensor) offset(a, j, k, i int) int {
	nj, ni := t.region2.Len(), t.displaced.Len()
	return (((a-1)*nj+(j-t.region2.Min))*3+(k-1))*ni + (i - t.displaced.Min)
}

func (t *Tensor) setBlock(j, i int, g [3][3]float64) {
	for a := 1; a <= 3; a++ {
		for k := 1; k <= 3; k++ {
			t.data[t.offset(a, j, k, i)] = g[a-1][k-1]
		}
	}
	t.pairs = append(t.pairs, Pair{Region2: j, Displaced: i})
	t.hasData[j] = true
}
