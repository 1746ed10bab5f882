package crystal

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Basis holds the lattice vectors of the simulation cell and the
// inverse map used to convert Cartesian displacements into fractional
// (direct) coordinates. Columns of the matrix are the lattice vectors
// a, b, c in Cartesian coordinates.
type Basis struct {
	vectors *mat.Dense
	inverse *mat.Dense
}

// NewBasis builds a Basis from the three lattice vectors. It fails if
// the vectors are linearly dependent (the cell has no volume).
func NewBasis(a, b, c Vec3) (Basis, error) {
	m := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		m.Set(r, 0, a[r])
		m.Set(r, 1, b[r])
		m.Set(r, 2, c[r])
	}
	inv := mat.NewDense(3, 3, nil)
	if err := inv.Inverse(m); err != nil {
		return Basis{}, fmt.Errorf("crystal: singular lattice basis: %w", err)
	}
	return Basis{vectors: m, inverse: inv}, nil
}

// IdentityBasis returns the trivial cubic basis with unit lattice
// vectors, for which Cartesian and fractional coordinates coincide.
func IdentityBasis() Basis {
	b, _ := NewBasis(Vec3{1, 0, 0}, Vec3{0, 1, 0}, Vec3{0, 0, 1})
	return b
}

// ToFractional converts a Cartesian vector to fractional coordinates.
func (b Basis) ToFractional(v Vec3) Vec3 {
	return b.mul(b.inverse, v)
}

// ToCartesian converts a fractional vector to Cartesian coordinates.
func (b Basis) ToCartesian(v Vec3) Vec3 {
	return b.mul(b.vectors, v)
}

// Vector returns the i-th lattice vector (0 = a, 1 = b, 2 = c).
func (b Basis) Vector(i int) Vec3 {
	return Vec3{b.vectors.At(0, i), b.vectors.At(1, i), b.vectors.At(2, i)}
}

func (b Basis) mul(m *mat.Dense, v Vec3) Vec3 {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v[0], v[1], v[2]}))
	return Vec3{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}
