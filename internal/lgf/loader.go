package lgf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load parses an LGF resource file sized for nIons simulated ions.
//
// The format is one free-form description line, one metadata line
// "j_min j_max i_min i_max n_elem", then exactly n_elem lines of
// "j i g11 g12 g13 g21 g22 g23 g31 g32 g33" where row a of the 3x3
// block is the response to a unit force along axis a at boundary ion j.
// Every failure wraps ErrConfig and must abort the run.
func Load(r io.Reader, nIons int) (*Tensor, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		return nil, fmt.Errorf("%w: empty resource, missing description line", ErrConfig)
	}
	ints, err := intFields(sc, 5, "metadata")
	if err != nil {
		return nil, err
	}
	region2 := Range{Min: ints[0], Max: ints[1]}
	displaced := Range{Min: ints[2], Max: ints[3]}
	nElem := ints[4]

	switch {
	case region2.Max <= 0 || displaced.Max <= 0:
		return nil, fmt.Errorf("%w: non-positive range bound (j_max=%d, i_max=%d)", ErrConfig, region2.Max, displaced.Max)
	case region2.Min > region2.Max:
		return nil, fmt.Errorf("%w: empty region-2 range [%d,%d]", ErrConfig, region2.Min, region2.Max)
	case displaced.Min > displaced.Max:
		return nil, fmt.Errorf("%w: empty displaced range [%d,%d]", ErrConfig, displaced.Min, displaced.Max)
	case region2.Min <= 0 || displaced.Min <= 0:
		return nil, fmt.Errorf("%w: range bounds must be positive (j_min=%d, i_min=%d)", ErrConfig, region2.Min, displaced.Min)
	case displaced.Max > nIons || region2.Max > nIons:
		return nil, fmt.Errorf("%w: range exceeds ion count %d (j_max=%d, i_max=%d)", ErrConfig, nIons, region2.Max, displaced.Max)
	case nElem < 0:
		return nil, fmt.Errorf("%w: negative element count %d", ErrConfig, nElem)
	}

	t := newTensor(region2, displaced, nIons)
	for n := 0; n < nElem; n++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: short read, want %d data lines, got %d", ErrConfig, nElem, n)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 11 {
			return nil, fmt.Errorf("%w: data line %d: want 11 fields, got %d", ErrConfig, n+1, len(fields))
		}
		j, err1 := strconv.Atoi(fields[0])
		i, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: data line %d: bad indices %q %q", ErrConfig, n+1, fields[0], fields[1])
		}
		if !region2.Contains(j) {
			return nil, fmt.Errorf("%w: data line %d: region-2 index %d outside [%d,%d]", ErrConfig, n+1, j, region2.Min, region2.Max)
		}
		if !displaced.Contains(i) {
			return nil, fmt.Errorf("%w: data line %d: displaced index %d outside [%d,%d]", ErrConfig, n+1, i, displaced.Min, displaced.Max)
		}
		var g [3][3]float64
		for a := 0; a < 3; a++ {
			for k := 0; k < 3; k++ {
				v, err := strconv.ParseFloat(fields[2+a*3+k], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: data line %d: bad component %q", ErrConfig, n+1, fields[2+a*3+k])
				}
				g[a][k] = v
			}
		}
		t.setBlock(j, i, g)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return t, nil
}

// LoadFile loads an LGF resource from disk.
func LoadFile(path string, nIons int) (*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	defer f.Close()
	t, err := Load(f, nIons)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func intFields(sc *bufio.Scanner, n int, what string) ([]int, error) {
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: missing %s line", ErrConfig, what)
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != n {
		return nil, fmt.Errorf("%w: %s line: want %d integers, got %d fields", ErrConfig, what, n, len(fields))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line: bad integer %q", ErrConfig, what, f)
		}
		out[i] = v
	}
	return out, nil
}
