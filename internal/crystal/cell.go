package crystal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Cell is the mutable per-ion position store for one relaxation run.
// Positions are fractional coordinates in Basis; Regions carries the
// per-ion region tag (1 = explicit core, 2 = elastic boundary,
// 3 = fixed far field).
type Cell struct {
	Basis     Basis
	Positions []Vec3
	Regions   []int
	Comment   string
}

// NIons returns the total number of ions in the cell.
func (c *Cell) NIons() int { return len(c.Positions) }

// InRegion returns the 1-based indices of ions tagged with region r.
func (c *Cell) InRegion(r int) []int {
	var idx []int
	for i, reg := range c.Regions {
		if reg == r {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// ReadCell parses a cell geometry file:
//
//	line 1        ion count
//	line 2        free-form comment
//	lines 3-5     lattice vectors a, b, c (Cartesian)
//	then per ion  region u v w  (fractional coordinates)
func ReadCell(r io.Reader) (*Cell, error) {
	sc := bufio.NewScanner(r)

	n, err := readInt(sc, "ion count")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("crystal: ion count must be positive, got %d", n)
	}
	if !sc.Scan() {
		return nil, fmt.Errorf("crystal: missing comment line")
	}
	comment := strings.TrimSpace(sc.Text())

	var vecs [3]Vec3
	for i := 0; i < 3; i++ {
		v, err := readFloats(sc, 3, fmt.Sprintf("lattice vector %d", i+1))
		if err != nil {
			return nil, err
		}
		vecs[i] = Vec3{v[0], v[1], v[2]}
	}
	basis, err := NewBasis(vecs[0], vecs[1], vecs[2])
	if err != nil {
		return nil, err
	}

	cell := &Cell{
		Basis:     basis,
		Positions: make([]Vec3, n),
		Regions:   make([]int, n),
		Comment:   comment,
	}
	for i := 0; i < n; i++ {
		f, err := readFloats(sc, 4, fmt.Sprintf("ion %d", i+1))
		if err != nil {
			return nil, err
		}
		reg := int(f[0])
		if reg < 1 || reg > 3 {
			return nil, fmt.Errorf("crystal: ion %d: region tag must be 1, 2 or 3, got %g", i+1, f[0])
		}
		cell.Regions[i] = reg
		cell.Positions[i] = Vec3{f[1], f[2], f[3]}
	}
	return cell, nil
}

// ReadCellFile reads a cell geometry file from disk.
func ReadCellFile(path string) (*Cell, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("crystal: %w", err)
	}
	defer f.Close()
	return ReadCell(f)
}

// WriteCell writes c in the format accepted by ReadCell.
func WriteCell(w io.Writer, c *Cell) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%s\n", c.NIons(), c.Comment)
	for i := 0; i < 3; i++ {
		v := c.Basis.Vector(i)
		fmt.Fprintf(bw, "%20.12f %20.12f %20.12f\n", v[0], v[1], v[2])
	}
	for i, p := range c.Positions {
		fmt.Fprintf(bw, "%d %20.12f %20.12f %20.12f\n", c.Regions[i], p[0], p[1], p[2])
	}
	return bw.Flush()
}

// WriteCellFile writes a cell geometry file to disk.
func WriteCellFile(path string, c *Cell) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("crystal: %w", err)
	}
	defer f.Close()
	return WriteCell(f, c)
}

func readInt(sc *bufio.Scanner, what string) (int, error) {
	if !sc.Scan() {
		return 0, fmt.Errorf("crystal: missing %s line", what)
	}
	v, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		return 0, fmt.Errorf("crystal: bad %s: %q", what, sc.Text())
	}
	return v, nil
}

func readFloats(sc *bufio.Scanner, n int, what string) ([]float64, error) {
	if !sc.Scan() {
		return nil, fmt.Errorf("crystal: missing %s line", what)
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != n {
		return nil, fmt.Errorf("crystal: %s: want %d fields, got %d", what, n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("crystal: %s: bad number %q", what, f)
		}
		out[i] = v
	}
	return out, nil
}
