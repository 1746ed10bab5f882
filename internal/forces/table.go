package forces

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/latticeworks/lgfrelax/internal/crystal"
)

// Table is a static force field read from a text file, one line per
// entry: "index fx fy fz" with 1-based ion indices. Ions without an
// entry carry zero force. Useful for applying a single correction to
// forces computed elsewhere.
type Table struct {
	forces []crystal.Vec3
}

// ReadTable parses a force table sized for nIons ions.
func ReadTable(r io.Reader, nIons int) (*Table, error) {
	t := &Table{forces: make([]crystal.Vec3, nIons)}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("forces: line %d: want 4 fields, got %d", line, len(fields))
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil || i < 1 || i > nIons {
			return nil, fmt.Errorf("forces: line %d: bad ion index %q", line, fields[0])
		}
		var v crystal.Vec3
		for k := 0; k < 3; k++ {
			v[k], err = strconv.ParseFloat(fields[1+k], 64)
			if err != nil {
				return nil, fmt.Errorf("forces: line %d: bad component %q", line, fields[1+k])
			}
		}
		t.forces[i-1] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("forces: %w", err)
	}
	return t, nil
}

// ReadTableFile reads a force table from disk.
func ReadTableFile(path string, nIons int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("forces: %w", err)
	}
	defer f.Close()
	return ReadTable(f, nIons)
}

// Forces returns a copy of the tabulated field; it does not depend on
// the cell geometry.
func (t *Table) Forces(c *crystal.Cell) ([]crystal.Vec3, error) {
	if len(t.forces) != c.NIons() {
		return nil, fmt.Errorf("forces: table has %d ions, cell has %d", len(t.forces), c.NIons())
	}
	return crystal.CloneVecs(t.forces), nil
}
