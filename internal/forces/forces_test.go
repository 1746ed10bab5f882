package forces

import (
	"math"
	"strings"
	"testing"

	"github.com/latticeworks/lgfrelax/internal/crystal"
)

func testCell() *crystal.Cell {
	return &crystal.Cell{
		Basis:     crystal.IdentityBasis(),
		Positions: []crystal.Vec3{{0.2, 0, 0}, {0.5, 0.5, 0.5}, {0.9, 0.9, 0.9}},
		Regions:   []int{1, 2, 3},
	}
}

func TestHarmonicRestoringForce(t *testing.T) {
	cell := testCell()
	h := NewHarmonic(cell, 10)
	h.Ref = []crystal.Vec3{{0.1, 0, 0}, {0.5, 0.5, 0.5}, {0.9, 0.9, 0.9}}

	f, err := h.Forces(cell)
	if err != nil {
		t.Fatalf("forces failed: %v", err)
	}
	// ion 1 sits 0.1 past its reference along x: restoring force -k*dx
	if math.Abs(f[0][0]-(-1.0)) > 1e-12 || f[0][1] != 0 || f[0][2] != 0 {
		t.Errorf("ion 1 force = %v, want (-1,0,0)", f[0])
	}
	// ion 2 is at its reference
	if f[1] != (crystal.Vec3{}) {
		t.Errorf("ion 2 force = %v, want zero", f[1])
	}
}

func TestHarmonicRegion3Fixed(t *testing.T) {
	cell := testCell()
	h := NewHarmonic(cell, 10)
	h.Ref = []crystal.Vec3{{0.2, 0, 0}, {0.5, 0.5, 0.5}, {0, 0, 0}}

	f, err := h.Forces(cell)
	if err != nil {
		t.Fatalf("forces failed: %v", err)
	}
	if f[2] != (crystal.Vec3{}) {
		t.Errorf("region-3 ion force = %v, want zero", f[2])
	}
}

func TestHarmonicRelaxCore(t *testing.T) {
	cell := testCell()
	h := NewHarmonic(cell, 10)
	h.Ref = []crystal.Vec3{{0.1, 0, 0}, {0.5, 0.5, 0.5}, {0.9, 0.9, 0.9}}
	h.Steps = 20
	h.Gamma = 0.2

	before := cell.Positions[0].Sub(h.Ref[0]).Norm()
	if err := h.RelaxCore(cell); err != nil {
		t.Fatalf("relax failed: %v", err)
	}
	after := cell.Positions[0].Sub(h.Ref[0]).Norm()
	if after >= before {
		t.Errorf("region-1 ion did not approach its reference: %g -> %g", before, after)
	}
	// regions 2 and 3 stay put during core relaxation
	if cell.Positions[1] != (crystal.Vec3{0.5, 0.5, 0.5}) || cell.Positions[2] != (crystal.Vec3{0.9, 0.9, 0.9}) {
		t.Error("core relaxation moved boundary or fixed ions")
	}
}

func TestHarmonicSizeMismatch(t *testing.T) {
	cell := testCell()
	h := NewHarmonic(cell, 10)
	h.Ref = h.Ref[:2]
	if _, err := h.Forces(cell); err == nil {
		t.Fatal("expected error for mismatched reference sites")
	}
}

func TestReadTable(t *testing.T) {
	input := `# forces from external engine
1 0.5 0 0

3 0 -0.25 1.5
`
	table, err := ReadTable(strings.NewReader(input), 3)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	f, err := table.Forces(testCell())
	if err != nil {
		t.Fatalf("forces failed: %v", err)
	}
	if f[0] != (crystal.Vec3{0.5, 0, 0}) {
		t.Errorf("ion 1 = %v", f[0])
	}
	if f[1] != (crystal.Vec3{}) {
		t.Errorf("ion 2 = %v, want zero (no entry)", f[1])
	}
	if f[2] != (crystal.Vec3{0, -0.25, 1.5}) {
		t.Errorf("ion 3 = %v", f[2])
	}
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few fields", "1 0.5 0\n"},
		{"bad index", "x 0 0 0\n"},
		{"index out of range", "4 0 0 0\n"},
		{"zero index", "0 0 0 0\n"},
		{"bad component", "1 0 q 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTable(strings.NewReader(tt.input), 3); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestTableCellMismatch(t *testing.T) {
	table, err := ReadTable(strings.NewReader("1 0 0 0\n"), 2)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if _, err := table.Forces(testCell()); err == nil {
		t.Fatal("expected error for table/cell size mismatch")
	}
}
