package lgf

import (
	"errors"
	"strings"
	"testing"
)

const goodResource = `bcc W edge dislocation, toy data
1 2 1 3 2
1 1 0.1 0 0 0 0.1 0 0 0 0.1
2 2 0.2 0 0 0 0.2 0 0 0 0.2
`

func TestLoad(t *testing.T) {
	tensor, err := Load(strings.NewReader(goodResource), 3)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if r := tensor.Region2(); r.Min != 1 || r.Max != 2 {
		t.Errorf("region2 range = [%d,%d], want [1,2]", r.Min, r.Max)
	}
	if r := tensor.Displaced(); r.Min != 1 || r.Max != 3 {
		t.Errorf("displaced range = [%d,%d], want [1,3]", r.Min, r.Max)
	}
	if tensor.NIons() != 3 {
		t.Errorf("nIons = %d, want 3", tensor.NIons())
	}

	pairs := tensor.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("loaded %d pairs, want 2", len(pairs))
	}
	if pairs[0] != (Pair{Region2: 1, Displaced: 1}) || pairs[1] != (Pair{Region2: 2, Displaced: 2}) {
		t.Errorf("pairs = %v, not in file order", pairs)
	}

	if !tensor.HasData(1) || !tensor.HasData(2) {
		t.Error("both region-2 sites should have data")
	}
	if tensor.HasData(3) {
		t.Error("site 3 is outside the range and should have no data")
	}

	if got := tensor.At(1, 1, 1, 1); got != 0.1 {
		t.Errorf("G(1,1,1,1) = %g, want 0.1", got)
	}
	if got := tensor.At(3, 2, 3, 2); got != 0.2 {
		t.Errorf("G(3,2,3,2) = %g, want 0.2", got)
	}
	if got := tensor.At(1, 1, 2, 1); got != 0 {
		t.Errorf("off-diagonal G(1,1,2,1) = %g, want 0", got)
	}
	// never-loaded block stays zero
	if got := tensor.At(1, 2, 1, 3); got != 0 {
		t.Errorf("unloaded block G(1,2,1,3) = %g, want 0", got)
	}
}

func TestLoadRowColumnConvention(t *testing.T) {
	// row a of the 3x3 block is the force axis, columns the
	// displacement axis
	resource := `header
1 1 1 1 1
1 1 11 12 13 21 22 23 31 32 33
`
	tensor, err := Load(strings.NewReader(resource), 1)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	for a := 1; a <= 3; a++ {
		for k := 1; k <= 3; k++ {
			want := float64(10*a + k)
			if got := tensor.At(a, 1, k, 1); got != want {
				t.Errorf("G(a=%d,k=%d) = %g, want %g", a, k, got, want)
			}
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		nIons int
	}{
		{"empty resource", "", 3},
		{"missing metadata", "header only\n", 3},
		{"short metadata", "h\n1 2 1\n", 3},
		{"metadata not integers", "h\n1 x 1 3 0\n", 3},
		{"j_min > j_max", "h\n3 2 1 3 0\n", 3},
		{"i_min > i_max", "h\n1 2 3 1 0\n", 3},
		{"non-positive j_max", "h\n0 0 1 3 0\n", 3},
		{"non-positive i_max", "h\n1 2 -1 -1 0\n", 3},
		{"zero j_min", "h\n0 2 1 3 0\n", 3},
		{"range beyond ion count", "h\n1 2 1 5 0\n", 3},
		{"negative element count", "h\n1 2 1 3 -1\n", 3},
		{"short read", "h\n1 2 1 3 2\n1 1 0 0 0 0 0 0 0 0 0\n", 3},
		{"too few fields", "h\n1 2 1 3 1\n1 1 0 0 0 0 0 0 0 0\n", 3},
		{"bad index", "h\n1 2 1 3 1\nx 1 0 0 0 0 0 0 0 0 0\n", 3},
		{"bad component", "h\n1 2 1 3 1\n1 1 0 0 0 0 zz 0 0 0 0\n", 3},
		{"region2 index out of range", "h\n1 2 1 3 1\n3 1 0 0 0 0 0 0 0 0 0\n", 3},
		{"displaced index out of range", "h\n1 2 1 3 1\n1 4 0 0 0 0 0 0 0 0 0\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), tt.nIons)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error %v does not wrap ErrConfig", err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/nope.lgf", 3)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, ErrConfig) {
		t.Errorf("error %v does not wrap ErrConfig", err)
	}
}
