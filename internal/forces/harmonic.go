// Package forces provides the force-provider collaborators the
// relaxation driver consumes: a harmonic toy model for demos and tests,
// and a static table read from a file for single-shot corrections.
package forces

import (
	"fmt"

	"github.com/latticeworks/lgfrelax/internal/crystal"
)

// Harmonic is a nearest-site spring model: every mobile ion is tethered
// to its reference position with stiffness K. Region-3 ions are held
// fixed and report zero force, matching how the reference driver pinned
// its far field. It is not real physics, but it exercises the full
// correction loop with forces that shrink as positions improve.
type Harmonic struct {
	K     float64        // spring stiffness
	Ref   []crystal.Vec3 // reference fractional positions
	Steps int            // steepest-descent steps per core relaxation
	Gamma float64        // descent step size
}

// NewHarmonic tethers the ions of cell to their current positions.
func NewHarmonic(cell *crystal.Cell, k float64) *Harmonic {
	return &Harmonic{
		K:     k,
		Ref:   crystal.CloneVecs(cell.Positions),
		Steps: 5,
		Gamma: 0.1,
	}
}

// Forces returns the restoring force on every ion in Cartesian
// coordinates.
func (h *Harmonic) Forces(c *crystal.Cell) ([]crystal.Vec3, error) {
	if len(h.Ref) != c.NIons() {
		return nil, fmt.Errorf("forces: model has %d reference sites for %d ions", len(h.Ref), c.NIons())
	}
	out := make([]crystal.Vec3, c.NIons())
	for i, p := range c.Positions {
		if c.Regions[i] > 2 {
			continue
		}
		dx := c.Basis.ToCartesian(p.Sub(h.Ref[i]))
		out[i] = dx.Scale(-h.K)
	}
	return out, nil
}

// RelaxCore runs a few steepest-descent steps on the region-1 ions,
// holding regions 2 and 3 fixed. This stands in for the reference
// driver's delegated core minimization.
func (h *Harmonic) RelaxCore(c *crystal.Cell) error {
	for s := 0; s < h.Steps; s++ {
		f, err := h.Forces(c)
		if err != nil {
			return err
		}
		for i := range c.Positions {
			if c.Regions[i] != 1 {
				continue
			}
			step := c.Basis.ToFractional(f[i].Scale(h.Gamma / h.K))
			c.Positions[i] = c.Positions[i].Add(step)
		}
	}
	return nil
}
