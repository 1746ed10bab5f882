package relax

import (
	"github.com/latticeworks/lgfrelax/internal/crystal"
	"github.com/latticeworks/lgfrelax/internal/lgf"
)

// Controller owns the per-step scratch state of the elastic correction
// and decides, from its fixed mode, whether the correction runs before
// or after the driver's own position update. The tensor it reads is
// immutable; only the force, displacement and drift buffers change
// between iterations, and only on the single goroutine driving the run.
type Controller struct {
	mode    Mode
	tensor  *lgf.Tensor
	basis   crystal.Basis
	maxDisp float64

	forces   []crystal.Vec3
	disp     []crystal.Vec3
	drift    crystal.Vec3
	prior    []crystal.Vec3
	computed bool
}

// NewController builds a controller for one run. The tensor may be nil
// only when mode is Disabled. maxDisp caps the largest per-ion corrected
// displacement norm; zero disables the cap.
func NewController(mode Mode, t *lgf.Tensor, basis crystal.Basis, maxDisp float64) *Controller {
	if mode != Disabled && t == nil {
		panic("relax: controller enabled without a tensor")
	}
	return &Controller{mode: mode, tensor: t, basis: basis, maxDisp: maxDisp}
}

// Mode returns the fixed invocation mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetForces points the controller at the force field for the current
// iteration. The slice is owned by the force provider and only read.
func (c *Controller) SetForces(f []crystal.Vec3) { c.forces = f }

// BeforeStep runs the pre-step half of the state machine: in PreStep
// mode it computes the displacement field, snapshots the uncorrected
// positions and applies the correction in place. Other modes no-op.
func (c *Controller) BeforeStep(positions []crystal.Vec3) {
	if c.mode != PreStep {
		return
	}
	c.compute()
	c.prior = crystal.CloneVecs(positions)
	c.apply(positions)
}

// AfterStep runs the post-step half: in PostStep mode it computes the
// displacement field and applies the correction in place.
func (c *Controller) AfterStep(positions []crystal.Vec3) {
	if c.mode != PostStep {
		return
	}
	c.compute()
	c.apply(positions)
}

// Converged contributes the region-2 force criterion to the driver's
// stop decision. A disabled controller never vetoes the stop.
func (c *Controller) Converged(threshold float64) bool {
	if c.mode == Disabled {
		return true
	}
	return lgf.Region2Converged(c.tensor, c.forces, threshold)
}

// Energy returns the harmonic work estimate for the last computed
// displacement field.
func (c *Controller) Energy() float64 {
	if c.mode == Disabled || c.disp == nil {
		return 0
	}
	return lgf.HarmonicEnergy(c.tensor, c.forces, c.disp)
}

// Displacement returns the last computed displacement field.
func (c *Controller) Displacement() []crystal.Vec3 { return c.disp }

// Drift returns the last computed rigid drift.
func (c *Controller) Drift() crystal.Vec3 { return c.drift }

// PriorPositions returns the pre-correction snapshot taken by the last
// PreStep invocation, or nil.
func (c *Controller) PriorPositions() []crystal.Vec3 { return c.prior }

func (c *Controller) compute() {
	c.disp, c.drift = lgf.Displace(c.tensor, c.forces)
	c.computed = true
}

// apply subtracts the drift from every ion, including those outside the
// displaced range (which receive exactly -drift), converts the result to
// fractional coordinates and adds it to the positions in place. Calling
// it without a same-step compute is a programming error.
func (c *Controller) apply(positions []crystal.Vec3) {
	if !c.computed {
		panic("relax: correction applied before displacement compute")
	}
	c.computed = false

	corrected := make([]crystal.Vec3, len(positions))
	for i := range positions {
		corrected[i] = c.disp[i].Sub(c.drift)
	}
	if c.maxDisp > 0 {
		var max float64
		for _, u := range corrected {
			if n := u.Norm(); n > max {
				max = n
			}
		}
		if max > c.maxDisp {
			scale := c.maxDisp / max
			for i := range corrected {
				corrected[i] = corrected[i].Scale(scale)
			}
		}
	}
	for i := range positions {
		positions[i] = positions[i].Add(c.basis.ToFractional(corrected[i]))
	}
}
