package relax

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/latticeworks/lgfrelax/internal/crystal"
)

// ErrUnstable indicates the boundary forces diverged, meaning the
// geometry or the supplied Green's function is wrong.
var ErrUnstable = errors.New("relax: forces diverged, run is unstable")

// forceBlowup is the 2-norm above which the run is declared unstable.
const forceBlowup = 1e2

// ForceProvider supplies the full per-ion Cartesian force field for the
// current cell geometry, once per outer iteration.
type ForceProvider interface {
	Forces(c *crystal.Cell) ([]crystal.Vec3, error)
}

// CoreRelaxer is an optional ForceProvider capability: a provider that
// can also relax the explicit core (region 1) between corrections, the
// way the reference implementation delegated core minimization to its
// force engine.
type CoreRelaxer interface {
	RelaxCore(c *crystal.Cell) error
}

// Iteration is the per-cycle diagnostic record handed to observers.
type Iteration struct {
	Index     int
	ForceMax  float64
	ForceNorm float64
	Drift     crystal.Vec3
	Energy    float64
	Converged bool
}

// Observer receives per-iteration diagnostics. Observers must not
// mutate the run; their failures are the observer's problem.
type Observer interface {
	OnIteration(it Iteration)
}

// Params bounds one relaxation run.
type Params struct {
	Ftol         float64 // stop when the max force norm in regions 1+2 drops below this
	MaxOuterIter int     // hard cap on correction cycles
}

// Result summarizes a finished run.
type Result struct {
	Iterations    int
	Converged     bool
	FinalForceMax float64
	ForceMax      []float64 // per-iteration max force norm, regions 1+2
	ForceNorm     []float64 // per-iteration force 2-norm, regions 1+2
	Energy        []float64 // per-iteration harmonic work estimate
}

// Driver runs the outer relaxation loop: evaluate forces, test
// convergence, relax the core, apply the elastic correction, repeat.
// It is synchronous and single-threaded; the context only serves to
// abandon a run early.
type Driver struct {
	ctrl      *Controller
	provider  ForceProvider
	params    Params
	observers []Observer
}

// NewDriver wires a controller and a force provider into a driver.
func NewDriver(ctrl *Controller, provider ForceProvider, params Params) *Driver {
	return &Driver{ctrl: ctrl, provider: provider, params: params}
}

// AddObserver registers an iteration observer.
func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// Run relaxes the cell in place and reports how the run ended. The
// overall stop decision is the force tolerance on regions 1+2 ANDed
// with the controller's region-2 criterion.
func (d *Driver) Run(ctx context.Context, cell *crystal.Cell) (*Result, error) {
	res := &Result{}
	for iter := 0; iter < d.params.MaxOuterIter; iter++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		forces, err := d.provider.Forces(cell)
		if err != nil {
			return res, fmt.Errorf("relax: force evaluation failed: %w", err)
		}
		if len(forces) != cell.NIons() {
			return res, fmt.Errorf("relax: provider returned %d forces for %d ions", len(forces), cell.NIons())
		}
		d.ctrl.SetForces(forces)

		forceMax, forceNorm := activeForceStats(cell, forces)
		res.Iterations = iter + 1
		res.FinalForceMax = forceMax
		res.ForceMax = append(res.ForceMax, forceMax)
		res.ForceNorm = append(res.ForceNorm, forceNorm)

		done := forceMax < d.params.Ftol && d.ctrl.Converged(d.params.Ftol)
		if done {
			res.Converged = true
		}
		if forceNorm > forceBlowup {
			d.notify(res, iter, forceMax, forceNorm, false)
			return res, ErrUnstable
		}
		if done {
			res.Energy = append(res.Energy, d.ctrl.Energy())
			d.notify(res, iter, forceMax, forceNorm, true)
			return res, nil
		}

		d.ctrl.BeforeStep(cell.Positions)
		if cr, ok := d.provider.(CoreRelaxer); ok {
			if err := cr.RelaxCore(cell); err != nil {
				return res, fmt.Errorf("relax: core relaxation failed: %w", err)
			}
		}
		d.ctrl.AfterStep(cell.Positions)

		res.Energy = append(res.Energy, d.ctrl.Energy())
		d.notify(res, iter, forceMax, forceNorm, false)
	}
	return res, nil
}

func (d *Driver) notify(res *Result, iter int, forceMax, forceNorm float64, converged bool) {
	if len(d.observers) == 0 {
		return
	}
	it := Iteration{
		Index:     iter + 1,
		ForceMax:  forceMax,
		ForceNorm: forceNorm,
		Drift:     d.ctrl.Drift(),
		Energy:    d.ctrl.Energy(),
		Converged: converged,
	}
	for _, o := range d.observers {
		o.OnIteration(it)
	}
}

// activeForceStats returns the max per-ion force norm and the overall
// 2-norm over the mobile regions 1 and 2. Region 3 is held fixed, so
// its forces never enter the stop decision.
func activeForceStats(cell *crystal.Cell, forces []crystal.Vec3) (max, norm float64) {
	var sq float64
	for i, f := range forces {
		if cell.Regions[i] > 2 {
			continue
		}
		n := f.Norm()
		if n > max {
			max = n
		}
		sq += f.Dot(f)
	}
	return max, math.Sqrt(sq)
}
