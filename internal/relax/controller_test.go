package relax

import (
	"math"
	"strings"
	"testing"

	"github.com/latticeworks/lgfrelax/internal/crystal"
	"github.com/latticeworks/lgfrelax/internal/lgf"
)

const scenarioResource = `toy lgf
1 2 1 3 2
1 1 0.1 0 0 0 0.1 0 0 0 0.1
2 2 0.2 0 0 0 0.2 0 0 0 0.2
`

func scenarioTensor(t *testing.T) *lgf.Tensor {
	t.Helper()
	tensor, err := lgf.Load(strings.NewReader(scenarioResource), 3)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return tensor
}

func scenarioForces() []crystal.Vec3 {
	return []crystal.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 0}}
}

func vecNear(a, b crystal.Vec3) bool { return a.Sub(b).Norm() < 1e-10 }

func TestControllerPostStep(t *testing.T) {
	ctrl := NewController(PostStep, scenarioTensor(t), crystal.IdentityBasis(), 0)
	ctrl.SetForces(scenarioForces())

	positions := []crystal.Vec3{{0.1, 0.1, 0.1}, {0.5, 0.5, 0.5}, {0.9, 0.9, 0.9}}
	before := crystal.CloneVecs(positions)

	ctrl.BeforeStep(positions) // wrong phase for this mode: no-op
	for i := range positions {
		if positions[i] != before[i] {
			t.Fatal("BeforeStep moved ions in post-step mode")
		}
	}

	ctrl.AfterStep(positions)
	// corrected = displacement minus drift, with identity lattice the
	// fractional move equals the Cartesian one
	wantMove := []crystal.Vec3{
		{0.2 / 3, -0.2 / 3, 0},
		{-0.1 / 3, 0.4 / 3, 0},
		{-0.1 / 3, -0.2 / 3, 0},
	}
	for i := range positions {
		move := positions[i].Sub(before[i])
		if !vecNear(move, wantMove[i]) {
			t.Errorf("ion %d moved by %v, want %v", i+1, move, wantMove[i])
		}
	}

	if e := ctrl.Energy(); math.Abs(e-(-0.15)) > 1e-12 {
		t.Errorf("energy = %g, want -0.15", e)
	}
}

func TestControllerPostStepZeroForces(t *testing.T) {
	ctrl := NewController(PostStep, scenarioTensor(t), crystal.IdentityBasis(), 0)
	ctrl.SetForces(make([]crystal.Vec3, 3))

	positions := []crystal.Vec3{{0.1, 0.1, 0.1}, {0.5, 0.5, 0.5}, {0.9, 0.9, 0.9}}
	before := crystal.CloneVecs(positions)
	ctrl.AfterStep(positions)
	for i := range positions {
		if positions[i] != before[i] {
			t.Errorf("ion %d moved under zero forces", i+1)
		}
	}
}

func TestControllerPreStepSnapshot(t *testing.T) {
	ctrl := NewController(PreStep, scenarioTensor(t), crystal.IdentityBasis(), 0)
	ctrl.SetForces(scenarioForces())

	positions := []crystal.Vec3{{0.1, 0.1, 0.1}, {0.5, 0.5, 0.5}, {0.9, 0.9, 0.9}}
	before := crystal.CloneVecs(positions)

	ctrl.AfterStep(positions) // wrong phase: no-op
	ctrl.BeforeStep(positions)

	prior := ctrl.PriorPositions()
	if prior == nil {
		t.Fatal("no pre-correction snapshot")
	}
	for i := range before {
		if prior[i] != before[i] {
			t.Errorf("snapshot ion %d = %v, want %v", i+1, prior[i], before[i])
		}
	}
	moved := false
	for i := range positions {
		if positions[i] != before[i] {
			moved = true
		}
	}
	if !moved {
		t.Error("BeforeStep did not apply the correction in pre-step mode")
	}
}

func TestControllerDisabled(t *testing.T) {
	ctrl := NewController(Disabled, nil, crystal.IdentityBasis(), 0)
	ctrl.SetForces(scenarioForces())

	positions := []crystal.Vec3{{0.1, 0.1, 0.1}}
	ctrl.BeforeStep(positions)
	ctrl.AfterStep(positions)
	if positions[0] != (crystal.Vec3{0.1, 0.1, 0.1}) {
		t.Error("disabled controller moved ions")
	}
	if !ctrl.Converged(1e-30) {
		t.Error("disabled controller must never veto the stop decision")
	}
	if ctrl.Energy() != 0 {
		t.Error("disabled controller reported nonzero energy")
	}
}

func TestControllerEnabledNeedsTensor(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for enabled controller without tensor")
		}
	}()
	NewController(PostStep, nil, crystal.IdentityBasis(), 0)
}

func TestApplyWithoutComputePanics(t *testing.T) {
	ctrl := NewController(PostStep, scenarioTensor(t), crystal.IdentityBasis(), 0)
	ctrl.SetForces(scenarioForces())
	ctrl.disp, ctrl.drift = lgf.Displace(ctrl.tensor, ctrl.forces)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when applying a stale displacement field")
		}
	}()
	ctrl.apply(make([]crystal.Vec3, 3)) // computed flag never set
}

func TestControllerMaxDispCap(t *testing.T) {
	limit := 0.01
	ctrl := NewController(PostStep, scenarioTensor(t), crystal.IdentityBasis(), limit)
	ctrl.SetForces(scenarioForces())

	positions := make([]crystal.Vec3, 3)
	ctrl.AfterStep(positions)

	var max float64
	for _, p := range positions {
		if n := p.Norm(); n > max {
			max = n
		}
	}
	if math.Abs(max-limit) > 1e-12 {
		t.Errorf("largest capped move = %g, want %g", max, limit)
	}
}

func TestControllerConverged(t *testing.T) {
	ctrl := NewController(PostStep, scenarioTensor(t), crystal.IdentityBasis(), 0)
	ctrl.SetForces([]crystal.Vec3{{0.01, 0, 0}, {0.02, 0.02, 0}, {0, 0, 0}})
	if !ctrl.Converged(0.05) {
		t.Error("forces below threshold reported unconverged")
	}
	ctrl.SetForces([]crystal.Vec3{{0.01, 0, 0}, {0.04, 0.04, 0}, {0, 0, 0}})
	if ctrl.Converged(0.05) {
		t.Error("force above threshold reported converged")
	}
}
