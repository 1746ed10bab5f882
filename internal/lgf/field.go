package lgf

import (
	"fmt"
	"math"

	"github.com/latticeworks/lgfrelax/internal/crystal"
)

// Displace contracts the tensor with the current forces and returns the
// per-ion Cartesian displacement field and the rigid drift.
//
// For each ion i in the displaced range and axis k,
//
//	disp[i][k] = sum over j in region 2, axis a of G(a,j,k,i) * f[j][a]
//
// Boundary sites without loaded data contribute zero through their zero
// tensor rows; the loop deliberately does not skip them. The drift is
// the displacement sum divided by the total ion count (not the size of
// the displaced range), matching the reference normalization.
func Displace(t *Tensor, forces []crystal.Vec3) ([]crystal.Vec3, crystal.Vec3) {
	if len(forces) != t.nIons {
		panic(fmt.Sprintf("lgf: force field has %d ions, tensor sized for %d", len(forces), t.nIons))
	}
	disp := make([]crystal.Vec3, t.nIons)
	for a := 1; a <= 3; a++ {
		for j := t.region2.Min; j <= t.region2.Max; j++ {
			f := forces[j-1][a-1]
			if f == 0 {
				continue
			}
			for k := 1; k <= 3; k++ {
				row := t.data[t.offset(a, j, k, t.displaced.Min):]
				for i := t.displaced.Min; i <= t.displaced.Max; i++ {
					disp[i-1][k-1] += row[i-t.displaced.Min] * f
				}
			}
		}
	}
	var drift crystal.Vec3
	for i := t.displaced.Min; i <= t.displaced.Max; i++ {
		drift = drift.Add(disp[i-1])
	}
	drift = drift.Scale(1 / float64(t.nIons))
	return disp, drift
}

// Region2Converged reports whether every boundary ion feels a force of
// Euclidean norm at most |threshold|. All ions in the declared range are
// checked, whether or not they carry tensor data; forces are defined for
// the whole simulated system.
func Region2Converged(t *Tensor, forces []crystal.Vec3, threshold float64) bool {
	lim := math.Abs(threshold)
	for j := t.region2.Min; j <= t.region2.Max; j++ {
		if forces[j-1].Norm() > lim {
			return false
		}
	}
	return true
}

// HarmonicEnergy returns the linear-response work estimate
// -1/2 sum over region 2 of f·u. Negative values mean the correction
// releases energy. Diagnostic only; it feeds no decision.
func HarmonicEnergy(t *Tensor, forces, disp []crystal.Vec3) float64 {
	var sum float64
	for j := t.region2.Min; j <= t.region2.Max; j++ {
		sum += forces[j-1].Dot(disp[j-1])
	}
	return -0.5 * sum
}
