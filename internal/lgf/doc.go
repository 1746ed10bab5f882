// Package lgf holds the lattice Green's function tensor and the numeric
// kernels built on it.
//
// The tensor encodes the linear elastic response of a reference lattice:
// component (axis a, site j, axis k, site i) is the displacement along k
// at ion i caused by a unit force along a at boundary ion j. It is
// computed offline and supplied as a text resource (see Load); this
// package never computes Green's functions itself.
//
//   - [Tensor]: immutable-after-load response tensor plus index metadata
//   - [Load]: resource-file parser and validator
//   - [Displace]: force contraction producing per-ion displacements and
//     the rigid drift
//   - [Region2Converged]: boundary-force convergence predicate
//   - [HarmonicEnergy]: linear-response work estimate
//
// All kernels are pure functions over the tensor and a caller-supplied
// force field; per-step mutable state lives with the caller.
package lgf
