package render

import (
	"github.com/splat-ml/diffsplat/internal/math3"
)

// minScale is the floor applied to per-axis scales. A scale at or below zero
// would make the covariance singular; it is clamped instead of rejected so a
// degenerate splat costs nothing but its own contribution.
const minScale = 1e-7

// clampScale applies the positivity floor to one scale vector.
func clampScale(s math3.Vec3) math3.Vec3 {
	return math3.Vec3{
		X: max(s.X, minScale),
		Y: max(s.Y, minScale),
		Z: max(s.Z, minScale),
	}
}

// computeCov3D builds the world-space covariance Σ = M·Mᵀ of one splat,
// where M = R(q)·diag(globalScale·scale). The boolean result is false when
// the quaternion has zero norm, in which case the splat is dropped from
// rendering.
func computeCov3D(scale math3.Vec3, globalScale float32, quat math3.Quat) (math3.Mat3, bool) {
	qn, n := quat.Normalize()
	if n == 0 {
		return math3.Mat3{}, false
	}
	s := clampScale(scale).Scale(globalScale)
	r := qn.RotationMatrix()
	m := r.Mul(math3.Mat3Diag(s))
	return m.Mul(m.Transpose()), true
}

// cov3DVJP pulls a gradient with respect to the covariance Σ back to the
// scale vector and the (unnormalized) quaternion.
//
// With Σ = M·Mᵀ and M = R·S, the chain is
//
//	vM = (vΣ + vΣᵀ)·M,  vS = diag(Rᵀ·vM),  vR = vM·S,
//
// followed by the rotation-matrix VJP of the quaternion, which projects the
// gradient onto the unit-norm tangent space to match the forward
// normalization. Components of the scale that were clamped by the positivity
// floor receive zero gradient.
func cov3DVJP(scale math3.Vec3, globalScale float32, quat math3.Quat, vSigma math3.Mat3) (math3.Vec3, math3.Quat) {
	qn, n := quat.Normalize()
	if n == 0 {
		return math3.Vec3{}, math3.Quat{}
	}
	sc := clampScale(scale)
	s := sc.Scale(globalScale)
	r := qn.RotationMatrix()
	m := r.Mul(math3.Mat3Diag(s))

	vM := vSigma.Add(vSigma.Transpose()).Mul(m)

	// vS = diag(Rᵀ·vM); column i of M is s_i · column i of R.
	rtvM := r.Transpose().Mul(vM)
	vScale := math3.Vec3{
		X: rtvM.At(0, 0) * globalScale,
		Y: rtvM.At(1, 1) * globalScale,
		Z: rtvM.At(2, 2) * globalScale,
	}
	if scale.X < minScale {
		vScale.X = 0
	}
	if scale.Y < minScale {
		vScale.Y = 0
	}
	if scale.Z < minScale {
		vScale.Z = 0
	}

	// vR = vM·S.
	vR := vM.Mul(math3.Mat3Diag(s))
	vQuat := math3.RotationMatrixVJP(quat, vR)
	return vScale, vQuat
}
