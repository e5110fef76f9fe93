package math3

import "math"

// Quat is a rotation quaternion with scalar part W and vector part (X, Y, Z).
type Quat struct {
	W, X, Y, Z float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat { return Quat{W: 1} }

// Norm returns the Euclidean norm of q.
func (q Quat) Norm() float32 {
	return float32(math.Sqrt(float64(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)))
}

// Normalize returns q scaled to unit norm and the original norm.
// A zero quaternion is returned unchanged with norm 0.
func (q Quat) Normalize() (Quat, float32) {
	n := q.Norm()
	if n < 1e-12 {
		return q, 0
	}
	inv := 1 / n
	return Quat{q.W * inv, q.X * inv, q.Y * inv, q.Z * inv}, n
}

// Dot returns the 4D dot product of q and o.
func (q Quat) Dot(o Quat) float32 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

// RotationMatrix returns the rotation matrix of a unit quaternion.
func (q Quat) RotationMatrix() Mat3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return Mat3{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// AxisAngle returns the quaternion rotating by angle radians about axis.
// The axis need not be normalized.
func AxisAngle(axis Vec3, angle float32) Quat {
	a := axis.Normalize()
	s := float32(math.Sin(float64(angle) / 2))
	c := float32(math.Cos(float64(angle) / 2))
	return Quat{W: c, X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

// RotationMatrixVJP computes the gradient of a scalar loss with respect to
// the unnormalized quaternion q, given vR, the loss gradient with respect to
// the entries of RotationMatrix(normalize(q)).
//
// The returned gradient accounts for the normalization: the raw gradient is
// projected onto the tangent space of the unit sphere at normalize(q) and
// scaled by 1/|q|, so that moves along q itself (which leave the rotation
// unchanged) receive zero gradient.
func RotationMatrixVJP(q Quat, vR Mat3) Quat {
	qn, n := q.Normalize()
	if n == 0 {
		return Quat{}
	}
	w, x, y, z := qn.W, qn.X, qn.Y, qn.Z

	// Gradient with respect to the components of the unit quaternion.
	g := Quat{
		W: 2 * (x*(vR.At(2, 1)-vR.At(1, 2)) +
			y*(vR.At(0, 2)-vR.At(2, 0)) +
			z*(vR.At(1, 0)-vR.At(0, 1))),
		X: 2*(y*(vR.At(0, 1)+vR.At(1, 0))+
			z*(vR.At(0, 2)+vR.At(2, 0))+
			w*(vR.At(2, 1)-vR.At(1, 2))) -
			4*x*(vR.At(1, 1)+vR.At(2, 2)),
		Y: 2*(x*(vR.At(0, 1)+vR.At(1, 0))+
			w*(vR.At(0, 2)-vR.At(2, 0))+
			z*(vR.At(1, 2)+vR.At(2, 1))) -
			4*y*(vR.At(0, 0)+vR.At(2, 2)),
		Z: 2*(x*(vR.At(0, 2)+vR.At(2, 0))+
			y*(vR.At(1, 2)+vR.At(2, 1))+
			w*(vR.At(1, 0)-vR.At(0, 1))) -
			4*z*(vR.At(0, 0)+vR.At(1, 1)),
	}

	// Normalization pullback: remove the radial component, scale by 1/|q|.
	d := g.Dot(qn)
	inv := 1 / n
	return Quat{
		W: (g.W - d*w) * inv,
		X: (g.X - d*x) * inv,
		Y: (g.Y - d*y) * inv,
		Z: (g.Z - d*z) * inv,
	}
}
