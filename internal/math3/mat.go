package math3

import "math"

// Mat3 is a 3×3 matrix, row-major: element (r, c) is at index r*3+c.
type Mat3 [9]float32

// Mat3Identity returns the 3×3 identity matrix.
func Mat3Identity() Mat3 {
	var m Mat3
	m[0], m[4], m[8] = 1, 1, 1
	return m
}

// Mat3Diag returns a diagonal matrix with the given entries.
func Mat3Diag(d Vec3) Mat3 {
	var m Mat3
	m[0], m[4], m[8] = d.X, d.Y, d.Z
	return m
}

// At returns element (r, c).
func (m Mat3) At(r, c int) float32 { return m[r*3+c] }

// Mul returns the matrix product m * o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float32
			for k := 0; k < 3; k++ {
				s += m[i*3+k] * o[k*3+j]
			}
			r[i*3+j] = s
		}
	}
	return r
}

// Transpose returns the transpose of m.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Add returns m + o element-wise.
func (m Mat3) Add(o Mat3) Mat3 {
	var r Mat3
	for i := range m {
		r[i] = m[i] + o[i]
	}
	return r
}

// Scale returns m * s element-wise.
func (m Mat3) Scale(s float32) Mat3 {
	var r Mat3
	for i := range m {
		r[i] = m[i] * s
	}
	return r
}

// Mat4 is a 4×4 matrix, row-major: element (r, c) is at index r*4+c.
type Mat4 [16]float32

// Mat4Identity returns the 4×4 identity matrix.
func Mat4Identity() Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// At returns element (r, c).
func (m Mat4) At(r, c int) float32 { return m[r*4+c] }

// Mul returns the matrix product m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[i*4+k] * o[k*4+j]
			}
			r[i*4+j] = s
		}
	}
	return r
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[j*4+i] = m[i*4+j]
		}
	}
	return r
}

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3]*v.W,
		m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7]*v.W,
		m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11]*v.W,
		m[12]*v.X + m[13]*v.Y + m[14]*v.Z + m[15]*v.W,
	}
}

// TransformPoint transforms a 3D point (w = 1) without the perspective
// divide.
func (m Mat4) TransformPoint(v Vec3) Vec3 {
	return m.MulVec4(Vec4{v.X, v.Y, v.Z, 1}).XYZ()
}

// Rotation returns the upper-left 3×3 block of m.
func (m Mat4) Rotation() Mat3 {
	return Mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// LookAt builds a world-to-camera view matrix with the camera at eye,
// looking at center, with +z pointing into the scene.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Mat4{
		s.X, s.Y, s.Z, -s.Dot(eye),
		u.X, u.Y, u.Z, -u.Dot(eye),
		f.X, f.Y, f.Z, -f.Dot(eye),
		0, 0, 0, 1,
	}
}

// Perspective builds a perspective projection matrix mapping camera-space
// points with z in [near, far] into NDC. fovY is the vertical field of view
// in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	t := float32(math.Tan(float64(fovY) / 2))
	return Mat4{
		1 / (aspect * t), 0, 0, 0,
		0, 1 / t, 0, 0,
		0, 0, far / (far - near), -far * near / (far - near),
		0, 0, 1, 0,
	}
}
