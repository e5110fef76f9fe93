package render

import (
	"github.com/splat-ml/diffsplat/internal/math3"
	"github.com/splat-ml/diffsplat/internal/parallel"
)

// ProjectBackward pulls screen-space gradients (2D mean and conic) back
// through the projection to the world-space mean, scale, and quaternion of
// every splat. Depth carries no gradient: it orders compositing but the
// output image is not a function of it.
//
// Splats are independent, so the loop is parallel with no shared writes:
// splat i writes only row i of each output array.
func ProjectBackward(scene *Scene, globalScale float32, cam Camera, grid TileGrid, proj *Projection, sg *screenGrads, cfg parallel.Config) (vMeans, vScales, vQuats []float32) {
	n := scene.NumSplats()
	vMeans = make([]float32, 3*n)
	vScales = make([]float32, 3*n)
	vQuats = make([]float32, 4*n)

	parallel.For(n, func(i int) {
		if proj.Radii[i] == 0 {
			return
		}
		projectOneBackward(scene, i, globalScale, cam, grid, proj, sg, vMeans, vScales, vQuats)
	}, cfg)
	return vMeans, vScales, vQuats
}

func projectOneBackward(scene *Scene, i int, globalScale float32, cam Camera, grid TileGrid, proj *Projection, sg *screenGrads, vMeans, vScales, vQuats []float32) {
	mean := vec3At(scene.Means, i)
	t := cam.View.MulVec4(math3.Vec4{X: mean.X, Y: mean.Y, Z: mean.Z, W: 1}).XYZ()
	cov3D := loadSym3(proj.cov3Ds, i)

	// Conic → 2D covariance. With K = Σ₂⁻¹, dΣ₂ = -K·dK·K; the off-diagonal
	// conic gradient is split across the two symmetric slots.
	ka := proj.Conics[3*i+0]
	kb := proj.Conics[3*i+1]
	kc := proj.Conics[3*i+2]
	ga := sg.Conics[3*i+0]
	gb := sg.Conics[3*i+1] / 2
	gc := sg.Conics[3*i+2]
	// -K·G·K for 2×2 symmetric K and G.
	ta := ka*ga + kb*gb
	tb := ka*gb + kb*gc
	tc := kb*ga + kc*gb
	td := kb*gb + kc*gc
	vCovA := -(ta*ka + tb*kb)
	vCovB := -(ta*kb + tb*kc) - (tc*ka + td*kb)
	vCovC := -(tc*kb + td*kc)

	// Symmetric embedding of the 2D covariance gradient; the diagonal blur
	// added in forward is a constant shift with identity derivative.
	vCov2D := math3.Mat3{
		vCovA, vCovB / 2, 0,
		vCovB / 2, vCovC, 0,
		0, 0, 0,
	}

	jac := perspectiveJacobian(t, cam)
	w := cam.View.Rotation()
	tm := jac.Mul(w)

	// cov2D = T·Σ·Tᵀ.
	vCov3D := tm.Transpose().Mul(vCov2D).Mul(tm)
	vT := vCov2D.Add(vCov2D.Transpose()).Mul(tm).Mul(cov3D)
	vJ := vT.Mul(w.Transpose())

	// Jacobian entries depend on the (clamped) camera-space position.
	tx, ty, tz := clampOffAxis(t, cam)
	rz := 1 / tz
	rz2 := rz * rz
	rz3 := rz2 * rz
	vt := math3.Vec3{
		X: -cam.Fx * rz2 * vJ.At(0, 2),
		Y: -cam.Fy * rz2 * vJ.At(1, 2),
		Z: -cam.Fx*rz2*vJ.At(0, 0) - cam.Fy*rz2*vJ.At(1, 1) +
			2*cam.Fx*tx*rz3*vJ.At(0, 2) + 2*cam.Fy*ty*rz3*vJ.At(1, 2),
	}
	vMean := w.Transpose().MulVec3(vt)

	// 2D mean → 3D mean through the projective divide and the NDC-to-pixel
	// scaling.
	p := cam.Proj.MulVec4(math3.Vec4{X: mean.X, Y: mean.Y, Z: mean.Z, W: 1})
	rw := 1 / (p.W + 1e-6)
	ndcX := p.X * rw
	ndcY := p.Y * rw
	vNdcX := sg.Means2D[2*i+0] * 0.5 * float32(grid.Width)
	vNdcY := sg.Means2D[2*i+1] * 0.5 * float32(grid.Height)
	pr := cam.Proj
	vMean.X += rw * (vNdcX*(pr.At(0, 0)-ndcX*pr.At(3, 0)) + vNdcY*(pr.At(1, 0)-ndcY*pr.At(3, 0)))
	vMean.Y += rw * (vNdcX*(pr.At(0, 1)-ndcX*pr.At(3, 1)) + vNdcY*(pr.At(1, 1)-ndcY*pr.At(3, 1)))
	vMean.Z += rw * (vNdcX*(pr.At(0, 2)-ndcX*pr.At(3, 2)) + vNdcY*(pr.At(1, 2)-ndcY*pr.At(3, 2)))

	vMeans[3*i+0] = vMean.X
	vMeans[3*i+1] = vMean.Y
	vMeans[3*i+2] = vMean.Z

	vScale, vQuat := cov3DVJP(vec3At(scene.Scales, i), globalScale, quatAt(scene.Quats, i), vCov3D)
	vScales[3*i+0] = vScale.X
	vScales[3*i+1] = vScale.Y
	vScales[3*i+2] = vScale.Z
	vQuats[4*i+0] = vQuat.W
	vQuats[4*i+1] = vQuat.X
	vQuats[4*i+2] = vQuat.Y
	vQuats[4*i+3] = vQuat.Z
}
