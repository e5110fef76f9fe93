package render

import (
	"math"

	"github.com/splat-ml/diffsplat/internal/math3"
	"github.com/splat-ml/diffsplat/internal/parallel"
)

const (
	// nearClip culls splats at or behind the near camera plane.
	nearClip = 0.01
	// detFloor is the numerical floor on the 2D covariance determinant.
	// Below it the conic is treated as singular and the splat is dropped.
	detFloor = 1e-12
	// covBlur is added to the diagonal of every 2D covariance. It acts as a
	// screen-space low-pass: footprints stay at least about one pixel wide
	// and the covariance stays invertible.
	covBlur = 0.3
	// clampFovScale limits how far off-axis the projection Jacobian is
	// evaluated; camera-space x/z and y/z are clamped to ±1.3·tan(fov/2).
	clampFovScale = 1.3
)

// Projection holds the screen-space footprint of every splat, produced by
// Project and consumed read-only by the binner, both rasterizer passes, and
// the projection backward pass. A splat with Radii[i] == 0 was culled or
// degenerate and contributes nothing anywhere downstream.
type Projection struct {
	Means2D    []float32 // [N, 2] pixel-space centers
	Depths     []float32 // [N] camera-space z, ascending = closer
	Radii      []int32   // [N] 3σ bounding radius in pixels, 0 = dropped
	Conics     []float32 // [N, 3] inverse 2D covariance (A, B, C)
	TileCounts []int32   // [N] number of tiles overlapped

	cov3Ds []float32 // [N, 6] upper-triangular 3D covariance, saved for backward
}

// NumSplats returns the number of splats in the projection.
func (p *Projection) NumSplats() int { return len(p.Depths) }

// Cov3Ds returns the [N, 6] upper-triangular 3D covariances saved for the
// backward pass, ordered (00, 01, 02, 11, 12, 22) per row.
func (p *Projection) Cov3Ds() []float32 { return p.cov3Ds }

// NewProjection returns zeroed projection buffers for n splats. Project
// allocates and fills its own; this is for callers that fill the buffers
// elsewhere, such as the GPU projection backend.
func NewProjection(n int) *Projection {
	return &Projection{
		Means2D:    make([]float32, 2*n),
		Depths:     make([]float32, n),
		Radii:      make([]int32, n),
		Conics:     make([]float32, 3*n),
		TileCounts: make([]int32, n),
		cov3Ds:     make([]float32, 6*n),
	}
}

// Project maps every splat through the camera: world-space mean and
// covariance to pixel-space center, depth, conic, bounding radius, and
// tile-touch count. Splats behind the near plane, fully outside the tile
// grid, or with a singular projected covariance get radius 0 and are dropped
// from rendering; these are per-splat conditions, never call-level errors.
func Project(scene *Scene, globalScale float32, cam Camera, grid TileGrid, cfg parallel.Config) *Projection {
	n := scene.NumSplats()
	proj := NewProjection(n)

	parallel.For(n, func(i int) {
		projectOne(proj, scene, i, globalScale, cam, grid)
	}, cfg)
	return proj
}

func projectOne(proj *Projection, scene *Scene, i int, globalScale float32, cam Camera, grid TileGrid) {
	mean := vec3At(scene.Means, i)

	// Camera-space position; near-plane cull.
	t := cam.View.MulVec4(math3.Vec4{X: mean.X, Y: mean.Y, Z: mean.Z, W: 1}).XYZ()
	if t.Z <= nearClip {
		return
	}

	cov3D, ok := computeCov3D(vec3At(scene.Scales, i), globalScale, quatAt(scene.Quats, i))
	if !ok {
		return
	}
	storeSym3(proj.cov3Ds, i, cov3D)

	// 2D covariance via the first-order perspective Jacobian.
	a, b, c := projectCov(cov3D, t, cam)
	det := a*c - b*b
	if det <= detFloor {
		return
	}

	// Conic = inverse 2D covariance.
	invDet := 1 / det
	proj.Conics[3*i+0] = c * invDet
	proj.Conics[3*i+1] = -b * invDet
	proj.Conics[3*i+2] = a * invDet

	// 3σ bounding radius from the major eigenvalue.
	mid := 0.5 * (a + c)
	lambda := mid + float32(math.Sqrt(math.Max(float64(mid*mid-det), 0.1)))
	radius := int32(math.Ceil(3 * math.Sqrt(float64(lambda))))

	// Pixel-space center via the full projective transform.
	p := cam.Proj.MulVec4(math3.Vec4{X: mean.X, Y: mean.Y, Z: mean.Z, W: 1})
	rw := 1 / (p.W + 1e-6)
	center := math3.Vec2{
		X: ndc2pix(p.X*rw, grid.Width),
		Y: ndc2pix(p.Y*rw, grid.Height),
	}

	// Tile overlap; a splat whose bounding box misses the grid is culled.
	tx0, ty0, tx1, ty1 := grid.splatTileRect(center, radius)
	tiles := int32(tx1-tx0) * int32(ty1-ty0)
	if tiles <= 0 {
		return
	}

	proj.Means2D[2*i+0] = center.X
	proj.Means2D[2*i+1] = center.Y
	proj.Depths[i] = t.Z
	proj.Radii[i] = radius
	proj.TileCounts[i] = tiles
}

// projectCov computes the symmetric 2D covariance (a, b; b, c) of a splat
// with camera-space center t, using cov2D = T·Σ·Tᵀ with T = J·W, where J is
// the Jacobian of the perspective projection at t and W the rotation part of
// the view matrix. The off-axis terms of t are clamped before building J so
// footprints near the image border stay bounded.
func projectCov(cov3D math3.Mat3, t math3.Vec3, cam Camera) (a, b, c float32) {
	jac := perspectiveJacobian(t, cam)
	tm := jac.Mul(cam.View.Rotation())
	full := tm.Mul(cov3D).Mul(tm.Transpose())
	return full.At(0, 0) + covBlur, full.At(0, 1), full.At(1, 1) + covBlur
}

// perspectiveJacobian returns the 2×3 Jacobian of the pinhole projection at
// camera-space point t, embedded in a Mat3 with a zero last row.
func perspectiveJacobian(t math3.Vec3, cam Camera) math3.Mat3 {
	tx, ty, tz := clampOffAxis(t, cam)
	invZ := 1 / tz
	invZ2 := invZ * invZ
	return math3.Mat3{
		cam.Fx * invZ, 0, -cam.Fx * tx * invZ2,
		0, cam.Fy * invZ, -cam.Fy * ty * invZ2,
		0, 0, 0,
	}
}

// clampOffAxis limits t.x/t.z and t.y/t.z to the (slightly padded) view
// frustum before the Jacobian is evaluated.
func clampOffAxis(t math3.Vec3, cam Camera) (tx, ty, tz float32) {
	tanFovX := 0.5 * float32(cam.Width) / cam.Fx
	tanFovY := 0.5 * float32(cam.Height) / cam.Fy
	limX := clampFovScale * tanFovX
	limY := clampFovScale * tanFovY
	tx = min(limX, max(-limX, t.X/t.Z)) * t.Z
	ty = min(limY, max(-limY, t.Y/t.Z)) * t.Z
	return tx, ty, t.Z
}

// ndc2pix maps a normalized device coordinate in [-1, 1] to a pixel-center
// coordinate in an axis of size s.
func ndc2pix(v float32, s int) float32 {
	return ((v+1)*float32(s) - 1) / 2
}

// Flat-array accessors. Scene and projection buffers are flat float32 slices
// in the kernel code; these load them into value types for the matrix math.

func vec3At(a []float32, i int) math3.Vec3 {
	return math3.Vec3{X: a[3*i], Y: a[3*i+1], Z: a[3*i+2]}
}

func quatAt(a []float32, i int) math3.Quat {
	return math3.Quat{W: a[4*i], X: a[4*i+1], Y: a[4*i+2], Z: a[4*i+3]}
}

// storeSym3 stores the upper triangle of a symmetric matrix at row i of a
// [N, 6] array, ordered (00, 01, 02, 11, 12, 22).
func storeSym3(a []float32, i int, m math3.Mat3) {
	a[6*i+0] = m.At(0, 0)
	a[6*i+1] = m.At(0, 1)
	a[6*i+2] = m.At(0, 2)
	a[6*i+3] = m.At(1, 1)
	a[6*i+4] = m.At(1, 2)
	a[6*i+5] = m.At(2, 2)
}

// loadSym3 reconstructs the symmetric matrix stored by storeSym3.
func loadSym3(a []float32, i int) math3.Mat3 {
	return math3.Mat3{
		a[6*i+0], a[6*i+1], a[6*i+2],
		a[6*i+1], a[6*i+3], a[6*i+4],
		a[6*i+2], a[6*i+4], a[6*i+5],
	}
}
