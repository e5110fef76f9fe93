package render

import (
	"math"
	"testing"

	"github.com/splat-ml/diffsplat/internal/math3"
	"github.com/splat-ml/diffsplat/internal/parallel"
)

func renderScene(t *testing.T, scene *Scene, cam Camera, cfg Config) *Output {
	t.Helper()
	out, err := Render(scene, cam, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func pixAt(img *Image, x, y int) (r, g, b float32) {
	o := 3 * (y*img.Width + x)
	return img.Pix[o], img.Pix[o+1], img.Pix[o+2]
}

func TestRasterizeSingleSplat(t *testing.T) {
	cam := testCam(64, 64)
	cfg := DefaultConfig()
	cfg.Background = [3]float32{0, 0, 1}
	scene := singleSplat(math3.Vec3{Z: 2}, 0.15, 1, [3]float32{1, 0, 0})

	out := renderScene(t, scene, cam, cfg)

	// Center pixel: nearly pure splat color; alpha is clamped at 0.999 so a
	// sliver of background always survives.
	r, g, b := pixAt(out.Image, 31, 31)
	if r < 0.9 {
		t.Errorf("center red = %g, want > 0.9", r)
	}
	if g != 0 {
		t.Errorf("center green = %g, want 0", g)
	}
	if b <= 0 || b > 0.1 {
		t.Errorf("center blue = %g, want small positive background remnant", b)
	}

	// A far corner is pure background.
	r, _, b = pixAt(out.Image, 0, 0)
	if r != 0 || b != 1 {
		t.Errorf("corner = (%g, _, %g), want background (0, _, 1)", r, b)
	}
}

func TestRenderEmptyScene(t *testing.T) {
	cam := testCam(32, 32)
	cfg := DefaultConfig()
	cfg.Background = [3]float32{0.2, 0.4, 0.6}
	scene := &Scene{}

	out := renderScene(t, scene, cam, cfg)
	for p := 0; p < cam.Width*cam.Height; p++ {
		if out.Image.Pix[3*p] != 0.2 || out.Image.Pix[3*p+1] != 0.4 || out.Image.Pix[3*p+2] != 0.6 {
			t.Fatalf("pixel %d not background: %v", p, out.Image.Pix[3*p:3*p+3])
		}
	}
}

func TestRasterizeDepthOrder(t *testing.T) {
	cam := testCam(64, 64)
	cfg := DefaultConfig()

	// Two splats on the optical axis; the near one is nearly opaque, so the
	// far one barely shows through regardless of scene array order.
	scene := &Scene{
		Means:     []float32{0, 0, 3, 0, 0, 1.5},
		Scales:    []float32{0.2, 0.2, 0.2, 0.2, 0.2, 0.2},
		Quats:     []float32{1, 0, 0, 0, 1, 0, 0, 0},
		Opacities: []float32{1, 1},
		Colors:    []float32{0, 1, 0, 1, 0, 0}, // far green, near red
	}

	out := renderScene(t, scene, cam, cfg)
	r, g, _ := pixAt(out.Image, 31, 31)
	if r < 0.9 {
		t.Errorf("near splat red = %g, want > 0.9", r)
	}
	if g > 0.05 {
		t.Errorf("occluded far splat green = %g, want < 0.05", g)
	}
}

func TestRasterizeSaturationEarlyExit(t *testing.T) {
	cam := testCam(32, 32)
	cfg := DefaultConfig()

	// A stack of opaque splats saturates transmittance after the first two;
	// the rest must not be composited.
	const n = 6
	scene := &Scene{
		Means:     make([]float32, 3*n),
		Scales:    make([]float32, 3*n),
		Quats:     make([]float32, 4*n),
		Opacities: make([]float32, n),
		Colors:    make([]float32, 3*n),
	}
	for i := 0; i < n; i++ {
		scene.Means[3*i+2] = 1 + float32(i)*0.5
		for k := 0; k < 3; k++ {
			scene.Scales[3*i+k] = 0.3
		}
		scene.Quats[4*i] = 1
		scene.Opacities[i] = 1
		scene.Colors[3*i+0] = float32(i) / n
	}

	out := renderScene(t, scene, cam, cfg)

	center := 15*out.Image.Width + 15
	if out.Image.finalT[center] >= transmittanceMin*10 {
		t.Errorf("final transmittance %g, want saturated", out.Image.finalT[center])
	}
	if out.Image.lastContrib[center] >= n {
		t.Errorf("composited %d entries, expected early exit before %d",
			out.Image.lastContrib[center], n)
	}
}

func TestRasterizeOpacityBelowFloorInvisible(t *testing.T) {
	cam := testCam(32, 32)
	cfg := DefaultConfig()
	scene := singleSplat(math3.Vec3{Z: 2}, 0.2, 0.002, [3]float32{1, 1, 1})

	out := renderScene(t, scene, cam, cfg)
	r, g, b := pixAt(out.Image, 15, 15)
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("splat below the alpha floor contributed: (%g, %g, %g)", r, g, b)
	}
}

func TestRasterizeOpacityClamped(t *testing.T) {
	cam := testCam(32, 32)
	cfg := DefaultConfig()

	over := renderScene(t, singleSplat(math3.Vec3{Z: 2}, 0.2, 5, [3]float32{1, 1, 1}), cam, cfg)
	one := renderScene(t, singleSplat(math3.Vec3{Z: 2}, 0.2, 1, [3]float32{1, 1, 1}), cam, cfg)

	for i := range over.Image.Pix {
		if over.Image.Pix[i] != one.Image.Pix[i] {
			t.Fatal("opacity above 1 must render identically to opacity 1")
		}
	}
}

func TestRenderDeterministicAcrossWorkers(t *testing.T) {
	cam := testCam(96, 96)
	scene := checkerScene(120)

	cfgSeq := DefaultConfig()
	cfgSeq.Parallel = parallel.Config{}
	cfgPar := DefaultConfig()
	cfgPar.Parallel = parallel.Config{Enabled: true, NumWorkers: 7, MinChunkSize: 1}

	a := renderScene(t, scene, cam, cfgSeq)
	b := renderScene(t, scene, cam, cfgPar)
	for i := range a.Image.Pix {
		if a.Image.Pix[i] != b.Image.Pix[i] {
			t.Fatalf("pixel float %d differs between sequential and parallel", i)
		}
	}
}

func TestBackwardDeterministicAcrossRuns(t *testing.T) {
	cam := testCam(64, 64)
	scene := checkerScene(80)
	cfg := DefaultConfig()
	cfg.Parallel = parallel.Config{Enabled: true, NumWorkers: 5, MinChunkSize: 1}

	gradOut := make([]float32, cam.Width*cam.Height*3)
	for i := range gradOut {
		gradOut[i] = float32((i*2654435761)%1000)/1000 - 0.5
	}

	out1 := renderScene(t, scene, cam, cfg)
	g1, err := out1.Backward(gradOut)
	if err != nil {
		t.Fatal(err)
	}
	out2 := renderScene(t, scene, cam, cfg)
	g2, err := out2.Backward(gradOut)
	if err != nil {
		t.Fatal(err)
	}

	for i := range g1.Means {
		if g1.Means[i] != g2.Means[i] {
			t.Fatalf("mean gradient %d differs between identical runs", i)
		}
	}
	for i := range g1.Opacities {
		if g1.Opacities[i] != g2.Opacities[i] {
			t.Fatalf("opacity gradient %d differs between identical runs", i)
		}
	}
}

// checkerScene spreads n translucent splats over the view frustum.
func checkerScene(n int) *Scene {
	scene := &Scene{
		Means:     make([]float32, 3*n),
		Scales:    make([]float32, 3*n),
		Quats:     make([]float32, 4*n),
		Opacities: make([]float32, n),
		Colors:    make([]float32, 3*n),
	}
	for i := 0; i < n; i++ {
		scene.Means[3*i+0] = float32(i%10)*0.2 - 0.9
		scene.Means[3*i+1] = float32(i/10)*0.18 - 0.9
		scene.Means[3*i+2] = 1.2 + float32(i%4)*0.4
		scene.Scales[3*i+0] = 0.06
		scene.Scales[3*i+1] = 0.09
		scene.Scales[3*i+2] = 0.05
		q := math3.AxisAngle(math3.Vec3{X: 1, Y: float32(i % 3), Z: 1}, float32(i)*0.1)
		scene.Quats[4*i+0] = q.W
		scene.Quats[4*i+1] = q.X
		scene.Quats[4*i+2] = q.Y
		scene.Quats[4*i+3] = q.Z
		scene.Opacities[i] = 0.4 + float32(i%5)*0.1
		scene.Colors[3*i+0] = float32(i%7) / 7
		scene.Colors[3*i+1] = float32(i%5) / 5
		scene.Colors[3*i+2] = float32(i%3) / 3
	}
	return scene
}

func TestRenderRejectsBadInputs(t *testing.T) {
	cam := testCam(32, 32)
	cfg := DefaultConfig()

	// Mismatched array lengths.
	bad := singleSplat(math3.Vec3{Z: 2}, 0.1, 1, [3]float32{1, 1, 1})
	bad.Quats = []float32{1, 0, 0}
	if _, err := Render(bad, cam, cfg); err == nil {
		t.Error("expected error for mismatched quats length")
	}

	// Invalid camera.
	ok := singleSplat(math3.Vec3{Z: 2}, 0.1, 1, [3]float32{1, 1, 1})
	badCam := cam
	badCam.Width = 0
	if _, err := Render(ok, badCam, cfg); err == nil {
		t.Error("expected error for zero-width camera")
	}

	// Negative global scale.
	cfgNeg := cfg
	cfgNeg.GlobalScale = -1
	if _, err := Render(ok, cam, cfgNeg); err == nil {
		t.Error("expected error for negative global scale")
	}

	// Invalid tile size.
	cfgTile := cfg
	cfgTile.TileSize = 0
	if _, err := Render(ok, cam, cfgTile); err == nil {
		t.Error("expected error for zero tile size")
	}
}

func TestBackwardRejectsBadGradientLength(t *testing.T) {
	cam := testCam(32, 32)
	out := renderScene(t, singleSplat(math3.Vec3{Z: 2}, 0.1, 1, [3]float32{1, 1, 1}), cam, DefaultConfig())
	if _, err := out.Backward(make([]float32, 7)); err == nil {
		t.Error("expected error for wrong gradient length")
	}
}

func TestImageFinalTransmittanceConsistent(t *testing.T) {
	cam := testCam(32, 32)
	cfg := DefaultConfig()
	cfg.Background = [3]float32{0, 0, 1}
	scene := singleSplat(math3.Vec3{Z: 2}, 0.1, 0.5, [3]float32{1, 0, 0})

	out := renderScene(t, scene, cam, cfg)
	// At every pixel, blue = finalT * bg since the splat has no blue.
	for p := 0; p < cam.Width*cam.Height; p++ {
		wantB := out.Image.finalT[p]
		if math.Abs(float64(out.Image.Pix[3*p+2]-wantB)) > 1e-6 {
			t.Fatalf("pixel %d: blue %g, want finalT %g", p, out.Image.Pix[3*p+2], wantB)
		}
	}
}
