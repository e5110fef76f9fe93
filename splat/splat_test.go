// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package splat_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splat-ml/diffsplat/splat"
	"github.com/splat-ml/diffsplat/tensor"
)

func testCamera(size int) splat.Camera {
	cam := splat.Camera{
		View:   splat.Mat4Identity(),
		Proj:   splat.Perspective(float32(math.Pi/2), 1, 0.01, 100),
		Fx:     float32(size) / 2,
		Fy:     float32(size) / 2,
		Width:  size,
		Height: size,
	}
	return cam
}

func testScene(t *testing.T, n int) *splat.Scene {
	t.Helper()
	means := make([]float32, 3*n)
	scales := make([]float32, 3*n)
	quats := make([]float32, 4*n)
	opacities := make([]float32, n)
	colors := make([]float32, 3*n)
	for i := 0; i < n; i++ {
		means[3*i+0] = float32(i%4)*0.3 - 0.45
		means[3*i+1] = float32(i/4)*0.3 - 0.45
		means[3*i+2] = 2 + float32(i%3)*0.5
		scales[3*i+0] = 0.1
		scales[3*i+1] = 0.15
		scales[3*i+2] = 0.12
		quats[4*i] = 1
		opacities[i] = 0.6
		colors[3*i+0] = float32(i%3) / 3
		colors[3*i+1] = 0.5
		colors[3*i+2] = 1 - float32(i%3)/3
	}
	return &splat.Scene{
		Means:     fromSlice(t, means, tensor.Shape{n, 3}),
		Scales:    fromSlice(t, scales, tensor.Shape{n, 3}),
		Quats:     fromSlice(t, quats, tensor.Shape{n, 4}),
		Opacities: fromSlice(t, opacities, tensor.Shape{n}),
		Colors:    fromSlice(t, colors, tensor.Shape{n, 3}),
	}
}

func fromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return x
}

func TestRenderImageShape(t *testing.T) {
	scene := testScene(t, 8)
	cam := testCamera(64)

	out, err := splat.Render(scene, cam, splat.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{64, 64, 3}, out.Image.Shape())
}

func TestGradientsShapedLikeInputs(t *testing.T) {
	scene := testScene(t, 8)
	cam := testCamera(64)

	out, err := splat.Render(scene, cam, splat.DefaultConfig())
	require.NoError(t, err)

	grads, err := out.Backward(tensor.Ones(out.Image.Shape()))
	require.NoError(t, err)

	assert.True(t, grads.Means.Shape().Equal(scene.Means.Shape()), "means gradient shape")
	assert.True(t, grads.Scales.Shape().Equal(scene.Scales.Shape()), "scales gradient shape")
	assert.True(t, grads.Quats.Shape().Equal(scene.Quats.Shape()), "quats gradient shape")
	assert.True(t, grads.Opacities.Shape().Equal(scene.Opacities.Shape()), "opacities gradient shape")
	assert.True(t, grads.Colors.Shape().Equal(scene.Colors.Shape()), "colors gradient shape")
}

func TestRenderEmptyScene(t *testing.T) {
	scene := testScene(t, 0)
	cam := testCamera(32)
	cfg := splat.DefaultConfig()
	cfg.Background = [3]float32{0.25, 0.5, 0.75}

	out, err := splat.Render(scene, cam, cfg)
	require.NoError(t, err)

	pix := out.Image.Data()
	for p := 0; p < 32*32; p++ {
		require.Equal(t, float32(0.25), pix[3*p])
		require.Equal(t, float32(0.5), pix[3*p+1])
		require.Equal(t, float32(0.75), pix[3*p+2])
	}

	// Backward on an empty scene returns empty, correctly-shaped gradients.
	grads, err := out.Backward(tensor.Ones(out.Image.Shape()))
	require.NoError(t, err)
	assert.Equal(t, 0, grads.Opacities.NumElements())
}

func TestProjectThenRasterizeMatchesRender(t *testing.T) {
	scene := testScene(t, 10)
	cam := testCamera(64)
	cfg := splat.DefaultConfig()

	whole, err := splat.Render(scene, cam, cfg)
	require.NoError(t, err)

	proj, err := splat.Project(scene.Means, scene.Scales, cfg.GlobalScale, scene.Quats, cam, cfg)
	require.NoError(t, err)
	split, err := splat.Rasterize(proj, scene.Colors, scene.Opacities, cfg.Background)
	require.NoError(t, err)

	assert.Equal(t, whole.Image.Data(), split.Image.Data(),
		"two-step render must match the one-call render exactly")
}

func TestRasterizeReuseKeepsEarlierOutputIntact(t *testing.T) {
	scene := testScene(t, 6)
	cam := testCamera(64)
	cfg := splat.DefaultConfig()

	proj, err := splat.Project(scene.Means, scene.Scales, cfg.GlobalScale, scene.Quats, cam, cfg)
	require.NoError(t, err)

	first, err := splat.Rasterize(proj, scene.Colors, scene.Opacities, cfg.Background)
	require.NoError(t, err)

	// Composite the same projection again with different shading before the
	// first output runs backward.
	altColors := fromSlice(t, make([]float32, 6*3), tensor.Shape{6, 3})
	altOpacities := fromSlice(t, make([]float32, 6), tensor.Shape{6})
	_, err = splat.Rasterize(proj, altColors, altOpacities, cfg.Background)
	require.NoError(t, err)

	got, err := first.Backward(tensor.Ones(first.Image.Shape()))
	require.NoError(t, err)

	// Reference: an identical single-use pipeline.
	refProj, err := splat.Project(scene.Means, scene.Scales, cfg.GlobalScale, scene.Quats, cam, cfg)
	require.NoError(t, err)
	refOut, err := splat.Rasterize(refProj, scene.Colors, scene.Opacities, cfg.Background)
	require.NoError(t, err)
	want, err := refOut.Backward(tensor.Ones(refOut.Image.Shape()))
	require.NoError(t, err)

	assert.Equal(t, want.Opacities.Data(), got.Opacities.Data(),
		"a later Rasterize on the same Projection must not rewrite the state the first output's Backward reads")
	assert.Equal(t, want.Colors.Data(), got.Colors.Data())
	assert.Equal(t, want.Means.Data(), got.Means.Data())
}

func TestProjectOutputs(t *testing.T) {
	scene := testScene(t, 5)
	cam := testCamera(64)
	cfg := splat.DefaultConfig()

	proj, err := splat.Project(scene.Means, scene.Scales, 1, scene.Quats, cam, cfg)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{5, 2}, proj.Means2D.Shape())
	assert.Equal(t, tensor.Shape{5}, proj.Depths.Shape())
	assert.Equal(t, tensor.Shape{5, 3}, proj.Conics.Shape())
	assert.Len(t, proj.Radii, 5)
	assert.Len(t, proj.TileCounts, 5)

	for i := 0; i < 5; i++ {
		assert.Positive(t, proj.Radii[i], "splat %d should survive projection", i)
		assert.Positive(t, proj.Depths.At(i), "depth %d should be positive", i)
	}
}

func TestShapeValidation(t *testing.T) {
	scene := testScene(t, 4)
	cam := testCamera(32)
	cfg := splat.DefaultConfig()

	bad := *scene
	bad.Quats = fromSlice(t, make([]float32, 4*3), tensor.Shape{3, 4})
	_, err := splat.Render(&bad, cam, cfg)
	assert.Error(t, err, "quats row count mismatch must fail")

	bad = *scene
	bad.Opacities = fromSlice(t, make([]float32, 8), tensor.Shape{4, 2})
	_, err = splat.Render(&bad, cam, cfg)
	assert.Error(t, err, "opacities rank mismatch must fail")

	_, err = splat.Project(scene.Means, scene.Scales, -0.5, scene.Quats, cam, cfg)
	assert.Error(t, err, "negative global scale must fail")

	badCam := cam
	badCam.Fx = 0
	_, err = splat.Render(scene, badCam, cfg)
	assert.Error(t, err, "zero focal length must fail")
}

func TestBackwardGradientShapeValidation(t *testing.T) {
	scene := testScene(t, 4)
	cam := testCamera(32)

	out, err := splat.Render(scene, cam, splat.DefaultConfig())
	require.NoError(t, err)

	_, err = out.Backward(tensor.Ones(tensor.Shape{16, 16, 3}))
	assert.Error(t, err, "gradient image with the wrong shape must fail")
}

func TestRenderDeterministic(t *testing.T) {
	scene := testScene(t, 30)
	cam := testCamera(64)
	cfg := splat.DefaultConfig()

	a, err := splat.Render(scene, cam, cfg)
	require.NoError(t, err)
	b, err := splat.Render(scene, cam, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Image.Data(), b.Image.Data())
}

func TestOpacityGradientDescentDirection(t *testing.T) {
	// Rendering brighter than the target must push opacity down: a one-step
	// sanity check that the gradient points in the descent direction.
	scene := testScene(t, 1)
	scene.Opacities.Set(0.8, 0)
	scene.Colors.Set(1, 0, 0)
	scene.Colors.Set(1, 0, 1)
	scene.Colors.Set(1, 0, 2)
	cam := testCamera(32)

	out, err := splat.Render(scene, cam, splat.DefaultConfig())
	require.NoError(t, err)

	// dL/dimage = +1 everywhere: loss grows with brightness.
	grads, err := out.Backward(tensor.Ones(out.Image.Shape()))
	require.NoError(t, err)

	assert.Positive(t, grads.Opacities.At(0),
		"increasing opacity increases brightness, so the gradient must be positive")
}
