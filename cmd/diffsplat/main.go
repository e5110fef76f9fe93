// Package main provides the diffsplat CLI.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"

	"github.com/splat-ml/diffsplat/splat"
	"github.com/splat-ml/diffsplat/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("diffsplat %s\n", version)
			return
		case "render":
			if err := renderCmd(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "diffsplat:", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("diffsplat - Differentiable Gaussian Splatting for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  render     Render a random splat cloud to a PNG")
}

// renderCmd renders a random cloud of splats and writes the image as PNG.
// It doubles as a smoke test for the full forward pipeline.
func renderCmd(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		width  = fs.Int("width", 512, "image width in pixels")
		height = fs.Int("height", 512, "image height in pixels")
		n      = fs.Int("n", 2000, "number of splats")
		seed   = fs.Int64("seed", 42, "random seed")
		out    = fs.String("o", "render.png", "output PNG path")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	scene, err := randomScene(*n, rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}

	cam := splat.Camera{
		View:   splat.LookAt(splat.Vec3{Z: -4}, splat.Vec3{}, splat.Vec3{Y: 1}),
		Fx:     float32(*width) / 2,
		Fy:     float32(*height) / 2,
		Width:  *width,
		Height: *height,
	}
	cam.Proj = splat.Perspective(float32(math.Pi/2), float32(*width)/float32(*height), 0.01, 100).Mul(cam.View)

	rendered, err := splat.Render(scene, cam, splat.DefaultConfig())
	if err != nil {
		return err
	}

	if err := writePNG(*out, rendered.Image, *width, *height); err != nil {
		return err
	}
	fmt.Printf("rendered %d splats to %s (%dx%d)\n", *n, *out, *width, *height)
	return nil
}

// randomScene builds n splats in a unit-ish cloud around the origin.
func randomScene(n int, rng *rand.Rand) (*splat.Scene, error) {
	means := make([]float32, 3*n)
	scales := make([]float32, 3*n)
	quats := make([]float32, 4*n)
	opacities := make([]float32, n)
	colors := make([]float32, 3*n)

	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			means[3*i+k] = rng.Float32()*2 - 1
			scales[3*i+k] = 0.01 + rng.Float32()*0.05
			colors[3*i+k] = rng.Float32()
		}
		q := randomQuat(rng)
		copy(quats[4*i:], q[:])
		opacities[i] = 0.3 + rng.Float32()*0.7
	}

	meansT, err := tensor.FromSlice(means, tensor.Shape{n, 3})
	if err != nil {
		return nil, err
	}
	scalesT, _ := tensor.FromSlice(scales, tensor.Shape{n, 3})
	quatsT, _ := tensor.FromSlice(quats, tensor.Shape{n, 4})
	opacitiesT, _ := tensor.FromSlice(opacities, tensor.Shape{n})
	colorsT, _ := tensor.FromSlice(colors, tensor.Shape{n, 3})

	return &splat.Scene{
		Means:     meansT,
		Scales:    scalesT,
		Quats:     quatsT,
		Opacities: opacitiesT,
		Colors:    colorsT,
	}, nil
}

// randomQuat samples a uniformly distributed unit quaternion (w, x, y, z).
func randomQuat(rng *rand.Rand) [4]float32 {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a := math.Sqrt(1 - u1)
	b := math.Sqrt(u1)
	return [4]float32{
		float32(a * math.Sin(2*math.Pi*u2)),
		float32(a * math.Cos(2*math.Pi*u2)),
		float32(b * math.Sin(2*math.Pi*u3)),
		float32(b * math.Cos(2*math.Pi*u3)),
	}
}

// writePNG converts an (H, W, 3) float image in [0, 1] to 8-bit PNG.
func writePNG(path string, img *tensor.Tensor, width, height int) error {
	data := img.Data()
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 3
			rgba.SetRGBA(x, y, color.RGBA{
				R: to8(data[o]),
				G: to8(data[o+1]),
				B: to8(data[o+2]),
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, rgba)
}

func to8(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}
