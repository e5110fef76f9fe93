//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/splat-ml/diffsplat/internal/math3"
	"github.com/splat-ml/diffsplat/internal/render"
)

// Per-splat packed output strides, matching the shader.
const (
	outFloatsPerSplat = 12 // mean2d (2) + depth (1) + conic (3) + cov3d (6)
	outIntsPerSplat   = 2  // radius + tile count
)

// Project runs the projection kernel over every splat and reads the packed
// results back into a render.Projection. The output is bit-compatible with
// render.Project up to GPU float rounding.
func (b *Backend) Project(scene *render.Scene, globalScale float32, cam render.Camera, grid render.TileGrid) (*render.Projection, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	if err := cam.Validate(); err != nil {
		return nil, err
	}

	n := scene.NumSplats()
	proj := render.NewProjection(n)
	if n == 0 {
		return proj, nil
	}

	shader := b.compileShader("project", projectShader)
	pipeline := b.getOrCreatePipeline("project", shader)

	bufMeans := b.createBuffer(f32Bytes(scene.Means), wgpu.BufferUsageStorage)
	defer bufMeans.Release()
	bufScales := b.createBuffer(f32Bytes(scene.Scales), wgpu.BufferUsageStorage)
	defer bufScales.Release()
	bufQuats := b.createBuffer(f32Bytes(scene.Quats), wgpu.BufferUsageStorage)
	defer bufQuats.Release()

	outFSize := uint64(n * outFloatsPerSplat * 4)
	outISize := uint64(n * outIntsPerSplat * 4)
	bufOutF := b.createOutputBuffer(outFSize)
	defer bufOutF.Release()
	bufOutI := b.createOutputBuffer(outISize)
	defer bufOutI.Release()

	params := packProjectParams(n, globalScale, cam, grid)
	bufParams := b.createUniformBuffer(params)
	defer bufParams.Release()

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufMeans, 0, uint64(len(scene.Means)*4)),
		wgpu.BufferBindingEntry(1, bufScales, 0, uint64(len(scene.Scales)*4)),
		wgpu.BufferBindingEntry(2, bufQuats, 0, uint64(len(scene.Quats)*4)),
		wgpu.BufferBindingEntry(3, bufOutF, 0, outFSize),
		wgpu.BufferBindingEntry(4, bufOutI, 0, outISize),
		wgpu.BufferBindingEntry(5, bufParams, 0, uint64(len(params))),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	workgroups := uint32((n + workgroupSize - 1) / workgroupSize)
	computePass.DispatchWorkgroups(workgroups, 1, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	outF, err := b.readBuffer(bufOutF, outFSize)
	if err != nil {
		return nil, fmt.Errorf("webgpu: project readback: %w", err)
	}
	outI, err := b.readBuffer(bufOutI, outISize)
	if err != nil {
		return nil, fmt.Errorf("webgpu: project readback: %w", err)
	}

	unpackProjection(proj, outF, outI, n)
	return proj, nil
}

// packProjectParams lays out the shader uniform. WGSL matrices are
// column-major, so the row-major matrices are transposed on upload.
func packProjectParams(n int, globalScale float32, cam render.Camera, grid render.TileGrid) []byte {
	buf := make([]byte, 176)
	putMat4(buf[0:64], cam.View.Transpose())
	putMat4(buf[64:128], cam.Proj.Transpose())
	putF32(buf[128:], cam.Fx)
	putF32(buf[132:], cam.Fy)
	putF32(buf[136:], float32(grid.Width))
	putF32(buf[140:], float32(grid.Height))
	putF32(buf[144:], globalScale)
	binary.LittleEndian.PutUint32(buf[148:], uint32(n))
	binary.LittleEndian.PutUint32(buf[152:], uint32(grid.TilesX))
	binary.LittleEndian.PutUint32(buf[156:], uint32(grid.TilesY))
	putF32(buf[160:], float32(grid.TileSize))
	return buf
}

// unpackProjection scatters the packed per-splat records into the projection
// buffers, matching the CPU layout.
func unpackProjection(proj *render.Projection, outF, outI []byte, n int) {
	cov3Ds := proj.Cov3Ds()
	for i := 0; i < n; i++ {
		f := outF[i*outFloatsPerSplat*4:]
		proj.Means2D[2*i+0] = getF32(f[0:])
		proj.Means2D[2*i+1] = getF32(f[4:])
		proj.Depths[i] = getF32(f[8:])
		proj.Conics[3*i+0] = getF32(f[12:])
		proj.Conics[3*i+1] = getF32(f[16:])
		proj.Conics[3*i+2] = getF32(f[20:])
		for k := 0; k < 6; k++ {
			cov3Ds[6*i+k] = getF32(f[24+4*k:])
		}

		g := outI[i*outIntsPerSplat*4:]
		proj.Radii[i] = int32(binary.LittleEndian.Uint32(g[0:]))
		proj.TileCounts[i] = int32(binary.LittleEndian.Uint32(g[4:]))
	}
}

func f32Bytes(data []float32) []byte {
	buf := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func putMat4(buf []byte, m math3.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
}

func putF32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

func getF32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}
