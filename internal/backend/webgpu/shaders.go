//go:build windows

package webgpu

// workgroupSize is the number of splats handled per workgroup.
const workgroupSize = 256

// projectShader is the per-splat projection kernel. It mirrors the CPU
// projection exactly: same constants, same clamps, same cull conditions.
// Outputs are packed per splat as
//
//	out_f: mean2d.xy, depth, conic (a, b, c), cov3d (00, 01, 02, 11, 12, 22)
//	out_i: radius, tile count
//
// A splat that is culled leaves its slots zeroed; radius 0 marks it dropped.
const projectShader = `
const NEAR_CLIP: f32 = 0.01;
const DET_FLOOR: f32 = 1e-12;
const COV_BLUR: f32 = 0.3;
const CLAMP_FOV_SCALE: f32 = 1.3;
const MIN_SCALE: f32 = 1e-7;

struct Params {
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    fx: f32,
    fy: f32,
    width: f32,
    height: f32,
    global_scale: f32,
    n: u32,
    tiles_x: i32,
    tiles_y: i32,
    tile_size: f32,
    pad0: u32,
    pad1: u32,
    pad2: u32,
}

@group(0) @binding(0) var<storage, read> means: array<f32>;
@group(0) @binding(1) var<storage, read> scales: array<f32>;
@group(0) @binding(2) var<storage, read> quats: array<f32>;
@group(0) @binding(3) var<storage, read_write> out_f: array<f32>;
@group(0) @binding(4) var<storage, read_write> out_i: array<i32>;
@group(0) @binding(5) var<uniform> params: Params;

fn ndc2pix(v: f32, s: f32) -> f32 {
    return ((v + 1.0) * s - 1.0) / 2.0;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.n) {
        return;
    }

    let mean = vec3<f32>(means[3u*i], means[3u*i+1u], means[3u*i+2u]);

    // Camera-space position; near-plane cull.
    let t4 = params.view * vec4<f32>(mean, 1.0);
    let t = t4.xyz;
    if (t.z <= NEAR_CLIP) {
        return;
    }

    // Normalized quaternion; zero norm drops the splat.
    let q = vec4<f32>(quats[4u*i], quats[4u*i+1u], quats[4u*i+2u], quats[4u*i+3u]);
    let qnorm = length(q);
    if (qnorm == 0.0) {
        return;
    }
    let w = q.x / qnorm;
    let x = q.y / qnorm;
    let y = q.z / qnorm;
    let z = q.w / qnorm;

    // Rotation matrix, column-major.
    let R = mat3x3<f32>(
        vec3<f32>(1.0 - 2.0*(y*y + z*z), 2.0*(x*y + w*z), 2.0*(x*z - w*y)),
        vec3<f32>(2.0*(x*y - w*z), 1.0 - 2.0*(x*x + z*z), 2.0*(y*z + w*x)),
        vec3<f32>(2.0*(x*z + w*y), 2.0*(y*z - w*x), 1.0 - 2.0*(x*x + y*y)),
    );

    let s = max(vec3<f32>(scales[3u*i], scales[3u*i+1u], scales[3u*i+2u]),
                vec3<f32>(MIN_SCALE)) * params.global_scale;
    let M = mat3x3<f32>(R[0] * s.x, R[1] * s.y, R[2] * s.z);
    let sigma = M * transpose(M);

    out_f[12u*i+6u]  = sigma[0][0];
    out_f[12u*i+7u]  = sigma[1][0];
    out_f[12u*i+8u]  = sigma[2][0];
    out_f[12u*i+9u]  = sigma[1][1];
    out_f[12u*i+10u] = sigma[2][1];
    out_f[12u*i+11u] = sigma[2][2];

    // Perspective Jacobian at t, off-axis terms clamped to the padded frustum.
    let tan_fovx = 0.5 * params.width / params.fx;
    let tan_fovy = 0.5 * params.height / params.fy;
    let lim_x = CLAMP_FOV_SCALE * tan_fovx;
    let lim_y = CLAMP_FOV_SCALE * tan_fovy;
    let tx = clamp(t.x / t.z, -lim_x, lim_x) * t.z;
    let ty = clamp(t.y / t.z, -lim_y, lim_y) * t.z;
    let inv_z = 1.0 / t.z;
    let inv_z2 = inv_z * inv_z;
    let J = mat3x3<f32>(
        vec3<f32>(params.fx * inv_z, 0.0, 0.0),
        vec3<f32>(0.0, params.fy * inv_z, 0.0),
        vec3<f32>(-params.fx * tx * inv_z2, -params.fy * ty * inv_z2, 0.0),
    );

    let W = mat3x3<f32>(params.view[0].xyz, params.view[1].xyz, params.view[2].xyz);
    let T = J * W;
    let cov = T * sigma * transpose(T);
    let a = cov[0][0] + COV_BLUR;
    let b = cov[1][0];
    let c = cov[1][1] + COV_BLUR;

    let det = a * c - b * b;
    if (det <= DET_FLOOR) {
        return;
    }

    let inv_det = 1.0 / det;

    // 3-sigma bounding radius from the major eigenvalue.
    let mid = 0.5 * (a + c);
    let lambda = mid + sqrt(max(mid * mid - det, 0.1));
    let radius = i32(ceil(3.0 * sqrt(lambda)));

    // Pixel-space center via the full projective transform.
    let p = params.proj * vec4<f32>(mean, 1.0);
    let rw = 1.0 / (p.w + 1e-6);
    let cx = ndc2pix(p.x * rw, params.width);
    let cy = ndc2pix(p.y * rw, params.height);

    // Tile overlap, clamped to the grid.
    let r = f32(radius);
    let ts = params.tile_size;
    let tx0 = clamp(i32((cx - r) / ts), 0, params.tiles_x);
    let tx1 = clamp(i32((cx + r + ts) / ts), 0, params.tiles_x);
    let ty0 = clamp(i32((cy - r) / ts), 0, params.tiles_y);
    let ty1 = clamp(i32((cy + r + ts) / ts), 0, params.tiles_y);
    let tiles = (tx1 - tx0) * (ty1 - ty0);
    if (tiles <= 0) {
        return;
    }

    out_f[12u*i]    = cx;
    out_f[12u*i+1u] = cy;
    out_f[12u*i+2u] = t.z;
    out_f[12u*i+3u] = c * inv_det;
    out_f[12u*i+4u] = -b * inv_det;
    out_f[12u*i+5u] = a * inv_det;
    out_i[2u*i]     = radius;
    out_i[2u*i+1u]  = tiles;
}
`
