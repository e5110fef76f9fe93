package render

import "fmt"

// Scene holds the per-splat parameter arrays for one render call. All arrays
// are flat and row-major: Means[3i:3i+3] is the world-space position of splat
// i, Quats[4i:4i+4] its orientation as (w, x, y, z), and so on. The arrays
// are immutable for the duration of a render and its paired backward pass.
type Scene struct {
	Means     []float32 // [N, 3] world-space positions
	Scales    []float32 // [N, 3] per-axis standard deviations
	Quats     []float32 // [N, 4] orientations, (w, x, y, z)
	Opacities []float32 // [N] base opacities in [0, 1]
	Colors    []float32 // [N, 3] RGB colors
}

// NumSplats returns the number of splats implied by the means array.
func (s *Scene) NumSplats() int { return len(s.Means) / 3 }

// Validate checks that all parallel arrays agree on the number of splats.
// A mismatch is a structural error and aborts the call before any
// computation starts.
func (s *Scene) Validate() error {
	if len(s.Means)%3 != 0 {
		return fmt.Errorf("render: means length %d is not a multiple of 3", len(s.Means))
	}
	n := s.NumSplats()
	if len(s.Scales) != 3*n {
		return fmt.Errorf("render: scales length %d, want %d for %d splats", len(s.Scales), 3*n, n)
	}
	if len(s.Quats) != 4*n {
		return fmt.Errorf("render: quats length %d, want %d for %d splats", len(s.Quats), 4*n, n)
	}
	if len(s.Opacities) != n {
		return fmt.Errorf("render: opacities length %d, want %d", len(s.Opacities), n)
	}
	if len(s.Colors) != 3*n {
		return fmt.Errorf("render: colors length %d, want %d for %d splats", len(s.Colors), 3*n, n)
	}
	return nil
}
