package render

import (
	"math"
	"testing"
)

// fillSplat writes one already-projected splat into proj.
func fillSplat(proj *Projection, i int, x, y, depth float32, radius int32) {
	proj.Means2D[2*i+0] = x
	proj.Means2D[2*i+1] = y
	proj.Depths[i] = depth
	proj.Radii[i] = radius
	proj.Conics[3*i+0] = 1
	proj.Conics[3*i+2] = 1
}

func TestBinRangesPartitionEntries(t *testing.T) {
	grid, _ := NewTileGrid(64, 64, 16)
	proj := NewProjection(3)
	fillSplat(proj, 0, 8, 8, 1.0, 20)  // spans several tiles
	fillSplat(proj, 1, 40, 40, 2.0, 5) // one or two tiles
	fillSplat(proj, 2, 8, 8, 0.5, 3)   // in front of splat 0

	bins := Bin(proj, grid)

	// Every entry is inside exactly one tile range, and the ranges are
	// consistent with the entries' own tile keys.
	var covered int
	for tile, r := range bins.Ranges {
		if r[0] > r[1] {
			t.Fatalf("tile %d: inverted range %v", tile, r)
		}
		for idx := r[0]; idx < r[1]; idx++ {
			if bins.Entries[idx].Tile() != tile {
				t.Fatalf("entry %d in range of tile %d but keyed to tile %d",
					idx, tile, bins.Entries[idx].Tile())
			}
		}
		covered += int(r[1] - r[0])
	}
	if covered != len(bins.Entries) {
		t.Errorf("ranges cover %d entries, want %d", covered, len(bins.Entries))
	}
}

func TestBinFrontToBackWithinTile(t *testing.T) {
	grid, _ := NewTileGrid(64, 64, 16)
	proj := NewProjection(4)
	// All four overlap tile (0, 0) with distinct depths, inserted out of order.
	fillSplat(proj, 0, 8, 8, 3.0, 4)
	fillSplat(proj, 1, 8, 8, 1.0, 4)
	fillSplat(proj, 2, 8, 8, 2.0, 4)
	fillSplat(proj, 3, 8, 8, 0.5, 4)

	bins := Bin(proj, grid)
	r := bins.Ranges[0]
	if r[1]-r[0] != 4 {
		t.Fatalf("tile 0 has %d entries, want 4", r[1]-r[0])
	}
	wantOrder := []int32{3, 1, 2, 0}
	for k, want := range wantOrder {
		if got := bins.Entries[int(r[0])+k].Splat; got != want {
			t.Errorf("position %d: splat %d, want %d", k, got, want)
		}
	}
}

func TestBinEqualDepthTieBreak(t *testing.T) {
	grid, _ := NewTileGrid(32, 32, 16)
	proj := NewProjection(3)
	fillSplat(proj, 0, 8, 8, 1.5, 2)
	fillSplat(proj, 1, 9, 9, 1.5, 2)
	fillSplat(proj, 2, 7, 7, 1.5, 2)

	bins := Bin(proj, grid)
	r := bins.Ranges[0]
	// Equal keys fall back to ascending splat index.
	for k := int32(0); k < r[1]-r[0]; k++ {
		if got := bins.Entries[r[0]+k].Splat; got != int32(k) {
			t.Errorf("position %d: splat %d, want %d", k, got, k)
		}
	}
}

func TestBinSkipsCulledSplats(t *testing.T) {
	grid, _ := NewTileGrid(32, 32, 16)
	proj := NewProjection(2)
	fillSplat(proj, 0, 8, 8, 1.0, 3)
	// Splat 1 has radius 0: culled, must produce no entries.

	bins := Bin(proj, grid)
	for _, e := range bins.Entries {
		if e.Splat == 1 {
			t.Fatal("culled splat appeared in the bins")
		}
	}
}

func TestBinKeyRoundTrip(t *testing.T) {
	depth := float32(3.75)
	key := uint64(5)<<32 | uint64(math.Float32bits(depth))
	e := TileEntry{Key: key, Splat: 9}
	if e.Tile() != 5 {
		t.Errorf("Tile() = %d, want 5", e.Tile())
	}
	if e.Depth() != depth {
		t.Errorf("Depth() = %g, want %g", e.Depth(), depth)
	}
}

func TestBinEmptyProjection(t *testing.T) {
	grid, _ := NewTileGrid(32, 32, 16)
	bins := Bin(NewProjection(0), grid)
	if len(bins.Entries) != 0 {
		t.Errorf("empty projection produced %d entries", len(bins.Entries))
	}
	if len(bins.Ranges) != grid.NumTiles() {
		t.Errorf("ranges length %d, want %d", len(bins.Ranges), grid.NumTiles())
	}
}
