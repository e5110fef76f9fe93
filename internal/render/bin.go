package render

import (
	"math"
	"sort"

	"github.com/splat-ml/diffsplat/internal/math3"
)

// TileEntry is one (tile, depth, splat) intersection. Key packs the tile
// index into the high 32 bits and the IEEE bit pattern of the depth into the
// low 32 bits; depths are positive after the near cull, so unsigned ordering
// of the packed key sorts first by tile, then front to back.
type TileEntry struct {
	Key   uint64
	Splat int32
}

// Tile returns the tile index encoded in the entry's key.
func (e TileEntry) Tile() int { return int(e.Key >> 32) }

// Depth returns the depth encoded in the entry's key.
func (e TileEntry) Depth() float32 {
	return math.Float32frombits(uint32(e.Key))
}

// Bins is the sorted tile-intersection index produced by Bin. The entries of
// tile t occupy Entries[Ranges[t][0]:Ranges[t][1]], ordered front to back
// with ties broken by splat index. Both rasterizer passes reuse this order
// verbatim; it is never recomputed between forward and backward.
type Bins struct {
	Entries []TileEntry
	Ranges  [][2]int32 // per tile: [start, end) into Entries
}

// Bin enumerates, for every surviving splat, the tiles its bounding circle
// overlaps, then sorts all (tile, depth, splat) entries with a single global
// sort so each tile's sub-sequence comes out contiguous and front to back.
func Bin(proj *Projection, grid TileGrid) *Bins {
	var total int32
	for _, c := range proj.TileCounts {
		total += c
	}
	entries := make([]TileEntry, 0, total)

	for i := 0; i < proj.NumSplats(); i++ {
		if proj.Radii[i] == 0 {
			continue
		}
		center := math3.Vec2{X: proj.Means2D[2*i], Y: proj.Means2D[2*i+1]}
		tx0, ty0, tx1, ty1 := grid.splatTileRect(center, proj.Radii[i])
		depthBits := uint64(math.Float32bits(proj.Depths[i]))
		for ty := ty0; ty < ty1; ty++ {
			for tx := tx0; tx < tx1; tx++ {
				tile := uint64(ty*grid.TilesX + tx)
				entries = append(entries, TileEntry{
					Key:   tile<<32 | depthBits,
					Splat: int32(i),
				})
			}
		}
	}

	// Equal keys (same tile, same depth) fall back to splat index so the
	// order is a deterministic function of the inputs alone.
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Key != entries[b].Key {
			return entries[a].Key < entries[b].Key
		}
		return entries[a].Splat < entries[b].Splat
	})

	ranges := make([][2]int32, grid.NumTiles())
	for idx, e := range entries {
		t := e.Tile()
		if idx == 0 || entries[idx-1].Tile() != t {
			ranges[t][0] = int32(idx)
		}
		ranges[t][1] = int32(idx + 1)
	}
	return &Bins{Entries: entries, Ranges: ranges}
}
