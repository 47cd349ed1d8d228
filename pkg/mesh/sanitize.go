package mesh

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SanitizeStats reports what a sanitize pass removed.
type SanitizeStats struct {
	CollapsedVertices int
	DroppedPolygons   int
}

// quantKey is a spatial cell key for positional grouping.
type quantKey struct {
	x, y, z int64
}

func quantize(v v3.Vec, eps float64) quantKey {
	return quantKey{
		x: int64(math.Round(v.X / eps)),
		y: int64(math.Round(v.Y / eps)),
		z: int64(math.Round(v.Z / eps)),
	}
}

// Sanitize cleans the record in place: coincident vertices within eps
// are collapsed to the first-encountered position, polygons left with
// duplicate vertices or near-zero area are dropped (together with
// their UV loops and normals), and smooth per-loop normals are
// recomputed from the surviving topology. eps <= 0 selects
// DefaultEpsilon. Running the pass twice is a no-op the second time.
func (r *Record) Sanitize(eps float64) SanitizeStats {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	var stats SanitizeStats
	stats.CollapsedVertices = r.collapseVertices(eps)
	stats.DroppedPolygons = r.dropDegeneratePolygons(eps)
	r.recomputeNormals()
	return stats
}

// SanitizeProcessed is the cleanup applied to engine output before any
// transfer: a regular Sanitize, with encoding artifacts stripped
// first. Custom split normals and sharp-edge flags inherited from the
// exchange round trip are discarded; normals are rebuilt smooth.
func (r *Record) SanitizeProcessed(eps float64) SanitizeStats {
	r.Normals = nil
	r.SharpEdges = nil
	return r.Sanitize(eps)
}

// collapseVertices merges vertices that fall in the same eps-sized
// spatial cell and remaps all indices. Returns the number of vertices
// removed.
func (r *Record) collapseVertices(eps float64) int {
	remap := make([]int, len(r.Vertices))
	canon := make(map[quantKey]int)
	var kept []v3.Vec
	for i, v := range r.Vertices {
		key := quantize(v, eps)
		if j, ok := canon[key]; ok {
			remap[i] = j
			continue
		}
		canon[key] = len(kept)
		remap[i] = len(kept)
		kept = append(kept, v)
	}
	removed := len(r.Vertices) - len(kept)
	if removed == 0 {
		return 0
	}
	r.Vertices = kept
	for pi := range r.Polygons {
		verts := r.Polygons[pi].Vertices
		for j, vi := range verts {
			verts[j] = remap[vi]
		}
	}
	if r.SharpEdges != nil {
		mapped := make(map[Edge]bool, len(r.SharpEdges))
		for e, s := range r.SharpEdges {
			me := MakeEdge(remap[e.A], remap[e.B])
			if me.A != me.B {
				mapped[me] = s
			}
		}
		r.SharpEdges = mapped
	}
	return removed
}

// dropDegeneratePolygons removes polygons with repeated vertices or
// with area at or below eps², keeping UV loops and normals aligned.
// Returns the number of polygons dropped.
func (r *Record) dropDegeneratePolygons(eps float64) int {
	keep := make([]bool, len(r.Polygons))
	dropped := 0
	for i := range r.Polygons {
		keep[i] = !r.polygonDegenerate(i, eps)
		if !keep[i] {
			dropped++
		}
	}
	if dropped == 0 {
		return 0
	}

	starts := r.LoopStarts()
	var polys []Polygon
	var loopKeep []int // surviving global loop indices
	for i, p := range r.Polygons {
		if !keep[i] {
			continue
		}
		polys = append(polys, p)
		for li := starts[i]; li < starts[i]+len(p.Vertices); li++ {
			loopKeep = append(loopKeep, li)
		}
	}
	for li := range r.UVLayers {
		src := r.UVLayers[li].Loops
		dst := src[:0:0]
		for _, k := range loopKeep {
			dst = append(dst, src[k])
		}
		r.UVLayers[li].Loops = dst
	}
	if len(r.Normals) > 0 {
		src := r.Normals
		dst := src[:0:0]
		for _, k := range loopKeep {
			dst = append(dst, src[k])
		}
		r.Normals = dst
	}
	r.Polygons = polys
	return dropped
}

// polygonDegenerate reports whether polygon i repeats a vertex or has
// near-zero area.
func (r *Record) polygonDegenerate(i int, eps float64) bool {
	p := r.Polygons[i]
	seen := make(map[int]bool, len(p.Vertices))
	for _, vi := range p.Vertices {
		if seen[vi] {
			return true
		}
		seen[vi] = true
	}
	// Newell vector length is twice the polygon area.
	return r.PolygonNormal(i).Length() <= 2*eps*eps
}

// recomputeNormals rebuilds smooth per-loop normals by accumulating
// area-weighted polygon normals per vertex.
func (r *Record) recomputeNormals() {
	if len(r.Polygons) == 0 {
		r.Normals = nil
		return
	}
	acc := make([]v3.Vec, len(r.Vertices))
	for i := range r.Polygons {
		n := r.PolygonNormal(i)
		for _, vi := range r.Polygons[i].Vertices {
			acc[vi] = acc[vi].Add(n)
		}
	}
	for i := range acc {
		if acc[i].Length() > 0 {
			acc[i] = acc[i].Normalize()
		}
	}
	normals := make([]v3.Vec, 0, r.LoopCount())
	for _, p := range r.Polygons {
		for _, vi := range p.Vertices {
			normals = append(normals, acc[vi])
		}
	}
	r.Normals = normals
}
