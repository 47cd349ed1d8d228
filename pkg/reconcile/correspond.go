package reconcile

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/dudebrosw/autouv/pkg/mesh"
)

// cellKey is a spatial hash cell sized to the matching epsilon.
type cellKey struct {
	x, y, z int64
}

// vertexIndex answers nearest-vertex queries within epsilon.
// Topology between original and processed meshes may differ after the
// engine retopologizes, so all cross-mesh correspondence is positional
// rather than index-based.
type vertexIndex struct {
	eps   float64
	verts []v3.Vec
	cells map[cellKey][]int
}

func newVertexIndex(verts []v3.Vec, eps float64) *vertexIndex {
	ix := &vertexIndex{
		eps:   eps,
		verts: verts,
		cells: make(map[cellKey][]int, len(verts)),
	}
	for i, v := range verts {
		k := ix.cell(v)
		ix.cells[k] = append(ix.cells[k], i)
	}
	return ix
}

func (ix *vertexIndex) cell(v v3.Vec) cellKey {
	return cellKey{
		x: int64(math.Floor(v.X / ix.eps)),
		y: int64(math.Floor(v.Y / ix.eps)),
		z: int64(math.Floor(v.Z / ix.eps)),
	}
}

// nearest returns the index of the closest vertex within eps of p.
// Ties are broken toward the first-encountered (lowest) index.
func (ix *vertexIndex) nearest(p v3.Vec) (int, bool) {
	c := ix.cell(p)
	best := -1
	bestDist := 0.0
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				k := cellKey{x: c.x + dx, y: c.y + dy, z: c.z + dz}
				for _, i := range ix.cells[k] {
					d := ix.verts[i].Sub(p).Length()
					if d > ix.eps {
						continue
					}
					if best == -1 || d < bestDist || (d == bestDist && i < best) {
						best = i
						bestDist = d
					}
				}
			}
		}
	}
	return best, best != -1
}

// firstLoopPerVertex maps each vertex to the first loop that touches
// it, in polygon order. Used to pick a single UV value for a vertex
// that sits on a seam.
func firstLoopPerVertex(polys []mesh.Polygon) map[int]int {
	first := make(map[int]int)
	loop := 0
	for _, p := range polys {
		for _, vi := range p.Vertices {
			if _, ok := first[vi]; !ok {
				first[vi] = loop
			}
			loop++
		}
	}
	return first
}
