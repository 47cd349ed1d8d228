// Package mesh defines the polygonal mesh record shared by the codec,
// the reconciliation engine and the batch scheduler. A Record is a
// plain in-memory container: vertex positions, polygon loops, named UV
// layers, sharp-edge flags and optional per-loop normals.
package mesh

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ProcessedUVLayer is the reserved name for the UV channel produced by
// the external unwrap engine. Decoded output always lands here so it
// can never collide with a source channel until reconciliation decides
// where it belongs.
const ProcessedUVLayer = "mof_uv_layer"

// DefaultEpsilon is the positional tolerance, in scene units, used for
// coincident-vertex collapse and cross-mesh correspondence. It sits
// well below typical feature size while absorbing the float precision
// lost in a text round trip through the exchange format.
const DefaultEpsilon = 1e-4

// Polygon is one face: an ordered loop of vertex indices plus the
// material slot it is assigned to.
type Polygon struct {
	Vertices []int
	Material int
}

// UVLayer is a named UV channel. Loops holds one coordinate per
// polygon corner in global loop order (polygons in order, corners in
// order within each polygon).
type UVLayer struct {
	Name  string
	Loops []v2.Vec
}

// Edge is an undirected edge key with A < B.
type Edge struct {
	A, B int
}

// MakeEdge returns the normalized edge key for two vertex indices.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Record is a single mesh. The zero value is an empty mesh.
type Record struct {
	Name     string
	Vertices []v3.Vec
	Polygons []Polygon

	// UVLayers are the mesh's UV channels; names are unique. ActiveUV
	// indexes the channel the codec embeds in the exchange file.
	UVLayers []UVLayer
	ActiveUV int

	// Normals are optional per-loop (split) normals in global loop
	// order. Empty means no custom normals.
	Normals []v3.Vec

	// SharpEdges flags hard shading boundaries.
	SharpEdges map[Edge]bool
}

// VertexCount returns the number of vertices.
func (r *Record) VertexCount() int {
	return len(r.Vertices)
}

// PolygonCount returns the number of polygons.
func (r *Record) PolygonCount() int {
	return len(r.Polygons)
}

// LoopCount returns the total number of polygon corners.
func (r *Record) LoopCount() int {
	n := 0
	for _, p := range r.Polygons {
		n += len(p.Vertices)
	}
	return n
}

// LoopStarts returns the global loop offset of each polygon.
func (r *Record) LoopStarts() []int {
	starts := make([]int, len(r.Polygons))
	off := 0
	for i, p := range r.Polygons {
		starts[i] = off
		off += len(p.Vertices)
	}
	return starts
}

// UVLayerByName returns the named layer, or nil if absent.
func (r *Record) UVLayerByName(name string) *UVLayer {
	for i := range r.UVLayers {
		if r.UVLayers[i].Name == name {
			return &r.UVLayers[i]
		}
	}
	return nil
}

// AddUVLayer appends a new zero-filled layer. The name must not be in
// use already; UV channel names are unique within a record.
func (r *Record) AddUVLayer(name string) (*UVLayer, error) {
	if r.UVLayerByName(name) != nil {
		return nil, fmt.Errorf("uv layer %q already exists on mesh %q", name, r.Name)
	}
	r.UVLayers = append(r.UVLayers, UVLayer{
		Name:  name,
		Loops: make([]v2.Vec, r.LoopCount()),
	})
	return &r.UVLayers[len(r.UVLayers)-1], nil
}

// UniqueUVName returns name if free, otherwise name.001, name.002, …
// in the host's duplicate-suffix convention.
func (r *Record) UniqueUVName(name string) string {
	if r.UVLayerByName(name) == nil {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if r.UVLayerByName(candidate) == nil {
			return candidate
		}
	}
}

// Edges returns the unique undirected edges in first-encounter order.
func (r *Record) Edges() []Edge {
	seen := make(map[Edge]bool)
	var edges []Edge
	for _, p := range r.Polygons {
		n := len(p.Vertices)
		for i := 0; i < n; i++ {
			e := MakeEdge(p.Vertices[i], p.Vertices[(i+1)%n])
			if !seen[e] {
				seen[e] = true
				edges = append(edges, e)
			}
		}
	}
	return edges
}

// SetSharp flags or clears an edge's sharp marking.
func (r *Record) SetSharp(e Edge, sharp bool) {
	if r.SharpEdges == nil {
		r.SharpEdges = make(map[Edge]bool)
	}
	if sharp {
		r.SharpEdges[e] = true
	} else {
		delete(r.SharpEdges, e)
	}
}

// IsSharp reports whether an edge is flagged sharp.
func (r *Record) IsSharp(e Edge) bool {
	return r.SharpEdges[e]
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		Name:     r.Name,
		ActiveUV: r.ActiveUV,
	}
	c.Vertices = append([]v3.Vec(nil), r.Vertices...)
	c.Normals = append([]v3.Vec(nil), r.Normals...)
	c.Polygons = make([]Polygon, len(r.Polygons))
	for i, p := range r.Polygons {
		c.Polygons[i] = Polygon{
			Vertices: append([]int(nil), p.Vertices...),
			Material: p.Material,
		}
	}
	c.UVLayers = make([]UVLayer, len(r.UVLayers))
	for i, l := range r.UVLayers {
		c.UVLayers[i] = UVLayer{
			Name:  l.Name,
			Loops: append([]v2.Vec(nil), l.Loops...),
		}
	}
	if r.SharpEdges != nil {
		c.SharpEdges = make(map[Edge]bool, len(r.SharpEdges))
		for e, s := range r.SharpEdges {
			c.SharpEdges[e] = s
		}
	}
	return c
}

// PolygonNormal returns the (unnormalized) Newell area vector of a
// polygon. Its length is twice the polygon area, so a near-zero
// length identifies a degenerate face.
func (r *Record) PolygonNormal(i int) v3.Vec {
	p := r.Polygons[i]
	var n v3.Vec
	for j, vi := range p.Vertices {
		vj := p.Vertices[(j+1)%len(p.Vertices)]
		a := r.Vertices[vi]
		b := r.Vertices[vj]
		n = n.Add(a.Cross(b))
	}
	return n
}

// Validate checks the record's structural invariants: every polygon
// index in range, polygon degree >= 3, UV layer names unique, and all
// per-loop arrays sized to the loop count.
func (r *Record) Validate() error {
	for i, p := range r.Polygons {
		if len(p.Vertices) < 3 {
			return fmt.Errorf("mesh %q: polygon %d has %d vertices, need at least 3", r.Name, i, len(p.Vertices))
		}
		for _, vi := range p.Vertices {
			if vi < 0 || vi >= len(r.Vertices) {
				return fmt.Errorf("mesh %q: polygon %d references vertex %d of %d", r.Name, i, vi, len(r.Vertices))
			}
		}
	}
	names := make(map[string]bool, len(r.UVLayers))
	loops := r.LoopCount()
	for _, l := range r.UVLayers {
		if names[l.Name] {
			return fmt.Errorf("mesh %q: duplicate uv layer %q", r.Name, l.Name)
		}
		names[l.Name] = true
		if len(l.Loops) != loops {
			return fmt.Errorf("mesh %q: uv layer %q has %d loops, mesh has %d", r.Name, l.Name, len(l.Loops), loops)
		}
	}
	if len(r.Normals) != 0 && len(r.Normals) != loops {
		return fmt.Errorf("mesh %q: %d normals for %d loops", r.Name, len(r.Normals), loops)
	}
	if r.ActiveUV < 0 || (len(r.UVLayers) > 0 && r.ActiveUV >= len(r.UVLayers)) {
		return fmt.Errorf("mesh %q: active uv index %d out of range", r.Name, r.ActiveUV)
	}
	for e := range r.SharpEdges {
		if e.A < 0 || e.B >= len(r.Vertices) {
			return fmt.Errorf("mesh %q: sharp edge (%d,%d) out of range", r.Name, e.A, e.B)
		}
	}
	return nil
}
