package mesh

import (
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// quad returns a unit quad in the XY plane with one UV layer.
func quad() *Record {
	r := &Record{
		Name: "quad",
		Vertices: []v3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: 0},
		},
		Polygons: []Polygon{
			{Vertices: []int{0, 1, 2, 3}},
		},
	}
	r.UVLayers = []UVLayer{{
		Name: "UVMap",
		Loops: []v2.Vec{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
	}}
	return r
}

func TestMakeEdgeNormalizes(t *testing.T) {
	if MakeEdge(5, 2) != (Edge{A: 2, B: 5}) {
		t.Errorf("MakeEdge(5,2) = %v, want {2 5}", MakeEdge(5, 2))
	}
	if MakeEdge(2, 5) != MakeEdge(5, 2) {
		t.Error("edge keys should be orientation independent")
	}
}

func TestCounts(t *testing.T) {
	r := quad()
	if got := r.VertexCount(); got != 4 {
		t.Errorf("VertexCount = %d, want 4", got)
	}
	if got := r.PolygonCount(); got != 1 {
		t.Errorf("PolygonCount = %d, want 1", got)
	}
	if got := r.LoopCount(); got != 4 {
		t.Errorf("LoopCount = %d, want 4", got)
	}
	if got := len(r.Edges()); got != 4 {
		t.Errorf("len(Edges) = %d, want 4", got)
	}
}

func TestAddUVLayerRejectsDuplicates(t *testing.T) {
	r := quad()
	if _, err := r.AddUVLayer("UVMap"); err == nil {
		t.Fatal("expected error adding duplicate uv layer name")
	}
	l, err := r.AddUVLayer("bake")
	if err != nil {
		t.Fatalf("AddUVLayer(bake): %v", err)
	}
	if len(l.Loops) != r.LoopCount() {
		t.Errorf("new layer has %d loops, want %d", len(l.Loops), r.LoopCount())
	}
}

func TestUniqueUVName(t *testing.T) {
	r := quad()
	tests := []struct {
		name string
		want string
	}{
		{"bake", "bake"},
		{"UVMap", "UVMap.001"},
	}
	for _, tt := range tests {
		if got := r.UniqueUVName(tt.name); got != tt.want {
			t.Errorf("UniqueUVName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if _, err := r.AddUVLayer("UVMap.001"); err != nil {
		t.Fatal(err)
	}
	if got := r.UniqueUVName("UVMap"); got != "UVMap.002" {
		t.Errorf("UniqueUVName(UVMap) = %q, want UVMap.002", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr bool
	}{
		{"valid", func(r *Record) {}, false},
		{"degree below three", func(r *Record) {
			r.Polygons[0].Vertices = []int{0, 1}
		}, true},
		{"index out of range", func(r *Record) {
			r.Polygons[0].Vertices = []int{0, 1, 9}
		}, true},
		{"duplicate uv layer", func(r *Record) {
			r.UVLayers = append(r.UVLayers, UVLayer{Name: "UVMap", Loops: make([]v2.Vec, 4)})
		}, true},
		{"short uv layer", func(r *Record) {
			r.UVLayers[0].Loops = r.UVLayers[0].Loops[:2]
		}, true},
		{"active uv out of range", func(r *Record) {
			r.ActiveUV = 3
		}, true},
		{"sharp edge out of range", func(r *Record) {
			r.SetSharp(Edge{A: 0, B: 17}, true)
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := quad()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := quad()
	r.SetSharp(MakeEdge(0, 1), true)
	c := r.Clone()

	c.Vertices[0] = v3.Vec{X: 9, Y: 9, Z: 9}
	c.Polygons[0].Vertices[0] = 3
	c.UVLayers[0].Loops[0] = v2.Vec{X: 0.5, Y: 0.5}
	c.SetSharp(MakeEdge(1, 2), true)

	if r.Vertices[0] != (v3.Vec{}) {
		t.Error("clone shares vertex storage")
	}
	if r.Polygons[0].Vertices[0] != 0 {
		t.Error("clone shares polygon storage")
	}
	if r.UVLayers[0].Loops[0] != (v2.Vec{}) {
		t.Error("clone shares uv storage")
	}
	if r.IsSharp(MakeEdge(1, 2)) {
		t.Error("clone shares sharp edge map")
	}
}

func TestPolygonNormal(t *testing.T) {
	r := quad()
	n := r.PolygonNormal(0)
	// Unit quad in XY: Newell vector is (0,0,2), twice the area.
	if n.Z != 2 || n.X != 0 || n.Y != 0 {
		t.Errorf("PolygonNormal = %v, want (0,0,2)", n)
	}
}
