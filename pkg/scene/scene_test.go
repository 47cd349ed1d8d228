package scene

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/dudebrosw/autouv/pkg/mesh"
)

func tri(name string) *mesh.Record {
	return &mesh.Record{
		Name: name,
		Vertices: []v3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		},
		Polygons: []mesh.Polygon{{Vertices: []int{0, 1, 2}}},
	}
}

func TestSetParentMaintainsChildLists(t *testing.T) {
	root := NewObject("root", nil)
	a := NewObject("a", tri("a"))
	b := NewObject("b", tri("b"))

	a.SetParent(root)
	b.SetParent(root)
	if len(root.Children()) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children()))
	}

	other := NewObject("other", nil)
	a.SetParent(other)
	if len(root.Children()) != 1 || root.Children()[0] != b {
		t.Errorf("root children after reparent = %v", root.Children())
	}
	if a.Parent() != other {
		t.Error("a not reparented")
	}

	a.SetParent(nil)
	if a.Parent() != nil || len(other.Children()) != 0 {
		t.Error("detach left stale links")
	}
}

func TestReplaceMeshPreservesIdentity(t *testing.T) {
	o := NewObject("panel", tri("panel"))
	o.Transform = Transform{
		Translation: v3.Vec{X: 1, Y: 2, Z: 3},
		Rotation:    v3.Vec{X: 0, Y: 0, Z: 45},
		Scale:       v3.Vec{X: 2, Y: 2, Z: 2},
	}
	o.Materials = []string{"wood", "steel"}
	parent := NewObject("rig", nil)
	o.SetParent(parent)

	before := o.Transform
	old := o.ReplaceMesh(tri("replacement"))

	if old.Name != "panel" {
		t.Errorf("old mesh = %q, want panel", old.Name)
	}
	if o.Mesh.Name != "replacement" {
		t.Errorf("mesh = %q, want replacement", o.Mesh.Name)
	}
	if !o.Transform.Equals(before, 0) {
		t.Error("transform changed by mesh replacement")
	}
	if len(o.Materials) != 2 || o.Materials[0] != "wood" {
		t.Errorf("materials changed: %v", o.Materials)
	}
	if o.Parent() != parent {
		t.Error("parenting changed by mesh replacement")
	}
}

func TestTransformEquals(t *testing.T) {
	a := IdentityTransform()
	b := a
	b.Translation.X = 1e-7
	if !a.Equals(b, 1e-6) {
		t.Error("transforms within eps should compare equal")
	}
	b.Translation.X = 0.1
	if a.Equals(b, 1e-6) {
		t.Error("distinct transforms compared equal")
	}
}
