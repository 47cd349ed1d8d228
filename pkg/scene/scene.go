// Package scene models the host-side objects that own mesh data: the
// transform, material slots and parent links that survive a mesh
// replacement. It is the read/write view the reconciliation engine
// works against.
package scene

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/dudebrosw/autouv/pkg/mesh"
)

// Transform is a TRS transform. Rotation is Euler angles in degrees.
type Transform struct {
	Translation v3.Vec
	Rotation    v3.Vec
	Scale       v3.Vec
}

// IdentityTransform returns the no-op transform.
func IdentityTransform() Transform {
	return Transform{Scale: v3.Vec{X: 1, Y: 1, Z: 1}}
}

// Equals compares two transforms componentwise within eps.
func (t Transform) Equals(o Transform, eps float64) bool {
	return t.Translation.Sub(o.Translation).Length() <= eps &&
		t.Rotation.Sub(o.Rotation).Length() <= eps &&
		t.Scale.Sub(o.Scale).Length() <= eps
}

// Object is one host scene object: identity attributes plus the mesh
// data they apply to.
type Object struct {
	Name      string
	Transform Transform

	// Materials are the object's material slot names; Polygon.Material
	// indexes into this slice.
	Materials []string

	Mesh *mesh.Record

	parent   *Object
	children []*Object
}

// NewObject creates an object with an identity transform.
func NewObject(name string, m *mesh.Record) *Object {
	return &Object{
		Name:      name,
		Transform: IdentityTransform(),
		Mesh:      m,
	}
}

// Parent returns the object's parent, or nil.
func (o *Object) Parent() *Object {
	return o.parent
}

// Children returns the object's children in attach order.
func (o *Object) Children() []*Object {
	return o.children
}

// SetParent reparents the object, maintaining both child lists.
func (o *Object) SetParent(p *Object) {
	if o.parent != nil {
		kids := o.parent.children
		for i, c := range kids {
			if c == o {
				o.parent.children = append(kids[:i], kids[i+1:]...)
				break
			}
		}
	}
	o.parent = p
	if p != nil {
		p.children = append(p.children, o)
	}
}

// ReplaceMesh swaps the object's geometry for m and returns the old
// mesh. Transform, material slots and parenting are identity
// attributes of the object, not of the geometry, and are untouched.
func (o *Object) ReplaceMesh(m *mesh.Record) *mesh.Record {
	old := o.Mesh
	o.Mesh = m
	return old
}
