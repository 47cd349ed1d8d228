package exchange

import (
	"bufio"
	"fmt"
	"io"
	"os"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/dudebrosw/autouv/pkg/mesh"
)

// toExchange maps a host-space (Z-up) vector into exchange space
// (Y-up).
func toExchange(v v3.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Z, Z: -v.Y}
}

// fromExchange is the inverse of toExchange.
func fromExchange(v v3.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: -v.Z, Z: v.Y}
}

// Encode writes r to w in the engine's exchange layout. Polygon count
// is preserved: the grammar accepts n-gons, so no triangulation
// happens on the way out.
func Encode(w io.Writer, r *mesh.Record, opts Options) error {
	if r.PolygonCount() == 0 {
		return &EncodeError{Mesh: r.Name, Reason: "mesh has no polygons"}
	}
	if err := r.Validate(); err != nil {
		return &EncodeError{Mesh: r.Name, Reason: err.Error()}
	}
	for i, p := range r.Polygons {
		if hasRepeatedVertex(p) {
			return &EncodeError{Mesh: r.Name, Reason: fmt.Sprintf("polygon %d repeats a vertex", i)}
		}
	}

	layers, err := resolveEmbedLayers(r, opts)
	if err != nil {
		return err
	}

	writeNormals := opts.UseNormals || opts.SeparateHardEdges
	var normals []v3.Vec
	if writeNormals {
		normals = wedgeNormals(r, opts.SeparateHardEdges)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# autouv exchange\n")
	fmt.Fprintf(bw, "o %s\n", r.Name)

	for _, v := range r.Vertices {
		e := toExchange(v)
		fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", e.X, e.Y, e.Z)
	}
	for _, l := range layers {
		for _, uv := range l.Loops {
			fmt.Fprintf(bw, "vt %.6f %.6f\n", uv.X, uv.Y)
		}
	}
	for _, n := range normals {
		e := toExchange(n)
		fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", e.X, e.Y, e.Z)
	}

	hasUV := len(layers) > 0
	withMaterials := hasMaterials(r)
	material := -1
	loop := 0
	for _, p := range r.Polygons {
		if withMaterials && p.Material != material {
			material = p.Material
			fmt.Fprintf(bw, "usemtl mat%d\n", material)
		}
		bw.WriteString("f")
		for _, vi := range p.Vertices {
			li := loop + 1 // 1-based shared loop index for vt and vn
			switch {
			case hasUV && writeNormals:
				fmt.Fprintf(bw, " %d/%d/%d", vi+1, li, li)
			case hasUV:
				fmt.Fprintf(bw, " %d/%d", vi+1, li)
			case writeNormals:
				fmt.Fprintf(bw, " %d//%d", vi+1, li)
			default:
				fmt.Fprintf(bw, " %d", vi+1)
			}
			loop++
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// EncodeFile encodes r to path and describes the written unit.
func EncodeFile(path string, r *mesh.Record, opts Options) (*Unit, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("exchange: create %s: %w", path, err)
	}
	defer f.Close()
	if err := Encode(f, r, opts); err != nil {
		return nil, err
	}
	return &Unit{
		Path:     path,
		Mesh:     r.Name,
		Vertices: r.VertexCount(),
		Polygons: r.PolygonCount(),
	}, nil
}

// resolveEmbedLayers picks the UV channels to embed. Nil selects the
// active channel; a request beyond the format's capacity or for an
// unknown name is an encode error.
func resolveEmbedLayers(r *mesh.Record, opts Options) ([]*mesh.UVLayer, error) {
	names := opts.EmbedUVLayers
	if names == nil {
		if len(r.UVLayers) == 0 {
			return nil, nil
		}
		return []*mesh.UVLayer{&r.UVLayers[r.ActiveUV]}, nil
	}
	if len(names) > MaxUVChannels {
		return nil, &EncodeError{
			Mesh:   r.Name,
			Reason: fmt.Sprintf("%d uv channels requested, format carries at most %d", len(names), MaxUVChannels),
		}
	}
	var layers []*mesh.UVLayer
	for _, name := range names {
		l := r.UVLayerByName(name)
		if l == nil {
			return nil, &EncodeError{Mesh: r.Name, Reason: fmt.Sprintf("uv layer %q not found", name)}
		}
		layers = append(layers, l)
	}
	return layers, nil
}

func hasRepeatedVertex(p mesh.Polygon) bool {
	seen := make(map[int]bool, len(p.Vertices))
	for _, vi := range p.Vertices {
		if seen[vi] {
			return true
		}
		seen[vi] = true
	}
	return false
}

func hasMaterials(r *mesh.Record) bool {
	for _, p := range r.Polygons {
		if p.Material != 0 {
			return true
		}
	}
	return false
}

// wedgeNormals returns one normal per loop: smooth vertex normals,
// flattened to the face normal on polygons that touch a sharp edge
// when separate is set. This is how hard boundaries are encoded for
// the engine; it never interprets them locally.
func wedgeNormals(r *mesh.Record, separate bool) []v3.Vec {
	if len(r.Normals) == r.LoopCount() && !separate {
		return r.Normals
	}

	smooth := make([]v3.Vec, r.VertexCount())
	for i := range r.Polygons {
		n := r.PolygonNormal(i)
		for _, vi := range r.Polygons[i].Vertices {
			smooth[vi] = smooth[vi].Add(n)
		}
	}
	for i := range smooth {
		if smooth[i].Length() > 0 {
			smooth[i] = smooth[i].Normalize()
		}
	}

	out := make([]v3.Vec, 0, r.LoopCount())
	for pi, p := range r.Polygons {
		flat := separate && polygonTouchesSharp(r, p)
		var fn v3.Vec
		if flat {
			fn = r.PolygonNormal(pi)
			if fn.Length() > 0 {
				fn = fn.Normalize()
			}
		}
		for _, vi := range p.Vertices {
			if flat {
				out = append(out, fn)
			} else {
				out = append(out, smooth[vi])
			}
		}
	}
	return out
}

func polygonTouchesSharp(r *mesh.Record, p mesh.Polygon) bool {
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		if r.IsSharp(mesh.MakeEdge(p.Vertices[i], p.Vertices[(i+1)%n])) {
			return true
		}
	}
	return false
}
