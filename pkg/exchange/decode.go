package exchange

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/dudebrosw/autouv/pkg/mesh"
)

// sharpNormalDot is the wedge-normal agreement threshold used to
// recover sharp edges from split normals in engine output. Two faces
// whose normals along a shared edge agree to better than this cosine
// are considered smooth.
const sharpNormalDot = 1 - 1e-3

// Decode parses engine output into a mesh record. The engine is not
// fully under our control, so trailing whitespace, blank lines and
// comments are tolerated; anything structurally wrong is a
// DecodeError. The decoded UV channel always lands on the reserved
// ProcessedUVLayer name.
func Decode(rd io.Reader) (*mesh.Record, error) {
	r := &mesh.Record{Name: "mof_output"}

	var (
		uvs      []v2.Vec
		normals  []v3.Vec
		uvLoops  []v2.Vec
		nrmLoops []v3.Vec
		hasUV    bool
		hasNrm   bool
		material int
		matIndex = map[string]int{}
	)

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:])
			if err != nil {
				return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("vertex: %v", err)}
			}
			r.Vertices = append(r.Vertices, fromExchange(p))

		case "vt":
			if len(fields) < 3 {
				return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("uv has %d fields, want at least 2", len(fields)-1)}
			}
			u, err1 := strconv.ParseFloat(fields[1], 64)
			v, err2 := strconv.ParseFloat(fields[2], 64)
			if err1 != nil || err2 != nil {
				return nil, &DecodeError{Line: line, Reason: "uv: non-numeric coordinate"}
			}
			uvs = append(uvs, v2.Vec{X: u, Y: v})

		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("normal: %v", err)}
			}
			normals = append(normals, fromExchange(n))

		case "f":
			if len(fields) < 4 {
				return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("face has %d corners, need at least 3", len(fields)-1)}
			}
			poly := mesh.Polygon{Material: material}
			for _, tok := range fields[1:] {
				vi, ti, ni, err := parseFaceCorner(tok)
				if err != nil {
					return nil, &DecodeError{Line: line, Reason: err.Error()}
				}
				if vi < 1 || vi > len(r.Vertices) {
					return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("vertex index %d out of range [1,%d]", vi, len(r.Vertices))}
				}
				poly.Vertices = append(poly.Vertices, vi-1)
				if ti != 0 {
					if ti < 1 || ti > len(uvs) {
						return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("uv index %d out of range [1,%d]", ti, len(uvs))}
					}
					uvLoops = append(uvLoops, uvs[ti-1])
					hasUV = true
				} else {
					uvLoops = append(uvLoops, v2.Vec{})
				}
				if ni != 0 {
					if ni < 1 || ni > len(normals) {
						return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("normal index %d out of range [1,%d]", ni, len(normals))}
					}
					nrmLoops = append(nrmLoops, normals[ni-1])
					hasNrm = true
				} else {
					nrmLoops = append(nrmLoops, v3.Vec{})
				}
			}
			r.Polygons = append(r.Polygons, poly)

		case "o", "g":
			if len(fields) > 1 {
				r.Name = fields[1]
			}

		case "usemtl":
			if len(fields) < 2 {
				return nil, &DecodeError{Line: line, Reason: "usemtl without a name"}
			}
			material = materialIndexFor(fields[1], matIndex)

		default:
			// Unknown records (s, mtllib, …) are the engine's
			// business; skip them.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}
	if len(r.Vertices) == 0 || len(r.Polygons) == 0 {
		return nil, &DecodeError{Reason: "no geometry in engine output"}
	}

	if hasUV {
		r.UVLayers = []mesh.UVLayer{{Name: mesh.ProcessedUVLayer, Loops: uvLoops}}
	}
	if hasNrm {
		r.Normals = nrmLoops
		recoverSharpEdges(r)
	}
	return r, nil
}

// DecodeFile decodes the engine's output file.
func DecodeFile(path string) (*mesh.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("open %s: %v", path, err)}
	}
	defer f.Close()
	return Decode(f)
}

func parseVec3(fields []string) (v3.Vec, error) {
	if len(fields) < 3 {
		return v3.Vec{}, fmt.Errorf("%d fields, want 3", len(fields))
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("non-numeric field %q", fields[i])
		}
		out[i] = f
	}
	return v3.Vec{X: out[0], Y: out[1], Z: out[2]}, nil
}

// parseFaceCorner splits a face token (v, v/vt, v//vn or v/vt/vn)
// into its 1-based indices; absent parts come back as 0.
func parseFaceCorner(tok string) (vi, ti, ni int, err error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("face corner %q has %d index slots", tok, len(parts))
	}
	idx := [3]int{}
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n == 0 {
			return 0, 0, 0, fmt.Errorf("face corner %q: bad index %q", tok, p)
		}
		if n < 0 {
			return 0, 0, 0, fmt.Errorf("face corner %q: relative indices unsupported", tok)
		}
		idx[i] = n
	}
	if idx[0] == 0 {
		return 0, 0, 0, fmt.Errorf("face corner %q missing vertex index", tok)
	}
	return idx[0], idx[1], idx[2], nil
}

// materialIndexFor maps a material name to a slot index. The encoder
// writes mat<N> names, which map straight back to N; anything else
// gets the next free slot.
func materialIndexFor(name string, known map[string]int) int {
	if i, ok := known[name]; ok {
		return i
	}
	var n int
	if _, err := fmt.Sscanf(name, "mat%d", &n); err == nil && n >= 0 {
		known[name] = n
		return n
	}
	n = len(known)
	known[name] = n
	return n
}

// recoverSharpEdges marks edges whose adjoining faces carry
// disagreeing wedge normals. The engine communicates hard boundaries
// through split normals, so a normal discontinuity across an edge is
// the decoded form of a sharp flag.
func recoverSharpEdges(r *mesh.Record) {
	perEdge := make(map[mesh.Edge][]v3.Vec)
	starts := r.LoopStarts()
	for pi, p := range r.Polygons {
		n := len(p.Vertices)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			e := mesh.MakeEdge(p.Vertices[i], p.Vertices[j])
			avg := r.Normals[starts[pi]+i].Add(r.Normals[starts[pi]+j])
			if avg.Length() > 0 {
				avg = avg.Normalize()
			}
			perEdge[e] = append(perEdge[e], avg)
		}
	}
	for e, wedges := range perEdge {
		if len(wedges) < 2 {
			continue
		}
		for i := 1; i < len(wedges); i++ {
			if wedges[0].Dot(wedges[i]) < sharpNormalDot {
				r.SetSharp(e, true)
				break
			}
		}
	}
}
