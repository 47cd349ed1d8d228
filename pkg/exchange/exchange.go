// Package exchange implements the codec between mesh records and the
// OBJ-flavored exchange files consumed and produced by the external
// unwrap engine. The format is the engine's contract, not ours: this
// package only maps to and from it.
//
// Axis convention: the exchange format is Y-up, the host scene is
// Z-up. Encode maps host (x,y,z) to exchange (x,z,-y) and Decode maps
// back, so an identity round trip reproduces host coordinates exactly.
package exchange

import "fmt"

// MaxUVChannels is the number of UV channels the exchange format can
// carry per mesh. The grammar has a single vt stream.
const MaxUVChannels = 1

// EncodeError reports a source mesh the exchange format cannot
// represent.
type EncodeError struct {
	Mesh   string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %q: %s", e.Mesh, e.Reason)
}

// DecodeError reports malformed engine output.
type DecodeError struct {
	Line   int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("decode: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

// Unit describes one encoded mesh on disk, ready to hand to the
// engine.
type Unit struct {
	Path     string
	Mesh     string
	Vertices int
	Polygons int
}

// Options selects what the codec embeds alongside raw geometry. Both
// flags are metadata for the engine's classifier; the codec does not
// interpret them beyond choosing what to write.
type Options struct {
	// UseNormals embeds per-loop normals (vn records).
	UseNormals bool

	// SeparateHardEdges splits normals across sharp edges so the
	// engine sees hard boundaries as discontinuities. Implies normals
	// are written.
	SeparateHardEdges bool

	// EmbedUVLayers names the UV channels to embed. Nil embeds the
	// mesh's active channel when one exists. Asking for more channels
	// than MaxUVChannels is an encode error.
	EmbedUVLayers []string
}
