// Package reconcile merges engine output back into the host scene:
// UV channel transfer, sharp-edge transfer and optional full mesh
// replacement with identity preservation. The merge is a fixed,
// explicitly ordered pipeline of toggleable steps; later steps depend
// on earlier ones having run.
package reconcile

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/dudebrosw/autouv/pkg/mesh"
	"github.com/dudebrosw/autouv/pkg/scene"
)

// Options selects which merge steps run. The zero value runs only the
// unconditional cleanup.
type Options struct {
	ReplaceOriginal         bool
	SanitizeOriginal        bool
	SanitizeProcessed       bool
	CopySourceUVs           bool
	CopyProcessedUVs        bool
	CopyProcessedEdgeSharps bool

	// Epsilon is the positional matching tolerance in scene units;
	// zero selects mesh.DefaultEpsilon.
	Epsilon float64
}

func (o Options) epsilon() float64 {
	if o.Epsilon > 0 {
		return o.Epsilon
	}
	return mesh.DefaultEpsilon
}

// EffectiveCopyProcessedUVs resolves the copy_processed_uvs toggle
// against the replacement policy: replacement already carries the
// processed UVs, so the copy is forced off whenever ReplaceOriginal
// is set.
func (o Options) EffectiveCopyProcessedUVs() bool {
	return o.CopyProcessedUVs && !o.ReplaceOriginal
}

// Warning records a merge step that could only partially apply. The
// merge keeps going; warnings ride along on the item's result.
type Warning struct {
	Step    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Step, w.Message)
}

// Result is the outcome of one merge.
type Result struct {
	Replaced bool
	Warnings []Warning
}

// state is the working context threaded through the step pipeline.
type state struct {
	obj       *scene.Object
	original  *mesh.Record
	processed *mesh.Record
	opts      Options
	res       *Result
}

func (st *state) warnf(step, format string, args ...interface{}) {
	st.res.Warnings = append(st.res.Warnings, Warning{
		Step:    step,
		Message: fmt.Sprintf(format, args...),
	})
}

// mergeStep is one toggleable stage of the pipeline.
type mergeStep struct {
	name    string
	enabled func(Options) bool
	run     func(*state)
}

// mergeSteps is the fixed merge order. Sanitizing precedes any
// transfer so transfers see cleaned topology; replacement precedes
// sharp transfer so sharps land on whichever mesh the object ends up
// with.
var mergeSteps = []mergeStep{
	{
		name:    "sanitize_original",
		enabled: func(o Options) bool { return o.SanitizeOriginal },
		run:     (*state).sanitizeOriginal,
	},
	{
		name:    "sanitize_processed",
		enabled: func(o Options) bool { return o.SanitizeProcessed },
		run:     (*state).sanitizeProcessed,
	},
	{
		name:    "copy_source_uvs",
		enabled: func(o Options) bool { return o.CopySourceUVs },
		run:     (*state).copySourceUVs,
	},
	{
		name:    "replace_original",
		enabled: func(o Options) bool { return o.ReplaceOriginal },
		run:     (*state).replaceOriginal,
	},
	{
		name:    "copy_processed_uvs",
		enabled: func(o Options) bool { return o.EffectiveCopyProcessedUVs() },
		run:     (*state).copyProcessedUVs,
	},
	{
		name:    "copy_processed_edge_sharps",
		enabled: func(o Options) bool { return o.CopyProcessedEdgeSharps },
		run:     (*state).copyProcessedEdgeSharps,
	},
}

// Merge reconciles the processed mesh against obj's current mesh.
// release, if non-nil, frees the item's temporary data; it runs
// unconditionally, on success and failure alike, after all steps.
func Merge(obj *scene.Object, processed *mesh.Record, opts Options, release func()) (*Result, error) {
	if release != nil {
		defer release()
	}
	if obj == nil || obj.Mesh == nil {
		return nil, fmt.Errorf("reconcile: object has no mesh")
	}
	if processed == nil {
		return nil, fmt.Errorf("reconcile: no processed mesh")
	}

	st := &state{
		obj:       obj,
		original:  obj.Mesh,
		processed: processed,
		opts:      opts,
		res:       &Result{},
	}
	for _, step := range mergeSteps {
		if step.enabled(opts) {
			step.run(st)
		}
	}
	return st.res, nil
}

func (st *state) sanitizeOriginal() {
	st.original.Sanitize(st.opts.epsilon())
}

func (st *state) sanitizeProcessed() {
	st.processed.SanitizeProcessed(st.opts.epsilon())
}

// copySourceUVs copies every UV channel of the original onto the
// processed mesh by positional correspondence. Channels already named
// after the reserved processed layer are skipped, as upstream does.
func (st *state) copySourceUVs() {
	for i := range st.original.UVLayers {
		l := &st.original.UVLayers[i]
		if l.Name == mesh.ProcessedUVLayer {
			continue
		}
		st.transferUVLayer("copy_source_uvs", st.original, l, st.processed, l.Name)
	}
}

// replaceOriginal adopts the processed mesh as the object's geometry.
// Identity attributes (transform, material slots, parenting) stay
// with the object; the original's own UV channels are re-attached so
// they survive the swap.
func (st *state) replaceOriginal() {
	st.correctOrientation()

	for i := range st.original.UVLayers {
		l := &st.original.UVLayers[i]
		if l.Name == mesh.ProcessedUVLayer || st.processed.UVLayerByName(l.Name) != nil {
			continue
		}
		st.transferUVLayer("replace_original", st.original, l, st.processed, l.Name)
	}

	st.obj.ReplaceMesh(st.processed)
	st.res.Replaced = true
}

// copyProcessedUVs copies the processed mesh's channels back onto the
// original as new channels; existing channels are never overwritten.
func (st *state) copyProcessedUVs() {
	for i := range st.processed.UVLayers {
		l := &st.processed.UVLayers[i]
		st.transferUVLayer("copy_processed_uvs", st.processed, l, st.original, st.original.UniqueUVName(l.Name))
	}
}

// copyProcessedEdgeSharps transfers sharp flags from the processed
// mesh to whichever mesh the object now owns, matching edges by
// endpoint positions.
func (st *state) copyProcessedEdgeSharps() {
	target := st.obj.Mesh
	if target == st.processed {
		// Replacement adopted the processed mesh; its flags are
		// already in place.
		return
	}
	eps := st.opts.epsilon()
	ix := newVertexIndex(st.processed.Vertices, eps)

	processedEdges := make(map[mesh.Edge]bool)
	for _, e := range st.processed.Edges() {
		processedEdges[e] = st.processed.IsSharp(e)
	}

	matched := 0
	for _, e := range target.Edges() {
		a, okA := ix.nearest(target.Vertices[e.A])
		b, okB := ix.nearest(target.Vertices[e.B])
		if !okA || !okB {
			continue
		}
		sharp, ok := processedEdges[mesh.MakeEdge(a, b)]
		if !ok {
			continue
		}
		matched++
		target.SetSharp(e, sharp)
	}
	if matched == 0 && len(st.processed.SharpEdges) > 0 {
		st.warnf("copy_processed_edge_sharps", "no edges matched within %g", eps)
	}
}

// transferUVLayer copies one UV channel between meshes of possibly
// different topology. Correspondence is positional: each destination
// corner takes the UV of the nearest source vertex, via that vertex's
// first-encountered loop. Misses degrade to a warning, never an
// abort.
func (st *state) transferUVLayer(step string, src *mesh.Record, layer *mesh.UVLayer, dst *mesh.Record, dstName string) {
	eps := st.opts.epsilon()
	ix := newVertexIndex(src.Vertices, eps)
	first := firstLoopPerVertex(src.Polygons)

	target := dst.UVLayerByName(dstName)
	if target == nil {
		var err error
		target, err = dst.AddUVLayer(dstName)
		if err != nil {
			st.warnf(step, "layer %q: %v", dstName, err)
			return
		}
	}

	misses := 0
	loop := 0
	for _, p := range dst.Polygons {
		for _, vi := range p.Vertices {
			si, ok := ix.nearest(dst.Vertices[vi])
			if ok {
				if li, has := first[si]; has && li < len(layer.Loops) {
					target.Loops[loop] = layer.Loops[li]
				} else {
					misses++
				}
			} else {
				misses++
			}
			loop++
		}
	}
	if misses > 0 {
		st.warnf(step, "layer %q: %d of %d corners had no positional match within %g",
			dstName, misses, loop, eps)
	}
}

// orientationCandidates are the axis-convention rotations the
// exchange round trip can introduce, as angles about X.
var orientationCandidates = []float64{0, math.Pi / 2, -math.Pi / 2, math.Pi}

// correctOrientation undoes any orientation change the round trip
// introduced, so the replaced object's visual transform matches the
// pre-operation state. It scores each candidate rotation by how many
// processed vertices land on an original vertex and applies the best
// one.
func (st *state) correctOrientation() {
	eps := st.opts.epsilon()
	ix := newVertexIndex(st.original.Vertices, eps)

	bestAngle, bestScore := 0.0, -1
	for _, angle := range orientationCandidates {
		m := sdf.RotateX(angle)
		score := 0
		for _, v := range st.processed.Vertices {
			if _, ok := ix.nearest(m.MulPosition(v)); ok {
				score++
			}
		}
		if score > bestScore {
			bestAngle, bestScore = angle, score
		}
	}

	if bestScore == 0 {
		st.warnf("replace_original", "no positional overlap with original; orientation left as decoded")
		return
	}
	if bestAngle == 0 {
		return
	}
	m := sdf.RotateX(bestAngle)
	for i, v := range st.processed.Vertices {
		st.processed.Vertices[i] = m.MulPosition(v)
	}
	for i, n := range st.processed.Normals {
		st.processed.Normals[i] = m.MulPosition(n)
	}
}
