// Package batch drives the per-mesh pipeline (encode, run the engine,
// decode, merge) over an ordered list of scene objects. Items run
// strictly one at a time: the engine is a singleton resource and its
// exchange files must never collide between invocations.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dudebrosw/autouv/pkg/exchange"
	"github.com/dudebrosw/autouv/pkg/mof"
	"github.com/dudebrosw/autouv/pkg/reconcile"
	"github.com/dudebrosw/autouv/pkg/scene"
)

// OutcomeKind tags one item's result.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	Skipped
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the per-item result.
type Outcome struct {
	Object   string
	Kind     OutcomeKind
	Reason   string // set for Skipped
	Err      error  // set for Failed
	Warnings []reconcile.Warning
}

// Job is one batch invocation: an ordered selection of objects
// sharing a single parameter and options set. It lives for exactly
// one Run.
type Job struct {
	Objects []*scene.Object
	Params  mof.Params
	Options reconcile.Options
}

// Result aggregates a finished (or cut-short) batch.
type Result struct {
	Outcomes  []Outcome
	Succeeded int
	Failed    int
	Skipped   int

	// Aborted marks a batch stopped early: either a configuration
	// error that would recur for every item, or a caller
	// cancellation. Completed outcomes remain valid.
	Aborted bool
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Kind {
	case Success:
		r.Succeeded++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
	}
}

// Summary renders the caller-facing one-liner.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
	if r.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	if r.Aborted {
		s += " (batch aborted early)"
	}
	return s
}

// ProgressFunc receives fractional progress after each item.
type ProgressFunc func(done, total int)

// Scheduler runs jobs. Exactly one item is in flight at any time, and
// its temporary exchange files are released before the next item's
// encode begins.
type Scheduler struct {
	Runner *mof.Runner

	// TempDir holds the per-item exchange files. Empty means the OS
	// temp directory.
	TempDir string

	// Progress, if set, is called after every attempted item.
	Progress ProgressFunc

	// Log, if set, receives per-item progress and failure detail.
	Log *log.Logger
}

// Run processes job items in selection order. Per-item failures mark
// that item Failed and the batch moves on; only a missing engine
// executable aborts the whole run, because it would fail identically
// for every remaining item. Cancellation is cooperative and checked
// only between items, never mid-item.
func (s *Scheduler) Run(ctx context.Context, job *Job) (*Result, error) {
	if s.Runner == nil {
		return nil, fmt.Errorf("batch: no runner configured")
	}
	res := &Result{}
	total := len(job.Objects)

	for _, obj := range job.Objects {
		select {
		case <-ctx.Done():
			s.logf("batch canceled after %d of %d items", len(res.Outcomes), total)
			res.Aborted = true
			return res, nil
		default:
		}

		outcome := s.runItem(ctx, obj, job)
		res.add(outcome)
		s.report(res, total)

		if outcome.Kind == Failed {
			var nf *mof.ToolNotFound
			if errors.As(outcome.Err, &nf) {
				// Configuration problem, not a per-mesh one: stop
				// here. Items already completed stay valid.
				s.logf("engine executable missing, aborting batch: %v", nf)
				res.Aborted = true
				return res, nil
			}
		}
	}
	return res, nil
}

// runItem runs the full pipeline for one object. Its temporary
// exchange files are removed before returning, on every path.
func (s *Scheduler) runItem(ctx context.Context, obj *scene.Object, job *Job) Outcome {
	out := Outcome{Object: obj.Name}
	if obj.Mesh == nil {
		out.Kind = Skipped
		out.Reason = "object has no mesh data"
		return out
	}

	dir := s.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	id := uuid.NewString()
	inPath := filepath.Join(dir, fmt.Sprintf("%s-%s.obj", obj.Name, id))
	outPath := filepath.Join(dir, fmt.Sprintf("%s-%s-unwrapped.obj", obj.Name, id))
	release := func() {
		os.Remove(inPath)
		os.Remove(outPath)
	}

	s.logf("unwrapping %q (%d polygons)", obj.Name, obj.Mesh.PolygonCount())

	unit, err := exchange.EncodeFile(inPath, obj.Mesh, exchange.Options{
		UseNormals:        job.Params.UseNormals,
		SeparateHardEdges: job.Params.SeparateHardEdges,
	})
	if err != nil {
		release()
		return failed(out, err)
	}

	// Cancellation is boundary-only: a running engine is never
	// interrupted, so the runner's own timeout is the sole source of
	// forced termination.
	if err := s.Runner.Run(context.WithoutCancel(ctx), unit.Path, outPath, job.Params); err != nil {
		release()
		return failed(out, err)
	}

	processed, err := exchange.DecodeFile(outPath)
	if err != nil {
		release()
		return failed(out, err)
	}

	merged, err := reconcile.Merge(obj, processed, job.Options, release)
	if err != nil {
		return failed(out, err)
	}
	out.Kind = Success
	out.Warnings = merged.Warnings
	for _, w := range merged.Warnings {
		s.logf("%q: %s", obj.Name, w)
	}
	return out
}

func (s *Scheduler) report(res *Result, total int) {
	if s.Progress != nil {
		s.Progress(len(res.Outcomes), total)
	}
	if s.Log != nil {
		s.Log.Debug("progress", "done", len(res.Outcomes), "total", total)
	}
}

func (s *Scheduler) logf(format string, args ...interface{}) {
	if s.Log != nil {
		s.Log.Infof(format, args...)
	}
}

func failed(out Outcome, err error) Outcome {
	out.Kind = Failed
	out.Err = err
	return out
}
