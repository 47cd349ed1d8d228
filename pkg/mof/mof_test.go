package mof

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// fakeEngine writes an executable shell script standing in for the
// engine binary and returns its path.
func fakeEngine(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "UnWrapConsole3.exe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func tempPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.obj")
	if err := os.WriteFile(in, []byte("v 0 0 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return in, filepath.Join(dir, "out.obj")
}

func TestRunToolNotFound(t *testing.T) {
	tests := []struct {
		name string
		exe  func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "nope.exe")
		}},
		{"directory", func(t *testing.T) string {
			return t.TempDir()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{Exe: tt.exe(t)}
			in, out := tempPaths(t)
			err := r.Run(context.Background(), in, out, DefaultParams())
			var nf *ToolNotFound
			if !errors.As(err, &nf) {
				t.Errorf("Run error = %v, want *ToolNotFound", err)
			}
		})
	}
}

func TestRunSuccess(t *testing.T) {
	r := &Runner{Exe: fakeEngine(t, `cp "$1" "$2"`)}
	in, out := tempPaths(t)
	if err := r.Run(context.Background(), in, out, DefaultParams()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("engine output is empty")
	}
}

func TestRunToolFailure(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantStderr string
	}{
		{"non-zero exit", `echo "boom" >&2; exit 3`, "boom"},
		{"no output file", `exit 0`, ""},
		{"empty output file", `: > "$2"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{Exe: fakeEngine(t, tt.script)}
			in, out := tempPaths(t)
			err := r.Run(context.Background(), in, out, DefaultParams())
			var tf *ToolFailure
			if !errors.As(err, &tf) {
				t.Fatalf("Run error = %v, want *ToolFailure", err)
			}
			if tt.wantStderr != "" && !strings.Contains(tf.Stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", tf.Stderr, tt.wantStderr)
			}
		})
	}
}

func TestRunTimeoutIsToolFailure(t *testing.T) {
	r := &Runner{
		Exe:     fakeEngine(t, `sleep 5; cp "$1" "$2"`),
		Timeout: 100 * time.Millisecond,
	}
	in, out := tempPaths(t)
	start := time.Now()
	err := r.Run(context.Background(), in, out, DefaultParams())
	var tf *ToolFailure
	if !errors.As(err, &tf) {
		t.Fatalf("Run error = %v, want *ToolFailure", err)
	}
	if !strings.Contains(tf.Reason, "timed out") {
		t.Errorf("reason = %q, want a timeout", tf.Reason)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout did not terminate the engine promptly")
	}
}

func TestParamsArgs(t *testing.T) {
	p := Params{
		Resolution:        2048,
		AspectRatio:       1.5,
		SeparateHardEdges: true,
		UseNormals:        false,
		OverlapIdentical:  true,
		OverlapMirrored:   false,
		UDIMTiles:         4,
		WorldScale:        true,
		TextureDensity:    512,
		SeamCenter:        v3.Vec{X: 1, Y: 2, Z: 3},
	}
	got := p.Args("in.obj", "out.obj")
	want := []string{
		"in.obj", "out.obj",
		"-separate", "True",
		"-resolution", "2048",
		"-aspect", "1.500000",
		"-normals", "False",
		"-udims", "4",
		"-overlap", "True",
		"-mirror", "False",
		"-worldscale", "True",
		"-density", "512",
		"-center", "1.000000", "2.000000", "3.000000",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args =\n%v\nwant\n%v", got, want)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"min resolution", func(p *Params) { p.Resolution = 32 }, false},
		{"max resolution", func(p *Params) { p.Resolution = 4096 }, false},
		{"resolution too small", func(p *Params) { p.Resolution = 16 }, true},
		{"resolution too large", func(p *Params) { p.Resolution = 8192 }, true},
		{"resolution not power of two", func(p *Params) { p.Resolution = 1000 }, true},
		{"zero aspect", func(p *Params) { p.AspectRatio = 0 }, true},
		{"huge aspect", func(p *Params) { p.AspectRatio = 1001 }, true},
		{"zero udims", func(p *Params) { p.UDIMTiles = 0 }, true},
		{"too many udims", func(p *Params) { p.UDIMTiles = 101 }, true},
		{"world scale without density", func(p *Params) {
			p.WorldScale = true
			p.TextureDensity = 0
		}, true},
		{"density ignored without world scale", func(p *Params) {
			p.TextureDensity = 0
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
