package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if p != Default() {
		t.Errorf("got %+v, want defaults", p)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autouv.toml")
	body := "mof_dir = \"/opt/mof\"\nepsilon = 0.001\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.MOFDir != "/opt/mof" {
		t.Errorf("MOFDir = %q", p.MOFDir)
	}
	if p.Epsilon != 0.001 {
		t.Errorf("Epsilon = %g", p.Epsilon)
	}
	// Unset keys keep their defaults.
	if p.Executable != Default().Executable {
		t.Errorf("Executable = %q", p.Executable)
	}
	if p.TimeoutSeconds != Default().TimeoutSeconds {
		t.Errorf("TimeoutSeconds = %d", p.TimeoutSeconds)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("mof_dir = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "autouv.toml")
	want := Preferences{
		MOFDir:         "/opt/mof",
		Executable:     "UnWrapConsole3.exe",
		TempDir:        "/tmp/autouv",
		Epsilon:        0.0005,
		TimeoutSeconds: 60,
	}
	if err := want.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestExecutablePathAndTimeout(t *testing.T) {
	p := Default()
	p.MOFDir = "/opt/mof"
	if got := p.ExecutablePath(); got != filepath.Join("/opt/mof", "UnWrapConsole3.exe") {
		t.Errorf("ExecutablePath = %q", got)
	}
	p.TimeoutSeconds = 90
	if p.Timeout() != 90*time.Second {
		t.Errorf("Timeout = %s", p.Timeout())
	}
}
