package modpack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/modforge/scripthost/security"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"name": "better-minimap",
		"version": "1.2.0",
		"displayName": "Better Minimap",
		"trust": "verified",
		"capabilities": ["config.read"]
	}`)

	m, err := LoadManifestFromDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestFromDir() error = %v", err)
	}
	if m.Name != "better-minimap" || m.Version != "1.2.0" {
		t.Errorf("manifest = %+v", m)
	}
	if m.Main != "main.lua" {
		t.Errorf("Main = %q, want default main.lua", m.Main)
	}
	if m.TrustLevel() != security.TrustVerified {
		t.Errorf("TrustLevel() = %v", m.TrustLevel())
	}
	caps := m.RequestedCapabilities()
	if len(caps) != 1 || caps[0] != security.CapabilityConfigRead {
		t.Errorf("RequestedCapabilities() = %v", caps)
	}
	if m.Path() != dir {
		t.Errorf("Path() = %q, want %q", m.Path(), dir)
	}
	if m.MainPath() != filepath.Join(dir, "main.lua") {
		t.Errorf("MainPath() = %q", m.MainPath())
	}
	if m.String() != "Better Minimap v1.2.0" {
		t.Errorf("String() = %q", m.String())
	}
}

func TestManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "tiny"}`)

	m, err := LoadManifestFromDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestFromDir() error = %v", err)
	}
	if m.Version != "0.0.0" || m.Main != "main.lua" {
		t.Errorf("defaults = %+v", m)
	}
	if m.TrustLevel() != security.TrustUntrusted {
		t.Errorf("default trust = %v, want untrusted", m.TrustLevel())
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr error
	}{
		{"missing name", `{}`, ErrMissingName},
		{"bad name", `{"name": "Bad_Name!"}`, ErrInvalidName},
		{"bad version", `{"name": "ok", "version": "one"}`, ErrInvalidVersion},
		{"bad main", `{"name": "ok", "main": "main.py"}`, ErrInvalidMain},
		{"bad trust", `{"name": "ok", "trust": "supreme"}`, ErrInvalidTrust},
		{"bad capability", `{"name": "ok", "capabilities": ["teleport"]}`, ErrInvalidCapability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.json)

			_, err := LoadManifestFromDir(dir)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifestSemverVariants(t *testing.T) {
	for _, v := range []string{"0.0.1", "10.20.30", "1.0.0-beta.1", "1.0.0+build.5"} {
		m := &Manifest{Name: "ok", Version: v, Main: "main.lua", Trust: "untrusted"}
		if err := m.Validate(); err != nil {
			t.Errorf("Validate(%q) error = %v", v, err)
		}
	}
}

func TestManifestMissingFile(t *testing.T) {
	if _, err := LoadManifestFromDir(t.TempDir()); err == nil {
		t.Error("LoadManifestFromDir() succeeded with no manifest")
	}
}
