package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

func TestRegistryGetFallsBackToBuiltin(t *testing.T) {
	r := NewRegistry()
	p, err := r.Get(types.PresetGeneral)
	if err != nil {
		t.Fatalf("Get(general) error: %v", err)
	}
	if p.Name != string(types.PresetGeneral) {
		t.Errorf("Get(general).Name = %q, want %q", p.Name, types.PresetGeneral)
	}
}

func TestRegistryGetUnknownReturnsErrNotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("made-up"); err == nil {
		t.Fatalf("Get(made-up) = nil error, want ErrNotFound")
	}
}

func TestRegistryLoadDirOverridesBuiltinByStem(t *testing.T) {
	dir := t.TempDir()
	const doc = `name: general
description: custom house style
document_type: general
llm_params:
  temperature: 0.9
  max_tokens: 4096
  top_p: 0.8
chunk_size: 3000
system_prompt: custom override
`
	if err := os.WriteFile(filepath.Join(dir, "general.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	p, err := r.Get(types.PresetGeneral)
	if err != nil {
		t.Fatalf("Get(general) error: %v", err)
	}
	if p.ChunkSize != 3000 {
		t.Errorf("ChunkSize = %d, want 3000 (override)", p.ChunkSize)
	}
	if p.Description != "custom house style" {
		t.Errorf("Description = %q, want override", p.Description)
	}
}

func TestRegistryLoadDirDerivesIDFromFilenameStem(t *testing.T) {
	dir := t.TempDir()
	const doc = `description: a custom document class
document_type: custom
llm_params:
  temperature: 0.5
  max_tokens: 1024
  top_p: 0.9
chunk_size: 1500
system_prompt: translate custom documents
`
	if err := os.WriteFile(filepath.Join(dir, "legal-brief.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	p, err := r.Get(types.Preset("legal-brief"))
	if err != nil {
		t.Fatalf("Get(legal-brief) error: %v", err)
	}
	if p.Name != "legal-brief" {
		t.Errorf("Name = %q, want %q (derived from filename stem)", p.Name, "legal-brief")
	}
}

func TestRegistryListIncludesBuiltinsAndUserPresets(t *testing.T) {
	dir := t.TempDir()
	const doc = `description: extra
document_type: extra
llm_params:
  temperature: 0.5
  max_tokens: 1024
  top_p: 0.9
chunk_size: 1500
system_prompt: translate extra documents
`
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	ids := r.List()
	if len(ids) != len(BuiltinIDs())+1 {
		t.Fatalf("List() len = %d, want %d", len(ids), len(BuiltinIDs())+1)
	}
}

func TestRegistryLoadDirBadYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err == nil {
		t.Fatalf("LoadDir with malformed YAML = nil error, want error")
	}
}
