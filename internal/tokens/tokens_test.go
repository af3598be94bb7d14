package tokens

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_NewFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "tokens.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Hosts()) != 0 {
		t.Errorf("expected empty store, got %d entries", len(s.Hosts()))
	}
	if s.Default() != "" {
		t.Errorf("default: got %q", s.Default())
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLoad_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.toml")
	data := `default = "transit.example.com:6310"

[hosts."localhost:6310"]
token = "abc123"
label = "dev"

[hosts."transit.example.com:6310"]
token = "def456"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Get("localhost:6310"); got != "abc123" {
		t.Errorf("localhost token: got %q, want %q", got, "abc123")
	}
	if got := s.Label("localhost:6310"); got != "dev" {
		t.Errorf("localhost label: got %q, want %q", got, "dev")
	}
	if got := s.Get("transit.example.com:6310"); got != "def456" {
		t.Errorf("example token: got %q, want %q", got, "def456")
	}
	if got := s.Default(); got != "transit.example.com:6310" {
		t.Errorf("default: got %q", got)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.toml")
	if err := os.WriteFile(path, []byte("not valid {{{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestSetGetRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tokens.toml")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.Get("localhost:6310"); got != "" {
		t.Errorf("missing host: got %q", got)
	}
	if err := s.Set("localhost:6310", "secret", "dev"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("b.example.com:6310", "other", ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Default() != "localhost:6310" {
		t.Errorf("first host should become default, got %q", s.Default())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("tokens file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions: got %o, want 600", perm)
	}

	// Reload from disk.
	s2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := s2.Get("localhost:6310"); got != "secret" {
		t.Errorf("reloaded token: got %q", got)
	}
	if !reflect.DeepEqual(s2.Hosts(), []string{"b.example.com:6310", "localhost:6310"}) {
		t.Errorf("hosts: got %v", s2.Hosts())
	}

	if err := s2.Remove("localhost:6310"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s2.Default() != "" {
		t.Errorf("removing the default host should clear it, got %q", s2.Default())
	}
	if got := s2.Get("localhost:6310"); got != "" {
		t.Errorf("removed token still present: %q", got)
	}
}

func TestSetDefault(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "tokens.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetDefault("nowhere:6310"); err == nil {
		t.Fatal("expected error for unknown host")
	}
	s.Set("a:6310", "x", "")
	s.Set("b:6310", "y", "")
	if err := s.SetDefault("b:6310"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if s.Default() != "b:6310" {
		t.Errorf("default: got %q", s.Default())
	}
}
