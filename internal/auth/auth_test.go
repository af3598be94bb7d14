package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTokens(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, `[tokens.night-desk]
hash = "sha256-abc"
stations = ["*"]
operations = ["enable", "disable"]

[tokens.red-line]
hash = "sha256-red"
stations = ["Kendall Station"]
operations = ["disable"]
expires = 2030-01-01T00:00:00Z
`)
		ts, err := LoadTokens(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Len() != 2 {
			t.Errorf("token count: got %d, want 2", ts.Len())
		}
		tok, ok := ts.tokens["sha256-red"]
		if !ok {
			t.Fatal("token sha256-red not found")
		}
		if tok.Label != "red-line" {
			t.Errorf("label: got %q, want %q", tok.Label, "red-line")
		}
		if tok.Expires.Year() != 2030 {
			t.Errorf("expires: got %v", tok.Expires)
		}
	})

	t.Run("empty tokens section", func(t *testing.T) {
		ts, err := LoadTokens(writeFile(t, "[tokens]\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Len() != 0 {
			t.Errorf("token count: got %d, want 0", ts.Len())
		}
	})

	t.Run("missing hash", func(t *testing.T) {
		if _, err := LoadTokens(writeFile(t, "[tokens.x]\nstations = [\"*\"]\n")); err == nil {
			t.Fatal("expected error for token without hash")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadTokens("/nonexistent/tokens.toml"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("secret")
	if h1 != HashToken("secret") {
		t.Error("hash not deterministic")
	}
	if h1 == HashToken("other") {
		t.Error("different secrets share a hash")
	}
	if len(h1) != len("sha256-")+64 {
		t.Errorf("hash length: got %d", len(h1))
	}
}

func TestAuthorize(t *testing.T) {
	ts := NewTokenStore([]Token{
		{Hash: HashToken("all"), Stations: []string{"*"}, Operations: []string{OpEnable, OpDisable}},
		{Hash: HashToken("kendall"), Stations: []string{"Kendall Station"}, Operations: []string{OpDisable}},
		{Hash: HashToken("south"), Stations: []string{"South*"}, Operations: []string{OpDisable}},
		{Hash: HashToken("old"), Stations: []string{"*"}, Operations: []string{OpDisable}, Expires: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})

	tests := []struct {
		name    string
		token   string
		station string
		op      string
		want    error
	}{
		{"no token", "", "Kendall Station", OpDisable, ErrNoToken},
		{"unknown token", "nope", "Kendall Station", OpDisable, ErrInvalidToken},
		{"wildcard", "all", "JFK/UMass Station", OpEnable, nil},
		{"exact station", "kendall", "Kendall Station", OpDisable, nil},
		{"other station", "kendall", "Park Street Station", OpDisable, ErrNotPermitted},
		{"missing operation", "kendall", "Kendall Station", OpEnable, ErrNotPermitted},
		{"prefix", "south", "South Station", OpDisable, nil},
		{"prefix miss", "south", "North Station", OpDisable, ErrNotPermitted},
		{"expired", "old", "South Station", OpDisable, ErrExpiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ts.Authorize(tt.token, tt.station, tt.op)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAppendTokenAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.toml")
	first := Token{Hash: HashToken("one"), Stations: []string{"*"}, Operations: []string{OpDisable}}
	if err := AppendToken(path, "first", first); err != nil {
		t.Fatalf("AppendToken: %v", err)
	}

	ts, err := LoadTokens(path)
	if err != nil {
		t.Fatalf("LoadTokens: %v", err)
	}
	if err := ts.Authorize("two", "Kendall Station", OpDisable); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("before append: got %v", err)
	}

	second := Token{Hash: HashToken("two"), Stations: []string{"Kendall*"}, Operations: []string{OpDisable}}
	if err := AppendToken(path, "second", second); err != nil {
		t.Fatalf("AppendToken: %v", err)
	}
	if err := AppendToken(path, "second", second); err == nil {
		t.Fatal("expected duplicate label error")
	}
	if err := ts.Reload(path); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if ts.Len() != 2 {
		t.Errorf("token count: got %d, want 2", ts.Len())
	}
	if err := ts.Authorize("two", "Kendall Station", OpDisable); err != nil {
		t.Errorf("after reload: %v", err)
	}

	if err := ts.Reload("/nonexistent/tokens.toml"); err == nil {
		t.Fatal("expected reload error")
	}
	if ts.Len() != 2 {
		t.Errorf("failed reload dropped tokens: %d", ts.Len())
	}
}
