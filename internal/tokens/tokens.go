// Package tokens stores operator tokens on the client, one per server.
//
// The file (default ~/.tquery/tokens.toml) maps host:port to the raw token
// handed out by tquery-token, and remembers which server to use when none
// is named:
//
//	default = "transit.example.com:6310"
//
//	[hosts."localhost:6310"]
//	token = "abc123..."
//	label = "dev"
//
//	[hosts."transit.example.com:6310"]
//	token = "def456..."
package tokens

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"
)

// Entry is the token kept for one server.
type Entry struct {
	Token string `toml:"token"`
	Label string `toml:"label,omitempty"`
}

type file struct {
	Default string           `toml:"default,omitempty"`
	Hosts   map[string]Entry `toml:"hosts"`
}

// Store manages client-side operator tokens keyed by host:port.
type Store struct {
	path string
	f    file
}

// DefaultPath returns the default tokens file path (~/.tquery/tokens.toml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tquery", "tokens.toml")
}

// Load reads a tokens file from disk. Returns an empty store if the file
// does not exist yet. Returns an error if path is empty.
func Load(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("tokens file path is empty (could not determine home directory)")
	}
	s := &Store{path: path, f: file{Hosts: make(map[string]Entry)}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read tokens file %q: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if _, err := toml.Decode(string(data), &s.f); err != nil {
		return nil, fmt.Errorf("parse tokens file %q: %w", path, err)
	}
	if s.f.Hosts == nil {
		s.f.Hosts = make(map[string]Entry)
	}
	return s, nil
}

// Get returns the raw token for the given host:port, or empty string if not found.
func (s *Store) Get(host string) string {
	return s.f.Hosts[host].Token
}

// Set stores a token for the given host:port and writes to disk. The first
// host stored becomes the default.
func (s *Store) Set(host, token, label string) error {
	s.f.Hosts[host] = Entry{Token: token, Label: label}
	if s.f.Default == "" {
		s.f.Default = host
	}
	return s.save()
}

// Remove deletes the token for the given host:port and writes to disk.
// Removing the default host clears the default.
func (s *Store) Remove(host string) error {
	delete(s.f.Hosts, host)
	if s.f.Default == host {
		s.f.Default = ""
	}
	return s.save()
}

// Default returns the host used when none is given, or "".
func (s *Store) Default() string {
	return s.f.Default
}

// SetDefault makes host the default. host must already have a token.
func (s *Store) SetDefault(host string) error {
	if !slices.Contains(s.Hosts(), host) {
		return fmt.Errorf("no token stored for %s", host)
	}
	s.f.Default = host
	return s.save()
}

// Hosts returns a sorted list of all stored host:port entries.
func (s *Store) Hosts() []string {
	hosts := make([]string, 0, len(s.f.Hosts))
	for h := range s.f.Hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Label returns the label stored with host's token.
func (s *Store) Label(host string) string {
	return s.f.Hosts[host].Label
}

func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create tokens directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open tokens file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(s.f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write tokens file: %w", err)
	}
	return f.Close()
}
