// Package auth authorizes station operations with operator tokens.
//
// Tokens are loaded from a TOML file at startup and on reload. Each token
// grants operations (enable, disable) on station name patterns. The file
// stores only SHA-256 hashes of the secrets handed to operators.
//
// TOML format:
//
//	[tokens.night-desk]
//	hash = "sha256-abc123..."
//	stations = ["*"]
//	operations = ["enable", "disable"]
//	expires = 2027-01-01T00:00:00Z
//
// A station pattern is an exact name, or a prefix followed by "*".
package auth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// Operations a token can grant.
const (
	OpEnable  = "enable"
	OpDisable = "disable"
)

// Token represents a single operator token's permissions.
type Token struct {
	Label      string    `toml:"-"`
	Hash       string    `toml:"hash"`
	Stations   []string  `toml:"stations"`
	Operations []string  `toml:"operations"`
	Expires    time.Time `toml:"expires,omitempty"`
}

// tokensFile is the top-level TOML structure, keyed by label.
type tokensFile struct {
	Tokens map[string]Token `toml:"tokens"`
}

// TokenStore holds loaded tokens and provides authorization checks. It is
// safe for concurrent use.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]Token // by hash
	now    func() time.Time
}

// Sentinel errors for authorization results.
var (
	ErrNoToken      = errors.New("no auth token provided")
	ErrInvalidToken = errors.New("invalid auth token")
	ErrExpiredToken = errors.New("auth token expired")
	ErrNotPermitted = errors.New("insufficient permissions")
)

// LoadTokens reads a TOML tokens file and returns a TokenStore.
func LoadTokens(path string) (*TokenStore, error) {
	tokens, err := readTokens(path)
	if err != nil {
		return nil, err
	}
	return &TokenStore{tokens: tokens, now: time.Now}, nil
}

// NewTokenStore creates a TokenStore from in-memory tokens.
func NewTokenStore(tokens []Token) *TokenStore {
	byHash := make(map[string]Token, len(tokens))
	for _, t := range tokens {
		byHash[t.Hash] = t
	}
	return &TokenStore{tokens: byHash, now: time.Now}
}

// Reload replaces the tokens with the contents of path. On failure the
// current tokens stay in effect.
func (ts *TokenStore) Reload(path string) error {
	tokens, err := readTokens(path)
	if err != nil {
		return err
	}
	ts.mu.Lock()
	ts.tokens = tokens
	ts.mu.Unlock()
	return nil
}

// Len returns the number of loaded tokens.
func (ts *TokenStore) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tokens)
}

func readTokens(path string) (map[string]Token, error) {
	var tf tokensFile
	if _, err := toml.DecodeFile(path, &tf); err != nil {
		return nil, fmt.Errorf("load tokens file %q: %w", path, err)
	}
	byHash := make(map[string]Token, len(tf.Tokens))
	for label, t := range tf.Tokens {
		if t.Hash == "" {
			return nil, fmt.Errorf("load tokens file %q: token %q has no hash", path, label)
		}
		t.Label = label
		byHash[t.Hash] = t
	}
	return byHash, nil
}

// AppendToken adds t under label to the tokens file at path, creating the
// file when it does not exist.
func AppendToken(path, label string, t Token) error {
	tf := tokensFile{Tokens: make(map[string]Token)}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &tf); err != nil {
			return fmt.Errorf("read tokens file %q: %w", path, err)
		}
		if tf.Tokens == nil {
			tf.Tokens = make(map[string]Token)
		}
	}
	if _, dup := tf.Tokens[label]; dup {
		return fmt.Errorf("token label %q already exists in %s", label, path)
	}
	tf.Tokens[label] = t

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tf); err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// HashToken returns the SHA-256 hash of a raw token in the format "sha256-<hex>".
// Clients send the raw secret and the server hashes it before lookup.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return "sha256-" + hex.EncodeToString(h[:])
}

// Authorize checks whether the given raw token may perform operation on
// station. It returns nil if authorized, or one of the sentinel errors.
func (ts *TokenStore) Authorize(token, station, operation string) error {
	if token == "" {
		return ErrNoToken
	}
	ts.mu.RLock()
	t, ok := ts.tokens[HashToken(token)]
	ts.mu.RUnlock()
	if !ok {
		return ErrInvalidToken
	}
	if !t.Expires.IsZero() && ts.now().After(t.Expires) {
		return ErrExpiredToken
	}
	if !slices.Contains(t.Operations, operation) {
		return ErrNotPermitted
	}
	if !matchesAnyStation(t.Stations, station) {
		return ErrNotPermitted
	}
	return nil
}

func matchesAnyStation(patterns []string, station string) bool {
	for _, pattern := range patterns {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(station, prefix) {
				return true
			}
			continue
		}
		if pattern == station {
			return true
		}
	}
	return false
}
