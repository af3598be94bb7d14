// Package cache keeps the last good tquery responses on disk so clients can
// still show a station list or a known route while a server is unreachable.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/latebit/tquery/protocol"
)

// Cache stores tquery responses on the local filesystem.
type Cache struct {
	Dir string
}

// Entry is a cached response with metadata about when it was stored.
type Entry struct {
	Response protocol.Response
	CachedAt time.Time
}

// meta is the TOML-serializable cache metadata.
type meta struct {
	Host     string            `toml:"host"`
	Verb     string            `toml:"verb"`
	Key      string            `toml:"key"`
	Status   string            `toml:"status"`
	CachedAt time.Time         `toml:"cached_at"`
	Metadata map[string]string `toml:"metadata"`
}

// DefaultDir returns the cache directory: $TQUERY_CACHE_DIR, or
// ~/.tquery/cache.
func DefaultDir() string {
	if dir := os.Getenv("TQUERY_CACHE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tquery-cache")
	}
	return filepath.Join(home, ".tquery", "cache")
}

// New creates a cache rooted at the given directory.
func New(dir string) *Cache {
	return &Cache{Dir: dir}
}

// RouteKey is the cache key of a route between two station names.
func RouteKey(from, to string) string {
	return from + "\x00" + to
}

// Put writes a response to the cache.
func (c *Cache) Put(host, verb, key string, resp protocol.Response) error {
	filePath := c.filePath(host, verb, key)
	metaPath := filePath + ".meta"

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(filePath, []byte(resp.Body), 0o644); err != nil {
		return err
	}

	m := meta{
		Host:     host,
		Verb:     verb,
		Key:      key,
		Status:   resp.Status,
		CachedAt: time.Now().UTC(),
		Metadata: resp.Metadata,
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return err
	}
	return os.WriteFile(metaPath, buf.Bytes(), 0o644)
}

// Get reads a cached response. Returns nil if not cached.
func (c *Cache) Get(host, verb, key string) (*Entry, error) {
	filePath := c.filePath(host, verb, key)
	metaPath := filePath + ".meta"

	body, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m meta
	if _, err := toml.DecodeFile(metaPath, &m); err != nil {
		return nil, nil
	}
	// A hash collision or a hand-edited file.
	if m.Key != key || m.Verb != verb {
		return nil, nil
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}

	return &Entry{
		Response: protocol.Response{
			Status:   m.Status,
			Metadata: m.Metadata,
			Body:     string(body),
		},
		CachedAt: m.CachedAt,
	}, nil
}

// Clear removes every cached response for host.
func (c *Cache) Clear(host string) error {
	return os.RemoveAll(filepath.Join(c.Dir, safeHost(host)))
}

// filePath returns the cache file for host, verb and key. Keys are hashed
// because station names may contain path separators.
func (c *Cache) filePath(host, verb, key string) string {
	sum := sha256.Sum256([]byte(key))
	name := strings.ToLower(verb) + "-" + hex.EncodeToString(sum[:8]) + ".md"
	return filepath.Join(c.Dir, safeHost(host), name)
}

func safeHost(host string) string {
	h := strings.ReplaceAll(host, "..", "_")
	h = strings.ReplaceAll(h, string(filepath.Separator), "_")
	return strings.ReplaceAll(h, ":", "_")
}
