// Package cache stores compiled shader outputs on disk, keyed by the
// BLAKE3 digest of everything that went into producing them.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"github.com/gogpu/shadercross/internal/logging"
)

// Schema is written into every entry. Entries of another schema read as
// misses.
const Schema uint16 = 1

// Key is a BLAKE3-256 digest.
type Key [32]byte

// String returns the key in hex.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// KeyOf hashes parts into a key. Each part is length prefixed, so
// ("ab", "c") and ("a", "bc") differ.
func KeyOf(parts ...[]byte) Key {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(p)
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Entry is one cached output.
type Entry struct {
	Schema uint16

	// Target names the backend, such as "msl".
	Target string
	// EntryPoint is the name the output exposes its entry point under.
	EntryPoint string
	// Data is the output: SPIR-V bytes or shader source.
	Data []byte
	// Digest is the BLAKE3 digest of Data.
	Digest Key
}

// Cache is a directory of entries. A nil *Cache is a cache that never
// hits. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
	log *slog.Logger
}

// DefaultDir returns the per-user cache directory for app, honoring
// XDG_CACHE_HOME.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// Open creates dir if needed and returns a cache rooted there. A nil
// logger discards.
func Open(dir string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, log: logging.OrDiscard(logger)}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Key) string {
	s := key.String()
	return filepath.Join(c.dir, "out", s[:2], s+".mp")
}

// Get reads the entry for key. A missing entry, or one written under
// another schema, is a miss.
func (c *Cache) Get(key Key) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.log.Debug("cache miss", "key", key.String())
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	if e.Schema != Schema {
		c.log.Debug("cache miss", "key", key.String(), "schema", e.Schema)
		return nil, false, nil
	}
	if Key(blake3.Sum256(e.Data)) != e.Digest {
		return nil, false, fmt.Errorf("cache entry %s: digest mismatch", key)
	}
	c.log.Debug("cache hit", "key", key.String(), "target", e.Target, "bytes", len(e.Data))
	return &e, true, nil
}

// Put writes e under key, replacing any previous entry atomically. It
// fills in Schema and Digest.
func (c *Cache) Put(key Key, e *Entry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Schema = Schema
	e.Digest = blake3.Sum256(e.Data)

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // gone after a successful rename

	if err := msgpack.NewEncoder(f).Encode(e); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	c.log.Debug("cache store", "key", key.String(), "target", e.Target, "bytes", len(e.Data))
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "out"))
}
