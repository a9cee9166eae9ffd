// Package cache stores per-file analysis results keyed by content hash.
package cache

import (
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/unused"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
)

// Version is mixed into every key so entries written by an incompatible
// release are never read back.
const Version = "1"

const entryExt = ".msgpack"

// Cache provides file-based caching for analysis results.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	logger  *zap.Logger
}

// Entry represents a cached analysis result.
type Entry struct {
	Hash      string    `msgpack:"hash"`
	Timestamp time.Time `msgpack:"timestamp"`
	Data      []byte    `msgpack:"data"`
}

// Declaration is a liveness declaration whose location is already resolved.
type Declaration struct {
	Owner    string               `msgpack:"owner"`
	Name     string               `msgpack:"name"`
	Arity    int                  `msgpack:"arity"`
	Location models.FixedLocation `msgpack:"location"`
}

// FileSummary is everything a run needs from a file without parsing it
// again: its resolved pattern findings and its liveness records.
type FileSummary struct {
	Path         string              `msgpack:"path"`
	Findings     []models.ReportItem `msgpack:"findings"`
	Declarations []Declaration       `msgpack:"declarations"`
	Calls        []unused.Call       `msgpack:"calls"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for hits, misses and write failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = l.Named("cache")
	}
}

// New creates a new cache instance.
func New(dir string, ttlHours int, enabled bool, opts ...Option) (*Cache, error) {
	c := &Cache{enabled: enabled, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if !enabled {
		return c, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	c.dir = dir
	c.ttl = time.Duration(ttlHours) * time.Hour
	return c, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Key builds the cache key for a file analyzed with the given rules.
func Key(absPath string, rules []string) string {
	return Version + "\x00" + absPath + "\x00" + strings.Join(rules, ",")
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (c *Cache) read(key string) (*Entry, string, bool) {
	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, false
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		c.logger.Debug("discarding corrupt entry", zap.String("file", path), zap.Error(err))
		return nil, path, false
	}

	if time.Since(entry.Timestamp) > c.ttl {
		_ = os.Remove(path)
		return nil, path, false
	}
	return &entry, path, true
}

// getWithHash retrieves a cached entry only if the hash matches.
func (c *Cache) getWithHash(key, hash string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	entry, _, ok := c.read(key)
	if !ok || entry.Hash != hash {
		return nil, false
	}
	return entry.Data, true
}

// setWithHash stores data in the cache with a hash for validation.
func (c *Cache) setWithHash(key, hash string, data []byte) error {
	if !c.enabled {
		return nil
	}

	entryData, err := msgpack.Marshal(Entry{
		Hash:      hash,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return err
	}

	// Write then rename so concurrent readers never see a partial entry.
	path := c.keyPath(key)
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(entryData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadSummary returns the summary stored for key if the file content still
// hashes to hash.
func (c *Cache) LoadSummary(key, hash string) (*FileSummary, bool) {
	data, ok := c.getWithHash(key, hash)
	if !ok {
		return nil, false
	}
	var summary FileSummary
	if err := msgpack.Unmarshal(data, &summary); err != nil {
		c.logger.Debug("discarding undecodable summary", zap.Error(err))
		return nil, false
	}
	c.logger.Debug("hit", zap.String("path", summary.Path))
	return &summary, true
}

// StoreSummary stores summary for key under the content hash.
func (c *Cache) StoreSummary(key, hash string, summary *FileSummary) error {
	if !c.enabled {
		return nil
	}
	data, err := msgpack.Marshal(summary)
	if err != nil {
		return err
	}
	if err := c.setWithHash(key, hash, data); err != nil {
		c.logger.Warn("write failed", zap.String("path", summary.Path), zap.Error(err))
		return err
	}
	return nil
}

// Clear removes all cache entries. The cache stays usable afterwards.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	c.logger.Debug("cleared", zap.String("dir", c.dir))
	return os.MkdirAll(c.dir, 0755)
}

// Dir returns the directory entries are stored in.
func (c *Cache) Dir() string {
	return c.dir
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	// Use BLAKE3 hash of key for filename to avoid path issues
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+entryExt)
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != entryExt {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}

	return stats, nil
}
