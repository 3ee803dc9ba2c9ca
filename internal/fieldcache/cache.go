// Package fieldcache caches the JIRA field catalog on disk so bulk exports
// do not refetch field names and schemas for every issue.
package fieldcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

// TTL is how long a cached field catalog stays fresh.
const TTL = 24 * time.Hour

// Fetcher retrieves the field catalog from the server.
type Fetcher interface {
	GetFields(ctx context.Context) ([]jira.Field, error)
}

// Cache resolves custom field ids to names and schemas, backed by a JSON
// file under the user config directory. Load it once per run; lookups after
// that are in-memory and read-only, safe for concurrent use.
type Cache struct {
	path   string
	log    *slog.Logger
	byID   map[string]jira.Field
	loaded time.Time
}

type cacheFile struct {
	FetchedAt time.Time    `json:"fetched_at"`
	Fields    []jira.Field `json:"fields"`
}

// New creates a cache for one JIRA site. The domain keys the cache file so
// multiple sites never share catalogs.
func New(domain string, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("field cache: %w", err)
	}
	return &Cache{
		path: filepath.Join(dir, "jira-export", "fields-"+domain+".json"),
		log:  log,
		byID: make(map[string]jira.Field),
	}, nil
}

// Load populates the cache, fetching from the server when the on-disk copy
// is missing, older than TTL, or force is set. A failed refresh falls back
// to stale data when any exists; the export still resolves names, just
// possibly outdated.
func (c *Cache) Load(ctx context.Context, fetcher Fetcher, force bool) error {
	stale := c.readFile()
	if !force && !stale && time.Since(c.loaded) < TTL {
		return nil
	}

	fields, err := fetcher.GetFields(ctx)
	if err != nil {
		if len(c.byID) > 0 {
			c.log.Warn("field refresh failed, using stale cache",
				"path", c.path, "error", err)
			return nil
		}
		return fmt.Errorf("field cache: %w", err)
	}

	c.index(fields)
	c.loaded = time.Now()
	c.writeFile(fields)
	return nil
}

// FieldName returns the display name for a field id, or the id itself when
// unknown.
func (c *Cache) FieldName(id string) string {
	if f, ok := c.byID[id]; ok && f.Name != "" {
		return f.Name
	}
	return id
}

// FieldSchema returns the schema for a field id; the zero schema when
// unknown.
func (c *Cache) FieldSchema(id string) jira.FieldSchema {
	return c.byID[id].Schema
}

func (c *Cache) index(fields []jira.Field) {
	c.byID = make(map[string]jira.Field, len(fields))
	for _, f := range fields {
		c.byID[f.ID] = f
	}
}

// readFile loads the on-disk catalog. It reports true when the copy is
// missing or expired.
func (c *Cache) readFile() bool {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return true
	}
	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		c.log.Warn("discarding corrupt field cache", "path", c.path, "error", err)
		return true
	}
	c.index(file.Fields)
	c.loaded = file.FetchedAt
	return time.Since(file.FetchedAt) >= TTL
}

func (c *Cache) writeFile(fields []jira.Field) {
	data, err := json.MarshalIndent(cacheFile{FetchedAt: c.loaded, Fields: fields}, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.log.Warn("cannot create cache directory", "path", c.path, "error", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		c.log.Warn("cannot write field cache", "path", c.path, "error", err)
	}
}
