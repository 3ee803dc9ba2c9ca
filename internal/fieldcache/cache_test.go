package fieldcache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

type fakeFetcher struct {
	fields []jira.Field
	err    error
	calls  int
}

func (f *fakeFetcher) GetFields(ctx context.Context) ([]jira.Field, error) {
	f.calls++
	return f.fields, f.err
}

func sampleFields() []jira.Field {
	return []jira.Field{
		{ID: "customfield_1", Name: "Sprint", Custom: true, Schema: jira.FieldSchema{Type: "string"}},
		{ID: "customfield_2", Name: "Team", Custom: true, Schema: jira.FieldSchema{Type: "option"}},
	}
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cache, err := New("example.atlassian.net", nil)
	if err != nil {
		t.Fatal(err)
	}
	return cache
}

func TestLoadFetchesAndPersists(t *testing.T) {
	cache := newTestCache(t)
	fetcher := &fakeFetcher{fields: sampleFields()}

	if err := cache.Load(context.Background(), fetcher, false); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times", fetcher.calls)
	}
	if got := cache.FieldName("customfield_1"); got != "Sprint" {
		t.Errorf("FieldName = %q", got)
	}
	if got := cache.FieldSchema("customfield_2").Type; got != "option" {
		t.Errorf("FieldSchema.Type = %q", got)
	}

	if _, err := os.Stat(cache.path); err != nil {
		t.Errorf("cache file not written: %v", err)
	}
}

func TestLoadUsesFreshFileWithoutFetching(t *testing.T) {
	cache := newTestCache(t)

	writeCacheFile(t, cache.path, time.Now(), sampleFields())

	fetcher := &fakeFetcher{err: errors.New("server should not be called")}
	if err := cache.Load(context.Background(), fetcher, false); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times for a fresh cache", fetcher.calls)
	}
	if got := cache.FieldName("customfield_2"); got != "Team" {
		t.Errorf("FieldName = %q", got)
	}
}

func TestLoadForceRefreshSkipsFreshFile(t *testing.T) {
	cache := newTestCache(t)

	old := []jira.Field{{ID: "customfield_1", Name: "Old Name"}}
	writeCacheFile(t, cache.path, time.Now(), old)

	fetcher := &fakeFetcher{fields: sampleFields()}
	if err := cache.Load(context.Background(), fetcher, true); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times with force refresh", fetcher.calls)
	}
	if got := cache.FieldName("customfield_1"); got != "Sprint" {
		t.Errorf("FieldName = %q, want refreshed value", got)
	}
}

func TestLoadRefreshesExpiredFile(t *testing.T) {
	cache := newTestCache(t)

	old := []jira.Field{{ID: "customfield_1", Name: "Old Name"}}
	writeCacheFile(t, cache.path, time.Now().Add(-2*TTL), old)

	fetcher := &fakeFetcher{fields: sampleFields()}
	if err := cache.Load(context.Background(), fetcher, false); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times for an expired cache", fetcher.calls)
	}
	if got := cache.FieldName("customfield_1"); got != "Sprint" {
		t.Errorf("FieldName = %q, want refreshed value", got)
	}
}

func TestLoadFallsBackToStaleOnFetchError(t *testing.T) {
	cache := newTestCache(t)

	writeCacheFile(t, cache.path, time.Now().Add(-2*TTL), sampleFields())

	fetcher := &fakeFetcher{err: errors.New("boom")}
	if err := cache.Load(context.Background(), fetcher, false); err != nil {
		t.Fatalf("stale fallback returned error: %v", err)
	}
	if got := cache.FieldName("customfield_1"); got != "Sprint" {
		t.Errorf("FieldName = %q, want stale value", got)
	}
}

func TestLoadFailsWithNoDataAtAll(t *testing.T) {
	cache := newTestCache(t)

	fetcher := &fakeFetcher{err: errors.New("boom")}
	if err := cache.Load(context.Background(), fetcher, false); err == nil {
		t.Fatal("no error with neither cache nor server")
	}
}

func TestUnknownFieldFallsBackToID(t *testing.T) {
	cache := newTestCache(t)

	if got := cache.FieldName("customfield_999"); got != "customfield_999" {
		t.Errorf("FieldName = %q, want the id back", got)
	}
	if got := cache.FieldSchema("customfield_999"); got != (jira.FieldSchema{}) {
		t.Errorf("FieldSchema = %+v, want zero", got)
	}
}

func TestCorruptCacheFileIsDiscarded(t *testing.T) {
	cache := newTestCache(t)

	if err := os.MkdirAll(filepath.Dir(cache.path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cache.path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{fields: sampleFields()}
	if err := cache.Load(context.Background(), fetcher, false); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times after corrupt cache", fetcher.calls)
	}
}

func writeCacheFile(t *testing.T, path string, fetchedAt time.Time, fields []jira.Field) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(cacheFile{FetchedAt: fetchedAt, Fields: fields})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
