package cache

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string
	Value int
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCache(cfg Config) *Cache[*payload] {
	return New(testLogger(), cfg, func(p *payload) *payload {
		cp := *p
		return &cp
	})
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(Config{})

	c.Set("k1", &payload{Name: "one", Value: 1}, EntryOptions{})

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "one", got.Name)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCloneIsolation(t *testing.T) {
	c := newTestCache(Config{})
	original := &payload{Name: "original", Value: 1}

	c.Set("k1", original, EntryOptions{})
	original.Name = "mutated after set"

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "original", got.Name, "cache must copy on the way in")

	got.Name = "mutated after get"
	again, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "original", again.Name, "cache must copy on the way out")
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(Config{})

	c.Set("short", &payload{Name: "short"}, EntryOptions{TTL: 10 * time.Millisecond})
	c.Set("long", &payload{Name: "long"}, EntryOptions{TTL: time.Hour})

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok, "expired entry must read as a miss")
	_, ok = c.Get("long")
	assert.True(t, ok)

	stats := c.Stats(0)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestHasDoesNotCountAccess(t *testing.T) {
	c := newTestCache(Config{})
	c.Set("k1", &payload{}, EntryOptions{})

	assert.True(t, c.Has("k1"))
	assert.False(t, c.Has("missing"))

	stats := c.Stats(0)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestLRUEviction(t *testing.T) {
	c := newTestCache(Config{MaxEntries: 3})

	c.Set("a", &payload{Name: "a"}, EntryOptions{})
	time.Sleep(time.Millisecond)
	c.Set("b", &payload{Name: "b"}, EntryOptions{})
	time.Sleep(time.Millisecond)
	c.Set("c", &payload{Name: "c"}, EntryOptions{})
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes the least recently used
	_, ok := c.Get("a")
	require.True(t, ok)
	time.Sleep(time.Millisecond)

	c.Set("d", &payload{Name: "d"}, EntryOptions{})

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"), "least recently used entry must be evicted")
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))

	stats := c.Stats(0)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(Config{})
	c.Set("k1", &payload{}, EntryOptions{})

	assert.True(t, c.Invalidate("k1"))
	assert.False(t, c.Invalidate("k1"))
	assert.False(t, c.Has("k1"))
}

func TestInvalidateByTag(t *testing.T) {
	c := newTestCache(Config{})
	c.Set("k1", &payload{}, EntryOptions{Tags: []string{"fy2025", "draft"}})
	c.Set("k2", &payload{}, EntryOptions{Tags: []string{"fy2025"}})
	c.Set("k3", &payload{}, EntryOptions{Tags: []string{"fy2024"}})

	removed := c.InvalidateByTag("fy2025")

	assert.Equal(t, 2, removed)
	assert.False(t, c.Has("k1"))
	assert.False(t, c.Has("k2"))
	assert.True(t, c.Has("k3"))
}

func TestInvalidateByScope(t *testing.T) {
	orgA := uuid.New()
	orgB := uuid.New()
	fy := uuid.New()

	c := newTestCache(Config{})
	c.Set("a1", &payload{}, EntryOptions{Scope: Scope{OrganizationID: orgA, FiscalYearID: fy}})
	c.Set("a2", &payload{}, EntryOptions{Scope: Scope{OrganizationID: orgA}})
	c.Set("b1", &payload{}, EntryOptions{Scope: Scope{OrganizationID: orgB, FiscalYearID: fy}})

	assert.Equal(t, 2, c.InvalidateByOrganization(orgA))
	assert.True(t, c.Has("b1"))

	assert.Equal(t, 1, c.InvalidateByFiscalYear(fy))
	assert.False(t, c.Has("b1"))
}

func TestInvalidateByDependency(t *testing.T) {
	c := newTestCache(Config{})
	c.Set("stmt:1", &payload{}, EntryOptions{Dependencies: []string{"account:42"}})
	c.Set("stmt:2", &payload{}, EntryOptions{Dependencies: []string{"account:7"}})

	removed := c.InvalidateByDependency("account:42")

	assert.Equal(t, 1, removed)
	assert.False(t, c.Has("stmt:1"))
	assert.True(t, c.Has("stmt:2"))
}

func TestInvalidateByPattern(t *testing.T) {
	c := newTestCache(Config{})
	c.Set("statement:1", &payload{}, EntryOptions{})
	c.Set("statement:2", &payload{}, EntryOptions{})
	c.Set("report:1", &payload{}, EntryOptions{})

	removed, err := c.InvalidateByPattern(`^statement:`)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, c.Has("report:1"))

	_, err = c.InvalidateByPattern(`[`)
	assert.Error(t, err)
}

func TestInvalidateAll(t *testing.T) {
	c := newTestCache(Config{})
	c.Set("k1", &payload{}, EntryOptions{})
	c.Set("k2", &payload{}, EntryOptions{})

	c.InvalidateAll()

	stats := c.Stats(0)
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.SizeBytes)
}

func TestCleanup(t *testing.T) {
	c := newTestCache(Config{})
	c.Set("short", &payload{}, EntryOptions{TTL: 5 * time.Millisecond})
	c.Set("long", &payload{}, EntryOptions{TTL: time.Hour})

	time.Sleep(10 * time.Millisecond)

	removed := c.Cleanup()

	assert.Equal(t, 1, removed)
	assert.True(t, c.Has("long"))
}

func TestStats(t *testing.T) {
	c := newTestCache(Config{MaxEntries: 10})

	c.Set("hot", &payload{}, EntryOptions{})
	c.Set("cold", &payload{}, EntryOptions{})

	for i := 0; i < 3; i++ {
		_, ok := c.Get("hot")
		require.True(t, ok)
	}
	_, _ = c.Get("missing")

	stats := c.Stats(1)

	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 75.0, stats.HitRate, 0.001)
	require.Len(t, stats.TopAccessed, 1)
	assert.Equal(t, "hot", stats.TopAccessed[0].Key)
	assert.Equal(t, int64(3), stats.TopAccessed[0].AccessCount)
	assert.Greater(t, stats.SizeBytes, int64(0))

	// hit rate 75, no evictions, fill bonus 20*(2/10) = 4
	assert.InDelta(t, 79.0, stats.EfficiencyScore, 0.001)
}
