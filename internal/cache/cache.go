// Package cache provides a generic in-process key-value store with TTL
// expiry, LRU eviction under entry-count and memory budgets, and
// tag/scope/dependency based invalidation.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config bounds the cache and controls value ownership
type Config struct {
	MaxEntries int           // entry-count ceiling, default 1000
	MaxBytes   int64         // estimated-memory ceiling, default 64 MiB
	DefaultTTL time.Duration // applied when Set receives a zero TTL, default 5m
}

func (c *Config) applyDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 64 << 20
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 5 * time.Minute
	}
}

// Scope optionally ties an entry to an organization, fiscal year and period
// so whole slices of the cache can be dropped at once.
type Scope struct {
	OrganizationID uuid.UUID
	FiscalYearID   uuid.UUID
	Period         string
}

// EntryOptions carries the per-entry metadata accepted by Set
type EntryOptions struct {
	TTL          time.Duration
	Tags         []string
	Dependencies []string
	Scope        Scope
}

type entry[T any] struct {
	value        T
	storedAt     time.Time
	ttl          time.Duration
	accessCount  int64
	lastAccessed time.Time
	sizeBytes    int64
	tags         map[string]struct{}
	dependencies map[string]struct{}
	scope        Scope
}

func (e *entry[T]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Cache is a thread-safe generic store. The cache owns its entries
// exclusively: when a clone function is provided, values are copied on the
// way in and on the way out, so callers never hold references into cache
// storage.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	cfg     Config
	clone   func(T) T // nil means values are treated as immutable
	logger  *slog.Logger

	currentBytes int64
	hits         int64
	misses       int64
	evictions    int64
}

// New creates a cache. The clone function may be nil for value types that
// need no deep copy.
func New[T any](logger *slog.Logger, cfg Config, clone func(T) T) *Cache[T] {
	cfg.applyDefaults()
	return &Cache[T]{
		entries: make(map[string]*entry[T]),
		cfg:     cfg,
		clone:   clone,
		logger:  logger,
	}
}

// Set stores a value under key. A zero TTL falls back to the configured
// default. If the insert would exceed the entry-count or memory ceiling,
// the least-recently-accessed entry is evicted first.
func (c *Cache[T]) Set(key string, value T, opts EntryOptions) {
	if c.clone != nil {
		value = c.clone(value)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}

	size := estimateSize(value)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.currentBytes -= existing.sizeBytes
		delete(c.entries, key)
	}

	for len(c.entries) >= c.cfg.MaxEntries || c.currentBytes+size > c.cfg.MaxBytes {
		if !c.evictLRULocked() {
			break
		}
	}

	c.entries[key] = &entry[T]{
		value:        value,
		storedAt:     now,
		ttl:          ttl,
		lastAccessed: now,
		sizeBytes:    size,
		tags:         toSet(opts.Tags),
		dependencies: toSet(opts.Dependencies),
		scope:        opts.Scope,
	}
	c.currentBytes += size
}

// Get returns the value for key. Expiry is checked lazily: an expired entry
// is removed and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if e.expired(now) {
		c.removeLocked(key)
		c.misses++
		return zero, false
	}

	e.accessCount++
	e.lastAccessed = now
	c.hits++

	if c.clone != nil {
		return c.clone(e.value), true
	}
	return e.value, true
}

// Has reports whether key holds a live entry without touching access
// bookkeeping. Expired entries are swept on the way.
func (c *Cache[T]) Has(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if e.expired(now) {
		c.removeLocked(key)
		return false
	}
	return true
}

// Invalidate removes a single key. Returns whether the key was present.
func (c *Cache[T]) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	if ok {
		c.removeLocked(key)
	}
	return ok
}

// InvalidateByTag removes every entry carrying the tag. Returns the number
// of entries removed.
func (c *Cache[T]) InvalidateByTag(tag string) int {
	return c.invalidateWhere(func(e *entry[T]) bool {
		_, ok := e.tags[tag]
		return ok
	})
}

// InvalidateByOrganization removes every entry scoped to the organization
func (c *Cache[T]) InvalidateByOrganization(orgID uuid.UUID) int {
	return c.invalidateWhere(func(e *entry[T]) bool {
		return e.scope.OrganizationID == orgID
	})
}

// InvalidateByFiscalYear removes every entry scoped to the fiscal year
func (c *Cache[T]) InvalidateByFiscalYear(fiscalYearID uuid.UUID) int {
	return c.invalidateWhere(func(e *entry[T]) bool {
		return e.scope.FiscalYearID == fiscalYearID
	})
}

// InvalidateByDependency removes every entry depending on the given key
func (c *Cache[T]) InvalidateByDependency(dependencyKey string) int {
	return c.invalidateWhere(func(e *entry[T]) bool {
		_, ok := e.dependencies[dependencyKey]
		return ok
	})
}

// InvalidateByPattern removes every entry whose key matches the regular
// expression.
func (c *Cache[T]) InvalidateByPattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid invalidation pattern %q: %w", pattern, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if re.MatchString(key) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed, nil
}

// InvalidateAll empties the cache
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T])
	c.currentBytes = 0
}

// Cleanup sweeps all expired entries and returns how many were removed.
// Correctness does not depend on it; expiry is also checked lazily on reads.
func (c *Cache[T]) Cleanup() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

func (c *Cache[T]) invalidateWhere(match func(*entry[T]) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if match(e) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

func (c *Cache[T]) removeLocked(key string) {
	if e, ok := c.entries[key]; ok {
		c.currentBytes -= e.sizeBytes
		delete(c.entries, key)
	}
}

// evictLRULocked removes the entry with the smallest lastAccessed. Ties go
// to the first one seen, which is acceptable because entry counts are
// bounded in the thousands and a linear scan stays cheap.
func (c *Cache[T]) evictLRULocked() bool {
	var victim string
	var oldest time.Time
	found := false
	for key, e := range c.entries {
		if !found || e.lastAccessed.Before(oldest) {
			victim = key
			oldest = e.lastAccessed
			found = true
		}
	}
	if !found {
		return false
	}
	c.removeLocked(victim)
	c.evictions++
	if c.logger != nil {
		c.logger.Debug("cache entry evicted", "key", victim)
	}
	return true
}

// estimateSize approximates an entry's memory footprint as twice the length
// of its JSON serialization. Exactness is not required, only monotonic
// comparability for eviction decisions.
func estimateSize[T any](value T) int64 {
	raw, err := json.Marshal(value)
	if err != nil {
		return 64
	}
	return int64(2 * len(raw))
}

func toSet(keys []string) map[string]struct{} {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Stats is a point-in-time cache report
type Stats struct {
	Entries         int            `json:"entries"`
	MaxEntries      int            `json:"max_entries"`
	SizeBytes       int64          `json:"size_bytes"`
	MaxBytes        int64          `json:"max_bytes"`
	Hits            int64          `json:"hits"`
	Misses          int64          `json:"misses"`
	Evictions       int64          `json:"evictions"`
	HitRate         float64        `json:"hit_rate"`
	OldestEntryAge  time.Duration  `json:"oldest_entry_age"`
	TopAccessed     []AccessReport `json:"top_accessed"`
	EfficiencyScore float64        `json:"efficiency_score"`
}

// AccessReport names one frequently read key
type AccessReport struct {
	Key         string `json:"key"`
	AccessCount int64  `json:"access_count"`
}

// Stats reports counters, the oldest entry age, the top-N keys by access
// count, and the composite efficiency score.
func (c *Cache[T]) Stats(topN int) Stats {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Entries:    len(c.entries),
		MaxEntries: c.cfg.MaxEntries,
		SizeBytes:  c.currentBytes,
		MaxBytes:   c.cfg.MaxBytes,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
	if c.hits+c.misses > 0 {
		st.HitRate = 100 * float64(c.hits) / float64(c.hits+c.misses)
	}

	var oldest time.Time
	reports := make([]AccessReport, 0, len(c.entries))
	for key, e := range c.entries {
		if oldest.IsZero() || e.storedAt.Before(oldest) {
			oldest = e.storedAt
		}
		reports = append(reports, AccessReport{Key: key, AccessCount: e.accessCount})
	}
	if !oldest.IsZero() {
		st.OldestEntryAge = now.Sub(oldest)
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].AccessCount > reports[j].AccessCount })
	if topN > 0 && len(reports) > topN {
		reports = reports[:topN]
	}
	st.TopAccessed = reports

	fill := float64(len(c.entries)) / float64(c.cfg.MaxEntries)
	evictionPenalty := 2 * float64(c.evictions)
	if evictionPenalty > 30 {
		evictionPenalty = 30
	}
	fillBonus := 20 * fill
	if fillBonus > 20 {
		fillBonus = 20
	}
	st.EfficiencyScore = st.HitRate - evictionPenalty + fillBonus

	return st
}
