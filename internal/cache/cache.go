// Package cache implements the process-wide report cache.
//
// The cache is an optimization, never a source of truth: callers must be
// able to reload any report from the persisted document on a miss, and every
// mutation is written through the save pipeline before it is reflected here.
package cache

import (
	"sync"
	"time"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/metrics"
	"github.com/google/uuid"
)

// DefaultTTL bounds how stale a cached report may be served.
const DefaultTTL = 5 * time.Minute

// =============================================================================
// Report Cache
// =============================================================================

// Cache is a TTL-based cache of fully-loaded reports keyed by report ID.
//
// It is an explicit injectable object rather than a package-level singleton
// so tests construct isolated instances. All methods are safe for concurrent
// use; expired entries are purged on read.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	report   *domain.Report
	property *domain.Property
	storedAt time.Time
}

// New creates a cache with the given TTL. A non-positive TTL falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]*entry),
	}
}

// Get returns the cached report and property snapshot for the given ID, or
// (nil, nil, false). An entry that has reached the TTL is evicted and misses.
func (c *Cache) Get(reportID uuid.UUID) (*domain.Report, *domain.Property, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[reportID]
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, reportID)
		metrics.CacheSize.Set(float64(len(c.entries)))
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
		metrics.CacheMisses.Inc()
		return nil, nil, false
	}

	metrics.CacheHits.Inc()
	return snapshot(e.report), e.property, true
}

// snapshot copies a report so the cache and its callers never share a
// mutable pointer. Callers fold request state onto the report they were
// given before attempting a save; when that save is rejected, the
// unpersisted state must not be visible to other readers through the cache.
func snapshot(r *domain.Report) *domain.Report {
	cp := *r
	cp.Rooms = append([]domain.Room(nil), r.Rooms...)
	return &cp
}

// Set stores a report with a fresh timestamp, unconditionally overwriting
// any existing entry.
func (c *Cache) Set(reportID uuid.UUID, report *domain.Report, property *domain.Property) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[reportID] = &entry{
		report:   snapshot(report),
		property: property,
		storedAt: c.now(),
	}
	metrics.CacheSize.Set(float64(len(c.entries)))
}

// ReportPatch is a shallow partial update to a cached report. Nil fields are
// left untouched.
type ReportPatch struct {
	Status      *domain.ReportStatus
	Rooms       *[]domain.Room
	UpdatedAt   *time.Time
	CompletedAt *time.Time
	FileURL     *string
}

// Update shallow-merges a patch into an existing entry and refreshes its
// timestamp. A miss is a no-op: callers reload from the persisted document
// instead, and the cache never becomes the only record of a mutation.
func (c *Cache) Update(reportID uuid.UUID, patch ReportPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[reportID]
	if !ok {
		return
	}

	report := *e.report
	if patch.Status != nil {
		report.Status = *patch.Status
	}
	if patch.Rooms != nil {
		report.Rooms = *patch.Rooms
	}
	if patch.UpdatedAt != nil {
		report.UpdatedAt = *patch.UpdatedAt
	}
	if patch.CompletedAt != nil {
		report.CompletedAt = patch.CompletedAt
	}
	if patch.FileURL != nil {
		report.FileURL = *patch.FileURL
	}

	e.report = &report
	e.storedAt = c.now()
}

// Invalidate removes the entry for one report, typically after a failed
// write, so the next read refetches ground truth instead of trusting a
// possibly-divergent copy.
func (c *Cache) Invalidate(reportID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[reportID]; ok {
		delete(c.entries, reportID)
		metrics.CacheSize.Set(float64(len(c.entries)))
		metrics.CacheEvictions.WithLabelValues("invalidated").Inc()
	}
}

// InvalidateAll clears the entire cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[uuid.UUID]*entry)
	metrics.CacheSize.Set(0)
	for i := 0; i < n; i++ {
		metrics.CacheEvictions.WithLabelValues("invalidated").Inc()
	}
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor launches a background sweep that removes expired entries so
// idle reports do not pin memory until their next read. The sweep stops when
// stop is closed. Purge-on-read remains the correctness mechanism; this only
// bounds memory.
func (c *Cache) StartJanitor(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(c.ttl)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, id)
			metrics.CacheEvictions.WithLabelValues("expired").Inc()
		}
	}
	metrics.CacheSize.Set(float64(len(c.entries)))
}
