// Package save implements the report save pipeline and its concurrency
// guard.
//
// This file implements Guard, the per-report "save in flight" latch. The UI
// may fire a debounced autosave while a user-initiated save is running;
// without the latch two read-merge-write sequences could interleave and
// persist a document reflecting only one caller's room updates.
package save

import (
	"sync"

	"github.com/DukeRupert/clerkly/internal/metrics"
	"github.com/google/uuid"
)

// Guard is a keyed mutual-exclusion latch. Saves for different report IDs
// proceed independently; a second save for the same ID fails fast instead of
// queueing.
type Guard struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{
		inFlight: make(map[uuid.UUID]bool),
	}
}

// Begin attempts to take the latch for a report. It returns false, doing
// nothing, when a save for that ID is already in flight.
func (g *Guard) Begin(reportID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[reportID] {
		return false
	}
	g.inFlight[reportID] = true
	metrics.SavesInFlight.Inc()
	return true
}

// End releases the latch unconditionally. Callers defer it immediately after
// a successful Begin so a panicking save still releases.
func (g *Guard) End(reportID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[reportID] {
		delete(g.inFlight, reportID)
		metrics.SavesInFlight.Dec()
	}
}

// InFlight reports whether a save currently holds the latch for a report.
func (g *Guard) InFlight(reportID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[reportID]
}
