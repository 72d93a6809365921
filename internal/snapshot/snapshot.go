// Package snapshot holds the single long-lived shared object in this
// system: an immutable, lock-free-published view of runtime state
// that the updater publishes once per successful tick and any number
// of API readers consume concurrently (single writer, many readers).
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// Snapshot is a post-tick, read-only view of everything an API
// handler needs. It is never mutated after Publish — readers holding
// a reference always see a consistent tick.
type Snapshot struct {
	ID              string
	LocalUpdateTime time.Time
	Graph           *network.Graph
	Store           *state.Store
	Samples         *learn.Store
}

// IsStale reports whether this snapshot's LocalUpdateTime is older
// than maxAge relative to now — the basis for the /health contract
// (spec.md §6, 503 past 30s).
func (s *Snapshot) IsStale(now time.Time, maxAge time.Duration) bool {
	if s == nil {
		return true
	}
	return now.Sub(s.LocalUpdateTime) > maxAge
}

// Publisher holds the current Snapshot behind an atomic pointer, so
// publication and reads never block one another and readers never
// observe a half-applied tick.
type Publisher struct {
	current atomic.Pointer[Snapshot]
}

// NewPublisher creates an empty Publisher; Current returns nil until
// the first Publish.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish makes a new Snapshot visible to readers. graphRef and store
// are expected to be shared across ticks (the graph is immutable
// after construction; the store's nodes mutate in place under their
// own locks) — only the wrapper identity changes per tick.
func (p *Publisher) Publish(g *network.Graph, store *state.Store, samples *learn.Store, localUpdateTime time.Time) *Snapshot {
	snap := &Snapshot{
		ID:              uuid.NewString(),
		LocalUpdateTime: localUpdateTime,
		Graph:           g,
		Store:           store,
		Samples:         samples,
	}
	p.current.Store(snap)
	return snap
}

// Current returns the most recently published Snapshot, or nil if
// none has been published yet.
func (p *Publisher) Current() *Snapshot {
	return p.current.Load()
}
