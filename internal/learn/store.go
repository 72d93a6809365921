// Package learn holds the learned per-node dwell and per-edge transit
// durations: bounded rolling samples (component B) plus their running
// averages. Eviction is size-based, not time-based, so behaviour stays
// deterministic under test (spec.md §4.B).
package learn

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/maskerade/metrolinkTimes/internal/network"
)

// Edge identifies a directed adjacency for transit sampling.
type Edge struct {
	From, To network.NodeID
}

// ring is a fixed-capacity FIFO of positive durations in seconds.
type ring struct {
	samples []float64 // seconds
	cap     int
	next    int
	jitter  WelfordState
}

func newRing(cap int) *ring {
	return &ring{cap: cap}
}

func (r *ring) add(d time.Duration) {
	secs := d.Seconds()
	if len(r.samples) < r.cap {
		r.samples = append(r.samples, secs)
	} else {
		r.samples[r.next] = secs
		r.next = (r.next + 1) % r.cap
	}
	r.jitter.Update(secs)
}

func (r *ring) mean() (time.Duration, bool) {
	if len(r.samples) == 0 {
		return 0, false
	}
	return time.Duration(stat.Mean(r.samples, nil) * float64(time.Second)), true
}

// Store is the bounded dwell/transit sample store for the whole
// graph, built once per process and owned solely by the updater.
type Store struct {
	mu       sync.RWMutex
	dwellCap, transitCap int
	dwell    map[network.NodeID]*ring
	transit  map[Edge]*ring
}

// New creates a Store with the given sample caps (K_D, K_T).
func New(dwellCap, transitCap int) *Store {
	return &Store{
		dwellCap:   dwellCap,
		transitCap: transitCap,
		dwell:      make(map[network.NodeID]*ring),
		transit:    make(map[Edge]*ring),
	}
}

// RecordDwell appends a dwell observation for node, evicting the
// oldest sample if the ring is already at capacity. A non-positive d
// is ignored, so only positive durations are ever stored (spec.md §3
// invariant 4).
func (s *Store) RecordDwell(node network.NodeID, d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.dwell[node]
	if !ok {
		r = newRing(s.dwellCap)
		s.dwell[node] = r
	}
	r.add(d)
}

// RecordTransit appends a transit observation for edge (from, to).
func (s *Store) RecordTransit(from, to network.NodeID, d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Edge{From: from, To: to}
	r, ok := s.transit[e]
	if !ok {
		r = newRing(s.transitCap)
		s.transit[e] = r
	}
	r.add(d)
}

// AverageDwell returns the mean dwell time at node, or ok=false if no
// samples have been recorded yet.
func (s *Store) AverageDwell(node network.NodeID) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.dwell[node]
	if !ok {
		return 0, false
	}
	return r.mean()
}

// AverageTransit returns the mean transit time for edge (from, to) and
// the number of samples backing it.
func (s *Store) AverageTransit(from, to network.NodeID) (time.Duration, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.transit[Edge{From: from, To: to}]
	if !ok {
		return 0, 0
	}
	avg, present := r.mean()
	if !present {
		return 0, 0
	}
	return avg, len(r.samples)
}

// DwellSampleCount returns len(dwellSamples[node]), for P5.
func (s *Store) DwellSampleCount(node network.NodeID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.dwell[node]; ok {
		return len(r.samples)
	}
	return 0
}

// TransitSampleCount returns len(transitSamples[edge]), for P5.
func (s *Store) TransitSampleCount(from, to network.NodeID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.transit[Edge{From: from, To: to}]; ok {
		return len(r.samples)
	}
	return 0
}

// DwellJitter returns the supplemental standard-deviation estimate of
// dwell times at node, computed by Welford's online algorithm over
// every observation ever recorded at node (unbounded — this is a
// diagnostic, not an input to prediction). ok is false with fewer
// than two observations.
func (s *Store) DwellJitter(node network.NodeID) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.dwell[node]
	if !ok || r.jitter.Count < 2 {
		return 0, false
	}
	return time.Duration(r.jitter.GetStdDev() * float64(time.Second)), true
}

// NodesWithoutAverage returns every graph node with no dwell average
// yet, for the /debug/ missingAverages listing.
func (s *Store) NodesWithoutAverage(g *network.Graph) []network.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []network.NodeID
	for _, n := range g.Nodes() {
		if r, ok := s.dwell[n]; !ok || len(r.samples) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// EdgesWithoutAverage returns every graph edge with no transit average
// yet, for the /debug/ missingAverages listing.
func (s *Store) EdgesWithoutAverage(g *network.Graph) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Edge
	for _, n := range g.Nodes() {
		for _, succ := range g.Succs(n) {
			e := Edge{From: n, To: succ}
			if r, ok := s.transit[e]; !ok || len(r.samples) == 0 {
				out = append(out, e)
			}
		}
	}
	return out
}
