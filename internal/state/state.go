// Package state holds the mutable per-node runtime state: the most
// recent PID rows and message, and the four tram buckets (Here,
// Departed, Approaching, Starting) spec.md §3 defines. One Node is
// created per graph platform at startup and never added to or
// removed from afterward; each Node owns its own mutex so independent
// nodes can be updated concurrently by the decoder (internal/decode).
package state

import (
	"sync"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/network"
)

// Carriages is the coarse train-length field on a PID row.
type Carriages string

const (
	Single Carriages = "Single"
	Double Carriages = "Double"
)

// Status is the coarse upstream status word.
type Status string

const (
	StatusArrived   Status = "Arrived"
	StatusDeparting Status = "Departing"
	StatusDue       Status = "Due"
)

// PIDRow is a decoded destination slot (component D's output).
type PIDRow struct {
	Dest      string
	Via       string // empty if absent
	Carriages Carriages
	Status    Status
	Wait      int // minutes, non-negative
}

// sameTram reports whether two rows/trams describe the same physical
// service for matching purposes (dest, via, carriages).
func sameTram(dest, via string, carriages Carriages, o *Tram) bool {
	return o.Dest == dest && o.Via == via && o.Carriages == carriages
}

// Location tags a tram as either at a node or between two nodes.
type Location struct {
	// At is set when the tram sits at a platform.
	At network.NodeID
	// Between/To/DepartedAt are set when the tram is in transit.
	Between, To network.NodeID
	DepartedAt  time.Time
	InTransit   bool
}

// Tram is a reified tram object created by the locator. It carries no
// stable external id; identity is maintained structurally (dest, via,
// carriages) plus FIFO age, per spec.md §9.
type Tram struct {
	Dest      string
	Via       string
	Carriages Carriages

	Loc       Location
	ArrivedAt time.Time // dwell/transit measurement anchor

	// WaitMinutes is the upstream wait figure this tram was last seen
	// with, meaningful only while the tram sits in Approaching or
	// Starting — the predictor's pass 2 uses it to compute a base
	// timestamp (spec.md §4.F pass 2).
	WaitMinutes int

	// Status is the most recently observed upstream status for this
	// tram, used by the predictor to decide the base timestamp for
	// Here trams (spec.md §4.F pass 1 step 1).
	Status Status

	// Predictions maps downstream node -> predicted arrival instant,
	// overwritten wholesale every tick by the predictor.
	Predictions map[network.NodeID]time.Time
}

// Node is the mutable runtime state attached to one graph platform.
type Node struct {
	mu sync.RWMutex

	ID NodeID

	lastUpstreamTime time.Time
	pidRows          []PIDRow
	message          string

	here        []*Tram
	departed    []*Tram
	approaching []*Tram
	starting    []*Tram
}

// NodeID is re-exported for callers that don't need the full network
// package import.
type NodeID = network.NodeID

// NewNode creates an empty runtime state for a platform.
func NewNode(id NodeID) *Node {
	return &Node{ID: id}
}

// ApplyDecode stores the decoder's output for this node. It never
// touches the tram buckets — that is the locator's job (spec.md
// §4.D).
func (n *Node) ApplyDecode(rows []PIDRow, message string, updateTime time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pidRows = rows
	n.message = message
	n.lastUpstreamTime = updateTime
}

// LastUpstreamTime returns the last stored feed timestamp for this
// node. The zero Time means no update has ever been applied.
func (n *Node) LastUpstreamTime() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.lastUpstreamTime
}

// PIDRows returns a copy of the most recently decoded rows.
func (n *Node) PIDRows() []PIDRow {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]PIDRow(nil), n.pidRows...)
}

// Message returns the current platform message, or "" if absent.
func (n *Node) Message() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.message
}

// Here, Departed, Approaching, Starting return copies of the
// corresponding bucket's trams.
func (n *Node) Here() []*Tram        { return n.snapshot(&n.here) }
func (n *Node) Departed() []*Tram    { return n.snapshot(&n.departed) }
func (n *Node) Approaching() []*Tram { return n.snapshot(&n.approaching) }
func (n *Node) Starting() []*Tram    { return n.snapshot(&n.starting) }

func (n *Node) snapshot(bucket *[]*Tram) []*Tram {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Tram(nil), (*bucket)...)
}

// --- mutation helpers used only by internal/locate ---

// MoveHereToDeparted removes tram from Here and appends it to
// Departed. Caller must have already set tram.Loc/ArrivedAt as
// needed.
func (n *Node) MoveHereToDeparted(tram *Tram) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.here = removeTram(n.here, tram)
	n.departed = append(n.departed, tram)
}

// MoveApproachingToHere removes tram from Approaching and appends it
// to Here.
func (n *Node) MoveApproachingToHere(tram *Tram) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approaching = removeTram(n.approaching, tram)
	n.here = append(n.here, tram)
}

// AddHere appends a freshly observed tram directly to Here (no prior
// Approaching sighting matched it).
func (n *Node) AddHere(tram *Tram) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.here = append(n.here, tram)
}

// AddApproaching appends a newly seeded candidate tram.
func (n *Node) AddApproaching(tram *Tram) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approaching = append(n.approaching, tram)
}

// AddStarting appends a newly seeded originating tram.
func (n *Node) AddStarting(tram *Tram) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.starting = append(n.starting, tram)
}

// ExpireDeparted drops every Departed tram older than cutoff
// (departedAt before cutoff), returning how many were expired.
func (n *Node) ExpireDeparted(cutoff time.Time) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.departed[:0]
	expired := 0
	for _, t := range n.departed {
		if t.Loc.DepartedAt.Before(cutoff) {
			expired++
			continue
		}
		kept = append(kept, t)
	}
	n.departed = kept
	return expired
}

// FindOldestApproachingMatch returns the oldest (by ArrivedAt)
// Approaching tram matching (dest, via, carriages), or nil.
func (n *Node) FindOldestApproachingMatch(dest, via string, carriages Carriages) *Tram {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var best *Tram
	for _, t := range n.approaching {
		if !sameTram(dest, via, carriages, t) {
			continue
		}
		if best == nil || t.ArrivedAt.Before(best.ArrivedAt) {
			best = t
		}
	}
	return best
}

// HasApproachingMatch reports whether Approaching already contains a
// tram matching (dest, via, carriages) — used by the seed-approaching
// phase to debounce repeat sightings of a still-in-transit candidate
// without blocking a genuinely new sighting once the old one arrives.
func (n *Node) HasApproachingMatch(dest, via string, carriages Carriages) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, t := range n.approaching {
		if sameTram(dest, via, carriages, t) {
			return true
		}
	}
	return false
}

// HasMatch reports whether Here or Approaching already contains a
// tram matching (dest, via, carriages) — used by the seed-starting
// phase to skip rows already accounted for by a Here or Approaching
// tram.
func (n *Node) HasMatch(dest, via string, carriages Carriages) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, t := range n.here {
		if sameTram(dest, via, carriages, t) {
			return true
		}
	}
	for _, t := range n.approaching {
		if sameTram(dest, via, carriages, t) {
			return true
		}
	}
	return false
}

func removeTram(bucket []*Tram, tram *Tram) []*Tram {
	out := bucket[:0]
	for _, t := range bucket {
		if t != tram {
			out = append(out, t)
		}
	}
	return out
}

// Store is the whole graph's runtime state: one Node per platform,
// fixed at construction.
type Store struct {
	nodes map[NodeID]*Node
}

// NewStore creates a Store with one empty Node per graph platform.
func NewStore(g *network.Graph) *Store {
	s := &Store{nodes: make(map[NodeID]*Node)}
	for _, id := range g.Nodes() {
		s.nodes[id] = NewNode(id)
	}
	return s
}

// Node returns the runtime state for a platform, or nil if unknown.
func (s *Store) Node(id NodeID) *Node {
	return s.nodes[id]
}

// Nodes returns every node id with runtime state.
func (s *Store) Nodes() []NodeID {
	out := make([]NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}
