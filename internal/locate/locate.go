// Package locate implements the locator, the core per-tick state
// machine (component E). Its five phases run in a fixed order over
// every node; later phases read state earlier phases wrote, so
// reordering them changes behaviour.
package locate

import (
	"log"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/decode"
	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// isPresent reports whether status/wait imply the tram is physically
// at the platform right now.
func isPresent(status state.Status, wait int) bool {
	switch status {
	case state.StatusArrived, state.StatusDeparting:
		return true
	case state.StatusDue:
		return wait <= 0
	}
	return false
}

// isDue reports whether status/wait imply an approaching candidate
// (a Due row with a positive wait).
func isDue(status state.Status, wait int) bool {
	return status == state.StatusDue && wait >= 1
}

func rowMatches(row state.PIDRow, dest, via string, carriages state.Carriages) bool {
	return row.Dest == dest && row.Via == via && row.Carriages == carriages
}

// Run executes phases 4.E.1 through 4.E.5 over every node in g, in
// order. store holds the per-node runtime state produced by the
// decoder; samples holds the learned dwell/transit durations that
// feed 4.E.4's retention-window heuristic. retentionFloor is the
// configured lower bound on that window (spec.md §4.E.4,
// METROLINK_DEPARTED_RETENTION_SECONDS).
func Run(g *network.Graph, store *state.Store, samples *learn.Store, retentionFloor time.Duration) {
	departures(g, store, samples)
	arrivals(g, store, samples)
	seedApproaching(g, store)
	expireDeparted(g, store, samples, retentionFloor)
	seedStarting(g, store)
}

// 4.E.1 Departures: Here -> Departed.
func departures(g *network.Graph, store *state.Store, samples *learn.Store) {
	for _, nodeID := range g.Nodes() {
		node := store.Node(nodeID)
		if node == nil {
			continue
		}
		upstreamTime := node.LastUpstreamTime()
		rows := node.PIDRows()

		for _, tram := range node.Here() {
			stillPresent := false
			for _, row := range rows {
				if rowMatches(row, tram.Dest, tram.Via, tram.Carriages) && isPresent(row.Status, row.Wait) {
					stillPresent = true
					break
				}
			}
			if stillPresent {
				continue
			}

			tram.Loc = state.Location{
				Between:    nodeID,
				DepartedAt: upstreamTime,
			}
			dwell := upstreamTime.Sub(tram.ArrivedAt)
			node.MoveHereToDeparted(tram)
			if dwell > 0 {
				samples.RecordDwell(nodeID, dwell)
			}
		}
	}
}

// signature identifies trams sharing the same (dest, via, carriages)
// for the purposes of present-row matching, since trams carry no
// stable external id.
type signature struct {
	dest, via string
	carriages state.Carriages
}

// 4.E.2 Arrivals: promote Approaching -> Here, or create fresh
// unmatched "present" trams. Rows are matched by signature count
// rather than one-at-a-time, so that a PID board listing two trams
// with identical (dest, via, carriages) — spec.md S5 — still yields
// two distinct Here trams instead of one.
func arrivals(g *network.Graph, store *state.Store, samples *learn.Store) {
	for _, nodeID := range g.Nodes() {
		node := store.Node(nodeID)
		if node == nil {
			continue
		}
		upstreamTime := node.LastUpstreamTime()

		wanted := make(map[signature]int)
		statusBySig := make(map[signature]state.Status)
		for _, row := range node.PIDRows() {
			if !isPresent(row.Status, row.Wait) {
				continue
			}
			sig := signature{row.Dest, row.Via, row.Carriages}
			wanted[sig]++
			statusBySig[sig] = row.Status
		}

		haveHere := make(map[signature]int)
		for _, tram := range node.Here() {
			haveHere[signature{tram.Dest, tram.Via, tram.Carriages}]++
		}

		for sig, want := range wanted {
			need := want - haveHere[sig]
			for i := 0; i < need; i++ {
				if match := node.FindOldestApproachingMatch(sig.dest, sig.via, sig.carriages); match != nil {
					prevDepartedAt := match.Loc.DepartedAt
					prevFrom := match.Loc.Between
					match.ArrivedAt = upstreamTime
					match.Status = statusBySig[sig]
					match.Loc = state.Location{At: nodeID}
					node.MoveApproachingToHere(match)
					if prevFrom != "" && !prevDepartedAt.IsZero() {
						if transit := upstreamTime.Sub(prevDepartedAt); transit > 0 {
							samples.RecordTransit(prevFrom, nodeID, transit)
						}
					}
					continue
				}

				fresh := &state.Tram{
					Dest:      sig.dest,
					Via:       sig.via,
					Carriages: sig.carriages,
					Status:    statusBySig[sig],
					ArrivedAt: upstreamTime,
					Loc:       state.Location{At: nodeID},
				}
				node.AddHere(fresh)
			}
		}
	}
}

// isSentinelDest reports whether dest is one of the three sentinel
// strings that have no path through the graph (spec.md B2: a
// "Terminates Here" row creates no Approaching sighting downstream).
func isSentinelDest(dest string) bool {
	switch dest {
	case decode.SentinelTerminatesHere, decode.SentinelSeeTramFront, decode.SentinelNotInService:
		return true
	}
	return false
}

// nextHopToward returns the unique successor of from that lies on a
// path toward destStation, or ok=false if no successor leads there or
// more than one does (an ambiguous branch).
func nextHopToward(g *network.Graph, from network.NodeID, destStation string) (network.NodeID, bool) {
	var candidates []network.NodeID
	for _, succ := range g.Succs(from) {
		if station, _ := g.StationOf(succ); station == destStation {
			candidates = append(candidates, succ)
			continue
		}
		if canReach(g, succ, destStation) {
			candidates = append(candidates, succ)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return "", false
}

// canReach reports whether destStation is reachable by following
// successor edges forward from start.
func canReach(g *network.Graph, start network.NodeID, destStation string) bool {
	visited := make(map[network.NodeID]bool)
	stack := []network.NodeID{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		if station, _ := g.StationOf(n); station == destStation {
			return true
		}
		stack = append(stack, g.Succs(n)...)
	}
	return false
}

// 4.E.3 Seed approaching: a PID row at node o with status Due and a
// positive wait describes an upcoming departure from o — once it
// leaves, it will be approaching the next node on the path toward its
// destination. Seed that downstream node's Approaching bucket, unless
// it already holds a matching candidate (debounce) or the destination
// is a sentinel with no graph path (B2).
func seedApproaching(g *network.Graph, store *state.Store) {
	for _, origin := range g.Nodes() {
		node := store.Node(origin)
		if node == nil {
			continue
		}
		upstreamTime := node.LastUpstreamTime()

		for _, row := range node.PIDRows() {
			if !isDue(row.Status, row.Wait) {
				continue
			}
			if isSentinelDest(row.Dest) {
				continue
			}

			target, ok := nextHopToward(g, origin, row.Dest)
			if !ok {
				log.Printf("locate: ambiguous successor from %s toward %s, skipping seed", origin, row.Dest)
				continue
			}
			targetNode := store.Node(target)
			if targetNode == nil {
				continue
			}
			if targetNode.HasApproachingMatch(row.Dest, row.Via, row.Carriages) {
				continue
			}

			candidate := &state.Tram{
				Dest:        row.Dest,
				Via:         row.Via,
				Carriages:   row.Carriages,
				Status:      row.Status,
				ArrivedAt:   upstreamTime,
				WaitMinutes: row.Wait,
				Loc: state.Location{
					Between:    origin,
					To:         target,
					DepartedAt: upstreamTime,
					InTransit:  true,
				},
			}
			targetNode.AddApproaching(candidate)
		}
	}
}

// 4.E.4 Expire stale Departed: drop any tram whose departedAt is
// older than the retention window.
func expireDeparted(g *network.Graph, store *state.Store, samples *learn.Store, retentionFloor time.Duration) {
	for _, nodeID := range g.Nodes() {
		node := store.Node(nodeID)
		if node == nil {
			continue
		}

		upstreamTime := node.LastUpstreamTime()
		if upstreamTime.IsZero() {
			continue
		}
		retention := retentionWindow(g, samples, nodeID, retentionFloor)
		node.ExpireDeparted(upstreamTime.Add(-retention))
	}
}

// retentionWindow implements the §4.E.4 heuristic:
// max(2*averageTransit over outgoing edges, floor).
func retentionWindow(g *network.Graph, samples *learn.Store, node network.NodeID, floor time.Duration) time.Duration {
	best := floor
	for _, succ := range g.Succs(node) {
		avg, sampleCount := samples.AverageTransit(node, succ)
		if sampleCount == 0 {
			continue
		}
		if candidate := 2 * avg; candidate > best {
			best = candidate
		}
	}
	return best
}

// 4.E.5 Seed Starting: an origin node (no predecessors) has no
// upstream platform to be "approaching" from, so any row that 4.E.2
// (present) and 4.E.3 (due) did not already account for represents a
// tram about to originate there with no physical prior location.
func seedStarting(g *network.Graph, store *state.Store) {
	for _, nodeID := range g.Nodes() {
		if !g.IsOrigin(nodeID) {
			continue
		}
		node := store.Node(nodeID)
		if node == nil {
			continue
		}
		upstreamTime := node.LastUpstreamTime()

		for _, row := range node.PIDRows() {
			if isPresent(row.Status, row.Wait) || isDue(row.Status, row.Wait) {
				continue
			}
			if node.HasMatch(row.Dest, row.Via, row.Carriages) {
				continue
			}
			entry := &state.Tram{
				Dest:        row.Dest,
				Via:         row.Via,
				Carriages:   row.Carriages,
				Status:      row.Status,
				ArrivedAt:   upstreamTime,
				WaitMinutes: row.Wait,
				Loc:         state.Location{At: nodeID},
			}
			node.AddStarting(entry)
		}
	}
}
