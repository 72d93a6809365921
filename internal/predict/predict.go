// Package predict implements the predictor (component F): for every
// located tram, walk forward along the shortest weighted path toward
// its destination, accumulating learned transit and dwell averages
// into a predicted-arrival timestamp per downstream node. Missing
// averages truncate the walk rather than fabricate an estimate.
package predict

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// absentWeight is the weight the weighted view reports between two
// nodes with no sampled edge (spec.md §4.F step 4).
const absentWeight = -1

// weightedView builds a fresh WeightedDirectedGraph from g's topology,
// using the current averageTransit samples as edge weights. An edge
// with no sample is omitted, so Dijkstra on this view only finds
// routes whose every edge has a transit average; predictOne falls
// back to the unweighted topology when no such route exists.
func weightedView(g *network.Graph, samples *learn.Store) *simple.WeightedDirectedGraph {
	wg := simple.NewWeightedDirectedGraph(0, absentWeight)
	for _, n := range g.Nodes() {
		id, _ := g.IntID(n)
		wg.AddNode(simple.Node(id))
	}
	for _, from := range g.Nodes() {
		fromID, _ := g.IntID(from)
		for _, to := range g.Succs(from) {
			avg, sampleCount := samples.AverageTransit(from, to)
			if sampleCount == 0 {
				continue
			}
			toID, _ := g.IntID(to)
			wg.SetWeightedEdge(simple.WeightedEdge{
				F: simple.Node(fromID),
				T: simple.Node(toID),
				W: avg.Seconds(),
			})
		}
	}
	return wg
}

// bestPathToStation finds the lowest-weight path from source to any
// platform belonging to destStation, tie-broken by lower total
// weight then by lowest destination node id. ok is false if no
// platform of destStation is reachable at all.
func bestPathToStation(g *network.Graph, wg graph.Graph, source network.NodeID, destStation string) ([]network.NodeID, bool) {
	sourceID, ok := g.IntID(source)
	if !ok {
		return nil, false
	}
	if !g.HasStation(destStation) {
		return nil, false
	}

	tree := path.DijkstraFrom(simple.Node(sourceID), wg)

	var bestPath []graph.Node
	bestWeight := -1.0
	bestDestID := int64(-1)

	for _, candidate := range g.PlatformsOf(destStation) {
		candidateID, ok := g.IntID(candidate)
		if !ok {
			continue
		}
		p, weight := tree.To(candidateID)
		if len(p) == 0 {
			continue
		}
		if bestWeight < 0 || weight < bestWeight || (weight == bestWeight && candidateID < bestDestID) {
			bestWeight = weight
			bestPath = p
			bestDestID = candidateID
		}
	}

	if bestPath == nil {
		return nil, false
	}

	out := make([]network.NodeID, 0, len(bestPath))
	for _, n := range bestPath {
		id, ok := g.NodeIDOf(n.ID())
		if !ok {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

// walk accumulates averageTransit/averageDwell along path into
// predictions, starting from base at path[0]. It stops (returns
// early, leaving predictions unset for the remainder) the moment a
// required average is missing.
func walk(samples *learn.Store, tramPath []network.NodeID, base time.Time, predictions map[network.NodeID]time.Time) {
	if len(tramPath) < 2 {
		return
	}
	timestamp := base
	for i := 0; i < len(tramPath)-1; i++ {
		u, v := tramPath[i], tramPath[i+1]
		transit, sampleCount := samples.AverageTransit(u, v)
		if sampleCount == 0 {
			return
		}
		timestamp = timestamp.Add(transit)
		predictions[v] = timestamp

		isFinal := i == len(tramPath)-2
		if !isFinal {
			dwell, ok := samples.AverageDwell(v)
			if !ok {
				return
			}
			timestamp = timestamp.Add(dwell)
		}
	}
}

// Run executes both predictor passes over every node in g, overwriting
// each tram's prediction map for this tick.
func Run(g *network.Graph, store *state.Store, samples *learn.Store) {
	wg := weightedView(g, samples)

	for _, nodeID := range g.Nodes() {
		node := store.Node(nodeID)
		if node == nil {
			continue
		}

		// Pass 1: located trams (Here, Departed).
		for _, tram := range node.Here() {
			base := tram.ArrivedAt
			if tram.Status != state.StatusDeparting {
				if dwell, ok := samples.AverageDwell(nodeID); ok {
					base = tram.ArrivedAt.Add(dwell)
				}
			}
			predictOne(g, wg, samples, nodeID, tram, base)
		}
		for _, tram := range node.Departed() {
			predictOne(g, wg, samples, nodeID, tram, tram.Loc.DepartedAt)
		}

		// Pass 2: approaching and starting trams. ArrivedAt holds the
		// sighting instant (lastUpstreamTime at seed time); WaitMinutes
		// holds the upstream wait figure, per spec.md §4.F pass 2.
		for _, tram := range node.Approaching() {
			base := tram.ArrivedAt.Add(time.Duration(tram.WaitMinutes) * time.Minute)
			predictOne(g, wg, samples, nodeID, tram, base)
		}
		for _, tram := range node.Starting() {
			base := tram.ArrivedAt.Add(time.Duration(tram.WaitMinutes) * time.Minute)
			predictOne(g, wg, samples, nodeID, tram, base)
		}
	}
}

func predictOne(g *network.Graph, wg *simple.WeightedDirectedGraph, samples *learn.Store, from network.NodeID, tram *state.Tram, base time.Time) {
	tramPath, ok := bestPathToStation(g, wg, from, tram.Dest)
	if !ok {
		// No fully sampled route: take the fewest-hop route instead, so
		// walk stops at its first edge with no transit average.
		tramPath, ok = bestPathToStation(g, g.Gonum(), from, tram.Dest)
	}
	if !ok {
		tram.Predictions = map[network.NodeID]time.Time{}
		return
	}
	predictions := make(map[network.NodeID]time.Time, len(tramPath)-1)
	walk(samples, tramPath, base, predictions)
	tram.Predictions = predictions
}

// NodePredictions is one tram's predicted arrival at a specific node,
// as gathered for a node's outward-facing prediction list.
type NodePredictions struct {
	Dest          string
	Via           string
	Carriages     state.Carriages
	PredictedTime time.Time
}

// Gather assembles node's outward-facing prediction list: every
// reachable tram's predictions[node] entry, sorted by predicted
// arrival ascending, per spec.md §4.F's closing paragraph.
func Gather(store *state.Store, node network.NodeID) []NodePredictions {
	var out []NodePredictions
	for _, n := range store.Nodes() {
		src := store.Node(n)
		if src == nil {
			continue
		}
		for _, bucket := range [][]*state.Tram{src.Here(), src.Departed(), src.Approaching(), src.Starting()} {
			for _, tram := range bucket {
				when, ok := tram.Predictions[node]
				if !ok {
					continue
				}
				out = append(out, NodePredictions{
					Dest:          tram.Dest,
					Via:           tram.Via,
					Carriages:     tram.Carriages,
					PredictedTime: when,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PredictedTime.Before(out[j].PredictedTime) })
	return out
}
