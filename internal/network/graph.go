// Package network holds the immutable platform graph: nodes
// (platforms), directed edges between physically successive
// platforms, map coordinates and canonical station names. The graph
// is built once at process start and never mutated afterward, so its
// read methods are safe for concurrent use by the updater and any
// number of API readers.
package network

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// NodeID is the canonical platform identity: "stationName_platformCode".
type NodeID string

// Platform describes one platform in a GraphDescription.
type Platform struct {
	Station  string
	Platform string
	X, Y     float64
}

// EdgeDescription describes a directed adjacency between two platforms
// in a GraphDescription.
type EdgeDescription struct {
	FromStation, FromPlatform string
	ToStation, ToPlatform     string
}

// GraphDescription is the external network description consumed at
// construction. Per spec.md §4.A, the only requirement on it is that
// the resulting graph is weakly connected.
type GraphDescription struct {
	Platforms []Platform
	Edges     []EdgeDescription
}

func id(station, platform string) NodeID {
	return NodeID(station + "_" + platform)
}

// Graph is the immutable platform graph.
type Graph struct {
	g       *simple.DirectedGraph
	ids     map[NodeID]int64
	names   map[int64]NodeID
	mapPos  map[NodeID][2]float64
	station map[NodeID]string
	platform map[NodeID]string
	byStation map[string][]NodeID
}

// Build constructs a Graph from a GraphDescription, validating that it
// is weakly connected. Construction is the only place this check
// happens; a disconnected description is a fatal startup error, never
// a per-tick one.
func Build(desc GraphDescription) (*Graph, error) {
	if len(desc.Platforms) == 0 {
		return nil, fmt.Errorf("network: graph description has no platforms")
	}

	g := simple.NewDirectedGraph()
	ids := make(map[NodeID]int64, len(desc.Platforms))
	names := make(map[int64]NodeID, len(desc.Platforms))
	mapPos := make(map[NodeID][2]float64, len(desc.Platforms))
	station := make(map[NodeID]string, len(desc.Platforms))
	platform := make(map[NodeID]string, len(desc.Platforms))
	byStation := make(map[string][]NodeID)

	// Assign ids in description order, so node id ordering is
	// deterministic and matches the predictor's tie-break rule.
	var nextID int64
	for _, p := range desc.Platforms {
		nodeID := id(p.Station, p.Platform)
		if _, exists := ids[nodeID]; exists {
			return nil, fmt.Errorf("network: duplicate platform %s", nodeID)
		}
		ids[nodeID] = nextID
		names[nextID] = nodeID
		mapPos[nodeID] = [2]float64{p.X, p.Y}
		station[nodeID] = p.Station
		platform[nodeID] = p.Platform
		byStation[p.Station] = append(byStation[p.Station], nodeID)
		g.AddNode(simple.Node(nextID))
		nextID++
	}

	for s := range byStation {
		sort.Slice(byStation[s], func(i, j int) bool { return byStation[s][i] < byStation[s][j] })
	}

	for _, e := range desc.Edges {
		from := id(e.FromStation, e.FromPlatform)
		to := id(e.ToStation, e.ToPlatform)
		fromID, ok := ids[from]
		if !ok {
			return nil, fmt.Errorf("network: edge references unknown platform %s", from)
		}
		toID, ok := ids[to]
		if !ok {
			return nil, fmt.Errorf("network: edge references unknown platform %s", to)
		}
		g.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
	}

	if !weaklyConnected(g) {
		return nil, fmt.Errorf("network: graph description is not weakly connected")
	}

	return &Graph{
		g: g, ids: ids, names: names, mapPos: mapPos,
		station: station, platform: platform, byStation: byStation,
	}, nil
}

// weaklyConnected runs an undirected reachability pass from an
// arbitrary node and checks every node was visited.
func weaklyConnected(g *simple.DirectedGraph) bool {
	nodes := graph.NodesOf(g.Nodes())
	if len(nodes) == 0 {
		return true
	}
	visited := make(map[int64]bool, len(nodes))
	stack := []int64{nodes[0].ID()}
	visited[nodes[0].ID()] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range graph.NodesOf(g.From(n)) {
			if !visited[nb.ID()] {
				visited[nb.ID()] = true
				stack = append(stack, nb.ID())
			}
		}
		for _, nb := range graph.NodesOf(g.To(n)) {
			if !visited[nb.ID()] {
				visited[nb.ID()] = true
				stack = append(stack, nb.ID())
			}
		}
	}
	return len(visited) == len(nodes)
}

// Nodes returns every platform node id in the graph.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, 0, len(g.ids))
	for n := range g.ids {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether node is part of the graph.
func (g *Graph) Has(node NodeID) bool {
	_, ok := g.ids[node]
	return ok
}

// Stations returns every canonical station name in the graph.
func (g *Graph) Stations() []string {
	out := make([]string, 0, len(g.byStation))
	for s := range g.byStation {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HasStation reports whether station is a known canonical station.
func (g *Graph) HasStation(station string) bool {
	_, ok := g.byStation[station]
	return ok
}

// PlatformsOf returns the platform node ids belonging to a station.
func (g *Graph) PlatformsOf(station string) []NodeID {
	return append([]NodeID(nil), g.byStation[station]...)
}

// Preds returns the predecessor node ids of node (incoming edges).
func (g *Graph) Preds(node NodeID) []NodeID {
	nid, ok := g.ids[node]
	if !ok {
		return nil
	}
	var out []NodeID
	for _, n := range graph.NodesOf(g.g.To(nid)) {
		out = append(out, g.names[n.ID()])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Succs returns the successor node ids of node (outgoing edges).
func (g *Graph) Succs(node NodeID) []NodeID {
	nid, ok := g.ids[node]
	if !ok {
		return nil
	}
	var out []NodeID
	for _, n := range graph.NodesOf(g.g.From(nid)) {
		out = append(out, g.names[n.ID()])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTerminus reports whether node has no predecessors (origin) or no
// successors (destination).
func (g *Graph) IsTerminus(node NodeID) bool {
	return len(g.Preds(node)) == 0 || len(g.Succs(node)) == 0
}

// IsOrigin reports whether node has no predecessors.
func (g *Graph) IsOrigin(node NodeID) bool {
	return len(g.Preds(node)) == 0
}

// MapPos returns the 2-D map position of node.
func (g *Graph) MapPos(node NodeID) (x, y float64, ok bool) {
	pos, exists := g.mapPos[node]
	return pos[0], pos[1], exists
}

// StationOf returns the canonical station name a node belongs to.
func (g *Graph) StationOf(node NodeID) (string, bool) {
	s, ok := g.station[node]
	return s, ok
}

// PlatformCodeOf returns the platform code a node represents.
func (g *Graph) PlatformCodeOf(node NodeID) (string, bool) {
	p, ok := g.platform[node]
	return p, ok
}

// IntID returns the gonum node id backing node, for callers (the
// predictor) that need to build a weighted view of this topology.
func (g *Graph) IntID(node NodeID) (int64, bool) {
	nid, ok := g.ids[node]
	return nid, ok
}

// NodeIDOf reverses IntID.
func (g *Graph) NodeIDOf(intID int64) (NodeID, bool) {
	n, ok := g.names[intID]
	return n, ok
}

// Gonum exposes the underlying directed graph for read-only traversal
// by other components (the predictor builds a weighted view from it).
func (g *Graph) Gonum() graph.Directed {
	return g.g
}
