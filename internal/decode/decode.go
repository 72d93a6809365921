// Package decode turns raw PID feed records into normalised per-node
// rows (component D). It never touches tram buckets — only
// pidRows, message and lastUpstreamTime on the target node.
package decode

import (
	"context"
	"log"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/maskerade/metrolinkTimes/internal/alias"
	"github.com/maskerade/metrolinkTimes/internal/feed"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// Sentinel destination strings that are valid even though they are
// not canonical station names.
const (
	SentinelTerminatesHere = "Terminates Here"
	SentinelSeeTramFront   = "See Tram Front"
	SentinelNotInService   = "Not in Service"
)

func isSentinelDest(dest string) bool {
	switch dest {
	case SentinelTerminatesHere, SentinelSeeTramFront, SentinelNotInService:
		return true
	}
	return false
}

const noMessageMarker = "<no message>"

// decodeMessage applies the MessageBoard rules: a board beginning
// with "^F0" or equal to the literal "<no message>" marker means no
// message; otherwise strip "^$" separators from the board text.
func decodeMessage(raw string) string {
	if raw == noMessageMarker || strings.HasPrefix(raw, "^F0") {
		return ""
	}
	return strings.ReplaceAll(raw, "^$", "")
}

// decodeRow decodes one destination slot. ok is false if the row must
// be dropped.
func decodeRow(g *network.Graph, aliases *alias.Table, dest, via, carriages, status, wait string) (state.PIDRow, bool) {
	if dest == "" {
		return state.PIDRow{}, false
	}

	d, v := dest, via
	if idx := strings.Index(d, " via "); idx >= 0 {
		v = d[idx+len(" via "):]
		d = d[:idx]
	}

	d = aliases.Resolve(d)
	if v != "" {
		v = aliases.Resolve(v)
	}

	if !isSentinelDest(d) && !g.HasStation(d) {
		log.Printf("decode: dropping row with unknown destination %q", d)
		return state.PIDRow{}, false
	}
	if v != "" && !g.HasStation(v) {
		log.Printf("decode: nulling unknown via %q", v)
		v = ""
	}

	waitMin, err := strconv.Atoi(strings.TrimSpace(wait))
	if err != nil {
		log.Printf("decode: dropping row with unparseable wait %q: %v", wait, err)
		return state.PIDRow{}, false
	}
	if waitMin < 0 {
		waitMin = 0
	}

	return state.PIDRow{
		Dest:      d,
		Via:       v,
		Carriages: state.Carriages(carriages),
		Status:    state.Status(status),
		Wait:      waitMin,
	}, true
}

// decodeRecord turns one raw Record into its ordered PID rows and
// message, dropping slots that fail decoding (rule 4: preserve slot
// order, emit at most four rows).
func decodeRecord(g *network.Graph, aliases *alias.Table, rec feed.Record) ([]state.PIDRow, string) {
	dests := rec.Dests()
	carriages := rec.Carriageses()
	statuses := rec.Statuses()
	waits := rec.Waits()

	rows := make([]state.PIDRow, 0, 4)
	for i := 0; i < 4; i++ {
		if dests[i] == "" {
			continue
		}
		row, ok := decodeRow(g, aliases, dests[i], "", carriages[i], statuses[i], waits[i])
		if !ok {
			continue
		}
		rows = append(rows, row)
	}

	return rows, decodeMessage(rec.MessageBoard)
}

// Result is one node's decode outcome.
type Result struct {
	Node    network.NodeID
	Applied bool // false if the node's feed was stale and nothing changed
}

// Apply decodes every record in snap concurrently, one goroutine per
// node, and applies each node's result to store. Unknown platforms
// (no matching graph node) are dropped with a warning. A node whose
// LastUpdated timestamp is unchanged since the last tick is left
// untouched for this tick (per-node staleness, spec.md §9 Open
// Questions resolution — not a global early return).
func Apply(ctx context.Context, g *network.Graph, aliases *alias.Table, store *state.Store, snap *feed.Snapshot) ([]Result, error) {
	results := make([]Result, len(snap.Records))

	grp, _ := errgroup.WithContext(ctx)
	for i, rec := range snap.Records {
		i, rec := i, rec
		grp.Go(func() error {
			results[i] = applyRecord(g, aliases, store, rec)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func applyRecord(g *network.Graph, aliases *alias.Table, store *state.Store, rec feed.Record) Result {
	nodeName := aliases.Resolve(rec.StationLocation)
	nodeID := network.NodeID(nodeName + "_" + rec.AtcoCode)

	// Fall back to scanning the station's platforms when the feed's
	// AtcoCode doesn't match our platform-code convention directly;
	// stations publish one PID record per physical platform, and most
	// upstream AtcoCodes already equal our platform code.
	if !g.Has(nodeID) {
		matched := false
		for _, candidate := range g.PlatformsOf(nodeName) {
			if strings.HasSuffix(string(candidate), rec.AtcoCode) {
				nodeID = candidate
				matched = true
				break
			}
		}
		if !matched {
			log.Printf("decode: dropping record for unknown platform %s/%s", nodeName, rec.AtcoCode)
			return Result{Node: nodeID, Applied: false}
		}
	}

	node := store.Node(nodeID)
	if node == nil {
		log.Printf("decode: dropping record for unknown node %s", nodeID)
		return Result{Node: nodeID, Applied: false}
	}

	updateTime, err := rec.ParsedTime()
	if err != nil {
		log.Printf("decode: dropping record for %s with unparseable LastUpdated %q: %v", nodeID, rec.LastUpdated, err)
		return Result{Node: nodeID, Applied: false}
	}

	if last := node.LastUpstreamTime(); !last.IsZero() && !updateTime.After(last) {
		return Result{Node: nodeID, Applied: false}
	}

	rows, message := decodeRecord(g, aliases, rec)
	node.ApplyDecode(rows, message, updateTime)
	return Result{Node: nodeID, Applied: true}
}
