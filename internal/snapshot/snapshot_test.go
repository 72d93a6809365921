package snapshot

import (
	"testing"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

func testGraph(t *testing.T) *network.Graph {
	t.Helper()
	desc := network.GraphDescription{
		Platforms: []network.Platform{
			{Station: "A", Platform: "1"},
			{Station: "B", Platform: "1"},
		},
		Edges: []network.EdgeDescription{
			{FromStation: "A", FromPlatform: "1", ToStation: "B", ToPlatform: "1"},
		},
	}
	g, err := network.Build(desc)
	if err != nil {
		t.Fatalf("network.Build: %v", err)
	}
	return g
}

func TestPublisherCurrentNilBeforeFirstPublish(t *testing.T) {
	p := NewPublisher()
	if p.Current() != nil {
		t.Fatalf("expected nil before first Publish")
	}
}

func TestPublisherPublishIsVisibleImmediately(t *testing.T) {
	g := testGraph(t)
	store := state.NewStore(g)
	p := NewPublisher()

	samples := learn.New(8, 8)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	published := p.Publish(g, store, samples, now)

	got := p.Current()
	if got != published {
		t.Fatalf("Current() did not return the just-published snapshot")
	}
	if got.ID == "" {
		t.Errorf("expected a non-empty snapshot id")
	}
	if !got.LocalUpdateTime.Equal(now) {
		t.Errorf("LocalUpdateTime = %v, want %v", got.LocalUpdateTime, now)
	}
}

func TestPublisherPublishReplacesPrevious(t *testing.T) {
	g := testGraph(t)
	store := state.NewStore(g)
	p := NewPublisher()

	samples := learn.New(8, 8)
	first := p.Publish(g, store, samples, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	second := p.Publish(g, store, samples, time.Date(2026, 1, 1, 12, 0, 1, 0, time.UTC))

	if p.Current() != second {
		t.Fatalf("expected Current() to return the latest snapshot")
	}
	if first.ID == second.ID {
		t.Errorf("expected distinct snapshot ids across publishes")
	}
}

func TestSnapshotIsStale(t *testing.T) {
	snap := &Snapshot{LocalUpdateTime: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	fresh := snap.LocalUpdateTime.Add(10 * time.Second)
	if snap.IsStale(fresh, 30*time.Second) {
		t.Errorf("expected not stale at 10s with a 30s budget")
	}

	stale := snap.LocalUpdateTime.Add(31 * time.Second)
	if !snap.IsStale(stale, 30*time.Second) {
		t.Errorf("expected stale at 31s with a 30s budget")
	}
}

func TestSnapshotIsStaleNilReceiver(t *testing.T) {
	var snap *Snapshot
	if !snap.IsStale(time.Now(), 30*time.Second) {
		t.Errorf("expected a nil snapshot to always be reported stale")
	}
}
