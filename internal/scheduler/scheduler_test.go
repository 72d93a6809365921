package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/alias"
	"github.com/maskerade/metrolinkTimes/internal/feed"
	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/snapshot"
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

const feedBody = `{"value":[
	{"StationLocation":"A","AtcoCode":"1","LastUpdated":"2026-01-01T12:00:00Z","MessageBoard":"<no message>",
	 "Dest0":"B","Carriages0":"Single","Status0":"Due","Wait0":"5",
	 "Dest1":"","Carriages1":"","Status1":"","Wait1":"",
	 "Dest2":"","Carriages2":"","Status2":"","Wait2":"",
	 "Dest3":"","Carriages3":"","Status3":"","Wait3":""}
]}`

func TestSchedulerTickPublishesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	g := testGraph(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)
	publisher := snapshot.NewPublisher()
	client := feed.NewClient(srv.URL, "", time.Second)

	sched := New(g, alias.Default(), store, samples, publisher, client, time.Second, 120*time.Second)
	sched.tick(context.Background())

	snap := publisher.Current()
	if snap == nil {
		t.Fatalf("expected a published snapshot after a successful tick")
	}

	starting := store.Node("A_1").Starting()
	approaching := store.Node("B_1").Approaching()
	if len(approaching) != 1 {
		t.Fatalf("expected the Due row to seed B_1's Approaching bucket, got %d entries (starting=%d)", len(approaching), len(starting))
	}
}

func TestSchedulerTickSkipsOverlap(t *testing.T) {
	g := testGraph(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)
	publisher := snapshot.NewPublisher()
	client := feed.NewClient("http://127.0.0.1:0", "", time.Millisecond)

	sched := New(g, alias.Default(), store, samples, publisher, client, time.Second, 120*time.Second)
	sched.tickRunning.Store(true)
	sched.tick(context.Background())

	if publisher.Current() != nil {
		t.Fatalf("expected tick to be skipped while a prior tick is marked running")
	}
}

func TestSchedulerTickLeavesStateUntouchedOnFetchError(t *testing.T) {
	g := testGraph(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)
	publisher := snapshot.NewPublisher()
	client := feed.NewClient("http://127.0.0.1:0", "", time.Millisecond)

	sched := New(g, alias.Default(), store, samples, publisher, client, time.Second, 120*time.Second)
	sched.tick(context.Background())

	if publisher.Current() != nil {
		t.Fatalf("expected no snapshot to be published after a failed fetch")
	}
	if !store.Node("A_1").LastUpstreamTime().IsZero() {
		t.Fatalf("expected node state untouched after a failed fetch")
	}
}
