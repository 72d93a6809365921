package locate

import (
	"testing"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// chain builds A_1 -> B_1 -> C_1, with C_1 the destination terminus.
func chain(t *testing.T) *network.Graph {
	t.Helper()
	desc := network.GraphDescription{
		Platforms: []network.Platform{
			{Station: "A", Platform: "1"},
			{Station: "B", Platform: "1"},
			{Station: "C", Platform: "1"},
		},
		Edges: []network.EdgeDescription{
			{FromStation: "A", FromPlatform: "1", ToStation: "B", ToPlatform: "1"},
			{FromStation: "B", FromPlatform: "1", ToStation: "C", ToPlatform: "1"},
		},
	}
	g, err := network.Build(desc)
	if err != nil {
		t.Fatalf("network.Build: %v", err)
	}
	return g
}

// TestScenarioS1 reproduces spec.md S1: a tram seen Due at A_1 moving
// toward C, then observed Arrived at B_1, should end up Here[B_1]
// with one transitSamples[(A_1,B_1)] entry.
func TestScenarioS1(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a1 := store.Node("A_1")
	a1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusDue, Wait: 2}}, "", t0)
	Run(g, store, samples, 120*time.Second)

	t1 := t0.Add(1 * time.Minute)
	a1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusDue, Wait: 1}}, "", t1)
	Run(g, store, samples, 120*time.Second)

	if len(store.Node("B_1").Approaching()) != 1 {
		t.Fatalf("expected one Approaching candidate at B_1 after tick 1, got %d", len(store.Node("B_1").Approaching()))
	}

	t2 := t1.Add(1 * time.Minute)
	a1.ApplyDecode(nil, "", t2)
	b1 := store.Node("B_1")
	b1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusArrived, Wait: 0}}, "", t2)
	Run(g, store, samples, 120*time.Second)

	here := store.Node("B_1").Here()
	if len(here) != 1 {
		t.Fatalf("expected exactly one tram Here[B_1], got %d", len(here))
	}
	if count := samples.TransitSampleCount("A_1", "B_1"); count != 1 {
		t.Fatalf("expected one transit sample for (A_1,B_1), got %d", count)
	}
}

// TestScenarioB1 reproduces spec.md B1: Wait=0/Due promotes
// Approaching to Here on the same tick.
func TestScenarioB1(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a1 := store.Node("A_1")
	a1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusDue, Wait: 2}}, "", t0)
	Run(g, store, samples, 120*time.Second)

	t1 := t0.Add(1 * time.Minute)
	b1 := store.Node("B_1")
	b1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusDue, Wait: 0}}, "", t1)
	Run(g, store, samples, 120*time.Second)

	if len(store.Node("B_1").Here()) != 1 {
		t.Fatalf("expected Wait=0 Due row to promote to Here on the same tick")
	}
}

// TestScenarioB2 reproduces spec.md B2: "Terminates Here" creates no
// Approaching sighting downstream, since the destination has no
// well-defined successor path.
func TestScenarioB2(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a1 := store.Node("A_1")
	a1.ApplyDecode([]state.PIDRow{{Dest: "Terminates Here", Status: state.StatusDue, Wait: 1}}, "", t0)
	Run(g, store, samples, 120*time.Second)

	if len(store.Node("B_1").Approaching()) != 0 {
		t.Fatalf("expected no Approaching seed at B_1 for a Terminates Here row")
	}
}

// TestScenarioS5 reproduces spec.md S5: two identical trams across
// consecutive ticks must match in FIFO order and remain distinct
// objects.
func TestScenarioS5(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a1 := store.Node("A_1")
	a1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusDue, Wait: 1}}, "", t0)
	Run(g, store, samples, 120*time.Second)

	t1 := t0.Add(1 * time.Minute)
	b1 := store.Node("B_1")
	b1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusArrived, Wait: 0}}, "", t1)
	Run(g, store, samples, 120*time.Second)

	t2 := t1.Add(1 * time.Minute)
	a1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusDue, Wait: 1}}, "", t2)
	Run(g, store, samples, 120*time.Second)

	t3 := t2.Add(1 * time.Minute)
	b1.ApplyDecode([]state.PIDRow{
		{Dest: "C", Status: state.StatusArrived, Wait: 0},
		{Dest: "C", Status: state.StatusDue, Wait: 0},
	}, "", t3)
	Run(g, store, samples, 120*time.Second)

	here := store.Node("B_1").Here()
	if len(here) != 2 {
		t.Fatalf("expected exactly two distinct trams in Here[B_1], got %d", len(here))
	}
	if here[0] == here[1] {
		t.Fatal("expected two distinct tram objects, got the same pointer twice")
	}
}

// TestDeparturesDropUnmatchedHere verifies phase 4.E.1: a Here tram
// whose row disappears moves to Departed and records a dwell sample.
func TestDeparturesDropUnmatchedHere(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b1 := store.Node("B_1")
	b1.ApplyDecode([]state.PIDRow{{Dest: "C", Status: state.StatusArrived, Wait: 0}}, "", t0)
	Run(g, store, samples, 120*time.Second)
	if len(store.Node("B_1").Here()) != 1 {
		t.Fatalf("setup: expected one tram Here[B_1]")
	}

	t1 := t0.Add(30 * time.Second)
	b1.ApplyDecode(nil, "", t1)
	Run(g, store, samples, 120*time.Second)

	if len(store.Node("B_1").Here()) != 0 {
		t.Fatalf("expected tram to leave Here[B_1] once its row disappeared")
	}
	if len(store.Node("B_1").Departed()) != 1 {
		t.Fatalf("expected tram to land in Departed[B_1]")
	}
	if count := samples.DwellSampleCount("B_1"); count != 1 {
		t.Fatalf("expected one dwell sample at B_1, got %d", count)
	}
}
