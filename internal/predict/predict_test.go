package predict

import (
	"testing"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

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

// TestScenarioS2 reproduces spec.md S2: averageDwell(B_1)=30s,
// averageTransit(B_1,C_1)=90s, a tram Here[B_1] arriving at 12:00:00
// predicts predictions[C_1] = 12:02:00.
func TestScenarioS2(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	samples.RecordDwell("B_1", 30*time.Second)
	samples.RecordTransit("B_1", "C_1", 90*time.Second)

	arrivedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tram := &state.Tram{
		Dest:      "C",
		Carriages: state.Single,
		Status:    state.StatusArrived,
		ArrivedAt: arrivedAt,
	}
	store.Node("B_1").AddHere(tram)

	Run(g, store, samples)

	want := time.Date(2026, 1, 1, 12, 2, 0, 0, time.UTC)
	got, ok := tram.Predictions["C_1"]
	if !ok {
		t.Fatalf("expected a prediction for C_1, got none: %+v", tram.Predictions)
	}
	if !got.Equal(want) {
		t.Errorf("predictions[C_1] = %v, want %v", got, want)
	}
}

// TestMissingAverageTruncatesWalk verifies §4.F step 4: no transit
// average at all for (B_1,C_1) means no prediction is fabricated.
func TestMissingAverageTruncatesWalk(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	tram := &state.Tram{
		Dest:      "C",
		Carriages: state.Single,
		Status:    state.StatusArrived,
		ArrivedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	store.Node("B_1").AddHere(tram)

	Run(g, store, samples)

	if len(tram.Predictions) != 0 {
		t.Fatalf("expected no predictions with no learned averages, got %+v", tram.Predictions)
	}
}

// TestDepartingStatusSkipsDwellAtBase verifies pass 1 step 1: a
// Departing tram's base is arrivedAt itself, not arrivedAt+averageDwell.
func TestDepartingStatusSkipsDwellAtBase(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)

	samples.RecordDwell("B_1", 30*time.Second)
	samples.RecordTransit("B_1", "C_1", 90*time.Second)

	arrivedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tram := &state.Tram{
		Dest:      "C",
		Carriages: state.Single,
		Status:    state.StatusDeparting,
		ArrivedAt: arrivedAt,
	}
	store.Node("B_1").AddHere(tram)

	Run(g, store, samples)

	want := arrivedAt.Add(90 * time.Second)
	got, ok := tram.Predictions["C_1"]
	if !ok {
		t.Fatalf("expected a prediction for C_1")
	}
	if !got.Equal(want) {
		t.Errorf("predictions[C_1] = %v, want %v (no dwell added at base)", got, want)
	}
}

func TestGatherSortsByPredictedTimeAscending(t *testing.T) {
	g := chain(t)
	store := state.NewStore(g)
	samples := learn.New(32, 32)
	samples.RecordTransit("B_1", "C_1", 60*time.Second)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	late := &state.Tram{Dest: "C", ArrivedAt: base.Add(5 * time.Minute), Status: state.StatusArrived}
	early := &state.Tram{Dest: "C", ArrivedAt: base, Status: state.StatusArrived}
	store.Node("B_1").AddHere(late)
	store.Node("B_1").AddHere(early)

	Run(g, store, samples)

	gathered := Gather(store, "C_1")
	if len(gathered) != 2 {
		t.Fatalf("expected 2 gathered predictions, got %d", len(gathered))
	}
	if !gathered[0].PredictedTime.Before(gathered[1].PredictedTime) {
		t.Fatalf("expected ascending order, got %v then %v", gathered[0].PredictedTime, gathered[1].PredictedTime)
	}
}
