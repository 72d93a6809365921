package learn

import (
	"testing"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/network"
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

func TestAverageDwellReflectsRecordedSamples(t *testing.T) {
	s := New(4, 4)
	if _, ok := s.AverageDwell("A_1"); ok {
		t.Fatalf("expected no average before any sample recorded")
	}

	s.RecordDwell("A_1", 10*time.Second)
	s.RecordDwell("A_1", 20*time.Second)

	avg, ok := s.AverageDwell("A_1")
	if !ok {
		t.Fatalf("expected an average after recording samples")
	}
	if avg != 15*time.Second {
		t.Errorf("AverageDwell = %v, want 15s", avg)
	}
}

func TestRecordDwellIgnoresNonPositiveDurations(t *testing.T) {
	s := New(4, 4)
	s.RecordDwell("A_1", 0)
	s.RecordDwell("A_1", -5*time.Second)
	if s.DwellSampleCount("A_1") != 0 {
		t.Errorf("expected non-positive durations to be ignored")
	}
}

func TestRingEvictsOldestSampleAtCapacity(t *testing.T) {
	s := New(2, 2)
	s.RecordDwell("A_1", 10*time.Second)
	s.RecordDwell("A_1", 20*time.Second)
	s.RecordDwell("A_1", 30*time.Second) // evicts the 10s sample

	if count := s.DwellSampleCount("A_1"); count != 2 {
		t.Fatalf("expected sample count capped at 2, got %d", count)
	}
	avg, _ := s.AverageDwell("A_1")
	if avg != 25*time.Second {
		t.Errorf("AverageDwell after eviction = %v, want 25s (mean of 20s, 30s)", avg)
	}
}

func TestAverageTransitReportsSampleCount(t *testing.T) {
	s := New(4, 4)
	avg, count := s.AverageTransit("A_1", "B_1")
	if count != 0 || avg != 0 {
		t.Fatalf("expected zero average/count before any sample, got %v/%d", avg, count)
	}

	s.RecordTransit("A_1", "B_1", 90*time.Second)
	avg, count = s.AverageTransit("A_1", "B_1")
	if count != 1 || avg != 90*time.Second {
		t.Errorf("AverageTransit = %v/%d, want 90s/1", avg, count)
	}
}

func TestDwellJitterRequiresAtLeastTwoSamples(t *testing.T) {
	s := New(8, 8)
	s.RecordDwell("A_1", 10*time.Second)
	if _, ok := s.DwellJitter("A_1"); ok {
		t.Fatalf("expected no jitter estimate with a single sample")
	}

	s.RecordDwell("A_1", 20*time.Second)
	if _, ok := s.DwellJitter("A_1"); !ok {
		t.Fatalf("expected a jitter estimate with two samples")
	}
}

func TestNodesWithoutAverageListsUnsampledNodes(t *testing.T) {
	g := testGraph(t)
	s := New(8, 8)
	s.RecordDwell("A_1", 10*time.Second)

	missing := s.NodesWithoutAverage(g)
	found := false
	for _, n := range missing {
		if n == "A_1" {
			t.Errorf("expected A_1 to have a dwell average and be excluded")
		}
		if n == "B_1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected B_1 (no samples) in NodesWithoutAverage, got %v", missing)
	}
}

func TestEdgesWithoutAverageListsUnsampledEdges(t *testing.T) {
	g := testGraph(t)
	s := New(8, 8)
	s.RecordTransit("A_1", "B_1", 60*time.Second)

	missing := s.EdgesWithoutAverage(g)
	for _, e := range missing {
		if e.From == "A_1" && e.To == "B_1" {
			t.Errorf("expected the sampled edge A_1->B_1 to be excluded")
		}
	}
}
