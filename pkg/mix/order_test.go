package mix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossfade/automix/pkg/audio/analysis"
)

func bpmTrack(id string, bpm float64) Track {
	return Track{
		ID:         id,
		Title:      "track " + id,
		DurationMs: 240000,
		Features: &analysis.TrackFeatures{
			DurationMs: 240000,
			BPM:        bpm,
			Analyzed:   true,
		},
	}
}

func keyedTrack(id string, bpm float64, key analysis.Key, mode analysis.Mode) Track {
	t := bpmTrack(id, bpm)
	t.Features.Key = key
	t.Features.Mode = mode
	return t
}

func energyTrack(id string, bpm, energy float64) Track {
	t := bpmTrack(id, bpm)
	t.Features.EnergyBands = []analysis.EnergyPoint{{Low: energy / 3, Mid: energy / 3, High: energy / 3}}
	return t
}

func assertPermutation(t *testing.T, tracks []Track, order []string) {
	t.Helper()
	require.Len(t, order, len(tracks))

	want := make(map[string]bool, len(tracks))
	for _, tr := range tracks {
		want[tr.ID] = true
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		assert.True(t, want[id], "unexpected id %s in order", id)
		assert.False(t, seen[id], "duplicate id %s in order", id)
		seen[id] = true
	}
}

func TestPlanOrderSingleTrack(t *testing.T) {
	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	order := planner.PlanOrder([]Track{bpmTrack("a", 128)})
	assert.Equal(t, []string{"a"}, order)
}

func TestPlanOrderTwoTracksAscendingBPM(t *testing.T) {
	planner := NewOrderPlanner(DefaultOrderWeights(), nil)

	order := planner.PlanOrder([]Track{bpmTrack("fast", 140), bpmTrack("slow", 100)})
	assert.Equal(t, []string{"slow", "fast"}, order)

	// Equal BPM keeps input order
	order = planner.PlanOrder([]Track{bpmTrack("x", 128), bpmTrack("y", 128)})
	assert.Equal(t, []string{"x", "y"}, order)
}

func TestPlanOrderScenarioTempoGreedyDominates(t *testing.T) {
	tracks := []Track{
		bpmTrack("1", 120),
		bpmTrack("2", 122),
		bpmTrack("3", 180),
	}

	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	order := planner.PlanOrder(tracks)

	assertPermutation(t, tracks, order)
	// Tempo continuity wins: the 58 BPM outlier goes last
	assert.Equal(t, "3", order[2])
	assert.Equal(t, []string{"1", "2", "3"}, order)
}

func TestPlanOrderIsPermutation(t *testing.T) {
	var tracks []Track
	bpms := []float64{95, 172, 128, 101, 140, 88, 126, 133}
	for i, bpm := range bpms {
		tracks = append(tracks, bpmTrack(fmt.Sprintf("t%d", i), bpm))
	}

	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	assertPermutation(t, tracks, planner.PlanOrder(tracks))
}

func TestPlanOrderIdempotent(t *testing.T) {
	tracks := []Track{
		keyedTrack("a", 124, analysis.KeyA, analysis.ModeMinor),
		keyedTrack("b", 126, analysis.KeyE, analysis.ModeMinor),
		keyedTrack("c", 140, analysis.KeyC, analysis.ModeMajor),
		bpmTrack("d", 118),
	}

	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	first := planner.PlanOrder(tracks)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, planner.PlanOrder(tracks))
	}
}

func TestEnergyScoreBPMProxy(t *testing.T) {
	tests := []struct {
		bpm  float64
		want float64
	}{
		{70, 2}, {90, 4}, {110, 6}, {130, 8}, {150, 10},
	}
	for _, tt := range tests {
		track := bpmTrack("x", tt.bpm)
		assert.Equal(t, tt.want, energyScore(&track))
	}
}

func TestEnergyScoreFromBands(t *testing.T) {
	track := energyTrack("x", 128, 0.9)
	assert.InDelta(t, 1+0.9*9, energyScore(&track), 1e-9)
}

func TestEnergyArcShape(t *testing.T) {
	tracks := []Track{
		energyTrack("e1", 120, 0.1),
		energyTrack("e3", 120, 0.3),
		energyTrack("e5", 120, 0.5),
		energyTrack("e7", 120, 0.7),
		energyTrack("e9", 120, 0.9),
	}

	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	order := planner.energyArcOrder(tracks)

	require.Len(t, order, 5)
	// Median energy opens the set
	assert.Equal(t, "e5", tracks[order[0]].ID)
	// The arc releases into the lowest-energy track
	assert.Equal(t, "e1", tracks[order[4]].ID)

	// The energy peak lands in the rise phase, not at the very start
	// or end
	peak := 0
	for i, idx := range order {
		if tracks[idx].ID == "e9" {
			peak = i
		}
	}
	assert.Greater(t, peak, 0)
	assert.Less(t, peak, 4)
}

func TestTempoGreedyOrder(t *testing.T) {
	tracks := []Track{
		bpmTrack("mid", 130),
		bpmTrack("low", 100),
		bpmTrack("high", 160),
		bpmTrack("lowmid", 112),
	}

	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	order := planner.tempoGreedyOrder(tracks)

	got := make([]string, len(order))
	for i, idx := range order {
		got[i] = tracks[idx].ID
	}
	assert.Equal(t, []string{"low", "lowmid", "mid", "high"}, got)
}

func TestHarmonicGreedySkippedWithoutKeys(t *testing.T) {
	tracks := []Track{
		bpmTrack("a", 120),
		bpmTrack("b", 122),
		keyedTrack("c", 124, analysis.KeyA, analysis.ModeMinor),
	}

	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	// 1 of 3 keyed is below the 50% threshold
	assert.Nil(t, planner.harmonicGreedyOrder(tracks))
}

func TestHarmonicGreedyPrefersCompatibleKeys(t *testing.T) {
	// A minor (8A) chains naturally into E minor (9A); D major (10B)
	// is two cross-ring steps away
	tracks := []Track{
		keyedTrack("am", 124, analysis.KeyA, analysis.ModeMinor),
		keyedTrack("d", 124, analysis.KeyD, analysis.ModeMajor),
		keyedTrack("em", 124, analysis.KeyE, analysis.ModeMinor),
	}

	planner := NewOrderPlanner(DefaultOrderWeights(), nil)
	order := planner.harmonicGreedyOrder(tracks)

	require.Len(t, order, 3)
	assert.Equal(t, "am", tracks[order[0]].ID)
	assert.Equal(t, "em", tracks[order[1]].ID)

	// Unkeyed tracks go to the end
	tracks = append(tracks, bpmTrack("plain", 124))
	order = planner.harmonicGreedyOrder(tracks)
	require.Len(t, order, 4)
	assert.Equal(t, "plain", tracks[order[3]].ID)
}
