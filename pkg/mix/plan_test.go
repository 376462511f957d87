package mix

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossfade/automix/pkg/audio/analysis"
)

func TestBuildPlanRejectsTooFewTracks(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig(), nil)

	_, err := planner.BuildPlan(nil)
	assert.ErrorIs(t, err, ErrTooFewTracks)

	_, err = planner.BuildPlan([]Track{bpmTrack("only", 128)})
	assert.ErrorIs(t, err, ErrTooFewTracks)
}

func TestBuildPlanInvariants(t *testing.T) {
	tracks := []Track{
		keyedTrack("a", 124, analysis.KeyA, analysis.ModeMinor),
		keyedTrack("b", 128, analysis.KeyE, analysis.ModeMinor),
		bpmTrack("c", 140),
		bpmTrack("d", 100),
		bpmTrack("e", 126),
	}

	planner := NewPlanner(DefaultPlannerConfig(), nil)
	plan, err := planner.BuildPlan(tracks)
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())
	assertPermutation(t, tracks, plan.OrderedTrackIDs)
	require.Len(t, plan.Transitions, len(tracks)-1)
	assert.NoError(t, plan.Validate())

	byID := make(map[string]Track)
	for _, tr := range tracks {
		byID[tr.ID] = tr
	}

	for i, tr := range plan.Transitions {
		assert.Equal(t, plan.OrderedTrackIDs[i], tr.FromTrack)
		assert.Equal(t, plan.OrderedTrackIDs[i+1], tr.ToTrack)
		from := byID[tr.FromTrack]
		assert.LessOrEqual(t, tr.TransitionPointMs+tr.DurationMs, from.DurationMs)
	}

	// Total run time accounts for the transition overlaps
	var expected int64
	for _, tr := range tracks {
		expected += tr.DurationMs
	}
	for _, tr := range plan.Transitions {
		expected -= tr.DurationMs
	}
	assert.Equal(t, expected, plan.TotalDurationMs)
}

func TestBuildPlanTwoTracksAscendingBPM(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig(), nil)
	plan, err := planner.BuildPlan([]Track{bpmTrack("fast", 150), bpmTrack("slow", 90)})
	require.NoError(t, err)

	assert.Equal(t, []string{"slow", "fast"}, plan.OrderedTrackIDs)
}

func TestMixPlanSerialization(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig(), nil)
	plan, err := planner.BuildPlan([]Track{
		keyedTrack("a", 128, analysis.KeyA, analysis.ModeMinor),
		keyedTrack("b", 129, analysis.KeyA, analysis.ModeMinor),
	})
	require.NoError(t, err)

	raw, err := plan.ToJSON()
	require.NoError(t, err)

	// Enums serialize as plain strings
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	transitions := decoded["transitions"].([]any)
	first := transitions[0].(map[string]any)
	assert.Equal(t, "BeatmatchBlend", first["type"])
	assert.Equal(t, "Perfect", first["key_compatibility"])

	var roundTrip MixPlan
	require.NoError(t, json.Unmarshal(raw, &roundTrip))
	assert.Equal(t, plan.OrderedTrackIDs, roundTrip.OrderedTrackIDs)
	assert.Equal(t, plan.Transitions, roundTrip.Transitions)

	yamlRaw, err := plan.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(yamlRaw), "ordered_track_ids")
}

func TestMixPlanValidateCatchesCorruption(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig(), nil)
	plan, err := planner.BuildPlan([]Track{bpmTrack("a", 120), bpmTrack("b", 124)})
	require.NoError(t, err)

	broken := *plan
	broken.OrderedTrackIDs = []string{"a", "a"}
	assert.Error(t, broken.Validate())

	broken = *plan
	broken.Transitions = append(broken.Transitions, Transition{FromTrack: "b", ToTrack: "x"})
	assert.Error(t, broken.Validate())

	broken = *plan
	broken.Transitions = []Transition{{FromTrack: "b", ToTrack: "a"}}
	assert.Error(t, broken.Validate())
}
