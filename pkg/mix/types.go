// Package mix plans a continuous DJ set from a candidate track pool: a
// total ordering of the tracks plus a transition descriptor for each
// consecutive pair. Plans are immutable values; changing the pool means
// building a new plan.
package mix

import (
	"fmt"
	"time"

	"github.com/crossfade/automix/pkg/audio/analysis"
	"github.com/crossfade/automix/pkg/mix/compat"
)

// Track is one playable audio source in a candidate set. SourceRef is an
// opaque handle the playback engine hands to the catalog to obtain a
// byte stream.
type Track struct {
	ID         string                  `json:"id" yaml:"id"`
	Title      string                  `json:"title" yaml:"title"`
	Artist     string                  `json:"artist" yaml:"artist"`
	DurationMs int64                   `json:"duration_ms" yaml:"duration_ms"`
	SourceRef  string                  `json:"source_ref" yaml:"source_ref"`
	Features   *analysis.TrackFeatures `json:"features,omitempty" yaml:"features,omitempty"`

	// Declared catalog metadata, usable to seed features without
	// re-analysis when trusted
	DeclaredBPM float64 `json:"declared_bpm,omitempty" yaml:"declared_bpm,omitempty"`
	DeclaredKey string  `json:"declared_key,omitempty" yaml:"declared_key,omitempty"`
}

// BPM returns the track's effective tempo, falling back to the default
// when the track was never analyzed.
func (t *Track) BPM() float64 {
	if t.Features != nil && t.Features.BPM > 0 {
		return t.Features.BPM
	}
	return analysis.DefaultBPM
}

// TransitionType names the automation recipe the playback engine runs
// for a track handoff
type TransitionType string

const (
	// BeatmatchBlend is a tempo-locked equal-power blend between
	// harmonically identical tracks
	BeatmatchBlend TransitionType = "BeatmatchBlend"
	// BeatmatchFade is a tempo-locked equal-power crossfade
	BeatmatchFade TransitionType = "BeatmatchFade"
	// HarmonicFade leans on key compatibility where tempos diverge
	HarmonicFade TransitionType = "HarmonicFade"
	// TempoAdjust ramps the incoming tempo across a moderate BPM gap
	TempoAdjust TransitionType = "TempoAdjust"
	// CutEq is a staged EQ cut for incompatible pairs
	CutEq TransitionType = "CutEq"
	// LongFade is a slow linear fade used when no features exist
	LongFade TransitionType = "LongFade"
)

// Transition describes how one track hands off to the next
type Transition struct {
	FromTrack         string          `json:"from_track" yaml:"from_track"`
	ToTrack           string          `json:"to_track" yaml:"to_track"`
	TransitionPointMs int64           `json:"transition_point_ms" yaml:"transition_point_ms"`
	Type              TransitionType  `json:"type" yaml:"type"`
	DurationMs        int64           `json:"duration_ms" yaml:"duration_ms"`
	BPMDelta          float64         `json:"bpm_delta" yaml:"bpm_delta"`
	KeyCompatibility  compat.KeyClass `json:"key_compatibility" yaml:"key_compatibility"`

	// CompatibilityScore is the pair's combined 0-10 tempo/key score
	CompatibilityScore float64 `json:"compatibility_score" yaml:"compatibility_score"`
}

// MixPlan is the engine's sole output artifact: the planned order and
// the transitions between consecutive tracks. Immutable once built.
type MixPlan struct {
	ID              string       `json:"id" yaml:"id"`
	CreatedAt       time.Time    `json:"created_at" yaml:"created_at"`
	OrderedTrackIDs []string     `json:"ordered_track_ids" yaml:"ordered_track_ids"`
	Transitions     []Transition `json:"transitions" yaml:"transitions"`
	TotalDurationMs int64        `json:"total_duration_ms" yaml:"total_duration_ms"`
}

// Validate checks the structural invariants of a plan
func (p *MixPlan) Validate() error {
	if len(p.Transitions) != len(p.OrderedTrackIDs)-1 {
		return fmt.Errorf("plan has %d transitions for %d tracks", len(p.Transitions), len(p.OrderedTrackIDs))
	}

	seen := make(map[string]struct{}, len(p.OrderedTrackIDs))
	for _, id := range p.OrderedTrackIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate track id %s in plan order", id)
		}
		seen[id] = struct{}{}
	}

	for i, tr := range p.Transitions {
		if tr.FromTrack != p.OrderedTrackIDs[i] || tr.ToTrack != p.OrderedTrackIDs[i+1] {
			return fmt.Errorf("transition %d does not link ordered tracks %d and %d", i, i, i+1)
		}
	}

	return nil
}
