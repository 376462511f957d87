package mix

import (
	"math"

	"github.com/crossfade/automix/pkg/logging"
	"github.com/crossfade/automix/pkg/mix/compat"
)

// TransitionConfig tunes the transition planner
type TransitionConfig struct {
	// PhraseBeats approximates a musical phrase: beats whose index is a
	// multiple of this count are preferred transition points
	PhraseBeats int

	ShortDurationMs   int64
	DefaultDurationMs int64
	LongDurationMs    int64

	// Duration thresholds on |bpmDelta|
	ShortDeltaBPM float64
	LongDeltaBPM  float64

	// FallbackPointRatio of the outgoing track's duration is used when
	// no usable beat grid exists
	FallbackPointRatio float64
}

// DefaultTransitionConfig returns the standard transition policy
func DefaultTransitionConfig() TransitionConfig {
	return TransitionConfig{
		PhraseBeats:        16,
		ShortDurationMs:    6000,
		DefaultDurationMs:  8000,
		LongDurationMs:     12000,
		ShortDeltaBPM:      5,
		LongDeltaBPM:       15,
		FallbackPointRatio: 0.8,
	}
}

// TransitionPlanner decides the handoff point, type and duration for
// each consecutive pair of an ordered set. It is a cheap deterministic
// heuristic, O(beats) per pair at worst, never an exhaustive search.
type TransitionPlanner struct {
	config TransitionConfig
	logger logging.Logger
}

// NewTransitionPlanner creates a transition planner
func NewTransitionPlanner(config TransitionConfig, logger logging.Logger) *TransitionPlanner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &TransitionPlanner{
		config: config,
		logger: logger.WithFields(logging.Fields{
			"component": "transition_planner",
		}),
	}
}

// PlanTransitions produces one Transition per consecutive pair of the
// ordered tracks
func (tp *TransitionPlanner) PlanTransitions(ordered []Track) []Transition {
	if len(ordered) < 2 {
		return nil
	}

	transitions := make([]Transition, 0, len(ordered)-1)
	for i := 0; i < len(ordered)-1; i++ {
		transitions = append(transitions, tp.planPair(&ordered[i], &ordered[i+1]))
	}
	return transitions
}

func (tp *TransitionPlanner) planPair(from, to *Track) Transition {
	tempo := compat.TempoCompatibility(from.BPM(), to.BPM())

	keyClass := compat.KeyUnknown
	if from.Features.HasKey() && to.Features.HasKey() {
		keyClass = compat.KeyCompatibility(
			from.Features.Key, from.Features.Mode,
			to.Features.Key, to.Features.Mode)
	}

	t := Transition{
		FromTrack:          from.ID,
		ToTrack:            to.ID,
		BPMDelta:           tempo.Delta,
		KeyCompatibility:   keyClass,
		CompatibilityScore: compat.ScoreFeatures(from.Features, to.Features),
	}

	gap := math.Abs(tempo.Delta)

	bareFrom := from.Features == nil || !from.Features.Analyzed
	bareTo := to.Features == nil || !to.Features.Analyzed
	if bareFrom && bareTo {
		// No features at all: fixed fallback point and a plain fade
		t.TransitionPointMs = tp.fallbackPoint(from)
		t.DurationMs = tp.config.DefaultDurationMs
		if gap > tp.config.LongDeltaBPM {
			t.Type = LongFade
		} else {
			t.Type = BeatmatchFade
		}
		return tp.clamp(t, from)
	}

	t.TransitionPointMs = tp.transitionPoint(from, to)
	t.Type = tp.decideType(tempo.Class, keyClass)

	switch {
	case gap < tp.config.ShortDeltaBPM:
		t.DurationMs = tp.config.ShortDurationMs
	case gap > tp.config.LongDeltaBPM:
		t.DurationMs = tp.config.LongDurationMs
	default:
		t.DurationMs = tp.config.DefaultDurationMs
	}

	return tp.clamp(t, from)
}

// transitionPoint prefers a phrase boundary in the last third of the
// outgoing track's beat grid, else falls back to a fixed share of its
// duration.
func (tp *TransitionPlanner) transitionPoint(from, to *Track) int64 {
	if from.Features.HasBeats() && to.Features.HasBeats() {
		beats := from.Features.BeatPositionsMs
		for i := 2 * len(beats) / 3; i < len(beats); i++ {
			if i%tp.config.PhraseBeats == 0 {
				return beats[i]
			}
		}
	}
	return tp.fallbackPoint(from)
}

func (tp *TransitionPlanner) fallbackPoint(from *Track) int64 {
	return int64(tp.config.FallbackPointRatio * float64(from.DurationMs))
}

// decideType walks the decision table in order, first match wins
func (tp *TransitionPlanner) decideType(tempo compat.TempoClass, key compat.KeyClass) TransitionType {
	switch {
	case tempo == compat.TempoGood && key == compat.KeyPerfect:
		return BeatmatchBlend
	case tempo == compat.TempoGood:
		return BeatmatchFade
	case key == compat.KeyPerfect || key == compat.KeyCompatible:
		return HarmonicFade
	case tempo == compat.TempoModerate && key != compat.KeyClash:
		return TempoAdjust
	default:
		return CutEq
	}
}

// clamp enforces transitionPointMs + durationMs <= fromTrack duration by
// moving the point earlier, shortening the duration only when the track
// is shorter than the transition itself.
func (tp *TransitionPlanner) clamp(t Transition, from *Track) Transition {
	if from.DurationMs <= 0 {
		t.TransitionPointMs = 0
		t.DurationMs = 0
		return t
	}

	if t.DurationMs > from.DurationMs {
		t.DurationMs = from.DurationMs
	}
	if t.TransitionPointMs+t.DurationMs > from.DurationMs {
		t.TransitionPointMs = from.DurationMs - t.DurationMs
	}
	if t.TransitionPointMs < 0 {
		t.TransitionPointMs = 0
	}
	return t
}
