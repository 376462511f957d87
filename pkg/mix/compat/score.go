package compat

import (
	"math"

	"github.com/crossfade/automix/pkg/audio/analysis"
)

// Tempo proximity reaches zero at this BPM gap
const maxScoredDeltaBPM = 40.0

// keyClassScore maps key compatibility to a 0-1 score. Unknown sits
// between Moderate and Clash: an unreadable key is a risk, not a known
// problem.
var keyClassScore = map[KeyClass]float64{
	KeyPerfect:    1.0,
	KeyCompatible: 0.8,
	KeyModerate:   0.5,
	KeyUnknown:    0.4,
	KeyClash:      0.1,
}

// TempoProximity maps a BPM gap to a 0-1 score, 1 for identical tempos,
// 0 at 40 BPM apart or more.
func TempoProximity(bpmA, bpmB float64) float64 {
	p := 1.0 - math.Abs(bpmB-bpmA)/maxScoredDeltaBPM
	return math.Max(0, math.Min(1, p))
}

// KeyScore maps a key compatibility class to its 0-1 score
func KeyScore(class KeyClass) float64 {
	return keyClassScore[class]
}

// Score combines tempo proximity and key compatibility into a single
// 0-10 pair score. Tempo is weighted twice as heavily as key: an abrupt
// BPM jump is more audible than a key mismatch.
func Score(bpmA, bpmB float64, keys KeyClass) float64 {
	t := TempoProximity(bpmA, bpmB)
	k := keyClassScore[keys]
	return 10.0 * (2*t + k) / 3.0
}

// ScoreFeatures scores a pair of analyzed tracks, tolerating nil or
// degraded features by falling back to the default BPM and Unknown key.
func ScoreFeatures(a, b *analysis.TrackFeatures) float64 {
	bpmA, bpmB := analysis.DefaultBPM, analysis.DefaultBPM
	keyClass := KeyUnknown

	if a != nil && a.BPM > 0 {
		bpmA = a.BPM
	}
	if b != nil && b.BPM > 0 {
		bpmB = b.BPM
	}
	if a.HasKey() && b.HasKey() {
		keyClass = KeyCompatibility(a.Key, a.Mode, b.Key, b.Mode)
	}

	return Score(bpmA, bpmB, keyClass)
}
