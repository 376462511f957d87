package compat

import "math"

// TempoClass grades the BPM gap between two tracks
type TempoClass string

const (
	TempoGood        TempoClass = "Good"
	TempoModerate    TempoClass = "Moderate"
	TempoChallenging TempoClass = "Challenging"
)

// Class thresholds in BPM
const (
	goodDeltaBPM     = 10.0
	moderateDeltaBPM = 20.0
)

// TempoResult holds the tempo comparison of an A -> B pair
type TempoResult struct {
	Delta float64 // bpmB - bpmA, signed
	Class TempoClass
}

// TempoCompatibility compares two tempos. The delta is signed so callers
// can tell speed-ups from slow-downs; the class depends only on its
// magnitude.
func TempoCompatibility(bpmA, bpmB float64) TempoResult {
	delta := bpmB - bpmA

	var class TempoClass
	switch gap := math.Abs(delta); {
	case gap < goodDeltaBPM:
		class = TempoGood
	case gap < moderateDeltaBPM:
		class = TempoModerate
	default:
		class = TempoChallenging
	}

	return TempoResult{Delta: delta, Class: class}
}
