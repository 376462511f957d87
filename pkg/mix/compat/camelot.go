// Package compat provides the pure compatibility scoring functions used
// by the mix order and transition planners: tempo proximity classes,
// harmonic-wheel key compatibility, and a combined pair score.
package compat

import "github.com/crossfade/automix/pkg/audio/analysis"

// KeyClass grades how well two musical keys mix
type KeyClass string

const (
	KeyPerfect    KeyClass = "Perfect"
	KeyCompatible KeyClass = "Compatible"
	KeyModerate   KeyClass = "Moderate"
	KeyClash      KeyClass = "Clash"
	KeyUnknown    KeyClass = "Unknown"
)

// camelotPosition is a slot on the 12-position harmonic mixing wheel.
// Minor keys sit on the A ring, their relative majors on the B ring at
// the same number.
type camelotPosition struct {
	num   int // 1-12
	minor bool
}

type keyModePair struct {
	key  analysis.Key
	mode analysis.Mode
}

var camelotWheel = map[keyModePair]camelotPosition{
	// Major ring (B)
	{analysis.KeyB, analysis.ModeMajor}:      {1, false},
	{analysis.KeyFSharp, analysis.ModeMajor}: {2, false},
	{analysis.KeyCSharp, analysis.ModeMajor}: {3, false},
	{analysis.KeyGSharp, analysis.ModeMajor}: {4, false},
	{analysis.KeyDSharp, analysis.ModeMajor}: {5, false},
	{analysis.KeyASharp, analysis.ModeMajor}: {6, false},
	{analysis.KeyF, analysis.ModeMajor}:      {7, false},
	{analysis.KeyC, analysis.ModeMajor}:      {8, false},
	{analysis.KeyG, analysis.ModeMajor}:      {9, false},
	{analysis.KeyD, analysis.ModeMajor}:      {10, false},
	{analysis.KeyA, analysis.ModeMajor}:      {11, false},
	{analysis.KeyE, analysis.ModeMajor}:      {12, false},

	// Minor ring (A)
	{analysis.KeyGSharp, analysis.ModeMinor}: {1, true},
	{analysis.KeyDSharp, analysis.ModeMinor}: {2, true},
	{analysis.KeyASharp, analysis.ModeMinor}: {3, true},
	{analysis.KeyF, analysis.ModeMinor}:      {4, true},
	{analysis.KeyC, analysis.ModeMinor}:      {5, true},
	{analysis.KeyG, analysis.ModeMinor}:      {6, true},
	{analysis.KeyD, analysis.ModeMinor}:      {7, true},
	{analysis.KeyA, analysis.ModeMinor}:      {8, true},
	{analysis.KeyE, analysis.ModeMinor}:      {9, true},
	{analysis.KeyB, analysis.ModeMinor}:      {10, true},
	{analysis.KeyFSharp, analysis.ModeMinor}: {11, true},
	{analysis.KeyCSharp, analysis.ModeMinor}: {12, true},
}

// KeyCompatibility grades two keys on the harmonic mixing wheel:
// the same position and ring is Perfect; one step around the wheel on
// the same ring, the relative major/minor swap, or the perfect fifth
// (seven positions away) on the same ring is Compatible; the tritone
// (six positions away) is a Clash; anything else mixes with effort and
// grades Moderate. Unmapped keys grade Unknown.
func KeyCompatibility(keyA analysis.Key, modeA analysis.Mode, keyB analysis.Key, modeB analysis.Mode) KeyClass {
	posA, okA := camelotWheel[keyModePair{keyA, modeA}]
	posB, okB := camelotWheel[keyModePair{keyB, modeB}]
	if !okA || !okB {
		return KeyUnknown
	}

	dist := posA.num - posB.num
	if dist < 0 {
		dist = -dist
	}
	if dist > 6 {
		dist = 12 - dist
	}
	sameRing := posA.minor == posB.minor

	switch {
	case dist == 0 && sameRing:
		return KeyPerfect
	case dist == 0:
		return KeyCompatible
	case dist == 1 && sameRing:
		return KeyCompatible
	case dist == 5 && sameRing: // offset 7 wraps to distance 5
		return KeyCompatible
	case dist == 6:
		return KeyClash
	default:
		return KeyModerate
	}
}
