package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crossfade/automix/pkg/audio/analysis"
)

func TestTempoCompatibilityClasses(t *testing.T) {
	tests := []struct {
		name      string
		bpmA      float64
		bpmB      float64
		wantDelta float64
		wantClass TempoClass
	}{
		{"identical", 128, 128, 0, TempoGood},
		{"small gap", 120, 129, 9, TempoGood},
		{"boundary good", 120, 130, 10, TempoModerate},
		{"moderate", 120, 138, 18, TempoModerate},
		{"boundary moderate", 120, 140, 20, TempoChallenging},
		{"huge jump", 122, 180, 58, TempoChallenging},
		{"slowdown", 140, 120, -20, TempoChallenging},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TempoCompatibility(tt.bpmA, tt.bpmB)
			assert.Equal(t, tt.wantDelta, result.Delta)
			assert.Equal(t, tt.wantClass, result.Class)
		})
	}
}

func TestTempoCompatibilitySymmetric(t *testing.T) {
	pairs := [][2]float64{{120, 128}, {60, 200}, {128, 128}, {95.5, 101.3}}

	for _, p := range pairs {
		ab := TempoCompatibility(p[0], p[1])
		ba := TempoCompatibility(p[1], p[0])
		assert.Equal(t, ab.Delta, -ba.Delta)
		assert.Equal(t, ab.Class, ba.Class)
	}
}

func TestKeyCompatibilityReflexive(t *testing.T) {
	keys := []analysis.Key{
		analysis.KeyC, analysis.KeyCSharp, analysis.KeyD, analysis.KeyDSharp,
		analysis.KeyE, analysis.KeyF, analysis.KeyFSharp, analysis.KeyG,
		analysis.KeyGSharp, analysis.KeyA, analysis.KeyASharp, analysis.KeyB,
	}

	for _, k := range keys {
		for _, m := range []analysis.Mode{analysis.ModeMajor, analysis.ModeMinor} {
			assert.Equal(t, KeyPerfect, KeyCompatibility(k, m, k, m),
				"key %s %s should be Perfect with itself", k, m)
		}
	}
}

func TestKeyCompatibilityRules(t *testing.T) {
	tests := []struct {
		name  string
		keyA  analysis.Key
		modeA analysis.Mode
		keyB  analysis.Key
		modeB analysis.Mode
		want  KeyClass
	}{
		// C major is 8B, A minor is 8A
		{"relative major minor", analysis.KeyC, analysis.ModeMajor, analysis.KeyA, analysis.ModeMinor, KeyCompatible},
		// G major is 9B, adjacent to C major at 8B
		{"adjacent up", analysis.KeyC, analysis.ModeMajor, analysis.KeyG, analysis.ModeMajor, KeyCompatible},
		{"adjacent down", analysis.KeyC, analysis.ModeMajor, analysis.KeyF, analysis.ModeMajor, KeyCompatible},
		// B major is 1B, E major is 12B: wheel wraps
		{"adjacent across wrap", analysis.KeyB, analysis.ModeMajor, analysis.KeyE, analysis.ModeMajor, KeyCompatible},
		// Offset 7 around the wheel: 8B + 7 = 3B (C# major)
		{"perfect fifth offset", analysis.KeyC, analysis.ModeMajor, analysis.KeyCSharp, analysis.ModeMajor, KeyCompatible},
		// Tritone: 8B vs 2B (F# major), six positions apart
		{"tritone clash", analysis.KeyC, analysis.ModeMajor, analysis.KeyFSharp, analysis.ModeMajor, KeyClash},
		// 8B vs 10B: neither adjacent nor special
		{"two steps moderate", analysis.KeyC, analysis.ModeMajor, analysis.KeyD, analysis.ModeMajor, KeyModerate},
		// Adjacent number but opposite ring
		{"cross ring adjacent", analysis.KeyC, analysis.ModeMajor, analysis.KeyE, analysis.ModeMinor, KeyModerate},
		{"unknown key", analysis.KeyUnknown, analysis.ModeUnknown, analysis.KeyC, analysis.ModeMajor, KeyUnknown},
		{"unknown mode", analysis.KeyC, analysis.ModeUnknown, analysis.KeyC, analysis.ModeMajor, KeyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyCompatibility(tt.keyA, tt.modeA, tt.keyB, tt.modeB))
		})
	}
}

func TestKeyCompatibilitySymmetric(t *testing.T) {
	keys := []analysis.Key{analysis.KeyC, analysis.KeyFSharp, analysis.KeyA, analysis.KeyDSharp}
	modes := []analysis.Mode{analysis.ModeMajor, analysis.ModeMinor}

	for _, ka := range keys {
		for _, ma := range modes {
			for _, kb := range keys {
				for _, mb := range modes {
					assert.Equal(t,
						KeyCompatibility(ka, ma, kb, mb),
						KeyCompatibility(kb, mb, ka, ma))
				}
			}
		}
	}
}

func TestTempoProximity(t *testing.T) {
	assert.Equal(t, 1.0, TempoProximity(128, 128))
	assert.InDelta(t, 0.75, TempoProximity(120, 130), 1e-9)
	assert.Equal(t, 0.0, TempoProximity(120, 160))
	assert.Equal(t, 0.0, TempoProximity(120, 200))
}

func TestScoreOrdering(t *testing.T) {
	// Identical tempo and perfect key is the ceiling
	assert.InDelta(t, 10.0, Score(128, 128, KeyPerfect), 1e-9)

	// Tempo dominates: a 20 BPM gap with perfect keys scores below a
	// tight tempo match with moderate keys
	tightTempo := Score(128, 130, KeyModerate)
	wideTempo := Score(118, 138, KeyPerfect)
	assert.Greater(t, tightTempo, wideTempo)

	// Clash is worse than Unknown at equal tempo
	assert.Greater(t, Score(128, 128, KeyUnknown), Score(128, 128, KeyClash))

	// Scores stay in range
	assert.GreaterOrEqual(t, Score(60, 200, KeyClash), 0.0)
	assert.LessOrEqual(t, Score(128, 128, KeyPerfect), 10.0)
}
