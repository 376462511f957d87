package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKey  Key
		wantMode Mode
	}{
		{"plain major", "C", KeyC, ModeMajor},
		{"sharp major", "F#", KeyFSharp, ModeMajor},
		{"flat normalized", "Db", KeyCSharp, ModeMajor},
		{"explicit major", "G major", KeyG, ModeMajor},
		{"maj suffix", "Abmaj", KeyGSharp, ModeMajor},
		{"explicit minor", "F# minor", KeyFSharp, ModeMinor},
		{"min suffix", "Dmin", KeyD, ModeMinor},
		{"trailing lowercase m", "Am", KeyA, ModeMinor},
		{"flat minor", "Bbm", KeyASharp, ModeMinor},
		{"unicode sharp", "C♯ minor", KeyCSharp, ModeMinor},
		{"empty", "", KeyUnknown, ModeUnknown},
		{"garbage", "H monster", KeyUnknown, ModeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, mode := ParseKey(tt.input)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantMode, mode)
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "A Minor", DisplayName(KeyA, ModeMinor))
	assert.Equal(t, "F# Major", DisplayName(KeyFSharp, ModeMajor))
	assert.Equal(t, "unknown", DisplayName(KeyUnknown, ModeUnknown))
}

func TestDegradedFeatures(t *testing.T) {
	f := DegradedFeatures(180000)

	assert.False(t, f.Analyzed)
	assert.Equal(t, DefaultBPM, f.BPM)
	assert.Equal(t, KeyUnknown, f.Key)
	assert.Empty(t, f.BeatPositionsMs)
	assert.Empty(t, f.EnergyBands)
	assert.Equal(t, int64(180000), f.DurationMs)
	assert.NoError(t, f.Validate())
}

func TestValidateRejectsBadFeatures(t *testing.T) {
	f := &TrackFeatures{BPM: 0}
	assert.Error(t, f.Validate())

	f = &TrackFeatures{BPM: 120, BeatPositionsMs: []int64{0, 500, 500}}
	assert.Error(t, f.Validate())

	f = &TrackFeatures{BPM: 120, BeatPositionsMs: []int64{0, 500, 1000}}
	assert.NoError(t, f.Validate())
}

func TestAverageEnergy(t *testing.T) {
	f := &TrackFeatures{}
	assert.Equal(t, -1.0, f.AverageEnergy())

	f.EnergyBands = []EnergyPoint{
		{Low: 0.5, Mid: 0.3, High: 0.2},
		{Low: 0.1, Mid: 0.1, High: 0.0},
	}
	assert.InDelta(t, 0.6, f.AverageEnergy(), 1e-9)
}

func TestHasBeatsAndHasKey(t *testing.T) {
	var nilFeatures *TrackFeatures
	assert.False(t, nilFeatures.HasBeats())
	assert.False(t, nilFeatures.HasKey())

	f := &TrackFeatures{BPM: 128}
	assert.False(t, f.HasBeats())
	assert.False(t, f.HasKey())

	f.BeatPositionsMs = []int64{0, 468}
	f.Key, f.Mode = KeyA, ModeMinor
	assert.True(t, f.HasBeats())
	assert.True(t, f.HasKey())
}
