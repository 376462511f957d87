package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			SampleRate: 44100,
			WindowSize: 2048,
			HopSize:    512,
			MinBPM:     60,
			MaxBPM:     200,
		},
		Planner: PlannerConfig{
			EnergyArcWeight:    5,
			TempoGreedyWeight:  10,
			HarmonicWeight:     8,
			EnergyArcRiseRatio: 0.7,
			MinKeyedTrackRatio: 0.5,
		},
		Transition: TransitionConfig{
			PhraseBeats:       16,
			ShortDurationMs:   6000,
			DefaultDurationMs: 8000,
			LongDurationMs:    12000,
		},
		Playback: PlaybackConfig{
			TickInterval:  50 * time.Millisecond,
			RetryAttempts: 3,
		},
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfigRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Analysis.SampleRate = 0 }},
		{"hop exceeds window", func(c *Config) { c.Analysis.HopSize = 4096 }},
		{"inverted bpm range", func(c *Config) { c.Analysis.MaxBPM = 50 }},
		{"zero tempo weight", func(c *Config) { c.Planner.TempoGreedyWeight = 0 }},
		{"rise ratio above one", func(c *Config) { c.Planner.EnergyArcRiseRatio = 1.5 }},
		{"zero phrase beats", func(c *Config) { c.Transition.PhraseBeats = 0 }},
		{"zero transition duration", func(c *Config) { c.Transition.DefaultDurationMs = 0 }},
		{"tick too slow", func(c *Config) { c.Playback.TickInterval = 200 * time.Millisecond }},
		{"negative retries", func(c *Config) { c.Playback.RetryAttempts = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}
