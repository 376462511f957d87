package app

import (
	"time"

	"github.com/crossfade/automix/configs"
	"github.com/crossfade/automix/internal/playback"
	"github.com/crossfade/automix/pkg/audio/analysis"
	"github.com/crossfade/automix/pkg/mix"
)

// analysisConfig maps the application configuration onto the analyzer's
// own settings. The energy frame duration becomes a hop-frame count so
// the analyzer never needs to know about wall-clock durations.
func analysisConfig(cfg *configs.Config) *analysis.Config {
	ac := &analysis.Config{
		SampleRate:          cfg.Analysis.SampleRate,
		WindowSize:          cfg.Analysis.WindowSize,
		HopSize:             cfg.Analysis.HopSize,
		MinBPM:              cfg.Analysis.MinBPM,
		MaxBPM:              cfg.Analysis.MaxBPM,
		EnableKeyDetection:  cfg.Analysis.EnableKeyDetection,
		EnableBeatDetection: cfg.Analysis.EnableBeatDetection,
		EnableEnergyProfile: cfg.Analysis.EnableEnergyProfile,
		KeyConfidenceFloor:  cfg.Analysis.KeyConfidenceFloor,
		BeatConfidenceFloor: cfg.Analysis.BeatConfidenceFloor,
	}

	hopDuration := time.Duration(float64(time.Second) * float64(ac.HopSize) / float64(ac.SampleRate))
	if hopDuration > 0 && cfg.Analysis.EnergyFrameDuration > 0 {
		ac.EnergyFramesPerPoint = int(cfg.Analysis.EnergyFrameDuration / hopDuration)
	}
	if ac.EnergyFramesPerPoint < 1 {
		ac.EnergyFramesPerPoint = 1
	}

	return ac
}

// plannerConfig maps the application configuration onto the planner's
// ordering weights and transition policy
func plannerConfig(cfg *configs.Config) mix.PlannerConfig {
	return mix.PlannerConfig{
		Weights: mix.OrderWeights{
			EnergyArc:     cfg.Planner.EnergyArcWeight,
			TempoGreedy:   cfg.Planner.TempoGreedyWeight,
			Harmonic:      cfg.Planner.HarmonicWeight,
			RiseRatio:     cfg.Planner.EnergyArcRiseRatio,
			MinKeyedRatio: cfg.Planner.MinKeyedTrackRatio,
		},
		Transition: mix.TransitionConfig{
			PhraseBeats:        cfg.Transition.PhraseBeats,
			ShortDurationMs:    cfg.Transition.ShortDurationMs,
			DefaultDurationMs:  cfg.Transition.DefaultDurationMs,
			LongDurationMs:     cfg.Transition.LongDurationMs,
			ShortDeltaBPM:      cfg.Transition.ShortDeltaBPM,
			LongDeltaBPM:       cfg.Transition.LongDeltaBPM,
			FallbackPointRatio: cfg.Transition.FallbackPointRatio,
		},
	}
}

// sessionConfig maps the application configuration onto the session's
// analysis fan-out settings
func sessionConfig(cfg *configs.Config) mix.SessionConfig {
	sc := mix.DefaultSessionConfig()
	if cfg.Analysis.MaxConcurrent > 0 {
		sc.MaxConcurrent = cfg.Analysis.MaxConcurrent
	}
	if cfg.Analysis.PerTrackTimeout > 0 {
		sc.PerTrackTimeout = cfg.Analysis.PerTrackTimeout
	}
	sc.TrustDeclaredValues = cfg.Analysis.TrustDeclaredValues
	return sc
}

// playbackConfig maps the application configuration onto the engine's
// tick and retry settings
func playbackConfig(cfg *configs.Config) playback.Config {
	pc := playback.DefaultConfig()
	if cfg.Playback.TickInterval > 0 {
		pc.TickInterval = cfg.Playback.TickInterval
	}
	if cfg.Playback.TempoRampSteps > 0 {
		pc.TempoRampSteps = cfg.Playback.TempoRampSteps
	}
	if cfg.Playback.RetryAttempts > 0 {
		pc.Retry.MaxAttempts = cfg.Playback.RetryAttempts
	}
	if cfg.Playback.RetryBaseDelay > 0 {
		pc.Retry.BaseDelay = cfg.Playback.RetryBaseDelay
	}
	if cfg.Playback.RetryMaxDelay > 0 {
		pc.Retry.MaxDelay = cfg.Playback.RetryMaxDelay
	}
	return pc
}
