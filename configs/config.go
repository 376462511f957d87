package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
	OutputFormat string `mapstructure:"output_format"`

	// Feature extraction configuration
	Analysis AnalysisConfig `mapstructure:"analysis"`

	// Mix order planner configuration
	Planner PlannerConfig `mapstructure:"planner"`

	// Transition planner configuration
	Transition TransitionConfig `mapstructure:"transition"`

	// Playback engine configuration
	Playback PlaybackConfig `mapstructure:"playback"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`
}

// AnalysisConfig contains feature extraction settings
type AnalysisConfig struct {
	SampleRate          int           `mapstructure:"sample_rate"`
	WindowSize          int           `mapstructure:"window_size"`
	HopSize             int           `mapstructure:"hop_size"`
	ChromaBins          int           `mapstructure:"chroma_bins"`
	MinBPM              float64       `mapstructure:"min_bpm"`
	MaxBPM              float64       `mapstructure:"max_bpm"`
	EnableKeyDetection  bool          `mapstructure:"enable_key_detection"`
	EnableBeatDetection bool          `mapstructure:"enable_beat_detection"`
	EnableEnergyProfile bool          `mapstructure:"enable_energy_profile"`
	MaxConcurrent       int           `mapstructure:"max_concurrent"`
	PerTrackTimeout     time.Duration `mapstructure:"per_track_timeout"`
	TrustDeclaredValues bool          `mapstructure:"trust_declared_values"`
	KeyConfidenceFloor  float64       `mapstructure:"key_confidence_floor"`
	BeatConfidenceFloor float64       `mapstructure:"beat_confidence_floor"`
	EnergyFrameDuration time.Duration `mapstructure:"energy_frame_duration"`
}

// PlannerConfig contains mix order heuristic settings.
// The vote weights reflect that tempo continuity is the most audible
// mixing property, harmonic fit second, the energy arc a soft shaping
// preference.
type PlannerConfig struct {
	EnergyArcWeight    float64 `mapstructure:"energy_arc_weight"`
	TempoGreedyWeight  float64 `mapstructure:"tempo_greedy_weight"`
	HarmonicWeight     float64 `mapstructure:"harmonic_weight"`
	EnergyArcRiseRatio float64 `mapstructure:"energy_arc_rise_ratio"`
	MinKeyedTrackRatio float64 `mapstructure:"min_keyed_track_ratio"`
}

// TransitionConfig contains transition planning settings
type TransitionConfig struct {
	PhraseBeats        int     `mapstructure:"phrase_beats"`
	ShortDurationMs    int64   `mapstructure:"short_duration_ms"`
	DefaultDurationMs  int64   `mapstructure:"default_duration_ms"`
	LongDurationMs     int64   `mapstructure:"long_duration_ms"`
	ShortDeltaBPM      float64 `mapstructure:"short_delta_bpm"`
	LongDeltaBPM       float64 `mapstructure:"long_delta_bpm"`
	FallbackPointRatio float64 `mapstructure:"fallback_point_ratio"`
}

// PlaybackConfig contains playback engine settings
type PlaybackConfig struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	TempoRampSteps int           `mapstructure:"tempo_ramp_steps"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Precision       int  `mapstructure:"precision"`
	IncludeMetadata bool `mapstructure:"include_metadata"`
	Timestamps      bool `mapstructure:"timestamps"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Analysis.SampleRate <= 0 {
		return fmt.Errorf("analysis sample rate must be positive")
	}

	if config.Analysis.WindowSize <= 0 || config.Analysis.HopSize <= 0 {
		return fmt.Errorf("analysis window and hop sizes must be positive")
	}

	if config.Analysis.HopSize > config.Analysis.WindowSize {
		return fmt.Errorf("analysis hop size cannot exceed window size")
	}

	if config.Analysis.MinBPM <= 0 || config.Analysis.MaxBPM <= config.Analysis.MinBPM {
		return fmt.Errorf("invalid BPM search range [%.1f, %.1f]", config.Analysis.MinBPM, config.Analysis.MaxBPM)
	}

	if config.Planner.TempoGreedyWeight <= 0 {
		return fmt.Errorf("tempo greedy weight must be positive")
	}

	if config.Planner.EnergyArcRiseRatio <= 0 || config.Planner.EnergyArcRiseRatio > 1 {
		return fmt.Errorf("energy arc rise ratio must be in (0, 1]")
	}

	if config.Transition.PhraseBeats <= 0 {
		return fmt.Errorf("phrase beats must be positive")
	}

	if config.Transition.ShortDurationMs <= 0 || config.Transition.DefaultDurationMs <= 0 || config.Transition.LongDurationMs <= 0 {
		return fmt.Errorf("transition durations must be positive")
	}

	if config.Playback.TickInterval <= 0 || config.Playback.TickInterval >= 100*time.Millisecond {
		return fmt.Errorf("playback tick interval must be positive and below 100ms")
	}

	if config.Playback.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	return nil
}
