package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"

	"github.com/crossfade/automix/pkg/logging"
)

// Config contains feature extraction settings
type Config struct {
	SampleRate           int
	WindowSize           int
	HopSize              int
	MinBPM               float64
	MaxBPM               float64
	EnableKeyDetection   bool
	EnableBeatDetection  bool
	EnableEnergyProfile  bool
	KeyConfidenceFloor   float64
	BeatConfidenceFloor  float64
	EnergyFramesPerPoint int
}

// DefaultConfig returns sensible analysis defaults
func DefaultConfig() *Config {
	return &Config{
		SampleRate:           44100,
		WindowSize:           2048,
		HopSize:              512,
		MinBPM:               60,
		MaxBPM:               200,
		EnableKeyDetection:   true,
		EnableBeatDetection:  true,
		EnableEnergyProfile:  true,
		KeyConfidenceFloor:   0.05,
		BeatConfidenceFloor:  0.1,
		EnergyFramesPerPoint: 43, // ~0.5s at 44100/512
	}
}

// FeatureCache stores computed features keyed by content fingerprint.
// Implementations must be safe for concurrent use.
type FeatureCache interface {
	Get(fingerprint string) (*TrackFeatures, bool)
	Put(fingerprint string, features *TrackFeatures)
}

// MemoryCache is an in-process FeatureCache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*TrackFeatures
}

// NewMemoryCache creates an empty in-process feature cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*TrackFeatures)}
}

func (c *MemoryCache) Get(fingerprint string) (*TrackFeatures, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[fingerprint]
	return f, ok
}

func (c *MemoryCache) Put(fingerprint string, features *TrackFeatures) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = features
}

// Fingerprint returns a content hash of the audio buffer, used as the
// feature cache key.
func Fingerprint(samples []float64, sampleRate int) string {
	h := sha256.New()

	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(sampleRate))
	h.Write(header[:])

	var buf [8]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s))
		h.Write(buf[:])
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Analyzer extracts the mixing-relevant features of decoded audio. The
// cache is optional and injected by the caller; a nil cache disables
// caching without changing results.
type Analyzer struct {
	config *Config
	cache  FeatureCache
	logger logging.Logger
}

// NewAnalyzer creates a feature extractor with the given configuration
func NewAnalyzer(config *Config, cache FeatureCache, logger logging.Logger) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Analyzer{
		config: config,
		cache:  cache,
		logger: logger.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}
}

// Analyze extracts tempo, key and energy features from mono PCM. Analysis
// failure is never fatal: on any error the returned features carry only
// fallback defaults with Analyzed set to false, so planning proceeds
// without beat-aligned transition points or harmonic scoring.
func (a *Analyzer) Analyze(ctx context.Context, samples []float64, sampleRate int) *TrackFeatures {
	durationMs := int64(0)
	if sampleRate > 0 {
		durationMs = int64(float64(len(samples)) / float64(sampleRate) * 1000.0)
	}

	logger := a.logger.WithFields(logging.Fields{
		"function":    "Analyze",
		"samples":     len(samples),
		"sample_rate": sampleRate,
		"duration_ms": durationMs,
	})

	if len(samples) == 0 || sampleRate <= 0 {
		logger.Warn("Empty or invalid audio buffer, returning degraded features")
		return DegradedFeatures(durationMs)
	}

	fingerprint := ""
	if a.cache != nil {
		fingerprint = Fingerprint(samples, sampleRate)
		if cached, ok := a.cache.Get(fingerprint); ok {
			logger.Debug("Feature cache hit", logging.Fields{"fingerprint": fingerprint[:12]})
			return cached
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("Analysis canceled before start, returning degraded features")
		return DegradedFeatures(durationMs)
	}

	spectral := NewSpectralAnalyzer(sampleRate, a.config.WindowSize, a.config.HopSize)
	spectrogram, err := spectral.ComputeSTFT(samples)
	if err != nil {
		logger.Error(err, "STFT failed, returning degraded features")
		return DegradedFeatures(durationMs)
	}

	features := &TrackFeatures{
		DurationMs: durationMs,
		BPM:        DefaultBPM,
		Key:        KeyUnknown,
		Mode:       ModeUnknown,
		Analyzed:   true,
	}

	if a.config.EnableBeatDetection && ctx.Err() == nil {
		frameRate := float64(sampleRate) / float64(a.config.HopSize)
		flux := spectral.ComputeSpectralFlux(spectrogram)
		tempo := NewTempoEstimator(a.config.MinBPM, a.config.MaxBPM, frameRate).Estimate(flux)

		features.BPM = tempo.BPM
		features.BPMConfidence = tempo.Confidence
		if tempo.Confidence >= a.config.BeatConfidenceFloor {
			features.BeatPositionsMs = tempo.BeatPositionsMs
		}
	}

	if a.config.EnableKeyDetection && ctx.Err() == nil {
		estimator := NewKeyEstimator(a.config.KeyConfidenceFloor)
		result := estimator.Estimate(estimator.ChromaVector(spectrogram))

		features.Key = result.Key
		features.Mode = result.Mode
		features.KeyConfidence = result.Confidence
	}

	if a.config.EnableEnergyProfile && ctx.Err() == nil {
		features.EnergyBands = NewEnergyProfiler(a.config.EnergyFramesPerPoint).Profile(spectrogram)
	}

	if err := features.Validate(); err != nil {
		logger.Error(err, "Computed features failed validation, returning degraded features")
		return DegradedFeatures(durationMs)
	}

	if a.cache != nil {
		a.cache.Put(fingerprint, features)
	}

	logger.Info("Track analyzed", logging.Fields{
		"bpm":   features.BPM,
		"key":   DisplayName(features.Key, features.Mode),
		"beats": len(features.BeatPositionsMs),
	})

	return features
}

// AnalyzeStreamed is the reduced-feature mode for live sources that
// cannot be fully decoded: only the spectral energy profile is computed
// from the partial buffer, tempo and key fall back to defaults.
func (a *Analyzer) AnalyzeStreamed(ctx context.Context, samples []float64, sampleRate int) *TrackFeatures {
	durationMs := int64(0)
	if sampleRate > 0 {
		durationMs = int64(float64(len(samples)) / float64(sampleRate) * 1000.0)
	}

	features := DegradedFeatures(durationMs)

	if len(samples) < a.config.WindowSize || sampleRate <= 0 || ctx.Err() != nil {
		return features
	}

	spectral := NewSpectralAnalyzer(sampleRate, a.config.WindowSize, a.config.HopSize)
	spectrogram, err := spectral.ComputeSTFT(samples)
	if err != nil {
		a.logger.Error(err, "Reduced-mode STFT failed", logging.Fields{
			"function": "AnalyzeStreamed",
		})
		return features
	}

	features.EnergyBands = NewEnergyProfiler(a.config.EnergyFramesPerPoint).Profile(spectrogram)
	return features
}

// SeedFromMetadata builds features from declared catalog metadata,
// skipping audio analysis entirely. Zero or negative declared BPM falls
// back to the default.
func SeedFromMetadata(durationMs int64, declaredBPM float64, declaredKey string) *TrackFeatures {
	features := &TrackFeatures{
		DurationMs: durationMs,
		BPM:        DefaultBPM,
		Analyzed:   true,
	}

	if declaredBPM > 0 {
		features.BPM = declaredBPM
		features.BPMConfidence = 1
	}

	features.Key, features.Mode = ParseKey(declaredKey)
	if features.Key != KeyUnknown {
		features.KeyConfidence = 1
	}

	return features
}
