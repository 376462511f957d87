package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/crossfade/automix/pkg/logging"
)

// TempoResult holds the outcome of tempo estimation
type TempoResult struct {
	BPM             float64
	BeatPositionsMs []int64
	Confidence      float64
}

// TempoEstimator estimates tempo and a beat grid from an onset strength
// envelope. The estimator is autocorrelation based: periodic onsets
// produce a strong correlation peak at the beat-period lag.
type TempoEstimator struct {
	minBPM    float64
	maxBPM    float64
	frameRate float64 // onset envelope frames per second
	logger    logging.Logger
}

// NewTempoEstimator creates a tempo estimator for an onset envelope with
// the given frame rate (sampleRate / hopSize).
func NewTempoEstimator(minBPM, maxBPM, frameRate float64) *TempoEstimator {
	return &TempoEstimator{
		minBPM:    minBPM,
		maxBPM:    maxBPM,
		frameRate: frameRate,
		logger: logging.WithFields(logging.Fields{
			"component": "tempo_estimator",
		}),
	}
}

// Estimate detects the dominant tempo in the onset envelope and derives a
// beat grid aligned to the strongest onset phase.
func (te *TempoEstimator) Estimate(onsetEnvelope []float64) *TempoResult {
	logger := te.logger.WithFields(logging.Fields{
		"function":     "Estimate",
		"onset_frames": len(onsetEnvelope),
	})

	minLag := int(te.frameRate * 60.0 / te.maxBPM)
	maxLag := int(te.frameRate * 60.0 / te.minBPM)

	if minLag < 1 || len(onsetEnvelope) < 2*maxLag {
		logger.Debug("Onset envelope too short for tempo detection")
		return &TempoResult{BPM: DefaultBPM, Confidence: 0}
	}

	normalized := meanSubtract(onsetEnvelope)

	bestLag := 0
	bestCorr := 0.0
	sumCorr := 0.0
	count := 0

	for lag := minLag; lag <= maxLag; lag++ {
		corr := autocorrelate(normalized, lag)
		sumCorr += math.Max(corr, 0)
		count++
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 || bestCorr <= 0 {
		logger.Debug("No periodic structure found in onset envelope")
		return &TempoResult{BPM: DefaultBPM, Confidence: 0}
	}

	bpm := te.frameRate * 60.0 / float64(bestLag)

	// Confidence: how much the winning lag stands out from the mean
	// correlation across the search range
	meanCorr := sumCorr / float64(count)
	confidence := 0.0
	if meanCorr > 0 {
		confidence = math.Min(1.0, (bestCorr-meanCorr)/bestCorr)
	}

	beats := te.beatGrid(onsetEnvelope, bestLag)

	logger.Debug("Tempo estimated", logging.Fields{
		"bpm":        bpm,
		"confidence": confidence,
		"beat_count": len(beats),
	})

	return &TempoResult{
		BPM:             bpm,
		BeatPositionsMs: beats,
		Confidence:      confidence,
	}
}

// beatGrid aligns a constant grid of period lag to the phase that
// maximizes total onset strength under the grid.
func (te *TempoEstimator) beatGrid(onsetEnvelope []float64, lag int) []int64 {
	bestPhase := 0
	bestScore := -1.0

	for phase := 0; phase < lag; phase++ {
		score := 0.0
		for i := phase; i < len(onsetEnvelope); i += lag {
			score += onsetEnvelope[i]
		}
		if score > bestScore {
			bestScore = score
			bestPhase = phase
		}
	}

	var beats []int64
	for i := bestPhase; i < len(onsetEnvelope); i += lag {
		beats = append(beats, int64(float64(i)/te.frameRate*1000.0))
	}
	return beats
}

func meanSubtract(x []float64) []float64 {
	mean := stat.Mean(x, nil)

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean
	}
	return out
}

// autocorrelate computes the normalized autocorrelation of x at the
// given lag
func autocorrelate(x []float64, lag int) float64 {
	if lag >= len(x) {
		return 0
	}

	num := 0.0
	den := 0.0
	for i := 0; i < len(x)-lag; i++ {
		num += x[i] * x[i+lag]
	}
	for _, v := range x {
		den += v * v
	}
	if den == 0 {
		return 0
	}
	return num / den
}
