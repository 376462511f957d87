package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/crossfade/automix/pkg/logging"
)

// Krumhansl-Schmuckler key profiles: perceptual weight of each pitch
// class relative to the tonic, from probe-tone experiments.
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyResult holds the outcome of key estimation
type KeyResult struct {
	Key        Key
	Mode       Mode
	Confidence float64
}

// KeyEstimator estimates musical key by correlating the track's averaged
// chroma vector against the 24 rotated Krumhansl-Schmuckler profiles.
type KeyEstimator struct {
	confidenceFloor float64
	logger          logging.Logger
}

// NewKeyEstimator creates a key estimator. Estimates whose confidence
// falls below confidenceFloor report KeyUnknown.
func NewKeyEstimator(confidenceFloor float64) *KeyEstimator {
	return &KeyEstimator{
		confidenceFloor: confidenceFloor,
		logger: logging.WithFields(logging.Fields{
			"component": "key_estimator",
		}),
	}
}

// ChromaVector folds a magnitude spectrogram into a single 12-bin pitch
// class profile. Frequencies map to pitch classes through MIDI note
// numbers; bins outside 80-5000 Hz are ignored as percussive or noisy.
func (ke *KeyEstimator) ChromaVector(spectrogram *SpectrogramResult) []float64 {
	chroma := make([]float64, 12)

	for t := 0; t < spectrogram.TimeFrames; t++ {
		magnitude := spectrogram.Magnitude[t]
		for f := 1; f < len(magnitude); f++ {
			freq := float64(f) * spectrogram.FreqResolution
			if freq < 80 || freq > 5000 {
				continue
			}
			midiNote := 12*math.Log2(freq/440.0) + 69
			pitchClass := int(math.Round(midiNote)) % 12
			if pitchClass < 0 {
				pitchClass += 12
			}
			chroma[pitchClass] += magnitude[f]
		}
	}

	// Normalize to unit maximum
	maxVal := 0.0
	for _, v := range chroma {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal > 0 {
		for i := range chroma {
			chroma[i] /= maxVal
		}
	}

	return chroma
}

// Estimate picks the key/mode whose rotated profile correlates best with
// the chroma vector. MIDI pitch class 0 is C, matching chromaticScale.
func (ke *KeyEstimator) Estimate(chroma []float64) *KeyResult {
	logger := ke.logger.WithFields(logging.Fields{
		"function": "Estimate",
	})

	if len(chroma) != 12 {
		return &KeyResult{Key: KeyUnknown, Mode: ModeUnknown}
	}

	flat := true
	for _, v := range chroma {
		if v != chroma[0] {
			flat = false
			break
		}
	}
	if flat {
		logger.Debug("Chroma vector is flat, no tonal content")
		return &KeyResult{Key: KeyUnknown, Mode: ModeUnknown}
	}

	bestCorr, secondCorr := math.Inf(-1), math.Inf(-1)
	bestKey := KeyUnknown
	bestMode := ModeUnknown

	for tonic := 0; tonic < 12; tonic++ {
		rotated := rotate(chroma, tonic)

		for _, candidate := range []struct {
			profile []float64
			mode    Mode
		}{
			{majorProfile, ModeMajor},
			{minorProfile, ModeMinor},
		} {
			corr := stat.Correlation(rotated, candidate.profile, nil)
			if math.IsNaN(corr) {
				continue
			}
			if corr > bestCorr {
				secondCorr = bestCorr
				bestCorr = corr
				bestKey = chromaticScale[tonic]
				bestMode = candidate.mode
			} else if corr > secondCorr {
				secondCorr = corr
			}
		}
	}

	if bestKey == KeyUnknown {
		return &KeyResult{Key: KeyUnknown, Mode: ModeUnknown}
	}

	// Confidence: separation between the winner and the runner-up
	confidence := math.Max(0, math.Min(1, bestCorr-secondCorr))
	if bestCorr <= 0 || confidence < ke.confidenceFloor {
		logger.Debug("Key estimate below confidence floor", logging.Fields{
			"best_key":   string(bestKey),
			"confidence": confidence,
		})
		return &KeyResult{Key: KeyUnknown, Mode: ModeUnknown, Confidence: confidence}
	}

	logger.Debug("Key estimated", logging.Fields{
		"key":        string(bestKey),
		"mode":       string(bestMode),
		"confidence": confidence,
	})

	return &KeyResult{Key: bestKey, Mode: bestMode, Confidence: confidence}
}

// rotate shifts the chroma vector so index 0 becomes the candidate tonic
func rotate(chroma []float64, tonic int) []float64 {
	out := make([]float64, 12)
	for i := 0; i < 12; i++ {
		out[i] = chroma[(i+tonic)%12]
	}
	return out
}
