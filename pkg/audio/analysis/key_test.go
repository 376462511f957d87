package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triadChroma builds a chroma vector with energy on the given pitch
// classes (0 = C)
func triadChroma(pitchClasses ...int) []float64 {
	chroma := make([]float64, 12)
	for _, pc := range pitchClasses {
		chroma[pc] = 1.0
	}
	return chroma
}

func TestEstimateCMajorTriad(t *testing.T) {
	// C, E, G
	result := NewKeyEstimator(0.01).Estimate(triadChroma(0, 4, 7))

	assert.Equal(t, KeyC, result.Key)
	assert.Equal(t, ModeMajor, result.Mode)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestEstimateAMinorTriad(t *testing.T) {
	// A, C, E
	result := NewKeyEstimator(0.01).Estimate(triadChroma(9, 0, 4))

	assert.Equal(t, KeyA, result.Key)
	assert.Equal(t, ModeMinor, result.Mode)
}

func TestEstimateFlatChromaIsUnknown(t *testing.T) {
	flat := make([]float64, 12)
	for i := range flat {
		flat[i] = 0.5
	}

	result := NewKeyEstimator(0.01).Estimate(flat)

	assert.Equal(t, KeyUnknown, result.Key)
	assert.Equal(t, ModeUnknown, result.Mode)
}

func TestEstimateInvalidLengthIsUnknown(t *testing.T) {
	result := NewKeyEstimator(0.01).Estimate([]float64{1, 2, 3})
	assert.Equal(t, KeyUnknown, result.Key)
}

func TestEstimateRespectsConfidenceFloor(t *testing.T) {
	// An unreasonably high floor rejects even a clean triad
	result := NewKeyEstimator(0.99).Estimate(triadChroma(0, 4, 7))
	assert.Equal(t, KeyUnknown, result.Key)
}

func TestChromaVectorMapsPitchToClass(t *testing.T) {
	// Single bin at 440 Hz (A4) with window 2048 at 44100 Hz:
	// bin = 440 / (44100/2048) = 20.43, use bin 20 at 430.7 Hz which
	// still rounds to pitch class A
	spectrogram := &SpectrogramResult{
		Magnitude:      [][]float64{make([]float64, 1025)},
		TimeFrames:     1,
		FreqBins:       1025,
		SampleRate:     44100,
		WindowSize:     2048,
		FreqResolution: 44100.0 / 2048.0,
	}
	spectrogram.Magnitude[0][20] = 1.0

	chroma := NewKeyEstimator(0.01).ChromaVector(spectrogram)

	require.Len(t, chroma, 12)
	assert.Equal(t, 1.0, chroma[9]) // A
	for pc, v := range chroma {
		if pc != 9 {
			assert.Zero(t, v)
		}
	}
}
