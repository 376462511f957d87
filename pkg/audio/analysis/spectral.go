package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/crossfade/automix/pkg/logging"
)

// SpectralAnalyzer provides STFT and spectral analysis for the feature
// extractors
type SpectralAnalyzer struct {
	sampleRate int
	windowSize int
	hopSize    int
	window     []float64
	logger     logging.Logger
}

// SpectrogramResult holds the result of STFT analysis
type SpectrogramResult struct {
	Magnitude      [][]float64 // Time x Frequency magnitude matrix
	TimeFrames     int
	FreqBins       int
	SampleRate     int
	WindowSize     int
	HopSize        int
	FreqResolution float64 // Hz per bin
	TimeResolution float64 // seconds per frame
}

// NewSpectralAnalyzer creates a spectral analyzer with a Hann window
func NewSpectralAnalyzer(sampleRate, windowSize, hopSize int) *SpectralAnalyzer {
	window := make([]float64, windowSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(windowSize-1)))
	}

	return &SpectralAnalyzer{
		sampleRate: sampleRate,
		windowSize: windowSize,
		hopSize:    hopSize,
		window:     window,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
			"window_size": windowSize,
			"hop_size":    hopSize,
		}),
	}
}

// ComputeSTFT computes a short-time Fourier transform of the signal,
// keeping only the positive-frequency magnitude spectrum per frame.
func (sa *SpectralAnalyzer) ComputeSTFT(signal []float64) (*SpectrogramResult, error) {
	if len(signal) < sa.windowSize {
		return nil, fmt.Errorf("signal too short for analysis: %d samples, need %d", len(signal), sa.windowSize)
	}

	logger := sa.logger.WithFields(logging.Fields{
		"function":      "ComputeSTFT",
		"signal_length": len(signal),
	})

	timeFrames := 1 + (len(signal)-sa.windowSize)/sa.hopSize
	freqBins := sa.windowSize/2 + 1

	magnitude := make([][]float64, timeFrames)
	frame := make([]float64, sa.windowSize)

	for t := 0; t < timeFrames; t++ {
		offset := t * sa.hopSize
		for i := 0; i < sa.windowSize; i++ {
			frame[i] = signal[offset+i] * sa.window[i]
		}

		spectrum := fft.FFTReal(frame)

		magnitude[t] = make([]float64, freqBins)
		for f := 0; f < freqBins; f++ {
			magnitude[t][f] = cmplx.Abs(spectrum[f])
		}
	}

	result := &SpectrogramResult{
		Magnitude:      magnitude,
		TimeFrames:     timeFrames,
		FreqBins:       freqBins,
		SampleRate:     sa.sampleRate,
		WindowSize:     sa.windowSize,
		HopSize:        sa.hopSize,
		FreqResolution: float64(sa.sampleRate) / float64(sa.windowSize),
		TimeResolution: float64(sa.hopSize) / float64(sa.sampleRate),
	}

	logger.Debug("STFT computation completed", logging.Fields{
		"time_frames": result.TimeFrames,
		"freq_bins":   result.FreqBins,
	})

	return result, nil
}

// GetFrequencyBins returns the center frequency of each FFT bin
func (sa *SpectralAnalyzer) GetFrequencyBins(numBins int) []float64 {
	freqs := make([]float64, numBins)
	for i := range freqs {
		freqs[i] = float64(i) * float64(sa.sampleRate) / float64(sa.windowSize)
	}
	return freqs
}

// ComputeSpectralFlux computes the onset strength envelope: positive
// spectral change between consecutive frames.
func (sa *SpectralAnalyzer) ComputeSpectralFlux(spectrogram *SpectrogramResult) []float64 {
	if spectrogram.TimeFrames < 2 {
		return nil
	}

	flux := make([]float64, spectrogram.TimeFrames-1)

	for t := 1; t < spectrogram.TimeFrames; t++ {
		sum := 0.0
		for f := 0; f < spectrogram.FreqBins; f++ {
			diff := spectrogram.Magnitude[t][f] - spectrogram.Magnitude[t-1][f]
			if diff > 0 { // Only energy increases mark onsets
				sum += diff * diff
			}
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}
