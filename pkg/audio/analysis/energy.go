package analysis

// Band boundaries for the coarse energy profile
const (
	lowBandMaxHz = 250.0
	midBandMaxHz = 4000.0
)

// EnergyProfiler folds a magnitude spectrogram into a coarse per-frame
// three-band energy profile used by the energy-arc ordering heuristic.
type EnergyProfiler struct {
	framesPerPoint int
}

// NewEnergyProfiler creates a profiler that averages the given number of
// STFT frames into each profile point.
func NewEnergyProfiler(framesPerPoint int) *EnergyProfiler {
	if framesPerPoint < 1 {
		framesPerPoint = 1
	}
	return &EnergyProfiler{framesPerPoint: framesPerPoint}
}

// Profile computes the band energy profile. Each point carries the
// spectral energy in the low (<250 Hz), mid (250-4000 Hz) and high
// (>4000 Hz) bands, scaled by the loudest point so the band values stay
// in [0, 1] while louder sections keep higher totals than quiet ones.
func (ep *EnergyProfiler) Profile(spectrogram *SpectrogramResult) []EnergyPoint {
	if spectrogram.TimeFrames == 0 {
		return nil
	}

	points := make([]EnergyPoint, 0, spectrogram.TimeFrames/ep.framesPerPoint+1)
	maxTotal := 0.0

	for start := 0; start < spectrogram.TimeFrames; start += ep.framesPerPoint {
		end := start + ep.framesPerPoint
		if end > spectrogram.TimeFrames {
			end = spectrogram.TimeFrames
		}

		var low, mid, high float64
		for t := start; t < end; t++ {
			magnitude := spectrogram.Magnitude[t]
			for f := 1; f < len(magnitude); f++ {
				freq := float64(f) * spectrogram.FreqResolution
				power := magnitude[f] * magnitude[f]
				switch {
				case freq < lowBandMaxHz:
					low += power
				case freq < midBandMaxHz:
					mid += power
				default:
					high += power
				}
			}
		}

		frames := float64(end - start)
		point := EnergyPoint{
			TimeMs: int64(float64(start) * spectrogram.TimeResolution * 1000.0),
			Low:    low / frames,
			Mid:    mid / frames,
			High:   high / frames,
		}
		if total := point.Low + point.Mid + point.High; total > maxTotal {
			maxTotal = total
		}
		points = append(points, point)
	}

	if maxTotal > 0 {
		for i := range points {
			points[i].Low /= maxTotal
			points[i].Mid /= maxTotal
			points[i].High /= maxTotal
		}
	}

	return points
}
