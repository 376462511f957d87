package analysis

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Key is a pitch class in canonical sharp spelling
type Key string

const (
	KeyC      Key = "C"
	KeyCSharp Key = "C#"
	KeyD      Key = "D"
	KeyDSharp Key = "D#"
	KeyE      Key = "E"
	KeyF      Key = "F"
	KeyFSharp Key = "F#"
	KeyG      Key = "G"
	KeyGSharp Key = "G#"
	KeyA      Key = "A"
	KeyASharp Key = "A#"
	KeyB      Key = "B"

	// KeyUnknown marks tracks whose key could not be detected
	KeyUnknown Key = ""
)

// Mode is the tonality of a detected key
type Mode string

const (
	ModeMajor   Mode = "major"
	ModeMinor   Mode = "minor"
	ModeUnknown Mode = ""
)

// chromaticScale indexes pitch classes by semitone offset from C
var chromaticScale = []Key{
	KeyC, KeyCSharp, KeyD, KeyDSharp, KeyE, KeyF,
	KeyFSharp, KeyG, KeyGSharp, KeyA, KeyASharp, KeyB,
}

// flatToSharp normalizes enharmonic flat spellings
var flatToSharp = map[string]Key{
	"DB": KeyCSharp,
	"EB": KeyDSharp,
	"GB": KeyFSharp,
	"AB": KeyGSharp,
	"BB": KeyASharp,
	"CB": KeyB,
	"FB": KeyE,
}

var titleCaser = cases.Title(language.English)

// ParseKey parses declared key metadata such as "F# minor", "Abmaj" or
// "bb", returning the canonical key and mode. Unparseable input yields
// KeyUnknown/ModeUnknown rather than an error since declared metadata
// quality varies wildly across catalogs.
func ParseKey(raw string) (Key, Mode) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return KeyUnknown, ModeUnknown
	}

	s = strings.ReplaceAll(s, "♯", "#")
	s = strings.ReplaceAll(s, "♭", "b")
	upper := strings.ToUpper(s)

	mode := ModeUnknown
	for _, suffix := range []string{" MINOR", "MINOR", " MIN", "MIN", "M"} {
		if strings.HasSuffix(upper, suffix) && len(upper) > len(suffix) {
			// Bare trailing "M" is ambiguous with e.g. "Am": treat
			// lowercase source "m" as minor, uppercase as major
			if suffix == "M" {
				if strings.HasSuffix(s, "m") {
					mode = ModeMinor
				} else {
					mode = ModeMajor
				}
			} else {
				mode = ModeMinor
			}
			upper = strings.TrimSpace(strings.TrimSuffix(upper, suffix))
			break
		}
	}
	if mode == ModeUnknown {
		for _, suffix := range []string{" MAJOR", "MAJOR", " MAJ", "MAJ"} {
			if strings.HasSuffix(upper, suffix) && len(upper) > len(suffix) {
				mode = ModeMajor
				upper = strings.TrimSpace(strings.TrimSuffix(upper, suffix))
				break
			}
		}
	}

	if k, ok := flatToSharp[upper]; ok {
		if mode == ModeUnknown {
			mode = ModeMajor
		}
		return k, mode
	}
	for _, k := range chromaticScale {
		if upper == string(k) {
			if mode == ModeUnknown {
				mode = ModeMajor
			}
			return k, mode
		}
	}

	return KeyUnknown, ModeUnknown
}

// DisplayName renders a key/mode pair for logs and CLI output
func DisplayName(key Key, mode Mode) string {
	if key == KeyUnknown {
		return "unknown"
	}
	if mode == ModeUnknown {
		return string(key)
	}
	return fmt.Sprintf("%s %s", key, titleCaser.String(string(mode)))
}

// EnergyPoint is a coarse three-band energy measurement at a point in
// time. Band values are in [0, 1], scaled relative to the loudest point
// in the same track.
type EnergyPoint struct {
	TimeMs int64   `json:"time_ms"`
	Low    float64 `json:"low"`
	Mid    float64 `json:"mid"`
	High   float64 `json:"high"`
}

// TrackFeatures holds the mixing-relevant features of one track. Immutable
// once computed; callers re-analyze if the source audio changes.
type TrackFeatures struct {
	DurationMs      int64         `json:"duration_ms"`
	BPM             float64       `json:"bpm"`
	BeatPositionsMs []int64       `json:"beat_positions_ms,omitempty"`
	Key             Key           `json:"key,omitempty"`
	Mode            Mode          `json:"mode,omitempty"`
	EnergyBands     []EnergyPoint `json:"energy_bands,omitempty"`

	// Analyzed is false when extraction failed and the features carry
	// only fallback defaults
	Analyzed bool `json:"analyzed"`

	// Confidence scores in [0, 1] for the detected values
	BPMConfidence float64 `json:"bpm_confidence,omitempty"`
	KeyConfidence float64 `json:"key_confidence,omitempty"`
}

// DefaultBPM is assumed when tempo detection fails or is unavailable
const DefaultBPM = 120.0

// DegradedFeatures returns the fallback features used when analysis fails.
// Planning proceeds on these; it only loses beat-aligned transition points
// and harmonic scoring.
func DegradedFeatures(durationMs int64) *TrackFeatures {
	return &TrackFeatures{
		DurationMs: durationMs,
		BPM:        DefaultBPM,
		Key:        KeyUnknown,
		Mode:       ModeUnknown,
		Analyzed:   false,
	}
}

// HasBeats reports whether beat-aligned transition planning is possible
func (f *TrackFeatures) HasBeats() bool {
	return f != nil && len(f.BeatPositionsMs) > 0
}

// HasKey reports whether harmonic scoring is possible
func (f *TrackFeatures) HasKey() bool {
	return f != nil && f.Key != KeyUnknown && f.Mode != ModeUnknown
}

// AverageEnergy returns the mean total energy across the profile on a 0-1
// scale, or -1 when no energy profile exists.
func (f *TrackFeatures) AverageEnergy() float64 {
	if f == nil || len(f.EnergyBands) == 0 {
		return -1
	}
	total := 0.0
	for _, p := range f.EnergyBands {
		total += p.Low + p.Mid + p.High
	}
	return total / float64(len(f.EnergyBands))
}

// Validate checks the structural invariants of computed features
func (f *TrackFeatures) Validate() error {
	if f.BPM <= 0 {
		return fmt.Errorf("bpm must be positive, got %.2f", f.BPM)
	}
	for i := 1; i < len(f.BeatPositionsMs); i++ {
		if f.BeatPositionsMs[i] <= f.BeatPositionsMs[i-1] {
			return fmt.Errorf("beat positions not strictly increasing at index %d", i)
		}
	}
	return nil
}
