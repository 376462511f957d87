package mix

import (
	"math"
	"sort"

	"github.com/crossfade/automix/pkg/logging"
	"github.com/crossfade/automix/pkg/mix/compat"
)

// OrderWeights configures the weighted-vote combination of the ordering
// heuristics. Tempo continuity dominates because abrupt BPM jumps are
// the most audible mixing flaw; harmonic fit is secondary and the energy
// arc a soft shaping preference.
type OrderWeights struct {
	EnergyArc     float64
	TempoGreedy   float64
	Harmonic      float64
	RiseRatio     float64 // share of the set placed before the arc turns downward
	MinKeyedRatio float64 // harmonic ranking requires this share of keyed tracks
}

// DefaultOrderWeights returns the standard heuristic weights
func DefaultOrderWeights() OrderWeights {
	return OrderWeights{
		EnergyArc:     5,
		TempoGreedy:   10,
		Harmonic:      8,
		RiseRatio:     0.7,
		MinKeyedRatio: 0.5,
	}
}

// OrderPlanner produces a total ordering of a candidate track set
type OrderPlanner struct {
	weights OrderWeights
	logger  logging.Logger
}

// NewOrderPlanner creates an order planner with the given vote weights
func NewOrderPlanner(weights OrderWeights, logger logging.Logger) *OrderPlanner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &OrderPlanner{
		weights: weights,
		logger: logger.WithFields(logging.Fields{
			"component": "order_planner",
		}),
	}
}

// PlanOrder returns a permutation of the input track ids. Sets of fewer
// than three tracks are simply sorted ascending by BPM; larger sets
// combine the energy-arc, tempo-greedy and harmonic-greedy rankings by
// weighted position votes. Deterministic for a fixed input.
func (op *OrderPlanner) PlanOrder(tracks []Track) []string {
	logger := op.logger.WithFields(logging.Fields{
		"function":    "PlanOrder",
		"track_count": len(tracks),
	})

	if len(tracks) == 0 {
		return nil
	}

	if len(tracks) < 3 {
		order := bpmAscending(tracks)
		return indicesToIDs(tracks, order)
	}

	rankings := []struct {
		name   string
		order  []int
		weight float64
	}{
		{"energy_arc", op.energyArcOrder(tracks), op.weights.EnergyArc},
		{"tempo_greedy", op.tempoGreedyOrder(tracks), op.weights.TempoGreedy},
	}

	if harmonic := op.harmonicGreedyOrder(tracks); harmonic != nil {
		rankings = append(rankings, struct {
			name   string
			order  []int
			weight float64
		}{"harmonic_greedy", harmonic, op.weights.Harmonic})
	} else {
		logger.Debug("Harmonic ranking skipped, too few keyed tracks")
	}

	n := len(tracks)
	votes := make([][]float64, n) // votes[track][position]
	for i := range votes {
		votes[i] = make([]float64, n)
	}

	// Full weight on a heuristic's exact position, half weight on the
	// neighboring positions so near-agreement between heuristics still
	// counts
	for _, r := range rankings {
		for pos, trackIdx := range r.order {
			votes[trackIdx][pos] += r.weight
			if pos > 0 {
				votes[trackIdx][pos-1] += r.weight / 2
			}
			if pos < n-1 {
				votes[trackIdx][pos+1] += r.weight / 2
			}
		}
	}

	combined := make([]int, 0, n)
	used := make([]bool, n)
	for pos := 0; pos < n; pos++ {
		best := -1
		for trackIdx := 0; trackIdx < n; trackIdx++ {
			if used[trackIdx] {
				continue
			}
			if best == -1 || votes[trackIdx][pos] > votes[best][pos] {
				best = trackIdx
			}
		}
		used[best] = true
		combined = append(combined, best)
	}

	logger.Info("Mix order planned", logging.Fields{
		"rankings": len(rankings),
	})

	return indicesToIDs(tracks, combined)
}

// energyScore estimates a track's intensity on a 1-10 scale, from the
// energy profile when present, else a BPM-bucketed proxy.
func energyScore(t *Track) float64 {
	if t.Features != nil {
		if avg := t.Features.AverageEnergy(); avg >= 0 {
			return 1 + avg*9
		}
	}
	switch bpm := t.BPM(); {
	case bpm < 80:
		return 2
	case bpm < 100:
		return 4
	case bpm < 120:
		return 6
	case bpm < 140:
		return 8
	default:
		return 10
	}
}

// energyArcOrder shapes a rise-then-release set: the median-energy track
// opens, the order alternates outward with an upward bias until the rise
// share of the set is placed, then the remainder descends.
func (op *OrderPlanner) energyArcOrder(tracks []Track) []int {
	n := len(tracks)
	byEnergy := make([]int, n)
	for i := range byEnergy {
		byEnergy[i] = i
	}
	sort.SliceStable(byEnergy, func(a, b int) bool {
		return energyScore(&tracks[byEnergy[a]]) < energyScore(&tracks[byEnergy[b]])
	})

	median := (n - 1) / 2
	order := []int{byEnergy[median]}
	hi, lo := median+1, median-1

	riseLen := int(math.Ceil(op.weights.RiseRatio * float64(n)))
	takeHigh := true
	for len(order) < riseLen && (hi < n || lo >= 0) {
		if (takeHigh && hi < n) || lo < 0 {
			order = append(order, byEnergy[hi])
			hi++
		} else {
			order = append(order, byEnergy[lo])
			lo--
		}
		takeHigh = !takeHigh
	}

	// Descending tail: remaining high tracks first, loudest to
	// quietest, then the untouched low tracks downward
	for i := n - 1; i >= hi; i-- {
		order = append(order, byEnergy[i])
	}
	for i := lo; i >= 0; i-- {
		order = append(order, byEnergy[i])
	}

	return order
}

// tempoGreedyOrder starts at the slowest track and always continues to
// the closest remaining tempo
func (op *OrderPlanner) tempoGreedyOrder(tracks []Track) []int {
	n := len(tracks)
	used := make([]bool, n)

	start := 0
	for i := 1; i < n; i++ {
		if tracks[i].BPM() < tracks[start].BPM() {
			start = i
		}
	}

	order := []int{start}
	used[start] = true

	for len(order) < n {
		last := order[len(order)-1]
		best := -1
		bestGap := math.Inf(1)
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			if gap := math.Abs(tracks[i].BPM() - tracks[last].BPM()); gap < bestGap {
				bestGap = gap
				best = i
			}
		}
		order = append(order, best)
		used[best] = true
	}

	return order
}

// harmonicGreedyOrder chains keyed tracks by combined harmonic and tempo
// affinity, appending unkeyed tracks at the end. Returns nil when fewer
// than the configured share of tracks carry key data.
func (op *OrderPlanner) harmonicGreedyOrder(tracks []Track) []int {
	n := len(tracks)

	var keyed, unkeyed []int
	for i := range tracks {
		if tracks[i].Features.HasKey() {
			keyed = append(keyed, i)
		} else {
			unkeyed = append(unkeyed, i)
		}
	}

	if float64(len(keyed)) < op.weights.MinKeyedRatio*float64(n) || len(keyed) == 0 {
		return nil
	}

	used := make(map[int]bool, len(keyed))
	order := []int{keyed[0]}
	used[keyed[0]] = true

	for len(order) < len(keyed) {
		last := &tracks[order[len(order)-1]]
		best := -1
		bestScore := math.Inf(-1)
		for _, i := range keyed {
			if used[i] {
				continue
			}
			candidate := &tracks[i]
			keyClass := compat.KeyCompatibility(
				last.Features.Key, last.Features.Mode,
				candidate.Features.Key, candidate.Features.Mode)
			score := 2*compat.KeyScore(keyClass) + compat.TempoProximity(last.BPM(), candidate.BPM())
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		order = append(order, best)
		used[best] = true
	}

	return append(order, unkeyed...)
}

// bpmAscending sorts track indices by BPM, input order breaking ties
func bpmAscending(tracks []Track) []int {
	order := make([]int, len(tracks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return tracks[order[a]].BPM() < tracks[order[b]].BPM()
	})
	return order
}

func indicesToIDs(tracks []Track, order []int) []string {
	ids := make([]string, len(order))
	for i, idx := range order {
		ids[i] = tracks[idx].ID
	}
	return ids
}
