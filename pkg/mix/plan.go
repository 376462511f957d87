package mix

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/crossfade/automix/pkg/logging"
)

// ErrTooFewTracks rejects planning input below the minimum set size
var ErrTooFewTracks = errors.New("mix plan requires at least 2 tracks")

// PlannerConfig bundles the planning policies
type PlannerConfig struct {
	Weights    OrderWeights
	Transition TransitionConfig
}

// DefaultPlannerConfig returns the standard planning policy
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Weights:    DefaultOrderWeights(),
		Transition: DefaultTransitionConfig(),
	}
}

// Planner runs one-shot plan builds over candidate track sets
type Planner struct {
	order      *OrderPlanner
	transition *TransitionPlanner
	logger     logging.Logger
}

// NewPlanner creates a planner with the given policies
func NewPlanner(config PlannerConfig, logger logging.Logger) *Planner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Planner{
		order:      NewOrderPlanner(config.Weights, logger),
		transition: NewTransitionPlanner(config.Transition, logger),
		logger: logger.WithFields(logging.Fields{
			"component": "planner",
		}),
	}
}

// BuildPlan orders the tracks and plans the transitions between each
// consecutive pair. Input of fewer than two tracks is rejected
// synchronously with ErrTooFewTracks.
func (p *Planner) BuildPlan(tracks []Track) (*MixPlan, error) {
	if len(tracks) < 2 {
		return nil, ErrTooFewTracks
	}

	logger := p.logger.WithFields(logging.Fields{
		"function":    "BuildPlan",
		"track_count": len(tracks),
	})

	orderedIDs := p.order.PlanOrder(tracks)

	byID := make(map[string]*Track, len(tracks))
	for i := range tracks {
		byID[tracks[i].ID] = &tracks[i]
	}

	ordered := make([]Track, len(orderedIDs))
	for i, id := range orderedIDs {
		ordered[i] = *byID[id]
	}

	transitions := p.transition.PlanTransitions(ordered)

	// Total run time: track lengths minus the transition overlaps
	total := int64(0)
	for i := range ordered {
		total += ordered[i].DurationMs
	}
	for _, tr := range transitions {
		total -= tr.DurationMs
	}
	if total < 0 {
		total = 0
	}

	plan := &MixPlan{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		OrderedTrackIDs: orderedIDs,
		Transitions:     transitions,
		TotalDurationMs: total,
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Mix plan built", logging.Fields{
		"plan_id":           plan.ID,
		"total_duration_ms": plan.TotalDurationMs,
	})

	return plan, nil
}

// ToJSON renders the plan for persistence or transmission
func (p *MixPlan) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// ToYAML renders the plan as YAML
func (p *MixPlan) ToYAML() ([]byte, error) {
	return yaml.Marshal(p)
}
