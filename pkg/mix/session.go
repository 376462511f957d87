package mix

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/crossfade/automix/pkg/audio/analysis"
	"github.com/crossfade/automix/pkg/logging"
)

// ErrSuperseded reports that a planning run was replaced by a newer
// request on the same session before it finished
var ErrSuperseded = errors.New("planning run superseded by a newer request")

// TrackLoader obtains decoded mono audio for a track. Implementations
// typically decode through the catalog's byte stream.
type TrackLoader interface {
	Load(ctx context.Context, track *Track) (samples []float64, sampleRate int, err error)
}

// TrackLoaderFunc adapts a function to the TrackLoader interface
type TrackLoaderFunc func(ctx context.Context, track *Track) ([]float64, int, error)

func (f TrackLoaderFunc) Load(ctx context.Context, track *Track) ([]float64, int, error) {
	return f(ctx, track)
}

// SessionConfig tunes the analysis fan-out of one session
type SessionConfig struct {
	MaxConcurrent       int
	PerTrackTimeout     time.Duration
	TrustDeclaredValues bool
}

// DefaultSessionConfig returns the standard session settings
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxConcurrent:       4,
		PerTrackTimeout:     2 * time.Minute,
		TrustDeclaredValues: true,
	}
}

// AnalysisResult reports the outcome of analyzing one track within a
// planning run. Error is non-nil when loading or decoding failed and the
// track fell back to degraded features; the run itself still succeeds.
type AnalysisResult struct {
	TrackID  string
	Features *analysis.TrackFeatures
	Error    error
	Elapsed  time.Duration
}

// Session owns planning runs for one mix session. Runs analyze the
// candidate tracks concurrently and build an immutable MixPlan. A new
// Plan call supersedes any in-flight run on the same session; different
// sessions are fully independent.
type Session struct {
	id       string
	config   SessionConfig
	analyzer *analysis.Analyzer
	planner  *Planner
	loader   TrackLoader
	logger   logging.Logger

	mu      sync.Mutex
	current *planRun
}

// planRun identifies one in-flight planning run so a superseding run can
// cancel it
type planRun struct {
	cancel context.CancelFunc
}

// NewSession creates a planning session
func NewSession(config SessionConfig, analyzer *analysis.Analyzer, planner *Planner, loader TrackLoader, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		config:   config,
		analyzer: analyzer,
		planner:  planner,
		loader:   loader,
		logger: logger.WithFields(logging.Fields{
			"component":  "session",
			"session_id": id,
		}),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Plan analyzes all tracks and builds a MixPlan. Analysis failures
// degrade individual tracks, never the run; the per-track outcomes are
// returned alongside the plan. Returns ErrSuperseded when a newer Plan
// call replaced this run, and ErrTooFewTracks for undersized input.
func (s *Session) Plan(ctx context.Context, tracks []Track) (*MixPlan, []AnalysisResult, error) {
	if len(tracks) < 2 {
		return nil, nil, ErrTooFewTracks
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &planRun{cancel: cancel}
	s.mu.Lock()
	if s.current != nil {
		s.current.cancel()
	}
	s.current = run
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		// Only clear our own registration; a superseding run may
		// already have replaced it
		if s.current == run {
			s.current = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	logger := s.logger.WithFields(logging.Fields{
		"function":    "Plan",
		"track_count": len(tracks),
	})
	logger.Info("Planning run started")

	analyzed := make([]Track, len(tracks))
	copy(analyzed, tracks)
	results := make([]AnalysisResult, len(tracks))

	g, gctx := errgroup.WithContext(runCtx)
	if s.config.MaxConcurrent > 0 {
		g.SetLimit(s.config.MaxConcurrent)
	}

	for i := range analyzed {
		i := i
		g.Go(func() error {
			track := &analyzed[i]
			started := time.Now()
			result := AnalysisResult{TrackID: track.ID}

			switch {
			case track.Features != nil:
				// Pre-analyzed input keeps its features

			case s.config.TrustDeclaredValues && (track.DeclaredBPM > 0 || track.DeclaredKey != ""):
				track.Features = analysis.SeedFromMetadata(track.DurationMs, track.DeclaredBPM, track.DeclaredKey)

			default:
				loadCtx := gctx
				if s.config.PerTrackTimeout > 0 {
					var loadCancel context.CancelFunc
					loadCtx, loadCancel = context.WithTimeout(gctx, s.config.PerTrackTimeout)
					defer loadCancel()
				}

				samples, sampleRate, err := s.loader.Load(loadCtx, track)
				if err != nil {
					result.Error = err
					track.Features = analysis.DegradedFeatures(track.DurationMs)
					logger.Warn("Track analysis degraded", logging.Fields{
						"track_id": track.ID,
						"error":    err.Error(),
					})
				} else {
					track.Features = s.analyzer.Analyze(loadCtx, samples, sampleRate)
					if track.DurationMs == 0 {
						track.DurationMs = track.Features.DurationMs
					}
				}
			}

			result.Features = track.Features
			result.Elapsed = time.Since(started)
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, results, err
	}

	if err := runCtx.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, results, ctx.Err()
		}
		return nil, results, ErrSuperseded
	}

	plan, err := s.planner.BuildPlan(analyzed)
	if err != nil {
		return nil, results, err
	}

	logger.Info("Planning run finished", logging.Fields{
		"plan_id": plan.ID,
	})

	return plan, results, nil
}
