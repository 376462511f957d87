package mix

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossfade/automix/pkg/audio/analysis"
)

func newTestSession(loader TrackLoader) *Session {
	cfg := DefaultSessionConfig()
	cfg.MaxConcurrent = 2
	return NewSession(cfg,
		analysis.NewAnalyzer(nil, nil, nil),
		NewPlanner(DefaultPlannerConfig(), nil),
		loader, nil)
}

func TestSessionPlanRejectsTooFewTracks(t *testing.T) {
	s := newTestSession(TrackLoaderFunc(func(ctx context.Context, track *Track) ([]float64, int, error) {
		return nil, 0, errors.New("unexpected load")
	}))

	_, _, err := s.Plan(context.Background(), []Track{bpmTrack("a", 120)})
	assert.ErrorIs(t, err, ErrTooFewTracks)
}

func TestSessionPlanKeepsPreAnalyzedFeatures(t *testing.T) {
	loads := 0
	s := newTestSession(TrackLoaderFunc(func(ctx context.Context, track *Track) ([]float64, int, error) {
		loads++
		return nil, 0, errors.New("no source")
	}))

	tracks := []Track{bpmTrack("a", 120), bpmTrack("b", 124)}
	plan, results, err := s.Plan(context.Background(), tracks)
	require.NoError(t, err)

	assert.Zero(t, loads)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Error)
		assert.True(t, r.Features.Analyzed)
	}
	assert.Equal(t, []string{"a", "b"}, plan.OrderedTrackIDs)
}

func TestSessionPlanDegradesFailedLoads(t *testing.T) {
	s := newTestSession(TrackLoaderFunc(func(ctx context.Context, track *Track) ([]float64, int, error) {
		if track.ID == "broken" {
			return nil, 0, errors.New("stream stalled")
		}
		return nil, 0, errors.New("also unreadable")
	}))

	tracks := []Track{
		bpmTrack("a", 120),
		{ID: "broken", DurationMs: 180000},
		bpmTrack("c", 124),
	}

	plan, results, err := s.Plan(context.Background(), tracks)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Pre-analyzed tracks untouched, the failed load degraded
	assert.NoError(t, results[0].Error)
	assert.Error(t, results[1].Error)
	assert.False(t, results[1].Features.Analyzed)
	assert.Equal(t, analysis.DefaultBPM, results[1].Features.BPM)

	assertPermutation(t, tracks, plan.OrderedTrackIDs)
}

func TestSessionSeedsDeclaredMetadata(t *testing.T) {
	s := newTestSession(TrackLoaderFunc(func(ctx context.Context, track *Track) ([]float64, int, error) {
		t.Errorf("loader called for seeded track %s", track.ID)
		return nil, 0, errors.New("unexpected load")
	}))

	tracks := []Track{
		{ID: "a", DurationMs: 200000, DeclaredBPM: 126, DeclaredKey: "Am"},
		{ID: "b", DurationMs: 210000, DeclaredBPM: 128, DeclaredKey: "Em"},
	}

	plan, results, err := s.Plan(context.Background(), tracks)
	require.NoError(t, err)

	assert.Equal(t, 126.0, results[0].Features.BPM)
	assert.Equal(t, analysis.KeyA, results[0].Features.Key)
	assert.Equal(t, analysis.ModeMinor, results[0].Features.Mode)
	assert.Equal(t, []string{"a", "b"}, plan.OrderedTrackIDs)
}

func TestSessionSupersede(t *testing.T) {
	started := make(chan struct{})
	s := newTestSession(TrackLoaderFunc(func(ctx context.Context, track *Track) ([]float64, int, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return nil, 0, ctx.Err()
	}))

	type outcome struct {
		plan *MixPlan
		err  error
	}
	firstDone := make(chan outcome, 1)

	go func() {
		plan, _, err := s.Plan(context.Background(), []Track{
			{ID: "a", DurationMs: 100000},
			{ID: "b", DurationMs: 100000},
		})
		firstDone <- outcome{plan, err}
	}()

	<-started

	// Superseding run uses pre-analyzed tracks so it finishes without
	// the blocked loader
	plan, _, err := s.Plan(context.Background(), []Track{bpmTrack("x", 120), bpmTrack("y", 124)})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, plan.OrderedTrackIDs)

	select {
	case first := <-firstDone:
		assert.ErrorIs(t, first.err, ErrSuperseded)
		assert.Nil(t, first.plan)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded run never returned")
	}
}

func TestSessionCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSession(TrackLoaderFunc(func(ctx context.Context, track *Track) ([]float64, int, error) {
		<-ctx.Done()
		return nil, 0, ctx.Err()
	}))

	done := make(chan error, 1)
	go func() {
		_, _, err := s.Plan(ctx, []Track{
			{ID: "a", DurationMs: 100000},
			{ID: "b", DurationMs: 100000},
		})
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("canceled run never returned")
	}
}
