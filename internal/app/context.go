// Package app wires the catalog, analyzer, planner and playback engine
// into the command-line application lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crossfade/automix/configs"
	"github.com/crossfade/automix/internal/playback"
	"github.com/crossfade/automix/pkg/audio/analysis"
	"github.com/crossfade/automix/pkg/audio/decode"
	"github.com/crossfade/automix/pkg/catalog"
	"github.com/crossfade/automix/pkg/logging"
	"github.com/crossfade/automix/pkg/mix"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile   string
	LibraryDir   string
	OutputFile   string
	OutputFormat string
	Verbose      bool
	Quiet        bool
	NoBeatmatch  bool

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// MixApp handles the mixing application lifecycle
type MixApp struct {
	ctx      *Context
	config   *configs.Config
	logger   logging.Logger
	catalog  *catalog.FSCatalog
	analyzer *analysis.Analyzer
	session  *mix.Session
}

// NewMixApp creates a new mixing application
func NewMixApp(ctx *Context) (*MixApp, error) {
	logger := setupLogging(ctx)
	ctx.Logger = logger

	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	ctx.Config = config

	app := &MixApp{
		ctx:      ctx,
		config:   config,
		logger:   logger,
		analyzer: analysis.NewAnalyzer(analysisConfig(config), analysis.NewMemoryCache(), logger),
	}

	logger.Info("Mix application initialized", logging.Fields{
		"config_file":   ctx.ConfigFile,
		"library_dir":   ctx.LibraryDir,
		"output_format": ctx.OutputFormat,
	})

	return app, nil
}

// setupLogging configures the process logger from the CLI context
func setupLogging(ctx *Context) logging.Logger {
	level := "info"
	if ctx.Verbose {
		level = "debug"
	} else if ctx.Quiet {
		level = "error"
	}

	logging.Init(logging.Config{
		Level:      level,
		OutputPath: os.Getenv("AUTOMIX_LOG_FILE"),
	})
	return logging.NewDefaultLogger()
}

// AnalyzeFile decodes one local audio file and extracts its features
func (app *MixApp) AnalyzeFile(ctx context.Context, path string) (*analysis.TrackFeatures, error) {
	buf, err := decode.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return app.analyzer.Analyze(ctx, buf.Samples, buf.SampleRate), nil
}

// openCatalog scans the configured library directory
func (app *MixApp) openCatalog(ctx context.Context) error {
	if app.catalog != nil {
		return nil
	}
	if app.ctx.LibraryDir == "" {
		return fmt.Errorf("no library directory configured")
	}

	cat := catalog.NewFSCatalog(app.ctx.LibraryDir, app.logger)
	if err := cat.Scan(ctx); err != nil {
		return fmt.Errorf("failed to scan library: %w", err)
	}
	app.catalog = cat
	return nil
}

// ListTracks returns the scanned library contents
func (app *MixApp) ListTracks(ctx context.Context) ([]*catalog.TrackInfo, error) {
	if err := app.openCatalog(ctx); err != nil {
		return nil, err
	}
	return app.catalog.ListTracks(ctx)
}

// loadTrack decodes a track's catalog stream into mono samples. It is
// the session's TrackLoader.
func (app *MixApp) loadTrack(ctx context.Context, track *mix.Track) ([]float64, int, error) {
	stream, err := app.catalog.OpenStream(ctx, track.SourceRef)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	var buf *decode.Buffer
	switch strings.ToLower(filepath.Ext(track.SourceRef)) {
	case ".mp3":
		buf, err = decode.MP3(stream)
	case ".wav":
		buf, err = decode.WAV(stream)
	default:
		return nil, 0, fmt.Errorf("unsupported audio format: %s", track.SourceRef)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", track.SourceRef, err)
	}
	return buf.Samples, buf.SampleRate, nil
}

// PlanMix analyzes the library and builds a mix plan over it
func (app *MixApp) PlanMix(ctx context.Context) (*mix.MixPlan, []mix.Track, []mix.AnalysisResult, error) {
	if err := app.openCatalog(ctx); err != nil {
		return nil, nil, nil, err
	}

	infos, err := app.catalog.ListTracks(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	tracks := make([]mix.Track, len(infos))
	for i, info := range infos {
		tracks[i] = mix.Track{
			ID:          info.ID,
			Title:       info.Title,
			Artist:      info.Artist,
			DurationMs:  info.DurationMs,
			SourceRef:   info.SourceRef,
			DeclaredBPM: info.DeclaredBPM,
			DeclaredKey: info.DeclaredKey,
		}
	}

	if app.session == nil {
		planner := mix.NewPlanner(plannerConfig(app.config), app.logger)
		app.session = mix.NewSession(sessionConfig(app.config), app.analyzer, planner, mix.TrackLoaderFunc(app.loadTrack), app.logger)
	}

	plan, results, err := app.session.Plan(ctx, tracks)
	if err != nil {
		return nil, nil, results, err
	}
	return plan, tracks, results, nil
}

// PlayMix drives the playback engine over a plan until the mix finishes
// or the context is canceled
func (app *MixApp) PlayMix(ctx context.Context, plan *mix.MixPlan, tracks []mix.Track) error {
	if err := app.openCatalog(ctx); err != nil {
		return err
	}

	engine := playback.NewEngine(playbackConfig(app.config), nil, app.catalog, app.logEvent, app.logger)
	if err := engine.Load(plan, tracks); err != nil {
		return err
	}
	engine.SetBeatmatch(!app.ctx.NoBeatmatch)

	if err := engine.Play(ctx); err != nil {
		return err
	}

	tick := playbackConfig(app.config).TickInterval
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			engine.Stop()
			return ctx.Err()
		case <-ticker.C:
			if err := engine.Tick(ctx); err != nil {
				engine.Stop()
				return err
			}
			if engine.State().State == playback.StateIdle {
				return engine.Err()
			}
		}
	}
}

// logEvent surfaces transport events through the structured logger
func (app *MixApp) logEvent(ev playback.Event) {
	switch ev.Type {
	case playback.EventTrackChanged:
		app.logger.Info("Now playing", logging.Fields{
			"track_index": ev.TrackIndex,
			"track_id":    ev.TrackID,
		})
	case playback.EventTransitionStarted:
		app.logger.Info("Transition started", logging.Fields{
			"type":        string(ev.Transition.Type),
			"duration_ms": ev.Transition.DurationMs,
		})
	case playback.EventTrackLoadFailed:
		app.logger.Warn("Track load failed", logging.Fields{
			"track_id": ev.TrackID,
			"attempt":  ev.Attempt,
		})
	case playback.EventPlaybackFailed:
		app.logger.Error(ev.Err, "Playback failed")
	}
}

// WritePlan renders the plan in the requested format to the output file
// or stdout
func (app *MixApp) WritePlan(plan *mix.MixPlan) error {
	var data []byte
	var err error

	switch app.ctx.OutputFormat {
	case "yaml":
		data, err = plan.ToYAML()
	default:
		data, err = plan.ToJSON()
	}
	if err != nil {
		return fmt.Errorf("failed to format plan: %w", err)
	}

	if app.ctx.OutputFile != "" {
		dir := filepath.Dir(app.ctx.OutputFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		return os.WriteFile(app.ctx.OutputFile, data, 0o644)
	}

	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
