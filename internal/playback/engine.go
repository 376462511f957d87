// Package playback executes a MixPlan in real time: one processing
// chain per planned track (EQ, gain, tempo) on a shared mix bus, with
// the plan's transitions driven as scheduled parameter ramps against a
// monotonic transport clock.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/crossfade/automix/pkg/logging"
	"github.com/crossfade/automix/pkg/mix"
	"github.com/crossfade/automix/pkg/mix/compat"
)

// State is the engine's transport state
type State string

const (
	StateIdle    State = "Idle"
	StateLoaded  State = "Loaded"
	StatePlaying State = "Playing"
	StatePaused  State = "Paused"
)

// ErrNotLoaded rejects transport operations before a plan is loaded
var ErrNotLoaded = errors.New("no mix plan loaded")

// ErrAllTracksFailed is the terminal playback error: every remaining
// track in the plan failed to load
var ErrAllTracksFailed = errors.New("every remaining track failed to load")

// SourceOpener obtains a seekable byte stream for a track's source ref.
// Satisfied by catalog implementations.
type SourceOpener interface {
	OpenStream(ctx context.Context, sourceRef string) (io.ReadSeekCloser, error)
}

// Config tunes the playback engine
type Config struct {
	// TickInterval is the expected cadence of Tick calls, sub-100ms
	TickInterval time.Duration
	// TempoRampSteps quantizes beatmatch tempo ramps
	TempoRampSteps int
	Retry          RetryPolicy
}

// DefaultConfig returns the standard engine settings
func DefaultConfig() Config {
	return Config{
		TickInterval:   50 * time.Millisecond,
		TempoRampSteps: 10,
		Retry:          DefaultRetryPolicy(),
	}
}

// Snapshot is a read-only copy of the engine's playback state
type Snapshot struct {
	State             State
	CurrentTrackIndex int
	PositionMs        int64
	Transitioning     bool
	Chains            []ChainParams
}

// transitionRun tracks the in-flight transition
type transitionRun struct {
	fromSlot     int
	toSlot       int
	transition   mix.Transition
	startClockMs int64
	endClockMs   int64
}

// Engine drives one loaded mix. It is single-threaded by design: all
// methods must be called from the same goroutine (or externally
// serialized), and the engine advances only on Tick.
type Engine struct {
	config Config
	clock  Clock
	opener SourceOpener
	sink   EventSink
	logger logging.Logger

	plan    *mix.MixPlan
	tracks  []mix.Track // plan order
	chains  []chain
	ramps   []ramp
	current *transitionRun

	state        State
	currentIndex int
	positionMs   int64
	lastTickMs   int64
	pausedAtMs   int64
	beatmatchOn  bool
	terminalErr  error
}

// NewEngine creates a playback engine. The sink may be nil.
func NewEngine(config Config, clock Clock, opener SourceOpener, sink EventSink, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if clock == nil {
		clock = NewRealClock()
	}
	return &Engine{
		config:      config,
		clock:       clock,
		opener:      opener,
		sink:        sink,
		state:       StateIdle,
		beatmatchOn: true,
		logger: logger.WithFields(logging.Fields{
			"component": "playback_engine",
		}),
	}
}

// Load binds a plan to the engine and instantiates one silent chain per
// planned track. Tracks must cover every id the plan orders.
func (e *Engine) Load(plan *mix.MixPlan, tracks []mix.Track) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("refusing invalid plan: %w", err)
	}

	byID := make(map[string]*mix.Track, len(tracks))
	for i := range tracks {
		byID[tracks[i].ID] = &tracks[i]
	}

	ordered := make([]mix.Track, len(plan.OrderedTrackIDs))
	for i, id := range plan.OrderedTrackIDs {
		t, ok := byID[id]
		if !ok {
			return fmt.Errorf("plan references unknown track %s", id)
		}
		ordered[i] = *t
	}

	e.unloadAll()
	e.plan = plan
	e.tracks = ordered
	e.chains = make([]chain, len(ordered))
	for i := range e.chains {
		e.chains[i].params = neutralParams()
	}
	e.ramps = nil
	e.current = nil
	e.state = StateLoaded
	e.currentIndex = 0
	e.positionMs = 0
	e.terminalErr = nil

	e.logger.Info("Mix loaded", logging.Fields{
		"plan_id":     plan.ID,
		"track_count": len(ordered),
	})

	return nil
}

// Play starts or resumes playback
func (e *Engine) Play(ctx context.Context) error {
	switch e.state {
	case StatePaused:
		e.shiftAutomation(e.nowMs() - e.pausedAtMs)
		e.lastTickMs = e.nowMs()
		e.state = StatePlaying
		return nil
	case StateLoaded:
	default:
		if e.state == StatePlaying {
			return nil
		}
		return ErrNotLoaded
	}

	slot, err := e.activateFrom(ctx, e.currentIndex)
	if err != nil {
		return err
	}

	e.currentIndex = slot
	e.positionMs = 0
	e.lastTickMs = e.nowMs()
	e.state = StatePlaying
	e.emit(Event{Type: EventTrackChanged, TrackIndex: slot, TrackID: e.tracks[slot].ID})
	return nil
}

// Pause halts transport advancement, keeping all chains loaded
func (e *Engine) Pause() error {
	if e.state != StatePlaying {
		return ErrNotLoaded
	}
	e.state = StatePaused
	e.pausedAtMs = e.nowMs()
	return nil
}

// shiftAutomation moves the in-flight transition and every scheduled
// ramp forward by the time the transport spent paused. Ramps are
// scheduled against the wall clock, which keeps running while paused;
// without the shift a resume would fast-forward the automation.
func (e *Engine) shiftAutomation(pausedMs int64) {
	if pausedMs <= 0 {
		return
	}
	if e.current != nil {
		e.current.startClockMs += pausedMs
		e.current.endClockMs += pausedMs
	}
	for i := range e.ramps {
		e.ramps[i].startMs += pausedMs
		e.ramps[i].endMs += pausedMs
	}
}

// Stop unloads everything and returns the engine to Idle
func (e *Engine) Stop() {
	e.unloadAll()
	e.plan = nil
	e.tracks = nil
	e.chains = nil
	e.ramps = nil
	e.current = nil
	e.state = StateIdle
	e.positionMs = 0
	e.currentIndex = 0
}

// Err returns the terminal playback error, if playback ended abnormally
func (e *Engine) Err() error {
	return e.terminalErr
}

// Tick advances the transport against the clock. Call it on a sub-100ms
// cadence; the exact timing does not matter because automation is
// evaluated against the clock, not the tick count.
func (e *Engine) Tick(ctx context.Context) error {
	if e.state != StatePlaying {
		return nil
	}

	now := e.nowMs()
	elapsed := now - e.lastTickMs
	e.lastTickMs = now
	e.positionMs += elapsed

	applyRamps(e.chains, e.ramps, now)

	if e.current != nil && now >= e.current.endClockMs {
		e.finishTransition(now)
	}

	if e.current == nil {
		if err := e.maybeStartTransition(ctx, now); err != nil {
			return err
		}
	}

	// End of the final track
	if e.current == nil && e.state == StatePlaying {
		track := &e.tracks[e.currentIndex]
		if e.currentIndex == len(e.tracks)-1 && track.DurationMs > 0 && e.positionMs >= track.DurationMs {
			e.logger.Info("Mix finished")
			e.Stop()
			return nil
		}
	}

	e.emit(Event{Type: EventProgress, TrackIndex: e.currentIndex, PositionMs: e.positionMs})
	return nil
}

// Seek moves the position within the current track. Seeking during a
// transition aborts it and resumes single-track playback on the current
// track.
func (e *Engine) Seek(ms int64) error {
	if e.state != StatePlaying && e.state != StatePaused {
		return ErrNotLoaded
	}

	if e.current != nil {
		e.cancelTransition(e.current.fromSlot)
	}
	if ms < 0 {
		ms = 0
	}
	e.positionMs = ms
	return nil
}

// Skip jumps to another planned track. Skipping during a transition
// cancels it deterministically: all scheduled ramps are dropped, the
// outgoing chain is silenced and unloaded, and the target plays alone.
func (e *Engine) Skip(ctx context.Context, toIndex int) error {
	if e.state != StatePlaying && e.state != StatePaused {
		return ErrNotLoaded
	}
	if toIndex < 0 || toIndex >= len(e.tracks) {
		return fmt.Errorf("track index %d out of range", toIndex)
	}

	if e.current != nil {
		e.cancelTransition(-1)
	}

	// Silence everything, then bring up the target
	for i := range e.chains {
		if i != toIndex {
			e.chains[i].unload()
		}
	}

	slot, err := e.activateFrom(ctx, toIndex)
	if err != nil {
		return err
	}

	e.currentIndex = slot
	e.positionMs = 0
	e.emit(Event{Type: EventTrackChanged, TrackIndex: slot, TrackID: e.tracks[slot].ID})
	return nil
}

// setEQ adjusts one band of the active track's chain. Rejected while a
// transition owns the chain parameters.
func (e *Engine) setEQ(band chainParam, db float64) {
	if e.current != nil {
		e.logger.Warn("EQ change ignored during transition")
		return
	}
	if e.state != StatePlaying && e.state != StatePaused {
		return
	}
	c := &e.chains[e.currentIndex]
	switch band {
	case paramEQLow:
		c.params.EQLowDB = db
	case paramEQMid:
		c.params.EQMidDB = db
	case paramEQHigh:
		c.params.EQHighDB = db
	}
}

// SetEQLow adjusts the active chain's low band
func (e *Engine) SetEQLow(db float64) { e.setEQ(paramEQLow, db) }

// SetEQMid adjusts the active chain's mid band
func (e *Engine) SetEQMid(db float64) { e.setEQ(paramEQMid, db) }

// SetEQHigh adjusts the active chain's high band
func (e *Engine) SetEQHigh(db float64) { e.setEQ(paramEQHigh, db) }

// SetTempo nudges the active track's tempo ratio. Rejected while a
// transition owns the chain parameters.
func (e *Engine) SetTempo(ratio float64) {
	if e.current != nil {
		e.logger.Warn("Tempo change ignored during transition")
		return
	}
	if e.state != StatePlaying && e.state != StatePaused {
		return
	}
	if ratio <= 0 {
		return
	}
	e.chains[e.currentIndex].params.TempoRatio = ratio
}

// SetBeatmatch toggles automatic tempo matching in transitions
func (e *Engine) SetBeatmatch(on bool) {
	e.beatmatchOn = on
}

// State returns a read-only snapshot of the playback state
func (e *Engine) State() Snapshot {
	s := Snapshot{
		State:             e.state,
		CurrentTrackIndex: e.currentIndex,
		PositionMs:        e.positionMs,
		Transitioning:     e.current != nil,
	}
	s.Chains = make([]ChainParams, len(e.chains))
	for i := range e.chains {
		s.Chains[i] = e.chains[i].params
	}
	return s
}

func (e *Engine) nowMs() int64 {
	return e.clock.Now().Milliseconds()
}

func (e *Engine) emit(ev Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

func (e *Engine) unloadAll() {
	for i := range e.chains {
		e.chains[i].unload()
	}
}

// loadChain loads one slot's source with the retry policy, emitting a
// trackLoadFailed event per failed attempt.
func (e *Engine) loadChain(ctx context.Context, slot int) error {
	track := &e.tracks[slot]
	if e.chains[slot].loaded {
		return nil
	}

	var lastErr error
	attempts := e.config.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := e.config.Retry.Backoff(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		source, err := e.opener.OpenStream(ctx, track.SourceRef)
		if err == nil {
			e.chains[slot].load(track.ID, source)
			return nil
		}

		lastErr = err
		e.logger.Warn("Chain load attempt failed", logging.Fields{
			"track_id": track.ID,
			"attempt":  attempt,
			"error":    err.Error(),
		})
		e.emit(Event{Type: EventTrackLoadFailed, TrackIndex: slot, TrackID: track.ID, Attempt: attempt, Err: err})
	}

	e.chains[slot].failed = true
	return lastErr
}

// activateFrom loads the first loadable chain at or after the given
// slot and brings it to full gain. Exhausting the plan is the terminal
// failure: the engine goes Idle with ErrAllTracksFailed.
func (e *Engine) activateFrom(ctx context.Context, slot int) (int, error) {
	for ; slot < len(e.tracks); slot++ {
		if e.chains[slot].failed {
			continue
		}
		if err := e.loadChain(ctx, slot); err != nil {
			if ctx.Err() != nil {
				return 0, err
			}
			continue
		}
		e.chains[slot].params.Gain = 1.0
		return slot, nil
	}

	e.terminalErr = ErrAllTracksFailed
	e.emit(Event{Type: EventPlaybackFailed, Err: ErrAllTracksFailed})
	e.Stop()
	return 0, ErrAllTracksFailed
}

// maybeStartTransition fires the planned transition once the position
// crosses its transition point
func (e *Engine) maybeStartTransition(ctx context.Context, nowMs int64) error {
	if e.currentIndex >= len(e.tracks)-1 {
		return nil
	}

	tr := e.plan.Transitions[e.currentIndex]
	if e.positionMs < tr.TransitionPointMs {
		return nil
	}

	from := e.currentIndex
	to := from + 1

	if err := e.loadChain(ctx, to); err != nil {
		if ctx.Err() != nil {
			return err
		}
		// The planned next track is gone: cut straight to the first
		// track that still loads
		e.chains[from].unload()
		slot, actErr := e.activateFrom(ctx, to+1)
		if actErr != nil {
			return actErr
		}
		e.currentIndex = slot
		e.positionMs = 0
		e.emit(Event{Type: EventTrackChanged, TrackIndex: slot, TrackID: e.tracks[slot].ID})
		return nil
	}

	e.current = &transitionRun{
		fromSlot:     from,
		toSlot:       to,
		transition:   tr,
		startClockMs: nowMs,
		endClockMs:   nowMs + tr.DurationMs,
	}
	e.scheduleTransitionRamps(e.current)

	e.logger.Info("Transition started", logging.Fields{
		"type":        string(tr.Type),
		"from":        tr.FromTrack,
		"to":          tr.ToTrack,
		"duration_ms": tr.DurationMs,
	})
	e.emit(Event{Type: EventTransitionStarted, TrackIndex: from, Transition: &tr})
	return nil
}

// scheduleTransitionRamps expresses the transition's automation as
// clock-scheduled ramps on the two involved slots
func (e *Engine) scheduleTransitionRamps(run *transitionRun) {
	tr := run.transition
	s := run.startClockMs
	end := run.endClockMs
	d := tr.DurationMs
	mid := s + d/2
	q1 := s + d/4
	q3 := s + 3*d/4

	out, in := run.fromSlot, run.toSlot
	e.ramps = e.ramps[:0]

	// Beatmatch tempo ramp: match the outgoing tempo at transition
	// start, release to native over the second half in discrete steps
	if e.beatmatchOn && math.Abs(tr.BPMDelta) > 2 {
		switch tr.Type {
		case mix.BeatmatchBlend, mix.BeatmatchFade, mix.TempoAdjust:
			inBPM := e.tracks[in].BPM()
			outBPM := e.tracks[out].BPM()
			if inBPM > 0 && outBPM > 0 {
				ratio := outBPM / inBPM
				e.ramps = append(e.ramps,
					ramp{slot: in, param: paramTempo, startMs: s, endMs: s, from: 1, to: ratio},
					ramp{slot: in, param: paramTempo, startMs: mid, endMs: end, from: ratio, to: 1, steps: e.config.TempoRampSteps},
				)
			}
		}
	}

	// Harmonic EQ shaping on the incoming chain
	switch tr.KeyCompatibility {
	case compat.KeyClash:
		e.ramps = append(e.ramps, ramp{slot: in, param: paramEQMid, startMs: s, endMs: s, from: 0, to: -3})
	case compat.KeyCompatible, compat.KeyPerfect:
		e.ramps = append(e.ramps, ramp{slot: in, param: paramEQHigh, startMs: s, endMs: s, from: 0, to: 2})
	}

	// Gain curves per transition type
	switch tr.Type {
	case mix.BeatmatchBlend, mix.BeatmatchFade:
		e.ramps = append(e.ramps,
			ramp{slot: out, param: paramGain, startMs: s, endMs: end, from: 1, to: 0, curve: curveEqualPowerOut},
			ramp{slot: in, param: paramGain, startMs: s, endMs: end, from: 0, to: 1, curve: curveEqualPowerIn},
		)
	case mix.CutEq:
		e.ramps = append(e.ramps,
			// Strip the outgoing track band by band before its gain goes
			ramp{slot: out, param: paramEQHigh, startMs: s, endMs: q1, from: 0, to: -12},
			ramp{slot: out, param: paramEQMid, startMs: s, endMs: mid, from: 0, to: -9},
			ramp{slot: in, param: paramGain, startMs: mid, endMs: end, from: 0.7, to: 1},
			ramp{slot: out, param: paramEQLow, startMs: mid, endMs: q3, from: 0, to: -12},
			ramp{slot: out, param: paramGain, startMs: mid, endMs: end, from: 1, to: 0},
		)
	default: // HarmonicFade, TempoAdjust, LongFade
		e.ramps = append(e.ramps,
			ramp{slot: out, param: paramGain, startMs: s, endMs: end, from: 1, to: 0},
			ramp{slot: in, param: paramGain, startMs: s, endMs: end, from: 0, to: 1},
		)
	}
}

// finishTransition completes the handoff: the outgoing chain unloads
// and resets, the incoming chain becomes the active track at full gain
// and neutral EQ/tempo.
func (e *Engine) finishTransition(nowMs int64) {
	run := e.current
	applyRamps(e.chains, e.ramps, run.endClockMs)

	e.ramps = e.ramps[:0]
	e.chains[run.fromSlot].unload()

	incoming := &e.chains[run.toSlot]
	incoming.params = neutralParams()
	incoming.params.Gain = 1.0

	e.currentIndex = run.toSlot
	// The incoming track has been audible since the transition began
	e.positionMs = run.transition.DurationMs + (nowMs - run.endClockMs)
	e.current = nil

	e.logger.Info("Transition ended", logging.Fields{
		"now_playing": e.tracks[e.currentIndex].ID,
	})
	e.emit(Event{Type: EventTransitionEnded, TrackIndex: e.currentIndex, Transition: &run.transition})
	e.emit(Event{Type: EventTrackChanged, TrackIndex: e.currentIndex, TrackID: e.tracks[e.currentIndex].ID})
}

// cancelTransition aborts the in-flight transition: every scheduled
// ramp is dropped and no further automation from it can fire. keepSlot
// names the chain that should survive at full gain, -1 to keep the
// transition's outgoing track.
func (e *Engine) cancelTransition(keepSlot int) {
	run := e.current
	if run == nil {
		return
	}

	e.ramps = e.ramps[:0]
	e.current = nil

	if keepSlot == run.fromSlot {
		// Abort back to the outgoing track
		e.chains[run.toSlot].unload()
		e.chains[run.fromSlot].params = neutralParams()
		e.chains[run.fromSlot].params.Gain = 1.0
		e.currentIndex = run.fromSlot
	} else {
		// The caller takes over chain selection; silence both parties
		e.chains[run.fromSlot].unload()
		resetChain := &e.chains[run.toSlot]
		resetChain.params = neutralParams()
	}

	e.logger.Debug("Transition canceled")
}
