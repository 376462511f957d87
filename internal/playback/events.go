package playback

import "github.com/crossfade/automix/pkg/mix"

// EventType names a transport event
type EventType string

const (
	// EventTrackChanged fires when the active track index advances
	EventTrackChanged EventType = "trackChanged"
	// EventTransitionStarted fires when a planned transition begins
	EventTransitionStarted EventType = "transitionStarted"
	// EventTransitionEnded fires when a transition completes normally
	EventTransitionEnded EventType = "transitionEnded"
	// EventTrackLoadFailed fires per failed load attempt
	EventTrackLoadFailed EventType = "trackLoadFailed"
	// EventProgress fires every tick while playing
	EventProgress EventType = "progress"
	// EventPlaybackFailed fires when every remaining track failed and
	// the transport goes Idle
	EventPlaybackFailed EventType = "playbackFailed"
)

// Event is a transport notification for UI and visualization layers.
// The engine's correctness never depends on anyone consuming them.
type Event struct {
	Type       EventType
	TrackIndex int
	TrackID    string
	Attempt    int
	PositionMs int64
	Transition *mix.Transition
	Err        error
}

// EventSink receives transport events. Must not block; the engine calls
// it synchronously from its tick loop.
type EventSink func(Event)
