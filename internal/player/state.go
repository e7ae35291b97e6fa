package player

import "hls-player/internal/engine"

// State is the playback state machine position.
type State int

const (
	// StateIdle: no source bound yet.
	StateIdle State = iota
	// StateLoading: source bound, manifest not ready.
	StateLoading
	// StateReadyPaused: playable, not playing.
	StateReadyPaused
	// StateReadyPlaying: playable and playing.
	StateReadyPlaying
	// StateEnded: end of media reached.
	StateEnded
	// StateError: unrecoverable load failure.
	StateError
)

// String returns the wire/log name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReadyPaused:
		return "ready_paused"
	case StateReadyPlaying:
		return "ready_playing"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the controller's state, handed to
// observers on every change.
type Snapshot struct {
	State        State
	IsPlaying    bool
	CurrentTime  float64
	Duration     float64
	Volume       float64
	IsMuted      bool
	IsFullscreen bool
	IsTheater    bool
	Err          *engine.Error
}

// Loading reports whether the surface should show the loading overlay.
func (s Snapshot) Loading() bool {
	return s.State == StateIdle || s.State == StateLoading
}
