package media

import "context"

// EventKind identifies a media element event.
type EventKind int

const (
	// EventLoadedMetadata fires once the element knows the clip duration.
	EventLoadedMetadata EventKind = iota
	// EventTimeUpdate fires as the playback position advances.
	EventTimeUpdate
	// EventPlay fires when the element starts playing, whatever triggered it.
	EventPlay
	// EventPause fires when the element stops playing, whatever triggered it.
	EventPause
	// EventEnded fires when the playback position reaches the clip duration.
	EventEnded
	// EventStalled fires on a transient delivery stall (non-fatal).
	EventStalled
	// EventError fires when the element enters an error state.
	EventError
)

// ErrorCode classifies element errors, mirroring the platform media error codes.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeNetwork
	ErrCodeDecode
	ErrCodeSrcNotSupported
)

// Event is a single media element notification.
type Event struct {
	Kind     EventKind
	Time     float64
	Duration float64
	Code     ErrorCode
	Fatal    bool
	Err      error
}

// Element is the playback surface the pipeline drives. Exactly one
// PlaybackController owns an Element at a time; all mutations funnel through
// the controller's intent handlers. Implementations must deliver events
// without holding internal locks so handlers can call back into the element.
type Element interface {
	// SetSource binds or clears the media source URL. Binding a new source
	// resets the playback position.
	SetSource(url string)
	Source() string

	// CanPlayType reports whether the element can play the mime type natively.
	CanPlayType(mime string) bool

	// Play starts playback. It returns an error when the environment rejects
	// the attempt (e.g. an autoplay policy that disallows unmuted playback
	// without prior user interaction).
	Play(ctx context.Context) error
	Pause()

	Seek(seconds float64)
	CurrentTime() float64
	Duration() float64

	SetVolume(v float64)
	Volume() float64
	SetMuted(muted bool)
	Muted() bool

	// Subscribe registers an event handler and returns an unsubscribe func.
	// Handlers are invoked sequentially in subscription order.
	Subscribe(fn func(Event)) (unsubscribe func())
}
