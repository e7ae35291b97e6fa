package engine

import "fmt"

// Kind classifies a load error surfaced to the player.
type Kind int

const (
	// KindNetwork is a manifest or segment fetch failure that survived the
	// automatic restart.
	KindNetwork Kind = iota
	// KindMedia is a decode/playback failure that survived the in-place
	// recovery attempt.
	KindMedia
	// KindUnsupported means the environment cannot play the format at all.
	KindUnsupported
	// KindFatal is any other unrecoverable engine failure.
	KindFatal
)

// String returns the metric/log label for the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMedia:
		return "media"
	case KindUnsupported:
		return "unsupported"
	default:
		return "fatal"
	}
}

// Error is a load failure with its taxonomy kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
