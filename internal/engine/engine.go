package engine

import (
	"context"
	"net/http"
	"time"

	"hls-player/internal/media"
)

// Event is a notification from a StreamEngine to its owner.
type Event struct {
	// Ready fires once the manifest is parsed (software engine) or metadata
	// is loaded (native path).
	Ready bool
	// Fatal marks an error the engine could not absorb on its own.
	Fatal bool
	// Kind classifies the error when Ready is false and Err is non-nil.
	Kind Kind
	Err  error
}

// EventFunc receives engine events. Implementations must tolerate calls from
// the engine's internal goroutines.
type EventFunc func(Event)

// StreamEngine drives one media element against one manifest URL. Exactly one
// engine is attached per element at a time; Destroy must be called before a
// replacement is attached.
type StreamEngine interface {
	// Attach binds the engine to its element and starts loading the manifest.
	// Events (ready, errors) are delivered to cb.
	Attach(ctx context.Context, cb EventFunc)

	// SubtitleTracks returns text tracks discovered during manifest parsing.
	// Empty until the engine reports ready.
	SubtitleTracks() []Track

	// StartLoad restarts the network load pipeline, preserving the playback
	// position. Used for network error recovery.
	StartLoad()

	// RecoverMediaError performs one in-place recovery from a decode error.
	RecoverMediaError()

	// Destroy releases the engine and detaches it from the element.
	// Idempotent.
	Destroy()
}

// Config tunes the software engine.
type Config struct {
	// Client is the HTTP client for manifest fetches. Defaults to a client
	// with FetchTimeout.
	Client *http.Client
	// FetchTimeout bounds a single manifest fetch.
	FetchTimeout time.Duration
	// MaxBufferSeconds is the forward buffer target.
	MaxBufferSeconds float64
	// SoftwareEnabled permits falling back to the software engine when the
	// element has no native support.
	SoftwareEnabled bool
}

// DefaultConfig returns the buffering defaults.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:     10 * time.Second,
		MaxBufferSeconds: 30,
		SoftwareEnabled:  true,
	}
}

// Select resolves the engine for the element and source: the native path when
// the element reports support for the HLS mime type, otherwise the software
// engine. This is the single place engine selection happens.
func Select(el media.Element, sourceURL string, cfg Config) (StreamEngine, error) {
	if el.CanPlayType(hlsMimeType) {
		return newNativeEngine(el, sourceURL), nil
	}
	if !cfg.SoftwareEnabled {
		return nil, &Error{Kind: KindUnsupported, Message: "environment cannot play HLS"}
	}
	return newSoftwareEngine(el, sourceURL, cfg), nil
}
