package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"hls-player/internal/media"
	"hls-player/internal/platform/metrics"
)

// Loader owns one load pipeline: it selects the engine for a source, runs it,
// and applies the one-shot recovery policy per error class before promoting
// anything to a user-visible error. Exactly one Loader is alive per mounted
// player; changing the source means closing this Loader and building a new
// one.
type Loader struct {
	id     string
	el     media.Element
	source string
	cfg    Config
	log    *slog.Logger
	met    *metrics.Metrics

	onReady func()
	onError func(*Error)

	mu             sync.Mutex
	eng            StreamEngine
	ready          bool
	netRestarted   bool
	mediaRecovered bool
	rebuilt        bool
	closed         bool

	closeOnce sync.Once
}

// NewLoader selects an engine for the element and source and returns an
// unstarted Loader. Metrics may be nil to disable metric recording. It fails
// only when the environment cannot play the format at all.
func NewLoader(el media.Element, sourceURL string, cfg Config, log *slog.Logger, met *metrics.Metrics, onReady func(), onError func(*Error)) (*Loader, error) {
	eng, err := Select(el, sourceURL, cfg)
	if err != nil {
		return nil, err
	}
	return &Loader{
		id:      uuid.NewString(),
		el:      el,
		source:  sourceURL,
		cfg:     cfg,
		log:     log,
		met:     met,
		onReady: onReady,
		onError: onError,
		eng:     eng,
	}, nil
}

// ID returns the pipeline identifier used for log correlation.
func (l *Loader) ID() string {
	return l.id
}

// Load starts the pipeline. Transitions are delivered through the onReady
// and onError callbacks, not a return value.
func (l *Loader) Load(ctx context.Context) {
	l.mu.Lock()
	eng := l.eng
	l.mu.Unlock()

	if l.met != nil {
		l.met.IncManifestLoads()
	}
	l.log.Info("load pipeline starting",
		slog.String("pipeline_id", l.id),
		slog.String("source", l.source),
	)
	eng.Attach(ctx, l.handleEvent)
}

// Tracks returns text tracks the engine discovered. Empty until ready.
func (l *Loader) Tracks() []Track {
	l.mu.Lock()
	eng := l.eng
	l.mu.Unlock()
	return eng.SubtitleTracks()
}

// Close releases the engine and detaches from the element. Safe to call
// multiple times; a late engine event after Close is ignored.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		eng := l.eng
		l.mu.Unlock()

		eng.Destroy()
		l.log.Debug("load pipeline closed", slog.String("pipeline_id", l.id))
	})
}

func (l *Loader) handleEvent(ev Event) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	if ev.Ready {
		already := l.ready
		l.ready = true
		l.mu.Unlock()
		if !already {
			l.log.Info("manifest ready", slog.String("pipeline_id", l.id))
			if l.onReady != nil {
				l.onReady()
			}
		}
		return
	}

	if !ev.Fatal {
		// Transient hiccup: restart loading, invisible to the caller.
		eng := l.eng
		l.mu.Unlock()
		l.log.Debug("transient load hiccup, restarting",
			slog.String("pipeline_id", l.id),
			slog.String("error", ev.Err.Error()),
		)
		if l.met != nil {
			l.met.IncLoadRecoveries(ev.Kind.String())
		}
		eng.StartLoad()
		return
	}

	switch ev.Kind {
	case KindNetwork:
		if !l.netRestarted {
			l.netRestarted = true
			eng := l.eng
			l.mu.Unlock()
			l.log.Warn("fatal network error, one restart attempt",
				slog.String("pipeline_id", l.id),
				slog.String("error", ev.Err.Error()),
			)
			if l.met != nil {
				l.met.IncLoadRecoveries(KindNetwork.String())
			}
			eng.StartLoad()
			return
		}
		l.mu.Unlock()
		l.surface(&Error{Kind: KindNetwork, Message: "manifest or segment fetch failed", Err: ev.Err})

	case KindMedia:
		if !l.mediaRecovered {
			l.mediaRecovered = true
			eng := l.eng
			l.mu.Unlock()
			l.log.Warn("fatal media error, one in-place recovery attempt",
				slog.String("pipeline_id", l.id),
				slog.String("error", ev.Err.Error()),
			)
			if l.met != nil {
				l.met.IncLoadRecoveries(KindMedia.String())
			}
			eng.RecoverMediaError()
			return
		}
		l.mu.Unlock()
		l.surface(&Error{Kind: KindMedia, Message: "decode failure", Err: ev.Err})

	case KindUnsupported:
		l.mu.Unlock()
		l.surface(&Error{Kind: KindUnsupported, Message: "format not playable in this environment", Err: ev.Err})

	default:
		// Any other fatal error: destroy the engine; reconstruct a fresh one
		// against the same source at most once.
		if !l.rebuilt {
			l.rebuilt = true
			old := l.eng
			l.mu.Unlock()

			old.Destroy()
			fresh, err := Select(l.el, l.source, l.cfg)
			if err != nil {
				l.surface(&Error{Kind: KindFatal, Message: "engine reconstruction failed", Err: err})
				return
			}

			l.mu.Lock()
			if l.closed {
				l.mu.Unlock()
				fresh.Destroy()
				return
			}
			l.eng = fresh
			l.mu.Unlock()

			l.log.Warn("fatal engine error, reconstructing engine",
				slog.String("pipeline_id", l.id),
				slog.String("error", ev.Err.Error()),
			)
			if l.met != nil {
				l.met.IncLoadRecoveries(KindFatal.String())
			}
			fresh.Attach(context.Background(), l.handleEvent)
			return
		}
		l.mu.Unlock()
		l.surface(&Error{Kind: KindFatal, Message: "playback engine failed", Err: ev.Err})
	}
}

func (l *Loader) surface(err *Error) {
	l.log.Error("load error surfaced",
		slog.String("pipeline_id", l.id),
		slog.String("kind", err.Kind.String()),
		slog.String("error", err.Error()),
	)
	if l.met != nil {
		l.met.IncFatalErrors(err.Kind.String())
	}
	if l.onError != nil {
		l.onError(err)
	}
}
