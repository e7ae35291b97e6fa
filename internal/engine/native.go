package engine

import (
	"context"
	"sync"

	"hls-player/internal/media"
)

// nativeEngine binds the manifest URL directly to an element that can play
// HLS itself. No software pipeline is instantiated; the engine only
// translates element events into engine events.
type nativeEngine struct {
	el     media.Element
	source string

	mu        sync.Mutex
	cb        EventFunc
	unsub     func()
	destroyed bool
}

func newNativeEngine(el media.Element, sourceURL string) *nativeEngine {
	return &nativeEngine{el: el, source: sourceURL}
}

// Attach implements StreamEngine.Attach.
func (n *nativeEngine) Attach(ctx context.Context, cb EventFunc) {
	n.mu.Lock()
	n.cb = cb
	n.unsub = n.el.Subscribe(n.onElementEvent)
	n.mu.Unlock()

	n.el.SetSource(n.source)
}

// SubtitleTracks implements StreamEngine.SubtitleTracks. The native path
// exposes no discovered tracks; callers fall back to the conventional
// cue-sheet location.
func (n *nativeEngine) SubtitleTracks() []Track {
	return nil
}

// StartLoad implements StreamEngine.StartLoad: re-bind the source and return
// to the previous position.
func (n *nativeEngine) StartLoad() {
	pos := n.el.CurrentTime()
	n.el.SetSource(n.source)
	if pos > 0 {
		n.el.Seek(pos)
	}
}

// RecoverMediaError implements StreamEngine.RecoverMediaError. For the
// native path recovery is the same re-bind dance as a load restart.
func (n *nativeEngine) RecoverMediaError() {
	n.StartLoad()
}

// Destroy implements StreamEngine.Destroy.
func (n *nativeEngine) Destroy() {
	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		return
	}
	n.destroyed = true
	unsub := n.unsub
	n.unsub = nil
	n.cb = nil
	n.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	n.el.SetSource("")
}

func (n *nativeEngine) onElementEvent(ev media.Event) {
	n.mu.Lock()
	cb := n.cb
	destroyed := n.destroyed
	n.mu.Unlock()
	if destroyed || cb == nil {
		return
	}

	switch ev.Kind {
	case media.EventLoadedMetadata:
		cb(Event{Ready: true})
	case media.EventStalled:
		cb(Event{Kind: KindNetwork, Fatal: false, Err: errStalled})
	case media.EventError:
		cb(Event{Kind: classifyElementError(ev.Code), Fatal: ev.Fatal, Err: ev.Err})
	}
}

func classifyElementError(code media.ErrorCode) Kind {
	switch code {
	case media.ErrCodeNetwork:
		return KindNetwork
	case media.ErrCodeDecode:
		return KindMedia
	case media.ErrCodeSrcNotSupported:
		return KindUnsupported
	default:
		return KindFatal
	}
}
