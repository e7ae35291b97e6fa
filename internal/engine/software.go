package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"hls-player/internal/media"
)

var errStalled = errors.New("transient delivery stall")

const fetchRetryDelay = 500 * time.Millisecond

// softwareEngine loads and parses the manifest itself, the way a userland
// adaptive-streaming library does when the element has no native HLS
// support. A transient fetch failure is retried once internally before it is
// reported as fatal.
type softwareEngine struct {
	el     media.Element
	source string
	cfg    Config
	client *http.Client

	mu        sync.Mutex
	cb        EventFunc
	tracks    []Track
	mediaURL  string
	unsub     func()
	cancel    context.CancelFunc
	destroyed bool
	// gen guards in-flight loads: a load result is discarded when a restart
	// or Destroy superseded it.
	gen int
}

func newSoftwareEngine(el media.Element, sourceURL string, cfg Config) *softwareEngine {
	client := cfg.Client
	if client == nil {
		timeout := cfg.FetchTimeout
		if timeout <= 0 {
			timeout = DefaultConfig().FetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &softwareEngine{el: el, source: sourceURL, cfg: cfg, client: client}
}

// Attach implements StreamEngine.Attach.
func (s *softwareEngine) Attach(ctx context.Context, cb EventFunc) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cb = cb
	s.cancel = cancel
	s.unsub = s.el.Subscribe(s.onElementEvent)
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go s.load(ctx, gen, 0)
}

// SubtitleTracks implements StreamEngine.SubtitleTracks.
func (s *softwareEngine) SubtitleTracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Track(nil), s.tracks...)
}

// StartLoad implements StreamEngine.StartLoad.
func (s *softwareEngine) StartLoad() {
	s.mu.Lock()
	if s.destroyed || s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	pos := s.el.CurrentTime()
	go s.load(context.Background(), gen, pos)
}

// RecoverMediaError implements StreamEngine.RecoverMediaError: re-bind the
// already-resolved media playlist and return to the previous position.
func (s *softwareEngine) RecoverMediaError() {
	s.mu.Lock()
	mediaURL := s.mediaURL
	s.mu.Unlock()
	if mediaURL == "" {
		return
	}

	pos := s.el.CurrentTime()
	s.el.SetSource(mediaURL)
	if pos > 0 {
		s.el.Seek(pos)
	}
}

// Destroy implements StreamEngine.Destroy.
func (s *softwareEngine) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.gen++
	cancel := s.cancel
	unsub := s.unsub
	s.cancel = nil
	s.unsub = nil
	s.cb = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	s.el.SetSource("")
}

// load resolves the manifest (following a master playlist to its best
// variant), binds the element, and reports ready. resumeAt restores the
// playback position after a restart.
func (s *softwareEngine) load(ctx context.Context, gen int, resumeAt float64) {
	manifest, err := s.fetchManifest(ctx, s.source)
	if err == nil && manifest.Master {
		variant, ok := manifest.BestVariant()
		if !ok {
			err = fmt.Errorf("master playlist has no variants")
		} else {
			tracks := manifest.Tracks
			manifest, err = s.fetchManifest(ctx, variant.URI)
			if err == nil {
				manifest.Tracks = append(tracks, manifest.Tracks...)
			}
		}
	}

	s.mu.Lock()
	stale := gen != s.gen || s.destroyed
	cb := s.cb
	if !stale && err == nil {
		s.tracks = manifest.Tracks
		s.mediaURL = manifest.URL
	}
	s.mu.Unlock()

	if stale || cb == nil {
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		cb(Event{Kind: KindNetwork, Fatal: true, Err: err})
		return
	}

	s.el.SetSource(manifest.URL)
	if resumeAt > 0 {
		s.el.Seek(resumeAt)
	}
	cb(Event{Ready: true})
}

// fetchManifest GETs and parses a playlist, retrying once on a transient
// fetch failure so a single hiccup never surfaces.
func (s *softwareEngine) fetchManifest(ctx context.Context, url string) (*Manifest, error) {
	text, err := s.fetchText(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fetchRetryDelay):
		}
		text, err = s.fetchText(ctx, url)
		if err != nil {
			return nil, err
		}
	}
	return ParseManifest(url, text)
}

func (s *softwareEngine) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *softwareEngine) onElementEvent(ev media.Event) {
	s.mu.Lock()
	cb := s.cb
	destroyed := s.destroyed
	s.mu.Unlock()
	if destroyed || cb == nil {
		return
	}

	switch ev.Kind {
	case media.EventStalled:
		cb(Event{Kind: KindNetwork, Fatal: false, Err: errStalled})
	case media.EventError:
		cb(Event{Kind: classifyElementError(ev.Code), Fatal: ev.Fatal, Err: ev.Err})
	}
}
