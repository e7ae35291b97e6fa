package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hls-player/internal/media"
	"hls-player/internal/player"
	"hls-player/internal/session"
	"hls-player/internal/thumbs"
)

type surfaceHarness struct {
	handler      *Handler
	ctrl         *player.Controller
	cont         *session.Continuity
	store        *session.MemoryStore
	srv          *httptest.Server
	interactions atomic.Int32
}

func newSurfaceHarness(t *testing.T) *surfaceHarness {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	el := media.NewSimElement(media.SimOptions{ClipDuration: 60, TickInterval: time.Hour})
	t.Cleanup(el.Close)
	el.SetSource("https://cdn.example.com/movie/42/origin.m3u8")

	h := &surfaceHarness{store: session.NewMemoryStore()}
	h.cont = session.NewContinuity(h.store, "", log, nil)
	h.cont.Seed(context.Background(), "42")

	h.ctrl = player.NewController(el, player.Options{}, log)
	h.ctrl.Bind()
	t.Cleanup(h.ctrl.Unbind)
	h.ctrl.HandleReady(context.Background())

	h.handler = NewHandler(h.ctrl, h.cont, log, nil, func() { h.interactions.Add(1) })
	h.srv = httptest.NewServer(h.handler.Routes())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *surfaceHarness) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	resp, err := http.Post(h.srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *surfaceHarness) postState(t *testing.T, path string, body any) StateView {
	t.Helper()
	resp := h.post(t, path, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s: status %d", path, resp.StatusCode)
	}
	var view StateView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode state view: %v", err)
	}
	return view
}

func TestHandler_getState(t *testing.T) {
	h := newSurfaceHarness(t)

	resp, err := http.Get(h.srv.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp.Body.Close()

	var view StateView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.State != "ready_paused" || view.IsPlaying {
		t.Errorf("state view = %+v, want ready_paused", view)
	}
	if view.Duration != 60 {
		t.Errorf("duration = %v, want 60", view.Duration)
	}
}

func TestHandler_playToggleMarksInteraction(t *testing.T) {
	h := newSurfaceHarness(t)

	view := h.postState(t, "/intent/play-toggle", nil)
	if !view.IsPlaying {
		t.Errorf("state after play-toggle = %+v, want playing", view)
	}
	if h.interactions.Load() == 0 {
		t.Error("play intent did not count as an interaction")
	}
	if !h.cont.Current().HasInteracted {
		t.Error("interaction not recorded in the session")
	}
}

func TestHandler_seekExplicitTime(t *testing.T) {
	h := newSurfaceHarness(t)

	view := h.postState(t, "/intent/seek", map[string]any{"time": 30})
	if view.CurrentTime != 30 {
		t.Errorf("current time = %v, want 30", view.CurrentTime)
	}
}

func TestHandler_seekClickGeometry(t *testing.T) {
	h := newSurfaceHarness(t)

	// Clicking halfway along the track seeks to half the duration.
	view := h.postState(t, "/intent/seek", map[string]any{
		"pointerX":   500,
		"trackLeft":  100,
		"trackWidth": 800,
	})
	if view.CurrentTime != 30 {
		t.Errorf("current time = %v, want 30 (half of 60)", view.CurrentTime)
	}

	// A click past the track end clamps to the duration.
	view = h.postState(t, "/intent/seek", map[string]any{
		"pointerX":   2000,
		"trackLeft":  100,
		"trackWidth": 800,
	})
	if view.CurrentTime != 60 {
		t.Errorf("current time = %v, want clamped 60", view.CurrentTime)
	}
}

func TestHandler_seekBadRequests(t *testing.T) {
	h := newSurfaceHarness(t)

	resp := h.post(t, "/intent/seek", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty seek body: status %d, want 400", resp.StatusCode)
	}

	raw, err := http.Post(h.srv.URL+"/intent/seek", "application/json", bytes.NewBufferString("{broken"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed seek body: status %d, want 400", raw.StatusCode)
	}
}

func TestHandler_volumeAndMute(t *testing.T) {
	h := newSurfaceHarness(t)

	view := h.postState(t, "/intent/volume", map[string]any{"volume": 0.0})
	if !view.IsMuted || view.Volume != 0 {
		t.Errorf("volume 0 view = %+v, want muted", view)
	}

	view = h.postState(t, "/intent/volume", map[string]any{"volume": 0.5})
	if view.IsMuted {
		t.Errorf("nonzero volume view = %+v, want unmuted", view)
	}

	view = h.postState(t, "/intent/mute-toggle", nil)
	if !view.IsMuted || view.Volume != 0.5 {
		t.Errorf("mute-toggle view = %+v, want muted with volume 0.5 intact", view)
	}
}

func TestHandler_fullscreenIntentAndEnvironmentSignal(t *testing.T) {
	h := newSurfaceHarness(t)

	view := h.postState(t, "/intent/fullscreen-toggle", nil)
	if !view.IsFullscreen {
		t.Fatalf("view = %+v, want fullscreen", view)
	}

	// Platform Escape reports the exit; the flag follows the environment.
	resp := h.post(t, "/event/fullscreen-change", map[string]any{"active": false})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("fullscreen-change: status %d", resp.StatusCode)
	}
	if h.ctrl.Snapshot().IsFullscreen {
		t.Error("fullscreen flag survived the environment exit signal")
	}
}

func TestHandler_theaterToggle(t *testing.T) {
	h := newSurfaceHarness(t)

	if view := h.postState(t, "/intent/theater-toggle", nil); !view.IsTheater {
		t.Errorf("view = %+v, want theater", view)
	}
	if h.interactions.Load() != 0 {
		t.Error("theater toggle should not count as a playback interaction")
	}
}

func TestHandler_scrubHoverWithoutThumbnails(t *testing.T) {
	h := newSurfaceHarness(t)

	resp := h.post(t, "/scrub/hover", map[string]any{
		"pointerX": 50, "trackLeft": 0, "trackWidth": 100,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("hover without thumbnails: status %d, want 204", resp.StatusCode)
	}

	view := h.handler.StateView()
	if view.ThumbnailsLoaded {
		t.Error("thumbnailsLoaded reported before a sheet was installed")
	}
}

func TestHandler_scrubHoverResolvesPreview(t *testing.T) {
	h := newSurfaceHarness(t)
	cues := []thumbs.Cue{
		{Start: 0, End: 30, SpriteURL: "https://cdn.example.com/a.jpg", Width: 160, Height: 90},
		{Start: 30, End: 60, SpriteURL: "https://cdn.example.com/a.jpg", X: 160, Width: 160, Height: 90},
	}
	h.handler.SetThumbnails(thumbs.NewResolver(thumbs.NewIndex(cues), 1280, nil), true)

	resp := h.post(t, "/scrub/hover", map[string]any{
		"pointerX": 75, "trackLeft": 0, "trackWidth": 100,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hover: status %d", resp.StatusCode)
	}

	var p previewView
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if p.Time != 45 {
		t.Errorf("preview time = %v, want 45", p.Time)
	}
	if p.Label != "0:45" {
		t.Errorf("preview label = %q, want 0:45", p.Label)
	}
	if p.SpriteURL != "https://cdn.example.com/a.jpg" || p.OffsetX != 160 {
		t.Errorf("preview crop = %+v, want the second cue's tile", p)
	}

	if !h.handler.StateView().ThumbnailsLoaded {
		t.Error("thumbnailsLoaded not reported after install")
	}
}

func TestHandler_volumePointerEndpoints(t *testing.T) {
	h := newSurfaceHarness(t)

	h.post(t, "/volume/pointer-enter", nil)
	if !h.handler.StateView().VolumeSlider {
		t.Error("slider not visible after pointer enter")
	}

	h.post(t, "/volume/pointer-leave", nil)
	// Hide is deferred, so the slider is still up immediately after leave.
	if !h.handler.StateView().VolumeSlider {
		t.Error("slider hidden before the leave delay")
	}
}

func TestHandler_visibilityHiddenFlushesPosition(t *testing.T) {
	h := newSurfaceHarness(t)
	h.postState(t, "/intent/seek", map[string]any{"time": 33})

	resp := h.post(t, "/event/visibility", map[string]any{"hidden": true})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("visibility: status %d", resp.StatusCode)
	}

	raw, ok, err := h.store.Get(context.Background(), session.DefaultStorageKey)
	if err != nil || !ok {
		t.Fatalf("stored record missing: ok=%v err=%v", ok, err)
	}
	var rec session.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("stored record unreadable: %v", err)
	}
	if rec.PositionSeconds != 33 {
		t.Errorf("flushed position = %v, want 33", rec.PositionSeconds)
	}
}

func TestHandler_interactionEndpoint(t *testing.T) {
	h := newSurfaceHarness(t)

	resp := h.post(t, "/event/interaction", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("interaction: status %d", resp.StatusCode)
	}
	if h.interactions.Load() != 1 {
		t.Errorf("interaction callback fired %d times, want 1", h.interactions.Load())
	}
	if !h.cont.Current().HasInteracted {
		t.Error("interaction not persisted to the session")
	}
}

func TestHandler_poster(t *testing.T) {
	h := newSurfaceHarness(t)
	h.handler.SetPosterURL("https://cdn.example.com/movie/42/Thumbnail_000000001.jpg")

	resp, err := http.Get(h.srv.URL + "/poster")
	if err != nil {
		t.Fatalf("GET /poster: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["posterUrl"] != "https://cdn.example.com/movie/42/Thumbnail_000000001.jpg" {
		t.Errorf("posterUrl = %q", body["posterUrl"])
	}
}
