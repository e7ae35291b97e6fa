package surface

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"hls-player/internal/platform/metrics"
	"hls-player/internal/player"
	"hls-player/internal/session"
	"hls-player/internal/thumbs"
)

// Handler is the control surface: it renders controller state and forwards
// user intents back to it. It holds no playback state of its own beyond the
// volume slider reveal, which is pure UI.
type Handler struct {
	ctrl *player.Controller
	cont *session.Continuity
	log  *slog.Logger
	met  *metrics.Metrics

	volumeUI *VolumeUI

	// onInteraction is invoked on the first real user interaction (and any
	// later one); the host uses it to lift environment autoplay blocks.
	onInteraction func()

	posterURL string

	mu       sync.RWMutex
	resolver *thumbs.Resolver
	loaded   bool
}

// NewHandler returns a Handler over ctrl and cont. Metrics and onInteraction
// may be nil.
func NewHandler(ctrl *player.Controller, cont *session.Continuity, log *slog.Logger, met *metrics.Metrics, onInteraction func()) *Handler {
	h := &Handler{
		ctrl:          ctrl,
		cont:          cont,
		log:           log,
		met:           met,
		onInteraction: onInteraction,
	}
	h.volumeUI = NewVolumeUI(nil)
	return h
}

// SetPosterURL sets the poster image URL exposed to the surface.
func (h *Handler) SetPosterURL(url string) {
	h.mu.Lock()
	h.posterURL = url
	h.mu.Unlock()
}

// SetThumbnails installs the scrub preview resolver once the cue sheet is
// parsed. A nil resolver (missing or empty sheet) leaves previews disabled.
func (h *Handler) SetThumbnails(resolver *thumbs.Resolver, loaded bool) {
	h.mu.Lock()
	h.resolver = resolver
	h.loaded = loaded
	h.mu.Unlock()
}

// StateView renders the current snapshot for the wire.
func (h *Handler) StateView() StateView {
	h.mu.RLock()
	loaded := h.loaded
	h.mu.RUnlock()
	return BuildStateView(h.ctrl.Snapshot(), loaded, h.volumeUI.Visible())
}

// Routes returns the surface routes, mounted by main under /player.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/state", h.GetState)
	r.Get("/poster", h.GetPoster)
	r.Post("/intent/play-toggle", h.PlayToggle)
	r.Post("/intent/seek", h.Seek)
	r.Post("/intent/volume", h.SetVolume)
	r.Post("/intent/mute-toggle", h.MuteToggle)
	r.Post("/intent/fullscreen-toggle", h.FullscreenToggle)
	r.Post("/intent/theater-toggle", h.TheaterToggle)
	r.Post("/scrub/hover", h.ScrubHover)
	r.Post("/scrub/leave", h.ScrubLeave)
	r.Post("/volume/pointer-enter", h.VolumePointerEnter)
	r.Post("/volume/pointer-leave", h.VolumePointerLeave)
	r.Post("/event/fullscreen-change", h.FullscreenChange)
	r.Post("/event/visibility", h.Visibility)
	r.Post("/event/interaction", h.Interaction)
	return r
}

// GetState handles GET /state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.StateView())
}

// GetPoster handles GET /poster.
func (h *Handler) GetPoster(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	poster := h.posterURL
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]string{"posterUrl": poster})
}

// PlayToggle handles POST /intent/play-toggle.
func (h *Handler) PlayToggle(w http.ResponseWriter, r *http.Request) {
	h.markInteracted(r)
	h.ctrl.TogglePlay(r.Context())
	writeJSON(w, http.StatusOK, h.StateView())
}

type seekRequest struct {
	Time       *float64 `json:"time"`
	PointerX   float64  `json:"pointerX"`
	TrackLeft  float64  `json:"trackLeft"`
	TrackWidth float64  `json:"trackWidth"`
}

// Seek handles POST /intent/seek. The body carries either an explicit time
// or the click geometry over the progress track.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var target float64
	switch {
	case req.Time != nil:
		target = *req.Time
	case req.TrackWidth > 0:
		snap := h.ctrl.Snapshot()
		frac := (req.PointerX - req.TrackLeft) / req.TrackWidth
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		target = frac * snap.Duration
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.markInteracted(r)
	h.ctrl.Seek(target)
	writeJSON(w, http.StatusOK, h.StateView())
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

// SetVolume handles POST /intent/volume.
func (h *Handler) SetVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.markInteracted(r)
	h.ctrl.SetVolume(req.Volume)
	writeJSON(w, http.StatusOK, h.StateView())
}

// MuteToggle handles POST /intent/mute-toggle.
func (h *Handler) MuteToggle(w http.ResponseWriter, r *http.Request) {
	h.markInteracted(r)
	h.ctrl.ToggleMute()
	writeJSON(w, http.StatusOK, h.StateView())
}

// FullscreenToggle handles POST /intent/fullscreen-toggle.
func (h *Handler) FullscreenToggle(w http.ResponseWriter, r *http.Request) {
	h.markInteracted(r)
	h.ctrl.SetFullscreen(!h.ctrl.Snapshot().IsFullscreen)
	writeJSON(w, http.StatusOK, h.StateView())
}

// TheaterToggle handles POST /intent/theater-toggle.
func (h *Handler) TheaterToggle(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ToggleTheater()
	writeJSON(w, http.StatusOK, h.StateView())
}

type scrubRequest struct {
	PointerX   float64 `json:"pointerX"`
	TrackLeft  float64 `json:"trackLeft"`
	TrackWidth float64 `json:"trackWidth"`
}

type previewView struct {
	Time      float64 `json:"time"`
	Label     string  `json:"label"`
	Left      float64 `json:"left"`
	SpriteURL string  `json:"spriteUrl"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	OffsetX   int     `json:"offsetX"`
	OffsetY   int     `json:"offsetY"`
}

// ScrubHover handles POST /scrub/hover: resolve the pointer position to a
// preview. 204 means no preview (no thumbnails for this asset, or degenerate
// geometry) — never an error.
func (h *Handler) ScrubHover(w http.ResponseWriter, r *http.Request) {
	var req scrubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.mu.RLock()
	resolver := h.resolver
	h.mu.RUnlock()
	if resolver == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if h.met != nil {
		h.met.IncCueLookups()
	}
	snap := h.ctrl.Snapshot()
	p := resolver.Resolve(req.PointerX, thumbs.TrackRect{Left: req.TrackLeft, Width: req.TrackWidth}, snap.Duration)
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	dx, dy := p.Cue.CropOffset()
	writeJSON(w, http.StatusOK, previewView{
		Time:      p.Time,
		Label:     p.Label,
		Left:      p.Left,
		SpriteURL: p.Cue.SpriteURL,
		Width:     p.Cue.Width,
		Height:    p.Cue.Height,
		OffsetX:   dx,
		OffsetY:   dy,
	})
}

// ScrubLeave handles POST /scrub/leave. The preview is stateless on the
// server side; the endpoint exists so clients have a single surface to talk
// to.
func (h *Handler) ScrubLeave(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// VolumePointerEnter handles POST /volume/pointer-enter.
func (h *Handler) VolumePointerEnter(w http.ResponseWriter, r *http.Request) {
	h.volumeUI.PointerEnter()
	w.WriteHeader(http.StatusNoContent)
}

// VolumePointerLeave handles POST /volume/pointer-leave.
func (h *Handler) VolumePointerLeave(w http.ResponseWriter, r *http.Request) {
	h.volumeUI.PointerLeave()
	w.WriteHeader(http.StatusNoContent)
}

type fullscreenChangeRequest struct {
	Active bool `json:"active"`
}

// FullscreenChange handles POST /event/fullscreen-change: the environment's
// own signal (e.g. Escape) so the displayed state stays truthful.
func (h *Handler) FullscreenChange(w http.ResponseWriter, r *http.Request) {
	var req fullscreenChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.ctrl.SetFullscreen(req.Active)
	w.WriteHeader(http.StatusNoContent)
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// Visibility handles POST /event/visibility. Hiding flushes the session
// position immediately.
func (h *Handler) Visibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.ctrl.HandleVisibility(req.Hidden)
	if req.Hidden && h.cont != nil {
		h.cont.Flush(r.Context(), h.ctrl.Snapshot().CurrentTime)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Interaction handles POST /event/interaction: the first real user gesture.
func (h *Handler) Interaction(w http.ResponseWriter, r *http.Request) {
	h.markInteracted(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markInteracted(r *http.Request) {
	if h.cont != nil {
		h.cont.MarkInteracted(r.Context())
	}
	if h.onInteraction != nil {
		h.onInteraction()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
