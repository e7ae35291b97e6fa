package thumbs

import (
	"fmt"
	"sync"
)

// TrackRect is the measured geometry of the progress track, passed in by the
// caller so resolution stays a pure computation over inputs.
type TrackRect struct {
	Left  float64
	Width float64
}

// Preview is a resolved scrub preview: the target time, the thumbnail cue to
// crop, and the clamped horizontal placement of the popup.
type Preview struct {
	Time float64
	Cue  Cue
	// Left is the popup's left edge, centered on the pointer but clamped so
	// the popup never extends outside the track's horizontal extent.
	Left  float64
	Label string
}

// SpriteFetchFunc is invoked once per distinct sprite URL so the image can be
// warmed before it is first displayed. It must not block the caller.
type SpriteFetchFunc func(url string)

// Resolver turns a pointer position over the progress track into a preview.
// Resolve is called on every pointer move, so it is synchronous over the
// in-memory index; the only side effect is a one-time sprite warm per URL.
type Resolver struct {
	index         *Index
	viewportWidth float64
	fetchSprite   SpriteFetchFunc

	mu      sync.Mutex
	fetched map[string]struct{}
}

// NewResolver returns a Resolver over index. viewportWidth is the clamping
// fallback when no track rect is available; fetchSprite may be nil.
func NewResolver(index *Index, viewportWidth float64, fetchSprite SpriteFetchFunc) *Resolver {
	return &Resolver{
		index:         index,
		viewportWidth: viewportWidth,
		fetchSprite:   fetchSprite,
		fetched:       make(map[string]struct{}),
	}
}

// Resolve computes the preview for a pointer at pointerX over rect, for a
// clip of the given duration. It returns nil when no thumbnail cue exists
// for the computed time or when the geometry is degenerate.
func (r *Resolver) Resolve(pointerX float64, rect TrackRect, duration float64) *Preview {
	if duration <= 0 {
		return nil
	}

	var t float64
	if rect.Width > 0 {
		t = clamp((pointerX-rect.Left)/rect.Width*duration, 0, duration)
	} else {
		return nil
	}

	cue := r.index.Lookup(t)
	if cue == nil {
		return nil
	}

	r.warmSprite(cue.SpriteURL)

	w := float64(cue.Width)
	var left float64
	if rect.Width >= w {
		left = clamp(pointerX-w/2, rect.Left, rect.Left+rect.Width-w)
	} else if r.viewportWidth > 0 {
		// Popup wider than the track: fall back to the viewport extent.
		left = clamp(pointerX-w/2, 0, r.viewportWidth-w)
	} else {
		left = rect.Left
	}

	return &Preview{
		Time:  t,
		Cue:   *cue,
		Left:  left,
		Label: previewLabel(t),
	}
}

// warmSprite triggers the sprite fetch the first time a URL is seen. Later
// cues sharing the URL never refetch.
func (r *Resolver) warmSprite(url string) {
	if r.fetchSprite == nil || url == "" {
		return
	}
	r.mu.Lock()
	_, seen := r.fetched[url]
	if !seen {
		r.fetched[url] = struct{}{}
	}
	r.mu.Unlock()

	if !seen {
		r.fetchSprite(url)
	}
}

func previewLabel(t float64) string {
	secs := int(t)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
