package thumbs

import (
	"sync"
	"testing"
)

func testResolver(fetch SpriteFetchFunc) *Resolver {
	cues := []Cue{
		{Start: 0, End: 5, SpriteURL: "https://cdn.example.com/a.jpg", Width: 160, Height: 90},
		{Start: 5, End: 10, SpriteURL: "https://cdn.example.com/a.jpg", X: 160, Width: 160, Height: 90},
		{Start: 10, End: 15, SpriteURL: "https://cdn.example.com/b.jpg", X: 320, Width: 160, Height: 90},
	}
	return NewResolver(NewIndex(cues), 1280, fetch)
}

func TestResolver_timeMonotonicInPointerX(t *testing.T) {
	r := testResolver(nil)
	rect := TrackRect{Left: 100, Width: 800}

	prev := -1.0
	for x := rect.Left; x <= rect.Left+rect.Width; x += 40 {
		p := r.Resolve(x, rect, 15)
		if p == nil {
			t.Fatalf("Resolve(%v) = nil", x)
		}
		if p.Time < prev {
			t.Fatalf("time not monotonic at x=%v: %v < %v", x, p.Time, prev)
		}
		prev = p.Time
	}
}

func TestResolver_popupStaysInsideTrack(t *testing.T) {
	r := testResolver(nil)
	rect := TrackRect{Left: 100, Width: 800}

	for _, x := range []float64{0, 100, 140, 500, 860, 900, 2000} {
		p := r.Resolve(x, rect, 15)
		if p == nil {
			t.Fatalf("Resolve(%v) = nil", x)
		}
		w := float64(p.Cue.Width)
		if p.Left < rect.Left {
			t.Errorf("x=%v: popup left %v beyond track left %v", x, p.Left, rect.Left)
		}
		if p.Left+w > rect.Left+rect.Width {
			t.Errorf("x=%v: popup right %v beyond track right %v", x, p.Left+w, rect.Left+rect.Width)
		}
	}
}

func TestResolver_timeClampedToDuration(t *testing.T) {
	r := testResolver(nil)
	rect := TrackRect{Left: 0, Width: 100}

	if p := r.Resolve(-50, rect, 15); p == nil || p.Time != 0 {
		t.Errorf("pointer before track should clamp time to 0, got %+v", p)
	}
	if p := r.Resolve(500, rect, 15); p == nil || p.Time != 15 {
		t.Errorf("pointer past track should clamp time to duration, got %+v", p)
	}
}

func TestResolver_nilWithoutCues(t *testing.T) {
	r := NewResolver(NewIndex(nil), 1280, nil)
	if p := r.Resolve(50, TrackRect{Width: 100}, 15); p != nil {
		t.Errorf("expected nil preview without cues, got %+v", p)
	}
}

func TestResolver_degenerateGeometry(t *testing.T) {
	r := testResolver(nil)
	if p := r.Resolve(50, TrackRect{}, 15); p != nil {
		t.Errorf("expected nil for zero-width track, got %+v", p)
	}
	if p := r.Resolve(50, TrackRect{Width: 100}, 0); p != nil {
		t.Errorf("expected nil for zero duration, got %+v", p)
	}
}

func TestResolver_spriteFetchedOncePerURL(t *testing.T) {
	var mu sync.Mutex
	fetched := map[string]int{}
	r := testResolver(func(url string) {
		mu.Lock()
		fetched[url]++
		mu.Unlock()
	})
	rect := TrackRect{Left: 0, Width: 150}

	// First two cues share a.jpg; the third uses b.jpg.
	r.Resolve(10, rect, 15)  // cue 1 -> a.jpg
	r.Resolve(60, rect, 15)  // cue 2 -> a.jpg again
	r.Resolve(120, rect, 15) // cue 3 -> b.jpg
	r.Resolve(10, rect, 15)  // cue 1 again

	mu.Lock()
	defer mu.Unlock()
	if fetched["https://cdn.example.com/a.jpg"] != 1 {
		t.Errorf("a.jpg fetched %d times, want 1", fetched["https://cdn.example.com/a.jpg"])
	}
	if fetched["https://cdn.example.com/b.jpg"] != 1 {
		t.Errorf("b.jpg fetched %d times, want 1", fetched["https://cdn.example.com/b.jpg"])
	}
}

func TestResolver_previewLabel(t *testing.T) {
	r := testResolver(nil)
	p := r.Resolve(70, TrackRect{Left: 0, Width: 100}, 15)
	if p == nil {
		t.Fatal("Resolve returned nil")
	}
	if p.Label != "0:10" {
		t.Errorf("label = %q, want \"0:10\"", p.Label)
	}
}
