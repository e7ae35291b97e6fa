package media

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrPlayNotAllowed is returned by SimElement.Play when the configured
// autoplay policy rejects an unmuted play attempt.
var ErrPlayNotAllowed = errors.New("play rejected by autoplay policy")

const (
	defaultTickInterval = 250 * time.Millisecond
	metadataDelay       = 10 * time.Millisecond
)

// SimOptions configures a SimElement.
type SimOptions struct {
	// NativeHLS makes CanPlayType report native support for HLS manifests.
	NativeHLS bool
	// ClipDuration is the duration reported once a source is bound.
	ClipDuration float64
	// BlockUnmutedPlay rejects Play while the element is unmuted, modelling
	// a browser autoplay policy.
	BlockUnmutedPlay bool
	// TickInterval is the wall-clock cadence of time updates while playing.
	TickInterval time.Duration
}

// SimElement is a clock-driven Element implementation. It advances the
// playback position in real time while playing and emits the same event
// sequence a native media element would. The server binary and the tests
// run the pipeline against it.
type SimElement struct {
	mu      sync.Mutex
	opts    SimOptions
	src     string
	current float64
	clipDur float64
	playing bool
	volume  float64
	muted   bool

	// gen invalidates pending metadata timers when the source changes.
	gen     int
	nextSub int
	subs    map[int]func(Event)

	closeOnce sync.Once
	done      chan struct{}
}

// NewSimElement returns a started SimElement.
func NewSimElement(opts SimOptions) *SimElement {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	e := &SimElement{
		opts:    opts,
		clipDur: opts.ClipDuration,
		volume:  1,
		subs:    make(map[int]func(Event)),
		done:    make(chan struct{}),
	}
	go e.loop()
	return e
}

// Close stops the clock. Safe to call multiple times.
func (e *SimElement) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}

// SetSource implements Element.SetSource.
func (e *SimElement) SetSource(url string) {
	e.mu.Lock()
	e.src = url
	e.current = 0
	e.playing = false
	e.gen++
	gen := e.gen
	dur := e.clipDur
	e.mu.Unlock()

	if url == "" || dur <= 0 {
		return
	}
	time.AfterFunc(metadataDelay, func() {
		e.mu.Lock()
		stale := gen != e.gen
		e.mu.Unlock()
		if stale {
			return
		}
		select {
		case <-e.done:
			return
		default:
		}
		e.emit(Event{Kind: EventLoadedMetadata, Duration: dur})
	})
}

// Source implements Element.Source.
func (e *SimElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// CanPlayType implements Element.CanPlayType.
func (e *SimElement) CanPlayType(mime string) bool {
	return e.opts.NativeHLS && mime == "application/vnd.apple.mpegurl"
}

// Play implements Element.Play. It rejects unmuted playback when the
// configured policy blocks it.
func (e *SimElement) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.opts.BlockUnmutedPlay && !e.muted {
		e.mu.Unlock()
		return ErrPlayNotAllowed
	}
	if e.playing || e.src == "" {
		e.mu.Unlock()
		return nil
	}
	// Replaying a finished clip restarts from the beginning.
	if e.clipDur > 0 && e.current >= e.clipDur {
		e.current = 0
	}
	e.playing = true
	t, d := e.current, e.clipDur
	e.mu.Unlock()

	e.emit(Event{Kind: EventPlay, Time: t, Duration: d})
	return nil
}

// Pause implements Element.Pause.
func (e *SimElement) Pause() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.playing = false
	t, d := e.current, e.clipDur
	e.mu.Unlock()

	e.emit(Event{Kind: EventPause, Time: t, Duration: d})
}

// Seek implements Element.Seek, clamping to [0, duration].
func (e *SimElement) Seek(seconds float64) {
	e.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	if e.clipDur > 0 && seconds > e.clipDur {
		seconds = e.clipDur
	}
	e.current = seconds
	t, d := e.current, e.clipDur
	e.mu.Unlock()

	e.emit(Event{Kind: EventTimeUpdate, Time: t, Duration: d})
}

// CurrentTime implements Element.CurrentTime.
func (e *SimElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Duration implements Element.Duration.
func (e *SimElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clipDur
}

// SetVolume implements Element.SetVolume, clamping to [0, 1].
func (e *SimElement) SetVolume(v float64) {
	e.mu.Lock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume = v
	e.mu.Unlock()
}

// Volume implements Element.Volume.
func (e *SimElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetMuted implements Element.SetMuted.
func (e *SimElement) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	e.mu.Unlock()
}

// Muted implements Element.Muted.
func (e *SimElement) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Subscribe implements Element.Subscribe.
func (e *SimElement) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// AllowUnmutedPlay lifts the autoplay restriction, as a real environment does
// after a genuine user interaction.
func (e *SimElement) AllowUnmutedPlay() {
	e.mu.Lock()
	e.opts.BlockUnmutedPlay = false
	e.mu.Unlock()
}

// InjectError emits an element error event. Used by failure drills and tests.
func (e *SimElement) InjectError(code ErrorCode, fatal bool, err error) {
	e.mu.Lock()
	t, d := e.current, e.clipDur
	e.mu.Unlock()
	e.emit(Event{Kind: EventError, Time: t, Duration: d, Code: code, Fatal: fatal, Err: err})
}

// InjectStall emits a transient delivery stall event.
func (e *SimElement) InjectStall() {
	e.mu.Lock()
	t, d := e.current, e.clipDur
	e.mu.Unlock()
	e.emit(Event{Kind: EventStalled, Time: t, Duration: d})
}

func (e *SimElement) loop() {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.tick(e.opts.TickInterval.Seconds())
		}
	}
}

func (e *SimElement) tick(elapsed float64) {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.current += elapsed
	ended := e.clipDur > 0 && e.current >= e.clipDur
	if ended {
		e.current = e.clipDur
		e.playing = false
	}
	t, d := e.current, e.clipDur
	e.mu.Unlock()

	e.emit(Event{Kind: EventTimeUpdate, Time: t, Duration: d})
	if ended {
		e.emit(Event{Kind: EventEnded, Time: t, Duration: d})
	}
}

// emit delivers ev to all subscribers without holding the element lock.
func (e *SimElement) emit(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
