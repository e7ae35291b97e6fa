package player

import (
	"context"
	"log/slog"
	"sync"

	"hls-player/internal/engine"
	"hls-player/internal/media"
)

// Options seed a Controller at mount. InitialTime and InitialMuted usually
// come from the session record; HasInteracted permits an autoplay attempt
// without violating environment autoplay restrictions.
type Options struct {
	InitialMuted  bool
	InitialTime   float64
	HasInteracted bool
	Autoplay      bool

	// OnTimeUpdate is invoked on every position change.
	OnTimeUpdate func(seconds float64)
	// OnMuteChange is invoked when the user's mute preference changes
	// (mute toggle or volume slider), not when a rejected autoplay forces
	// mute as a workaround.
	OnMuteChange func(muted bool)
}

// Controller owns the media element's play/pause/seek/volume/mute state. All
// mutations funnel through its intent handlers; one authoritative element
// subscription, installed by Bind and removed by Unbind, reconciles state
// changes that originate outside the controller (OS media keys, platform
// fullscreen escape). The controller never retries errors itself: failures
// funnel through the Loader's recovery policy and only the resulting state
// is reflected here.
type Controller struct {
	el   media.Element
	log  *slog.Logger
	opts Options

	mu            sync.Mutex
	state         State
	current       float64
	duration      float64
	volume        float64
	muted         bool
	fullscreen    bool
	theater       bool
	lastErr       *engine.Error
	intentPlaying bool
	// pauseIsUser marks the next native pause as user-driven so an automatic
	// resume never overrides it. Set when the tab hides during playback.
	pauseIsUser bool
	unsub       func()
	nextSub     int
	subs        map[int]func(Snapshot)
}

// NewController returns a controller over el in StateIdle.
func NewController(el media.Element, opts Options, log *slog.Logger) *Controller {
	return &Controller{
		el:     el,
		log:    log,
		opts:   opts,
		state:  StateIdle,
		volume: 1,
		muted:  opts.InitialMuted,
		subs:   make(map[int]func(Snapshot)),
	}
}

// Bind installs the element subscription and moves Idle -> Loading. Called
// once per element lifetime, before the loader starts.
func (c *Controller) Bind() {
	c.mu.Lock()
	if c.unsub != nil {
		c.mu.Unlock()
		return
	}
	c.unsub = c.el.Subscribe(c.onElementEvent)
	c.state = StateLoading
	muted := c.muted
	c.mu.Unlock()

	c.el.SetMuted(muted)
	c.notify()
}

// Unbind removes the element subscription. Idempotent.
func (c *Controller) Unbind() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Subscribe registers a snapshot observer and returns an unsubscribe func.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// HandleReady is the loader's ready callback: seed the resume position, then
// settle in ReadyPaused — unless the session warrants an autoplay attempt,
// in which case try to reach ReadyPlaying directly, falling back to a single
// forced-mute retry when the environment rejects unmuted playback.
func (c *Controller) HandleReady(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateLoading {
		c.mu.Unlock()
		return
	}
	c.duration = c.el.Duration()
	resumeAt := c.opts.InitialTime
	autoplay := c.opts.Autoplay && c.opts.HasInteracted
	c.mu.Unlock()

	if resumeAt > 0 {
		c.el.Seek(resumeAt)
	}

	if !autoplay {
		c.setState(StateReadyPaused)
		return
	}

	if err := c.el.Play(ctx); err == nil {
		c.setPlaying()
		return
	}

	// Rejected (autoplay-with-sound): force mute and retry once.
	c.mu.Lock()
	prevMuted := c.muted
	c.muted = true
	c.mu.Unlock()
	c.el.SetMuted(true)

	if err := c.el.Play(ctx); err == nil {
		c.log.Info("autoplay succeeded after forced mute")
		c.setPlaying()
		return
	}

	c.mu.Lock()
	c.muted = prevMuted
	c.mu.Unlock()
	c.el.SetMuted(prevMuted)
	c.log.Info("autoplay rejected, settling paused")
	c.setState(StateReadyPaused)
}

// HandleLoadError is the loader's error callback: any state -> Error.
func (c *Controller) HandleLoadError(err *engine.Error) {
	c.mu.Lock()
	c.state = StateError
	c.lastErr = err
	c.intentPlaying = false
	c.mu.Unlock()
	c.notify()
}

// TogglePlay flips between playing and paused on explicit user intent. A
// play attempt the environment rejects must not flip displayed state to
// playing, so the transition only happens via the element's own events.
func (c *Controller) TogglePlay(ctx context.Context) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateReadyPlaying:
		c.mu.Lock()
		c.intentPlaying = false
		c.mu.Unlock()
		c.el.Pause()
	case StateReadyPaused, StateEnded:
		if err := c.el.Play(ctx); err != nil {
			c.log.Debug("play intent rejected", slog.String("error", err.Error()))
			return
		}
		c.mu.Lock()
		c.intentPlaying = true
		c.mu.Unlock()
	}
}

// Seek sets the playback position. Legal from any Ready/Ended state; it does
// not change play/pause state.
func (c *Controller) Seek(seconds float64) {
	c.mu.Lock()
	state := c.state
	if state != StateReadyPaused && state != StateReadyPlaying && state != StateEnded {
		c.mu.Unlock()
		return
	}
	if state == StateEnded {
		c.state = StateReadyPaused
	}
	c.mu.Unlock()

	c.el.Seek(seconds)
}

// SetVolume applies the volume slider. Volume and mute are coupled
// one-directionally here: exactly 0 implies muted, a nonzero volume while
// muted unmutes.
func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	c.mu.Lock()
	c.volume = v
	muteChanged := false
	if v == 0 && !c.muted {
		c.muted = true
		muteChanged = true
	} else if v > 0 && c.muted {
		c.muted = false
		muteChanged = true
	}
	muted := c.muted
	c.mu.Unlock()

	c.el.SetVolume(v)
	if muteChanged {
		c.el.SetMuted(muted)
		if c.opts.OnMuteChange != nil {
			c.opts.OnMuteChange(muted)
		}
	}
	c.notify()
}

// ToggleMute flips only the mute flag; the stored volume is untouched so
// unmuting restores the prior audible volume.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	c.muted = !c.muted
	muted := c.muted
	c.mu.Unlock()

	c.el.SetMuted(muted)
	if c.opts.OnMuteChange != nil {
		c.opts.OnMuteChange(muted)
	}
	c.notify()
}

// SetFullscreen records a fullscreen intent result or an environment
// fullscreen-change signal (e.g. platform Escape), keeping the displayed
// flag truthful either way.
func (c *Controller) SetFullscreen(active bool) {
	c.mu.Lock()
	changed := c.fullscreen != active
	c.fullscreen = active
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// ToggleTheater flips the theater-mode layout flag. Pure UI state, never
// persisted.
func (c *Controller) ToggleTheater() {
	c.mu.Lock()
	c.theater = !c.theater
	c.mu.Unlock()
	c.notify()
}

// HandleVisibility marks a hide-during-playback so the pause that may follow
// is treated as user-driven and never silently overridden by an automatic
// resume.
func (c *Controller) HandleVisibility(hidden bool) {
	c.mu.Lock()
	if hidden && c.state == StateReadyPlaying {
		c.pauseIsUser = true
	}
	c.mu.Unlock()
}

// Volume returns the stored volume value (independent of mute).
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Muted returns the mute flag.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *Controller) onElementEvent(ev media.Event) {
	switch ev.Kind {
	case media.EventLoadedMetadata:
		c.mu.Lock()
		c.duration = ev.Duration
		c.mu.Unlock()
		c.notify()

	case media.EventTimeUpdate:
		c.mu.Lock()
		c.current = ev.Time
		if ev.Duration > 0 {
			c.duration = ev.Duration
		}
		c.mu.Unlock()
		if c.opts.OnTimeUpdate != nil {
			c.opts.OnTimeUpdate(ev.Time)
		}
		c.notify()

	case media.EventPlay:
		// Genuine element transition: reconcile, including play started
		// outside the controller (OS media key).
		c.mu.Lock()
		if c.state == StateReadyPaused || c.state == StateEnded || c.state == StateReadyPlaying {
			c.state = StateReadyPlaying
			c.intentPlaying = true
		}
		c.current = ev.Time
		c.mu.Unlock()
		c.notify()

	case media.EventPause:
		c.mu.Lock()
		if c.state == StateReadyPlaying {
			c.state = StateReadyPaused
		}
		if c.pauseIsUser {
			c.pauseIsUser = false
			c.intentPlaying = false
		}
		c.mu.Unlock()
		c.notify()

	case media.EventEnded:
		c.mu.Lock()
		c.state = StateEnded
		c.current = ev.Time
		// Intent resets so a replay is a fresh user-initiated play.
		c.intentPlaying = false
		c.mu.Unlock()
		c.notify()

	case media.EventError, media.EventStalled:
		// Errors funnel through the loader's recovery policy; the controller
		// only reflects the outcome via HandleLoadError.
	}
}

func (c *Controller) setPlaying() {
	c.mu.Lock()
	c.state = StateReadyPlaying
	c.intentPlaying = true
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:        c.state,
		IsPlaying:    c.state == StateReadyPlaying,
		CurrentTime:  c.current,
		Duration:     c.duration,
		Volume:       c.volume,
		IsMuted:      c.muted,
		IsFullscreen: c.fullscreen,
		IsTheater:    c.theater,
		Err:          c.lastErr,
	}
}

// notify delivers a snapshot to all observers without holding the lock.
func (c *Controller) notify() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
