package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"hls-player/internal/platform/metrics"
)

// DefaultStorageKey is the store key the playback record lives under.
const DefaultStorageKey = "playback"

// writesPerSecond throttles position persistence to one write per 5 seconds.
// Flush bypasses the throttle.
const writesPerSecond = 1.0 / 5.0

// Continuity persists and restores playback position and mute preference
// across mounts within a session. Position writes during playback are
// throttled; page-hide and teardown flush unconditionally. Store failures
// are logged, never surfaced: losing continuity must not break playback.
type Continuity struct {
	store Store
	key   string
	log   *slog.Logger
	met   *metrics.Metrics

	limiter *rate.Limiter

	mu  sync.Mutex
	rec Record
}

// NewContinuity returns a Continuity over store. key may be empty to use
// DefaultStorageKey; met may be nil.
func NewContinuity(store Store, key string, log *slog.Logger, met *metrics.Metrics) *Continuity {
	if key == "" {
		key = DefaultStorageKey
	}
	return &Continuity{
		store:   store,
		key:     key,
		log:     log,
		met:     met,
		limiter: rate.NewLimiter(rate.Limit(writesPerSecond), 1),
	}
}

// Seed reads the stored record for assetID. A missing record, an unreadable
// one, or one written for a different asset resets to defaults for this
// asset (and persists the reset). The returned record seeds the controller
// before the element is first bound; restored reports whether a same-asset
// record existed, so callers can tell a stored preference from a default.
func (c *Continuity) Seed(ctx context.Context, assetID string) (rec Record, restored bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.log.Warn("session record read failed", slog.String("error", err.Error()))
	}

	if ok && err == nil {
		if uerr := json.Unmarshal([]byte(raw), &rec); uerr != nil {
			c.log.Warn("session record unreadable, resetting", slog.String("error", uerr.Error()))
			ok = false
		}
	}

	if !ok || rec.AssetID != assetID {
		rec = DefaultRecord(assetID)
		c.rec = rec
		c.writeLocked(ctx)
		return rec, false
	}

	c.rec = rec
	return rec, true
}

// Current returns the in-memory record.
func (c *Continuity) Current() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec
}

// OnTimeUpdate records a new playback position, persisting at most once per
// throttle interval.
func (c *Continuity) OnTimeUpdate(ctx context.Context, pos float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rec.PositionSeconds = pos
	if !c.limiter.Allow() {
		return
	}
	c.writeLocked(ctx)
}

// Flush persists the current position unconditionally (page-hide, teardown).
func (c *Continuity) Flush(ctx context.Context, pos float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rec.PositionSeconds = pos
	c.writeLocked(ctx)
}

// MarkInteracted records the first real user interaction. Subsequent calls
// are no-ops.
func (c *Continuity) MarkInteracted(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec.HasInteracted {
		return
	}
	c.rec.HasInteracted = true
	c.writeLocked(ctx)
}

// SetMuted persists the user's mute preference.
func (c *Continuity) SetMuted(ctx context.Context, muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec.Muted() == muted {
		return
	}
	c.rec.SetMuted(muted)
	c.writeLocked(ctx)
}

// writeLocked persists the record. Caller holds c.mu.
func (c *Continuity) writeLocked(ctx context.Context) {
	raw, err := json.Marshal(c.rec)
	if err != nil {
		c.log.Error("session record marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(ctx, c.key, string(raw)); err != nil {
		c.log.Warn("session record write failed", slog.String("error", err.Error()))
		return
	}
	if c.met != nil {
		c.met.IncSessionWrites()
	}
}
