package surface

import (
	"fmt"
	"sync"
	"time"

	"hls-player/internal/player"
)

// FormatTime renders a clock as "M:SS", or "H:MM:SS" from one hour up.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// StateView is the JSON shape of a player state snapshot for the surface.
type StateView struct {
	State            string     `json:"state"`
	IsPlaying        bool       `json:"isPlaying"`
	CurrentTime      float64    `json:"currentTime"`
	Duration         float64    `json:"duration"`
	Clock            string     `json:"clock"`
	ProgressPercent  float64    `json:"progressPercent"`
	Volume           float64    `json:"volume"`
	IsMuted          bool       `json:"isMuted"`
	IsFullscreen     bool       `json:"isFullscreen"`
	IsTheater        bool       `json:"isTheater"`
	Loading          bool       `json:"loading"`
	ThumbnailsLoaded bool       `json:"thumbnailsLoaded"`
	VolumeSlider     bool       `json:"volumeSliderVisible"`
	Error            *ErrorView `json:"error"`
}

// ErrorView is the error overlay payload.
type ErrorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BuildStateView renders a controller snapshot for the wire.
func BuildStateView(snap player.Snapshot, thumbnailsLoaded, volumeSlider bool) StateView {
	v := StateView{
		State:            snap.State.String(),
		IsPlaying:        snap.IsPlaying,
		CurrentTime:      snap.CurrentTime,
		Duration:         snap.Duration,
		Clock:            FormatTime(snap.CurrentTime),
		Volume:           snap.Volume,
		IsMuted:          snap.IsMuted,
		IsFullscreen:     snap.IsFullscreen,
		IsTheater:        snap.IsTheater,
		Loading:          snap.Loading(),
		ThumbnailsLoaded: thumbnailsLoaded,
		VolumeSlider:     volumeSlider,
	}
	if snap.Duration > 0 {
		v.ProgressPercent = snap.CurrentTime / snap.Duration * 100
	}
	if snap.Err != nil {
		v.Error = &ErrorView{Kind: snap.Err.Kind.String(), Message: snap.Err.Message}
	}
	return v
}

const volumeHideDelay = 400 * time.Millisecond

// VolumeUI tracks the volume slider's reveal state. The slider shows on
// pointer enter; hiding is deferred so crossing from the icon to the slider
// inside the compound control never flickers it away.
type VolumeUI struct {
	mu      sync.Mutex
	visible bool
	hide    *time.Timer
	// onChange fires when visibility actually flips.
	onChange func(visible bool)
}

// NewVolumeUI returns a VolumeUI. onChange may be nil.
func NewVolumeUI(onChange func(visible bool)) *VolumeUI {
	return &VolumeUI{onChange: onChange}
}

// PointerEnter reveals the slider and cancels any pending hide.
func (v *VolumeUI) PointerEnter() {
	v.mu.Lock()
	if v.hide != nil {
		v.hide.Stop()
		v.hide = nil
	}
	changed := !v.visible
	v.visible = true
	cb := v.onChange
	v.mu.Unlock()

	if changed && cb != nil {
		cb(true)
	}
}

// PointerLeave schedules the hide; a re-enter before the delay cancels it.
func (v *VolumeUI) PointerLeave() {
	v.mu.Lock()
	if v.hide != nil {
		v.hide.Stop()
	}
	v.hide = time.AfterFunc(volumeHideDelay, func() {
		v.mu.Lock()
		changed := v.visible
		v.visible = false
		v.hide = nil
		cb := v.onChange
		v.mu.Unlock()
		if changed && cb != nil {
			cb(false)
		}
	})
	v.mu.Unlock()
}

// Visible reports whether the slider is shown.
func (v *VolumeUI) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}
