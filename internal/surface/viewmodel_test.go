package surface

import (
	"errors"
	"testing"
	"time"

	"hls-player/internal/engine"
	"hls-player/internal/player"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{7, "0:07"},
		{65, "1:05"},
		{600, "10:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3723.5, "1:02:03"},
		{-5, "0:00"},
	}
	for _, tc := range tests {
		if got := FormatTime(tc.seconds); got != tc.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestBuildStateView(t *testing.T) {
	snap := player.Snapshot{
		State:       player.StateReadyPlaying,
		IsPlaying:   true,
		CurrentTime: 30,
		Duration:    120,
		Volume:      0.5,
	}

	v := BuildStateView(snap, true, false)
	if v.State != "ready_playing" || !v.IsPlaying {
		t.Errorf("state view = %+v", v)
	}
	if v.ProgressPercent != 25 {
		t.Errorf("progress = %v, want 25", v.ProgressPercent)
	}
	if v.Clock != "0:30" {
		t.Errorf("clock = %q, want 0:30", v.Clock)
	}
	if !v.ThumbnailsLoaded || v.VolumeSlider {
		t.Errorf("flags not carried through: %+v", v)
	}
	if v.Error != nil {
		t.Errorf("unexpected error view: %+v", v.Error)
	}
}

func TestBuildStateView_zeroDuration(t *testing.T) {
	v := BuildStateView(player.Snapshot{State: player.StateLoading}, false, false)
	if v.ProgressPercent != 0 {
		t.Errorf("progress with zero duration = %v, want 0", v.ProgressPercent)
	}
	if !v.Loading {
		t.Error("loading flag not set for the loading state")
	}
}

func TestBuildStateView_error(t *testing.T) {
	snap := player.Snapshot{
		State: player.StateError,
		Err:   &engine.Error{Kind: engine.KindMedia, Message: "decode failure", Err: errors.New("boom")},
	}

	v := BuildStateView(snap, false, false)
	if v.Error == nil {
		t.Fatal("error view missing")
	}
	if v.Error.Kind != "media" || v.Error.Message != "decode failure" {
		t.Errorf("error view = %+v", v.Error)
	}
}

func TestVolumeUI_deferredHide(t *testing.T) {
	ui := NewVolumeUI(nil)

	ui.PointerEnter()
	if !ui.Visible() {
		t.Fatal("slider not shown on pointer enter")
	}

	ui.PointerLeave()
	if !ui.Visible() {
		t.Error("slider hidden before the leave delay elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for ui.Visible() {
		if time.Now().After(deadline) {
			t.Fatal("slider never hid after pointer leave")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestVolumeUI_reenterCancelsHide(t *testing.T) {
	ui := NewVolumeUI(nil)

	ui.PointerEnter()
	ui.PointerLeave()
	ui.PointerEnter() // crossing from icon to slider

	time.Sleep(volumeHideDelay + 100*time.Millisecond)
	if !ui.Visible() {
		t.Error("re-enter did not cancel the pending hide")
	}
}

func TestVolumeUI_onChangeFiresOnFlips(t *testing.T) {
	changes := make(chan bool, 8)
	ui := NewVolumeUI(func(v bool) { changes <- v })

	ui.PointerEnter()
	ui.PointerEnter() // already visible, no flip

	select {
	case v := <-changes:
		if !v {
			t.Fatalf("first change = %v, want visible", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no change callback for pointer enter")
	}

	ui.PointerLeave()
	select {
	case v := <-changes:
		if v {
			t.Fatalf("second change = %v, want hidden", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change callback after the hide delay")
	}

	select {
	case v := <-changes:
		t.Fatalf("extra change callback: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}
