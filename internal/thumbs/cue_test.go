package thumbs

import (
	"math"
	"testing"
)

const sheetURL = "https://cdn.example.com/movie/42/origin_segment_Thumbnail_I-Frame.vtt"

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseCueSheet_twoWellFormedCues(t *testing.T) {
	text := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:05.000\n" +
		"sprite.jpg#xywh=0,0,160,90\n\n" +
		"00:00:05.000 --> 00:00:10.000\n" +
		"sprite.jpg#xywh=160,0,160,90\n"

	cues := ParseCueSheet(sheetURL, text)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}

	first := cues[0]
	if !almostEqual(first.Start, 0) || !almostEqual(first.End, 5) {
		t.Errorf("first cue times: got %v..%v", first.Start, first.End)
	}
	if first.SpriteURL != "https://cdn.example.com/movie/42/sprite.jpg" {
		t.Errorf("relative sprite path not resolved: %s", first.SpriteURL)
	}
	if first.X != 0 || first.Y != 0 || first.Width != 160 || first.Height != 90 {
		t.Errorf("first cue region: %+v", first)
	}

	second := cues[1]
	if !almostEqual(second.Start, 5) || second.X != 160 {
		t.Errorf("second cue: %+v", second)
	}
}

func TestParseCueSheet_skipsMalformedCoordinate(t *testing.T) {
	text := "00:00:00.000 --> 00:00:05.000\n" +
		"sprite.jpg#xywh=abc,0,160,90\n\n" +
		"00:00:05.000 --> 00:00:10.000\n" +
		"sprite.jpg#xywh=160,0,160,90\n"

	cues := ParseCueSheet(sheetURL, text)
	if len(cues) != 1 {
		t.Fatalf("expected malformed cue skipped, got %d cues", len(cues))
	}
	if !almostEqual(cues[0].Start, 5) {
		t.Errorf("surviving cue should be the second one, got start=%v", cues[0].Start)
	}
}

func TestParseCueSheet_skipsMalformedTimecode(t *testing.T) {
	text := "xx:yy:zz.000 --> 00:00:05.000\n" +
		"sprite.jpg#xywh=0,0,160,90\n\n" +
		"00:00:05.000 --> 00:00:10.000\n" +
		"sprite.jpg#xywh=160,0,160,90\n"

	cues := ParseCueSheet(sheetURL, text)
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
}

func TestParseCueSheet_invertedRangeSkipped(t *testing.T) {
	text := "00:00:10.000 --> 00:00:05.000\n" +
		"sprite.jpg#xywh=0,0,160,90\n"

	if cues := ParseCueSheet(sheetURL, text); len(cues) != 0 {
		t.Errorf("expected inverted range skipped, got %d cues", len(cues))
	}
}

func TestParseCueSheet_absoluteSpriteURLKept(t *testing.T) {
	text := "00:00:00.000 --> 00:00:05.000\n" +
		"https://other.example.com/s.jpg#xywh=0,0,160,90\n"

	cues := ParseCueSheet(sheetURL, text)
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	if cues[0].SpriteURL != "https://other.example.com/s.jpg" {
		t.Errorf("absolute URL rewritten: %s", cues[0].SpriteURL)
	}
}

func TestParseCueSheet_empty(t *testing.T) {
	if cues := ParseCueSheet(sheetURL, ""); len(cues) != 0 {
		t.Errorf("expected no cues from empty text, got %d", len(cues))
	}
}

func TestParseTimecode(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"00:00:05.000", 5, true},
		{"01:02:03.500", 3723.5, true},
		{"02:03.250", 123.25, true},
		{"03.000", 0, false},
		{"aa:bb", 0, false},
		{"00:xx:05.000", 0, false},
	}

	for _, tc := range tests {
		got, ok := parseTimecode(tc.in)
		if ok != tc.ok {
			t.Errorf("parseTimecode(%q): ok=%v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !almostEqual(got, tc.want) {
			t.Errorf("parseTimecode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCue_CropOffset(t *testing.T) {
	cue := Cue{X: 160, Y: 90, Width: 160, Height: 90}
	dx, dy := cue.CropOffset()
	if dx != -160 || dy != -90 {
		t.Errorf("CropOffset = (%d, %d), want (-160, -90)", dx, dy)
	}
}
