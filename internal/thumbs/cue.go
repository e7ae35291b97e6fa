package thumbs

import (
	"strconv"
	"strings"
)

// Cue maps one time range to a sub-region of a sprite sheet image.
type Cue struct {
	Start     float64
	End       float64
	SpriteURL string
	X         int
	Y         int
	Width     int
	Height    int
}

// CropOffset returns the offsets that place the cue's sub-region inside a
// viewport of exactly Width x Height pixels: the full sprite image is drawn
// shifted by (-X, -Y).
func (c Cue) CropOffset() (dx, dy int) {
	return -c.X, -c.Y
}

// ParseCueSheet parses a cue sheet: blank-line-separated blocks of a timecode
// line ("HH:MM:SS.mmm --> HH:MM:SS.mmm", hours optional) followed by a
// reference line ("path#xywh=x,y,w,h"). Malformed cues are skipped, never
// fatal. Relative sprite paths are resolved against sheetURL.
func ParseCueSheet(sheetURL, text string) []Cue {
	lines := strings.Split(text, "\n")
	var cues []Cue

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "-->") {
			continue
		}

		times := strings.Split(line, "-->")
		if len(times) != 2 {
			continue
		}
		start, okStart := parseTimecode(strings.TrimSpace(times[0]))
		end, okEnd := parseTimecode(strings.TrimSpace(times[1]))
		if !okStart || !okEnd || start >= end {
			continue
		}

		if i+1 >= len(lines) {
			break
		}
		ref := strings.TrimSpace(lines[i+1])
		cue, ok := parseReference(sheetURL, ref)
		if !ok {
			continue
		}

		cue.Start = start
		cue.End = end
		cues = append(cues, cue)
	}

	return cues
}

// parseTimecode converts "HH:MM:SS.mmm" or "MM:SS.mmm" to seconds.
func parseTimecode(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 3:
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		sec, err3 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, false
		}
		return float64(h)*3600 + float64(m)*60 + sec, true
	case 2:
		m, err1 := strconv.Atoi(parts[0])
		sec, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return float64(m)*60 + sec, true
	default:
		return 0, false
	}
}

// parseReference parses "path#xywh=x,y,w,h". Any non-numeric coordinate
// rejects the cue.
func parseReference(sheetURL, line string) (Cue, bool) {
	parts := strings.Split(line, "#xywh=")
	if len(parts) != 2 || parts[0] == "" {
		return Cue{}, false
	}

	coords := strings.Split(parts[1], ",")
	if len(coords) != 4 {
		return Cue{}, false
	}
	vals := make([]int, 4)
	for i, c := range coords {
		n, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil {
			return Cue{}, false
		}
		vals[i] = n
	}

	return Cue{
		SpriteURL: resolvePath(sheetURL, parts[0]),
		X:         vals[0],
		Y:         vals[1],
		Width:     vals[2],
		Height:    vals[3],
	}, true
}

func resolvePath(sheetURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if i := strings.LastIndex(sheetURL, "/"); i >= 0 {
		return sheetURL[:i+1] + path
	}
	return path
}
