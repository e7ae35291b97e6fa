package engine

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const hlsMimeType = "application/vnd.apple.mpegurl"

// Variant is one quality level advertised by a master playlist.
type Variant struct {
	URI        string
	Bandwidth  int
	Resolution string
}

// Track is a text/subtitle rendition advertised by a playlist.
type Track struct {
	Name     string
	Language string
	URI      string
}

// Manifest is the parsed view of an HLS playlist the software engine needs:
// quality variants (master), total clip duration (media), and any text
// tracks discovered along the way.
type Manifest struct {
	URL      string
	Master   bool
	Variants []Variant
	Tracks   []Track

	// Media playlist fields.
	SegmentDurations []float64
	Ended            bool
}

// Duration returns the total clip duration in seconds (sum of segment
// durations), or 0 for a master playlist.
func (m *Manifest) Duration() float64 {
	total := 0.0
	for _, d := range m.SegmentDurations {
		total += d
	}
	return total
}

// BestVariant returns the variant with the highest bandwidth, or false when
// the manifest has none.
func (m *Manifest) BestVariant() (Variant, bool) {
	if len(m.Variants) == 0 {
		return Variant{}, false
	}
	best := m.Variants[0]
	for _, v := range m.Variants[1:] {
		if v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best, true
}

// ParseManifest parses an HLS playlist fetched from manifestURL. It handles
// both master and media playlists; relative URIs are resolved against
// manifestURL. Unknown tags are ignored.
func ParseManifest(manifestURL, text string) (*Manifest, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "#EXTM3U" {
		return nil, fmt.Errorf("not an HLS playlist: missing #EXTM3U header")
	}

	m := &Manifest{URL: manifestURL}

	var pendingVariant *Variant
	var pendingDuration float64
	havePendingDuration := false

	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			m.Master = true
			attrs := parseAttributeList(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
			v := Variant{Resolution: attrs["RESOLUTION"]}
			if bw, err := strconv.Atoi(attrs["BANDWIDTH"]); err == nil {
				v.Bandwidth = bw
			}
			pendingVariant = &v

		case strings.HasPrefix(line, "#EXT-X-MEDIA:"):
			attrs := parseAttributeList(strings.TrimPrefix(line, "#EXT-X-MEDIA:"))
			if attrs["TYPE"] != "SUBTITLES" || attrs["URI"] == "" {
				continue
			}
			m.Tracks = append(m.Tracks, Track{
				Name:     attrs["NAME"],
				Language: attrs["LANGUAGE"],
				URI:      ResolveURL(manifestURL, attrs["URI"]),
			})

		case strings.HasPrefix(line, "#EXTINF:"):
			spec := strings.TrimPrefix(line, "#EXTINF:")
			if i := strings.Index(spec, ","); i >= 0 {
				spec = spec[:i]
			}
			d, err := strconv.ParseFloat(strings.TrimSpace(spec), 64)
			if err != nil {
				// Malformed duration: drop the segment, keep parsing.
				continue
			}
			pendingDuration = d
			havePendingDuration = true

		case line == "#EXT-X-ENDLIST":
			m.Ended = true

		case strings.HasPrefix(line, "#"):
			// Unknown tag.

		default:
			// URI line: belongs to the preceding #EXT-X-STREAM-INF or #EXTINF.
			if pendingVariant != nil {
				pendingVariant.URI = ResolveURL(manifestURL, line)
				m.Variants = append(m.Variants, *pendingVariant)
				pendingVariant = nil
			} else if havePendingDuration {
				m.SegmentDurations = append(m.SegmentDurations, pendingDuration)
				havePendingDuration = false
			}
		}
	}

	return m, nil
}

// parseAttributeList parses an HLS attribute list (KEY=VALUE pairs separated
// by commas, values optionally quoted; commas inside quotes do not split).
func parseAttributeList(s string) map[string]string {
	attrs := make(map[string]string)

	var parts []string
	var b strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}

	for _, p := range parts {
		kv := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(kv) != 2 {
			continue
		}
		attrs[kv[0]] = strings.Trim(kv[1], `"`)
	}
	return attrs
}

// ResolveURL resolves ref against base, returning ref unchanged when it is
// already absolute or when base cannot be parsed.
func ResolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// BaseURL returns the directory of a manifest URL, with a trailing slash.
func BaseURL(manifestURL string) string {
	if i := strings.LastIndex(manifestURL, "/"); i >= 0 {
		return manifestURL[:i+1]
	}
	return manifestURL
}
