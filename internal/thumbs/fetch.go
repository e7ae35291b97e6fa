package thumbs

import (
	"context"
	"io"
	"net/http"
	"strings"

	"hls-player/internal/engine"
)

// ConventionalSheetName is the cue-sheet filename the transcoding pipeline
// writes next to the manifest.
const ConventionalSheetName = "origin_segment_Thumbnail_I-Frame.vtt"

// conventionalPosterName is the first sprite tile the pipeline writes.
const conventionalPosterName = "Thumbnail_000000001.jpg"

// Locate picks the cue sheet URL for a manifest: a discovered subtitle track
// whose URL signals a thumbnail track wins, otherwise the conventional
// filename in the manifest's directory.
func Locate(tracks []engine.Track, manifestURL string) string {
	for _, tr := range tracks {
		if tr.URI == "" || !strings.Contains(tr.URI, ".vtt") {
			continue
		}
		if strings.Contains(tr.URI, "Thumbnail") {
			return tr.URI
		}
	}
	return engine.BaseURL(manifestURL) + ConventionalSheetName
}

// PosterFromManifest derives the poster image URL (the first thumbnail tile)
// from a manifest URL. Returns "" for an empty input.
func PosterFromManifest(manifestURL string) string {
	if manifestURL == "" {
		return ""
	}
	return engine.BaseURL(manifestURL) + conventionalPosterName
}

// Fetch retrieves and parses the cue sheet at url. A missing sheet is not an
// error: any non-2xx response yields no cues and a nil error, and the player
// simply shows no previews. Only transport-level failures are returned.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Cue, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseCueSheet(url, string(body)), nil
}
