package thumbs

import "math"

// Index answers "nearest cue to time T" over a parsed cue set. It is built
// once per manifest load and read-only afterwards, so concurrent lookups
// need no locking. A linear scan is fine at the expected scale (tens of
// cues).
type Index struct {
	cues []Cue
}

// NewIndex builds an index over cues. An empty or nil slice is valid: every
// lookup returns nil and Loaded reports false.
func NewIndex(cues []Cue) *Index {
	return &Index{cues: cues}
}

// Loaded reports whether any cues are available.
func (ix *Index) Loaded() bool {
	return len(ix.cues) > 0
}

// Lookup returns the cue whose start time is nearest to t (ties broken by the
// earlier time), or nil when the index is empty. This holds for times before
// the first cue and after the last.
func (ix *Index) Lookup(t float64) *Cue {
	if len(ix.cues) == 0 {
		return nil
	}

	best := 0
	bestDist := math.Abs(ix.cues[0].Start - t)
	for i := 1; i < len(ix.cues); i++ {
		d := math.Abs(ix.cues[i].Start - t)
		if d < bestDist || (d == bestDist && ix.cues[i].Start < ix.cues[best].Start) {
			best = i
			bestDist = d
		}
	}

	cue := ix.cues[best]
	return &cue
}
