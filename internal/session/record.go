package session

// MutePreference is the persisted mute choice.
type MutePreference string

const (
	MutePreferenceMuted   MutePreference = "muted"
	MutePreferenceUnmuted MutePreference = "unmuted"
)

// Record is the per-session playback record, keyed by asset identity. It is
// seeded at mount, overwritten on (throttled) position change, and reset only
// when a different asset is opened in the same session.
type Record struct {
	AssetID         string         `json:"currentAssetId"`
	PositionSeconds float64        `json:"playbackPositionSeconds"`
	HasInteracted   bool           `json:"hasInteracted"`
	MuteState       MutePreference `json:"preferredMuteState"`
}

// DefaultRecord returns the record used when no stored state exists for the
// asset: position 0, unmuted, not yet interacted.
func DefaultRecord(assetID string) Record {
	return Record{
		AssetID:   assetID,
		MuteState: MutePreferenceUnmuted,
	}
}

// Muted reports the stored mute preference as a bool.
func (r Record) Muted() bool {
	return r.MuteState == MutePreferenceMuted
}

// SetMuted stores a bool mute preference.
func (r *Record) SetMuted(muted bool) {
	if muted {
		r.MuteState = MutePreferenceMuted
	} else {
		r.MuteState = MutePreferenceUnmuted
	}
}
