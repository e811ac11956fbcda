package model

import (
	"bytes"
	"encoding/json"
)

const (
	// Sentinels used when a scanned file carries no usable tag data.
	UnknownTitle  = "Unknown Title"
	UnknownArtist = "Unknown Artist"
)

// AudioSource is a playable URI. Clients historically send either a plain
// string or a {"uri": "..."} wrapper (bundled assets); both decode to the
// bare URI so everything past the JSON boundary deals in a single string.
type AudioSource string

func (s *AudioSource) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		*s = AudioSource(wrapped.URI)
		return nil
	}
	var plain string
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	*s = AudioSource(plain)
	return nil
}

// Track is a single playable item with display metadata and an audio source.
type Track struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Subtitle    string            `json:"subtitle,omitempty"` // artist
	Album       string            `json:"album,omitempty"`
	AudioSource AudioSource       `json:"audioSource,omitempty"`
	CoverURL    string            `json:"coverUrl,omitempty"`
	Route       string            `json:"route,omitempty"` // screen to reopen the full player view
	Params      map[string]string `json:"params,omitempty"`
	Duration    float64           `json:"duration,omitempty"` // seconds
	IsPlaying   bool              `json:"isPlaying,omitempty"` // advisory; the engine owns the real state
}

// Key is the effective identity used for queue deduplication and
// active-track matching: id, falling back to the audio source, falling back
// to the title for ad hoc items with neither.
func (t Track) Key() string {
	if t.ID != "" {
		return t.ID
	}
	if t.AudioSource != "" {
		return string(t.AudioSource)
	}
	return t.Title
}

// HistoryKey identifies a track within recent history, where id-less
// entries are collapsed by title plus artist instead of audio source.
func (t Track) HistoryKey() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Title + "|" + t.Subtitle
}
