package model

// PlaybackState mirrors the native engine's state enum.
type PlaybackState string

const (
	StateNone    PlaybackState = "none"
	StateReady   PlaybackState = "ready"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

// IsPlaying maps the engine state enum onto the boolean the UI cares about.
// "ready" counts as not playing.
func (s PlaybackState) IsPlaying() bool {
	return s == StatePlaying
}

// Progress is a point-in-time playback position report.
type Progress struct {
	Position int64 `json:"position"` // milliseconds
	Duration int64 `json:"duration"` // milliseconds
}

// DefaultSourceName labels the queue context when nothing better is known.
const DefaultSourceName = "Local Library"

// SourceDescriptor records where the current queue came from, plus an MRU
// history of prior browsing contexts.
type SourceDescriptor struct {
	SourceName string   `json:"sourceName"`
	History    []string `json:"history"`
}
