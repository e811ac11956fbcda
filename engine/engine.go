package engine

import (
	"context"

	"C90FM/model"
)

// EventType discriminates engine events.
type EventType string

const (
	EventStateChanged EventType = "state-changed"
	EventTrackChanged EventType = "active-track-changed"
)

// Event is an asynchronous notification from the native engine: either a
// playback-state change or an active-track change (the latter fires on
// auto-advance and on skips triggered outside the application, e.g. media
// keys).
type Event struct {
	Type  EventType
	State model.PlaybackState
	Track *model.Track
}

// MetadataPatch updates displayed metadata of an entry in the engine's
// internal playlist. Empty fields are left alone.
type MetadataPatch struct {
	Title    string
	Artist   string
	CoverURL string
}

// Engine is the native audio engine surface. Implementations must be safe
// for concurrent use. The null implementation makes every method a no-op so
// call sites never need an availability branch for safety, only for
// fallback behavior.
type Engine interface {
	// Available reports whether a real engine loaded.
	Available() bool

	// Setup initializes the engine. Idempotent: calling it on an engine
	// that is already set up is a no-op.
	Setup(ctx context.Context) error

	// Add appends tracks to the engine's internal playlist.
	Add(tracks []model.Track) error
	// Reset stops playback and clears the internal playlist.
	Reset() error

	Play() error
	Pause() error
	// State returns the engine's current playback state.
	State() (model.PlaybackState, error)

	SkipToNext() error
	SkipToPrevious() error
	// SkipTo jumps to the playlist entry at index.
	SkipTo(index int) error
	// SeekTo seeks within the current track, in milliseconds.
	SeekTo(ms int64) error

	Progress() (model.Progress, error)
	// Queue returns the engine's internal playlist.
	Queue() ([]model.Track, error)
	// ActiveTrack returns the currently loaded track, nil when idle.
	ActiveTrack() (*model.Track, error)
	// UpdateMetadata patches displayed metadata at a playlist index.
	UpdateMetadata(index int, patch MetadataPatch) error

	// Events returns the engine's event stream. A nil channel (never
	// delivering) is valid and is what the null engine returns.
	Events() <-chan Event

	Close() error
}
