package storage

import (
	"context"
	"encoding/json"
	"strconv"

	"C90FM/logger"
	"C90FM/model"
)

// Keys for the five persisted playback documents.
const (
	keyNowPlaying = "player:nowplaying"
	keyQueue      = "player:queue"
	keyHistory    = "player:history"
	keyPosition   = "player:position"
	keySource     = "player:source"
)

// PlaybackStore persists the playback session as JSON documents. Loads
// return type-appropriate empty defaults on missing or corrupt data; a
// corrupt document is logged and treated the same as an absent one.
type PlaybackStore struct {
	store Store
}

func NewPlaybackStore(store Store) *PlaybackStore {
	return &PlaybackStore{store: store}
}

func (p *PlaybackStore) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, key, data)
}

// load unmarshals the document at key into out. Returns false when the key
// is absent or the stored JSON cannot be parsed.
func (p *PlaybackStore) load(ctx context.Context, key string, out interface{}) bool {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		logger.Warn("failed to read persisted state", logger.String("key", key), logger.ErrorField(err))
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("corrupt persisted state, using default", logger.String("key", key), logger.ErrorField(err))
		return false
	}
	return true
}

func (p *PlaybackStore) SaveNowPlaying(ctx context.Context, track *model.Track) error {
	if track == nil {
		return p.store.Delete(ctx, keyNowPlaying)
	}
	return p.save(ctx, keyNowPlaying, track)
}

func (p *PlaybackStore) LoadNowPlaying(ctx context.Context) *model.Track {
	var track model.Track
	if !p.load(ctx, keyNowPlaying, &track) {
		return nil
	}
	return &track
}

func (p *PlaybackStore) SaveQueue(ctx context.Context, queue []model.Track) error {
	if queue == nil {
		queue = []model.Track{}
	}
	return p.save(ctx, keyQueue, queue)
}

func (p *PlaybackStore) LoadQueue(ctx context.Context) []model.Track {
	var queue []model.Track
	if !p.load(ctx, keyQueue, &queue) {
		return []model.Track{}
	}
	return queue
}

func (p *PlaybackStore) SaveRecentHistory(ctx context.Context, history []model.Track) error {
	if history == nil {
		history = []model.Track{}
	}
	return p.save(ctx, keyHistory, history)
}

func (p *PlaybackStore) LoadRecentHistory(ctx context.Context) []model.Track {
	var history []model.Track
	if !p.load(ctx, keyHistory, &history) {
		return []model.Track{}
	}
	return history
}

// SavePosition stores the advisory playback position in milliseconds.
func (p *PlaybackStore) SavePosition(ctx context.Context, ms int64) error {
	return p.store.Set(ctx, keyPosition, []byte(strconv.FormatInt(ms, 10)))
}

func (p *PlaybackStore) LoadPosition(ctx context.Context) int64 {
	data, err := p.store.Get(ctx, keyPosition)
	if err != nil || data == nil {
		return 0
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

func (p *PlaybackStore) SaveSource(ctx context.Context, src model.SourceDescriptor) error {
	return p.save(ctx, keySource, src)
}

func (p *PlaybackStore) LoadSource(ctx context.Context) model.SourceDescriptor {
	var src model.SourceDescriptor
	if !p.load(ctx, keySource, &src) {
		return model.SourceDescriptor{SourceName: model.DefaultSourceName, History: []string{}}
	}
	if src.SourceName == "" {
		src.SourceName = model.DefaultSourceName
	}
	if src.History == nil {
		src.History = []string{}
	}
	return src
}

// ClearPlaybackState removes the session documents. Recent history is kept
// on purpose: it is long-term listening history, not session state.
func (p *PlaybackStore) ClearPlaybackState(ctx context.Context) error {
	return p.store.Delete(ctx, keyNowPlaying, keyQueue, keyPosition, keySource)
}
