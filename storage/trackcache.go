package storage

import (
	"context"
	"encoding/json"
	"time"
)

const trackMetaPrefix = "trackmeta:"

// TrackMeta is long-term per-track metadata discovered through enrichment.
// It lives independently of the enrichment service's own title-keyed cache
// so a resolved artist/cover survives even if that cache file is lost.
type TrackMeta struct {
	Artist    string `json:"artist"`
	CoverURL  string `json:"coverUrl"`
	UpdatedAt int64  `json:"updatedAt"`
}

// TrackCache stores TrackMeta documents keyed by track id.
type TrackCache struct {
	store Store
}

func NewTrackCache(store Store) *TrackCache {
	return &TrackCache{store: store}
}

func (c *TrackCache) Save(ctx context.Context, trackID, artist, coverURL string) error {
	if trackID == "" {
		return nil
	}
	data, err := json.Marshal(TrackMeta{
		Artist:    artist,
		CoverURL:  coverURL,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, trackMetaPrefix+trackID, data)
}

func (c *TrackCache) Load(ctx context.Context, trackID string) (*TrackMeta, error) {
	data, err := c.store.Get(ctx, trackMetaPrefix+trackID)
	if err != nil || data == nil {
		return nil, err
	}
	var meta TrackMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, nil // corrupt entry, same as absent
	}
	return &meta, nil
}
