package player

import (
	"context"
	"strings"

	"C90FM/engine"
	"C90FM/enrich"
	"C90FM/logger"
	"C90FM/model"
)

// Dedupe removes duplicate tracks, keeping the first occurrence of each
// key. Tracks with no usable key pass through unconditionally.
func Dedupe(tracks []model.Track) []model.Track {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		key := t.Key()
		if key == "" {
			out = append(out, t)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SetQueue replaces the queue without touching the engine or current
// playback. Cached metadata is merged in before the swap.
func (p *Player) SetQueue(tracks []model.Track) {
	queue := Dedupe(tracks)
	if p.enrich != nil {
		queue = p.enrich.ApplyCache(queue)
	}

	p.mu.Lock()
	p.queue = queue
	p.mu.Unlock()

	p.saveQueue()
	p.notify()
}

// SetQueueWithPlayer replaces the queue and mirrors it 1:1 into the
// engine's playlist, then kicks off background enrichment for entries
// still missing cover art. It does not start playback.
func (p *Player) SetQueueWithPlayer(ctx context.Context, tracks []model.Track) {
	queue := Dedupe(tracks)
	if p.enrich != nil {
		queue = p.enrich.ApplyCache(queue)
	}

	p.mu.Lock()
	p.queue = queue
	p.mu.Unlock()

	if err := p.engine.Setup(ctx); err != nil {
		logger.Warn("engine setup failed", logger.ErrorField(err))
	}
	if err := p.engine.Reset(); err != nil {
		logger.Warn("engine reset failed", logger.ErrorField(err))
	}
	if err := p.engine.Add(queue); err != nil {
		logger.Warn("engine queue mirror failed", logger.ErrorField(err))
	}

	if p.enrich != nil {
		var missing []model.Track
		for _, t := range queue {
			if t.CoverURL == "" {
				missing = append(missing, t)
			}
		}
		if len(missing) > 0 {
			go p.enrich.FetchMetadataForSongs(context.Background(), missing, p.applyQueueEnrichment)
		}
	}

	logger.Info("queue replaced", logger.Int("tracks", len(queue)))
	p.saveQueue()
	p.notify()
}

// applyQueueEnrichment patches one queue entry with freshly resolved
// metadata. The queue may have been replaced since the fetch started, so
// the entry is re-located by id (title as fallback) and silently dropped
// when gone. The engine's mirrored entry at the same index and, when it is
// the same song, the now-playing slot are patched too.
func (p *Player) applyQueueEnrichment(songID string, res enrich.Resolved) {
	p.mu.Lock()
	idx := -1
	for i, t := range p.queue {
		if songID != "" && t.ID == songID {
			idx = i
			break
		}
	}
	if idx < 0 && res.Title != "" {
		for i, t := range p.queue {
			if t.ID == "" && strings.EqualFold(t.Title, res.Title) {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		if res.Artist != "" {
			p.queue[idx].Subtitle = res.Artist
		}
		if res.CoverURL != "" {
			p.queue[idx].CoverURL = res.CoverURL
		}
	}

	// The engine playlist omits source-less entries, so the queue index
	// has to be translated before patching the mirror.
	engIdx := -1
	if idx >= 0 && p.queue[idx].AudioSource != "" {
		engIdx = engineIndex(p.queue, idx)
	}

	patchNow := p.now != nil &&
		((songID != "" && p.now.ID == songID) ||
			(res.Title != "" && enrich.NormalizeTitle(p.now.Title) == enrich.NormalizeTitle(res.Title)))
	if patchNow {
		if res.Artist != "" {
			p.now.Subtitle = res.Artist
		}
		if res.CoverURL != "" {
			p.now.CoverURL = res.CoverURL
		}
	}
	p.mu.Unlock()

	if idx < 0 && !patchNow {
		return
	}

	if engIdx >= 0 {
		patch := engine.MetadataPatch{Artist: res.Artist, CoverURL: res.CoverURL}
		if err := p.engine.UpdateMetadata(engIdx, patch); err != nil {
			logger.Debug("engine metadata patch failed", logger.Int("index", engIdx), logger.ErrorField(err))
		}
	}

	p.saveQueue()
	if patchNow {
		p.saveNowPlaying()
	}
	p.notify()
}
