package player

import (
	"context"
	"strings"
	"time"

	"C90FM/enrich"
	"C90FM/logger"
	"C90FM/model"
)

const resolveTimeout = 30 * time.Second

// PlayTrack loads and plays a track. The whole current queue is mirrored
// into the engine so auto-advance and skips operate on it; when the
// requested track is not part of the queue it is appended at the end. The
// in-memory state is updated optimistically once the engine calls have
// been dispatched.
func (p *Player) PlayTrack(ctx context.Context, track model.Track) {
	if track.AudioSource == "" && track.Route == "" {
		logger.Warn("play request without audio source or route dropped",
			logger.String("title", track.Title))
		return
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	queue := append([]model.Track(nil), p.queue...)
	p.mu.Unlock()

	if track.CoverURL == "" && p.enrich != nil {
		go p.enrichNowPlaying(gen, track)
	}

	if err := p.engine.Setup(ctx); err != nil {
		logger.Warn("engine setup failed", logger.ErrorField(err))
	}
	if err := p.engine.Reset(); err != nil {
		logger.Warn("engine reset failed", logger.ErrorField(err))
	}
	if err := p.engine.Add(queue); err != nil {
		logger.Warn("engine queue mirror failed", logger.ErrorField(err))
	}

	idx := indexOfTrack(queue, track)
	switch {
	case track.AudioSource == "":
		// Route-only entry: it opens a screen, there is nothing for the
		// engine to load beyond the mirrored queue.
	case idx < 0:
		// Off-queue request, e.g. straight from a search result.
		if err := p.engine.Add([]model.Track{track}); err != nil {
			logger.Warn("engine add failed", logger.ErrorField(err))
		}
		p.skipAndPlay(engineIndex(queue, len(queue)))
	default:
		p.skipAndPlay(engineIndex(queue, idx))
	}

	p.mu.Lock()
	loaded := track
	loaded.IsPlaying = true
	p.now = &loaded
	p.pushHistoryLocked(loaded)
	p.mu.Unlock()

	logger.Info("track loaded",
		logger.String("title", track.Title),
		logger.String("artist", track.Subtitle))

	p.saveNowPlaying()
	p.saveHistory()
	p.notify()
}

// PlayNext advances to the next track. The engine skip is tried first;
// when it refuses (end of playlist, engine unavailable) the player falls
// back to stepping through its own queue. No wraparound at the end.
func (p *Player) PlayNext(ctx context.Context) {
	p.skip(ctx, p.engine.SkipToNext, 1)
}

// PlayPrev goes back to the previous track. Same fallback as PlayNext; no
// wraparound at the start.
func (p *Player) PlayPrev(ctx context.Context) {
	p.skip(ctx, p.engine.SkipToPrevious, -1)
}

func (p *Player) skip(ctx context.Context, engineSkip func() error, delta int) {
	if p.engine.Available() {
		if err := engineSkip(); err == nil {
			if err := p.engine.Play(); err != nil {
				logger.Warn("engine play failed", logger.ErrorField(err))
			}
			return
		} else {
			logger.Debug("engine skip refused, stepping queue manually", logger.ErrorField(err))
		}
	}
	p.stepQueue(ctx, delta)
}

// stepQueue moves delta positions relative to the current track's queue
// index. At either boundary it is a no-op.
func (p *Player) stepQueue(ctx context.Context, delta int) {
	p.mu.Lock()
	var next *model.Track
	if idx := p.currentIndexLocked(); idx >= 0 {
		if n := idx + delta; n >= 0 && n < len(p.queue) {
			t := p.queue[n]
			next = &t
		}
	}
	p.mu.Unlock()

	if next == nil {
		return
	}
	p.PlayTrack(ctx, *next)
}

// TogglePlayPause flips pause based on what the engine reports, never on
// local state. The isPlaying flag follows via the engine's state event.
func (p *Player) TogglePlayPause() {
	if !p.engine.Available() {
		return
	}

	state, err := p.engine.State()
	if err != nil {
		logger.Warn("engine state query failed", logger.ErrorField(err))
		return
	}

	if state.IsPlaying() {
		err = p.engine.Pause()
	} else {
		err = p.engine.Play()
	}
	if err != nil {
		logger.Warn("engine toggle failed", logger.ErrorField(err))
	}
}

// SeekTo seeks within the current track and records the new position.
func (p *Player) SeekTo(ms int64) {
	if err := p.engine.SeekTo(ms); err != nil {
		logger.Warn("engine seek failed", logger.Int64("ms", ms), logger.ErrorField(err))
		return
	}
	p.savePosition(ms)
}

// ClearAll resets the session: engine playlist, now playing, queue and
// source lineage, plus the persisted copies of each. Recent history
// survives. Safe to call on an already-empty player.
func (p *Player) ClearAll(ctx context.Context) {
	if err := p.engine.Reset(); err != nil {
		logger.Warn("engine reset failed", logger.ErrorField(err))
	}

	p.mu.Lock()
	p.gen++
	p.now = nil
	p.queue = nil
	p.sourceHistory = nil
	p.sourceName = model.DefaultSourceName
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.ClearPlaybackState(ctx); err != nil {
			logger.Warn("failed to clear persisted playback state", logger.ErrorField(err))
		}
	}
	logger.Info("playback session cleared")
	p.notify()
}

// enrichNowPlaying resolves artist and cover art for the loaded track and
// patches the now-playing slot if, and only if, it is still current. The
// lookup may return long after the user moved on; gen pins the request to
// the playback context that issued it.
func (p *Player) enrichNowPlaying(gen int64, track model.Track) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	res := p.enrich.ResolveTrack(ctx, track.Title, track.Subtitle)
	if res == nil {
		return
	}

	p.mu.Lock()
	if p.gen != gen || p.now == nil || !sameTrack(*p.now, track) {
		p.mu.Unlock()
		return
	}
	if res.Artist != "" {
		p.now.Subtitle = res.Artist
	}
	if res.CoverURL != "" {
		p.now.CoverURL = res.CoverURL
	}
	p.mu.Unlock()

	p.saveNowPlaying()
	p.notify()
}

func (p *Player) skipAndPlay(engineIdx int) {
	if err := p.engine.SkipTo(engineIdx); err != nil {
		logger.Warn("engine skip failed", logger.Int("index", engineIdx), logger.ErrorField(err))
	}
	if err := p.engine.Play(); err != nil {
		logger.Warn("engine play failed", logger.ErrorField(err))
	}
}

// engineIndex maps a queue index to the engine's playlist index. Entries
// without an audio source are never handed to the engine, so the engine's
// playlist is the queue minus those entries and every index after one
// shifts down.
func engineIndex(queue []model.Track, i int) int {
	n := 0
	for j := 0; j < i && j < len(queue); j++ {
		if queue[j].AudioSource != "" {
			n++
		}
	}
	return n
}

// sameTrack reports whether a and b denote the same logical track: by id
// when both carry one, by normalized title otherwise.
func sameTrack(a, b model.Track) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return enrich.NormalizeTitle(a.Title) == enrich.NormalizeTitle(b.Title)
}

// indexOfTrack finds track in queue by id first, then by exact title.
func indexOfTrack(queue []model.Track, track model.Track) int {
	if track.ID != "" {
		for i, t := range queue {
			if t.ID == track.ID {
				return i
			}
		}
	}
	for i, t := range queue {
		if t.ID == "" && strings.EqualFold(t.Title, track.Title) {
			return i
		}
	}
	return -1
}

// currentIndexLocked locates the now-playing track in the queue, matching
// by id and falling back to title plus subtitle. Caller holds p.mu.
func (p *Player) currentIndexLocked() int {
	if p.now == nil {
		return -1
	}
	if p.now.ID != "" {
		for i, t := range p.queue {
			if t.ID == p.now.ID {
				return i
			}
		}
	}
	for i, t := range p.queue {
		if strings.EqualFold(t.Title, p.now.Title) && strings.EqualFold(t.Subtitle, p.now.Subtitle) {
			return i
		}
	}
	return -1
}
