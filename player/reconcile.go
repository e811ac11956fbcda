package player

import (
	"regexp"
	"strings"

	"C90FM/engine"
	"C90FM/model"
)

// eventLoop consumes the engine's event stream and reconciles local state
// with what the engine reports. A nil stream (null engine) means there is
// nothing to reconcile.
func (p *Player) eventLoop() {
	ch := p.engine.Events()
	if ch == nil {
		return
	}
	for {
		select {
		case <-p.stop:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Type {
			case engine.EventStateChanged:
				p.onStateChanged(ev.State)
			case engine.EventTrackChanged:
				p.onTrackChanged(ev.Track)
			}
		}
	}
}

// onStateChanged updates only the advisory isPlaying flag; the track
// identity is owned by track-changed events.
func (p *Player) onStateChanged(state model.PlaybackState) {
	playing := state.IsPlaying()

	p.mu.Lock()
	if p.now == nil || p.now.IsPlaying == playing {
		p.mu.Unlock()
		return
	}
	p.now.IsPlaying = playing
	p.mu.Unlock()

	p.saveNowPlaying()
	p.notify()
}

// onTrackChanged adopts the engine's new active track as now playing. The
// event payload is merged with richer local copies of the same track (the
// queue entry, then the previous now-playing if it is the same song), the
// title is split into artist and title, and history is updated. The
// merged track opens a new playback context, so the generation advances
// and any enrichment still pending for the previous one is orphaned.
func (p *Player) onTrackChanged(evTrack *model.Track) {
	if evTrack == nil {
		return
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen

	// The playing flag carries over from the previous track: a change
	// while paused (a lock-screen skip, say) keeps showing paused until
	// the engine's own state event says otherwise.
	playing := p.now != nil && p.now.IsPlaying

	merged := *evTrack
	if q := p.findQueueTrackLocked(merged); q != nil {
		mergeMissing(&merged, *q)
	}
	if p.now != nil && sameTrack(*p.now, merged) {
		mergeMissing(&merged, *p.now)
	}
	merged.IsPlaying = playing

	title, artist := ParseArtistTitle(merged.Title, merged.Subtitle)
	merged.Title = title
	merged.Subtitle = artist

	p.now = &merged
	p.pushHistoryLocked(merged)
	needCover := merged.CoverURL == ""
	track := merged
	p.mu.Unlock()

	if p.enrich != nil && artist != model.UnknownArtist {
		p.enrich.UpdateCacheEntry(title, artist, merged.CoverURL)
	}

	p.saveNowPlaying()
	p.saveHistory()
	p.notify()

	if needCover && p.enrich != nil {
		go p.enrichNowPlaying(gen, track)
	}
}

// findQueueTrackLocked matches t against the queue by id, then by exact
// title. Caller holds p.mu.
func (p *Player) findQueueTrackLocked(t model.Track) *model.Track {
	if t.ID != "" {
		for i := range p.queue {
			if p.queue[i].ID == t.ID {
				return &p.queue[i]
			}
		}
	}
	for i := range p.queue {
		if strings.EqualFold(p.queue[i].Title, t.Title) {
			return &p.queue[i]
		}
	}
	return nil
}

// mergeMissing fills dst's zero fields from src.
func mergeMissing(dst *model.Track, src model.Track) {
	if dst.ID == "" {
		dst.ID = src.ID
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Subtitle == "" || dst.Subtitle == model.UnknownArtist {
		if src.Subtitle != "" {
			dst.Subtitle = src.Subtitle
		}
	}
	if dst.Album == "" {
		dst.Album = src.Album
	}
	if dst.AudioSource == "" {
		dst.AudioSource = src.AudioSource
	}
	if dst.CoverURL == "" {
		dst.CoverURL = src.CoverURL
	}
	if dst.Route == "" {
		dst.Route = src.Route
	}
	if dst.Params == nil {
		dst.Params = src.Params
	}
	if dst.Duration == 0 {
		dst.Duration = src.Duration
	}
}

// Dash separators between artist and title, with optional surrounding
// whitespace. Covers hyphen, en dash and em dash.
var artistTitleSepRe = regexp.MustCompile(`\s*[-\x{2013}\x{2014}]\s*`)

// ParseArtistTitle splits an "Artist - Title" string. The split is taken
// only when it does not contradict a known artist: the artist slot must be
// empty, the unknown sentinel, or already equal to the would-be artist
// prefix. Remaining parts rejoin with " - " so titles containing dashes
// survive. Empty results fall back to the sentinels.
func ParseArtistTitle(rawTitle, rawArtist string) (title, artist string) {
	title = strings.TrimSpace(rawTitle)
	artist = strings.TrimSpace(rawArtist)

	parts := artistTitleSepRe.Split(title, -1)
	if len(parts) >= 2 && strings.TrimSpace(parts[0]) != "" {
		head := strings.TrimSpace(parts[0])
		if artist == "" || artist == model.UnknownArtist || strings.EqualFold(artist, head) {
			artist = head
			title = strings.TrimSpace(strings.Join(parts[1:], " - "))
		}
	}

	if title == "" {
		title = model.UnknownTitle
	}
	if artist == "" {
		artist = model.UnknownArtist
	}
	return title, artist
}
