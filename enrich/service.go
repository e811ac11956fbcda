package enrich

import (
	"context"
	"strings"
	"sync"
	"time"

	"C90FM/identify"
	"C90FM/logger"
	"C90FM/model"
	"C90FM/storage"
)

const (
	fetchBatchSize = 50
	batchDelay     = 500 * time.Millisecond
)

// Resolved is the payload handed to per-song callbacks. Title echoes the
// raw title the lookup was issued for, so id-less songs can still be
// matched back to their queue entries.
type Resolved struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl"`
}

// Lookup resolves a fuzzy text query to song metadata; nil match means not
// found. Satisfied by identify.Client.
type Lookup interface {
	Identify(ctx context.Context, query string) (*identify.Match, error)
}

// Status is progress introspection for the UI.
type Status struct {
	IsRunning bool `json:"isRunning"`
	Remaining int  `json:"remaining"`
}

// Service fills in missing artist/cover-art for tracks whose only reliable
// information is a raw filename, against the on-disk cache first and the
// identification lookup second.
type Service struct {
	lookup Lookup
	cache  *Cache
	tracks *storage.TrackCache // long-term per-track store, may be nil

	mu         sync.Mutex
	activeRuns int
	remaining  int
}

func NewService(lookup Lookup, cache *Cache, tracks *storage.TrackCache) *Service {
	return &Service{lookup: lookup, cache: cache, tracks: tracks}
}

// ApplyCache merges cached metadata into a copy of songs. Input is not
// mutated; songs without a cache entry pass through untouched.
func (s *Service) ApplyCache(songs []model.Track) []model.Track {
	out := make([]model.Track, len(songs))
	copy(out, songs)
	for i := range out {
		if entry, ok := s.cache.Get(out[i].Title); ok {
			if entry.Artist != "" {
				out[i].Subtitle = entry.Artist
			}
			if entry.CoverURL != "" {
				out[i].CoverURL = entry.CoverURL
			}
		}
	}
	return out
}

// Status reports whether a fetch pass is in flight and how many songs it
// still has to resolve.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{IsRunning: s.activeRuns > 0, Remaining: s.remaining}
}

// UpdateCacheEntry upserts a single cache entry discovered out-of-band
// (e.g. from a native-engine track-changed event that carried metadata).
func (s *Service) UpdateCacheEntry(title, artist, coverURL string) {
	if title == "" {
		return
	}
	s.cache.Put(title, artist, coverURL)
}

// FetchMetadataForSongs resolves metadata for every song that has no cache
// entry yet, in parallel batches with a short delay between batches to
// bound the external request rate. The filter checks the cache rather than
// the songs' current in-memory metadata, so the same title recurring
// across screens does not trigger a refetch storm. Per-song failures are
// swallowed; the song stays absent from the cache and is eligible on a
// future pass. Safe to call again while a previous pass is in flight.
//
// Blocks until the pass completes; run it in a goroutine when the caller
// must not wait.
func (s *Service) FetchMetadataForSongs(ctx context.Context, songs []model.Track, onResolved func(songID string, res Resolved)) {
	var pending []model.Track
	for _, song := range songs {
		if song.Title == "" || s.cache.Has(song.Title) {
			continue
		}
		pending = append(pending, song)
	}
	if len(pending) == 0 {
		return
	}

	s.mu.Lock()
	s.activeRuns++
	s.remaining += len(pending)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.activeRuns--
		if s.activeRuns == 0 {
			s.remaining = 0
		}
		s.mu.Unlock()
	}()

	logger.Info("starting metadata fetch pass", logger.Int("songs", len(pending)))

	for start := 0; start < len(pending); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		var wg sync.WaitGroup
		for _, song := range pending[start:end] {
			wg.Add(1)
			go func(song model.Track) {
				defer wg.Done()
				s.resolveAndStore(ctx, song, onResolved)
				s.mu.Lock()
				if s.remaining > 0 {
					s.remaining--
				}
				s.mu.Unlock()
			}(song)
		}
		wg.Wait()

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(batchDelay):
			}
		}
	}
}

// ResolveTrack runs the lookup strategies for a single track and caches a
// hit. Returns nil when nothing was found.
func (s *Service) ResolveTrack(ctx context.Context, title, subtitle string) *Resolved {
	match := s.lookupWithStrategies(ctx, title, subtitle)
	if match == nil {
		return nil
	}
	s.cache.Put(title, match.Artist, match.CoverURL)
	return &Resolved{Title: title, Artist: match.Artist, CoverURL: match.CoverURL}
}

func (s *Service) resolveAndStore(ctx context.Context, song model.Track, onResolved func(string, Resolved)) {
	match := s.lookupWithStrategies(ctx, song.Title, song.Subtitle)
	if match == nil {
		return
	}

	s.cache.Put(song.Title, match.Artist, match.CoverURL)

	if s.tracks != nil {
		if err := s.tracks.Save(ctx, song.ID, match.Artist, match.CoverURL); err != nil {
			logger.Warn("failed to store track metadata", logger.String("track", song.ID), logger.ErrorField(err))
		}
	}

	if onResolved != nil {
		onResolved(song.ID, Resolved{Title: song.Title, Artist: match.Artist, CoverURL: match.CoverURL})
	}
}

// lookupWithStrategies tries, in order: the cleaned query, the
// super-cleaned query if different, then the first two words of the
// cleaned query. Stops at the first non-empty result.
func (s *Service) lookupWithStrategies(ctx context.Context, title, subtitle string) *identify.Match {
	cleaned := NormalizeTitle(title)
	if cleaned == "" {
		return nil
	}

	base := cleaned
	if usableArtist(subtitle) {
		base = strings.TrimSpace(cleaned + " " + strings.ToLower(subtitle))
	}

	queries := []string{base}
	addQuery := func(q string) {
		if q == "" {
			return
		}
		for _, existing := range queries {
			if existing == q {
				return
			}
		}
		queries = append(queries, q)
	}
	addQuery(SuperClean(base))
	addQuery(FirstWords(cleaned, 2))

	for _, q := range queries {
		match, err := s.lookup.Identify(ctx, q)
		if err != nil {
			logger.Debug("identify query failed", logger.String("query", q), logger.ErrorField(err))
			continue
		}
		if match != nil {
			return match
		}
	}
	return nil
}

func usableArtist(subtitle string) bool {
	return subtitle != "" && subtitle != model.UnknownArtist
}
