package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"C90FM/logger"
	"C90FM/model"
	"C90FM/player"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
}

// Library indexes the audio files under a music directory. Track ids are
// derived from the file path, so rescans and restarts keep them stable.
type Library struct {
	musicDir   string
	artworkDir string

	mu     sync.RWMutex
	tracks []model.Track
	byID   map[string]model.Track
}

func New(musicDir, cacheDir string) *Library {
	return &Library{
		musicDir:   musicDir,
		artworkDir: filepath.Join(cacheDir, "artwork"),
		byID:       make(map[string]model.Track),
	}
}

// ArtworkDir is where extracted embedded artwork lands; the HTTP layer
// serves it under /artwork/.
func (l *Library) ArtworkDir() string { return l.artworkDir }

// Scan walks the music directory and rebuilds the index. Unreadable files
// are logged and skipped; the scan itself only fails when the directory
// cannot be walked at all.
func (l *Library) Scan() error {
	if l.musicDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.artworkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create artwork directory: %w", err)
	}

	var tracks []model.Track
	err := filepath.Walk(l.musicDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable path", logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		if info.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		tracks = append(tracks, l.trackFromFile(path))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan music directory: %w", err)
	}

	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].Subtitle != tracks[j].Subtitle {
			return tracks[i].Subtitle < tracks[j].Subtitle
		}
		return tracks[i].Title < tracks[j].Title
	})

	byID := make(map[string]model.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	l.mu.Lock()
	l.tracks = tracks
	l.byID = byID
	l.mu.Unlock()

	logger.Info("library scan complete", logger.Int("tracks", len(tracks)))
	return nil
}

func trackID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()
}

func (l *Library) trackFromFile(path string) model.Track {
	id := trackID(path)
	track := model.Track{
		ID:          id,
		AudioSource: model.AudioSource(path),
		Title:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Debug("failed to open audio file", logger.String("path", path), logger.ErrorField(err))
		return finishTrack(track)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		// No usable tags; the filename carries what we know.
		return finishTrack(track)
	}

	if t := strings.TrimSpace(meta.Title()); t != "" {
		track.Title = t
	}
	track.Subtitle = strings.TrimSpace(meta.Artist())
	track.Album = strings.TrimSpace(meta.Album())

	if pic := meta.Picture(); pic != nil {
		if cover := l.saveArtwork(id, pic); cover != "" {
			track.CoverURL = cover
		}
	}

	return finishTrack(track)
}

// finishTrack normalizes the title/artist pair, splitting combined
// "Artist - Title" strings that single-field tags and filenames produce.
func finishTrack(t model.Track) model.Track {
	t.Title, t.Subtitle = player.ParseArtistTitle(t.Title, t.Subtitle)
	return t
}

func (l *Library) saveArtwork(id string, pic *tag.Picture) string {
	ext := strings.ToLower(pic.Ext)
	if ext == "" {
		ext = "jpg"
	}
	name := id + "." + ext
	dest := filepath.Join(l.artworkDir, name)

	if _, err := os.Stat(dest); err == nil {
		return "/artwork/" + name
	}
	if err := os.WriteFile(dest, pic.Data, 0o644); err != nil {
		logger.Warn("failed to extract artwork", logger.String("track", id), logger.ErrorField(err))
		return ""
	}
	return "/artwork/" + name
}

// Tracks returns the indexed tracks, artist then title order.
func (l *Library) Tracks() []model.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Track(nil), l.tracks...)
}

// Get returns the track with the given id, false when unknown.
func (l *Library) Get(id string) (model.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.byID[id]
	return t, ok
}

// Search does a case-insensitive substring match over title, artist and
// album.
func (l *Library) Search(query string) []model.Track {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return l.Tracks()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Track
	for _, t := range l.tracks {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Subtitle), q) ||
			strings.Contains(strings.ToLower(t.Album), q) {
			out = append(out, t)
		}
	}
	return out
}
