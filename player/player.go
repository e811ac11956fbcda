package player

import (
	"context"
	"sync"
	"time"

	"C90FM/engine"
	"C90FM/enrich"
	"C90FM/logger"
	"C90FM/model"
	"C90FM/storage"
)

const (
	maxRecentHistory = 20
	maxSourceHistory = 10

	positionSaveInterval = 5 * time.Second
)

// Enricher is the slice of the enrichment service the player drives.
// Satisfied by *enrich.Service.
type Enricher interface {
	ApplyCache(songs []model.Track) []model.Track
	FetchMetadataForSongs(ctx context.Context, songs []model.Track, onResolved func(songID string, res enrich.Resolved))
	ResolveTrack(ctx context.Context, title, subtitle string) *enrich.Resolved
	UpdateCacheEntry(title, artist, coverURL string)
}

// Snapshot is a consistent copy of the player's shared state, what every
// screen renders from.
type Snapshot struct {
	NowPlaying    *model.Track  `json:"nowPlaying"`
	Queue         []model.Track `json:"queue"`
	RecentHistory []model.Track `json:"recentHistory"`
	SourceName    string        `json:"sourceName"`
	SourceHistory []string      `json:"sourceHistory"`
}

// Player owns the single "now playing" slot, the queue and its mirror in
// the native engine, recent history, and the source descriptor. One
// instance exists per process. Public operations never return errors:
// failures are logged and the operation degrades to a no-op.
//
// Async continuations (enrichment completions, engine events) re-validate
// against the request generation counter and the current track identity
// before touching shared state.
type Player struct {
	engine engine.Engine
	store  *storage.PlaybackStore
	enrich Enricher

	mu            sync.Mutex
	now           *model.Track
	queue         []model.Track
	history       []model.Track
	sourceName    string
	sourceHistory []string
	gen           int64
	subs          []chan Snapshot

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates the process-wide player. store and enricher may be nil in
// degraded setups; the engine must at least be the null engine.
func New(eng engine.Engine, store *storage.PlaybackStore, enricher Enricher) *Player {
	p := &Player{
		engine:     eng,
		store:      store,
		enrich:     enricher,
		sourceName: model.DefaultSourceName,
		stop:       make(chan struct{}),
	}
	go p.eventLoop()
	go p.positionLoop()
	return p
}

// Close stops the player's background loops.
func (p *Player) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Restore hydrates state persisted by a previous process. A restored track
// is never assumed to be playing.
func (p *Player) Restore(ctx context.Context) {
	if p.store == nil {
		return
	}

	now := p.store.LoadNowPlaying(ctx)
	if now != nil {
		now.IsPlaying = false
	}
	queue := p.store.LoadQueue(ctx)
	history := p.store.LoadRecentHistory(ctx)
	src := p.store.LoadSource(ctx)

	p.mu.Lock()
	p.now = now
	p.queue = queue
	p.history = history
	p.sourceName = src.SourceName
	p.sourceHistory = src.History
	p.mu.Unlock()

	logger.Info("playback session restored",
		logger.Int("queue", len(queue)),
		logger.Bool("nowPlaying", now != nil))
	p.notify()
}

// Snapshot returns a copy of the current state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() Snapshot {
	snap := Snapshot{
		Queue:         append([]model.Track(nil), p.queue...),
		RecentHistory: append([]model.Track(nil), p.history...),
		SourceName:    p.sourceName,
		SourceHistory: append([]string(nil), p.sourceHistory...),
	}
	if p.now != nil {
		t := *p.now
		snap.NowPlaying = &t
	}
	return snap
}

// Subscribe returns a channel receiving a snapshot after every state
// change. Slow consumers miss intermediate snapshots rather than blocking
// the player.
func (p *Player) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 8)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Player) notify() {
	p.mu.Lock()
	snap := p.snapshotLocked()
	subs := append([]chan Snapshot(nil), p.subs...)
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// pushHistoryLocked prepends t to recent history, collapsing any earlier
// entry for the same track. Caller holds p.mu.
func (p *Player) pushHistoryLocked(t model.Track) {
	t.IsPlaying = false
	key := t.HistoryKey()

	out := make([]model.Track, 0, len(p.history)+1)
	out = append(out, t)
	for _, h := range p.history {
		if h.HistoryKey() == key {
			continue
		}
		out = append(out, h)
	}
	if len(out) > maxRecentHistory {
		out = out[:maxRecentHistory]
	}
	p.history = out
}

// Persistence is fire-and-forget: in-memory state is already updated when
// these run, and a failed write only costs durability for that change.

func (p *Player) saveCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Player) saveNowPlaying() {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	var now *model.Track
	if p.now != nil {
		t := *p.now
		now = &t
	}
	p.mu.Unlock()

	ctx, cancel := p.saveCtx()
	defer cancel()
	if err := p.store.SaveNowPlaying(ctx, now); err != nil {
		logger.Warn("failed to persist now playing", logger.ErrorField(err))
	}
}

func (p *Player) saveQueue() {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	queue := append([]model.Track(nil), p.queue...)
	p.mu.Unlock()

	ctx, cancel := p.saveCtx()
	defer cancel()
	if err := p.store.SaveQueue(ctx, queue); err != nil {
		logger.Warn("failed to persist queue", logger.ErrorField(err))
	}
}

func (p *Player) saveHistory() {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	history := append([]model.Track(nil), p.history...)
	p.mu.Unlock()

	ctx, cancel := p.saveCtx()
	defer cancel()
	if err := p.store.SaveRecentHistory(ctx, history); err != nil {
		logger.Warn("failed to persist recent history", logger.ErrorField(err))
	}
}

func (p *Player) saveSource() {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	src := model.SourceDescriptor{
		SourceName: p.sourceName,
		History:    append([]string(nil), p.sourceHistory...),
	}
	p.mu.Unlock()

	ctx, cancel := p.saveCtx()
	defer cancel()
	if err := p.store.SaveSource(ctx, src); err != nil {
		logger.Warn("failed to persist source descriptor", logger.ErrorField(err))
	}
}

func (p *Player) savePosition(ms int64) {
	if p.store == nil {
		return
	}
	ctx, cancel := p.saveCtx()
	defer cancel()
	if err := p.store.SavePosition(ctx, ms); err != nil {
		logger.Warn("failed to persist position", logger.ErrorField(err))
	}
}

// positionLoop periodically records the advisory playback position while
// something is playing.
func (p *Player) positionLoop() {
	ticker := time.NewTicker(positionSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if !p.engine.Available() {
				continue
			}
			p.mu.Lock()
			playing := p.now != nil && p.now.IsPlaying
			p.mu.Unlock()
			if !playing {
				continue
			}
			prog, err := p.engine.Progress()
			if err != nil || prog.Position <= 0 {
				continue
			}
			p.savePosition(prog.Position)
		}
	}
}

// Progress reports the engine's current position, zero when unavailable.
func (p *Player) Progress() model.Progress {
	prog, err := p.engine.Progress()
	if err != nil {
		return model.Progress{}
	}
	return prog
}
