package player

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"C90FM/engine"
	"C90FM/enrich"
	"C90FM/model"
	"C90FM/storage"
)

// fakeEngine records every call so tests can assert on the exact sequence
// the player drove.
type fakeEngine struct {
	mu      sync.Mutex
	state   model.PlaybackState
	queue   []model.Track
	pos     int
	calls   []string
	skipErr error
	events  chan engine.Event
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{state: model.StateReady, pos: -1}
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEngine) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) resetLog() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeEngine) Available() bool             { return true }
func (f *fakeEngine) Setup(context.Context) error { return nil }

// Add mirrors the real engine: entries without an audio source cannot be
// loaded and never enter the playlist.
func (f *fakeEngine) Add(tracks []model.Track) error {
	f.record(fmt.Sprintf("add(%d)", len(tracks)))
	f.mu.Lock()
	for _, t := range tracks {
		if t.AudioSource == "" {
			continue
		}
		f.queue = append(f.queue, t)
	}
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Reset() error {
	f.record("reset")
	f.mu.Lock()
	f.queue = nil
	f.pos = -1
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Play() error {
	f.record("play")
	f.mu.Lock()
	f.state = model.StatePlaying
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Pause() error {
	f.record("pause")
	f.mu.Lock()
	f.state = model.StatePaused
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) State() (model.PlaybackState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeEngine) SkipToNext() error {
	f.record("next")
	if f.skipErr != nil {
		return f.skipErr
	}
	f.mu.Lock()
	f.pos++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SkipToPrevious() error {
	f.record("prev")
	if f.skipErr != nil {
		return f.skipErr
	}
	f.mu.Lock()
	f.pos--
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SkipTo(index int) error {
	f.record(fmt.Sprintf("skipTo(%d)", index))
	f.mu.Lock()
	f.pos = index
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SeekTo(ms int64) error {
	f.record(fmt.Sprintf("seek(%d)", ms))
	return nil
}

func (f *fakeEngine) Progress() (model.Progress, error) { return model.Progress{}, nil }

func (f *fakeEngine) Queue() ([]model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Track(nil), f.queue...), nil
}

func (f *fakeEngine) ActiveTrack() (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos < 0 || f.pos >= len(f.queue) {
		return nil, nil
	}
	t := f.queue[f.pos]
	return &t, nil
}

func (f *fakeEngine) UpdateMetadata(index int, patch engine.MetadataPatch) error {
	f.record(fmt.Sprintf("meta(%d)", index))
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.queue) {
		return fmt.Errorf("index %d out of range", index)
	}
	if patch.Artist != "" {
		f.queue[index].Subtitle = patch.Artist
	}
	if patch.CoverURL != "" {
		f.queue[index].CoverURL = patch.CoverURL
	}
	return nil
}

func (f *fakeEngine) Events() <-chan engine.Event {
	if f.events == nil {
		return nil
	}
	return f.events
}

func (f *fakeEngine) Close() error { return nil }

// fakeEnricher resolves from a fixed title-keyed table and counts lookups.
type fakeEnricher struct {
	mu       sync.Mutex
	resolved map[string]enrich.Resolved
	lookups  int
}

func (f *fakeEnricher) ApplyCache(songs []model.Track) []model.Track {
	out := make([]model.Track, len(songs))
	copy(out, songs)
	return out
}

func (f *fakeEnricher) FetchMetadataForSongs(ctx context.Context, songs []model.Track, onResolved func(string, enrich.Resolved)) {
	for _, s := range songs {
		if res, ok := f.resolved[s.Title]; ok {
			res.Title = s.Title
			if onResolved != nil {
				onResolved(s.ID, res)
			}
		}
	}
}

func (f *fakeEnricher) ResolveTrack(ctx context.Context, title, subtitle string) *enrich.Resolved {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()
	if res, ok := f.resolved[title]; ok {
		res.Title = title
		return &res
	}
	return nil
}

func (f *fakeEnricher) UpdateCacheEntry(title, artist, coverURL string) {}

func testTracks() []model.Track {
	return []model.Track{
		{ID: "1", Title: "Alpha", Subtitle: "Band A", AudioSource: "/music/alpha.mp3"},
		{ID: "2", Title: "Bravo", Subtitle: "Band B", AudioSource: "/music/bravo.mp3"},
		{ID: "3", Title: "Charlie", Subtitle: "Band C", AudioSource: "/music/charlie.mp3"},
	}
}

func newTestPlayer(t *testing.T, eng engine.Engine, enricher Enricher) (*Player, *storage.PlaybackStore) {
	t.Helper()
	store := storage.NewPlaybackStore(storage.NewMemoryStore())
	p := New(eng, store, enricher)
	t.Cleanup(p.Close)
	return p, store
}

func TestPlayTrackLoadsQueueAndSkipsToTrack(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)

	p.SetQueue(testTracks())
	p.PlayTrack(context.Background(), testTracks()[1])

	want := []string{"reset", "add(3)", "skipTo(1)", "play"}
	got := eng.callLog()
	if len(got) != len(want) {
		t.Fatalf("engine calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("engine calls = %v, want %v", got, want)
		}
	}

	snap := p.Snapshot()
	if snap.NowPlaying == nil || snap.NowPlaying.ID != "2" {
		t.Fatalf("nowPlaying = %+v, want track 2", snap.NowPlaying)
	}
	if !snap.NowPlaying.IsPlaying {
		t.Fatal("nowPlaying.IsPlaying = false after PlayTrack")
	}
	if len(snap.RecentHistory) != 1 || snap.RecentHistory[0].ID != "2" {
		t.Fatalf("history = %+v, want [track 2]", snap.RecentHistory)
	}
}

func TestPlayTrackOffQueueAppends(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)

	p.SetQueue(testTracks())
	extra := model.Track{ID: "9", Title: "Delta", AudioSource: "/music/delta.mp3"}
	p.PlayTrack(context.Background(), extra)

	got := eng.callLog()
	want := []string{"reset", "add(3)", "add(1)", "skipTo(3)", "play"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("engine calls = %v, want %v", got, want)
		}
	}
}

func TestPlayTrackWithoutSourceIsDropped(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)

	p.PlayTrack(context.Background(), model.Track{ID: "x", Title: "Nothing"})

	if calls := eng.callLog(); len(calls) != 0 {
		t.Fatalf("engine touched for unplayable track: %v", calls)
	}
	if snap := p.Snapshot(); snap.NowPlaying != nil {
		t.Fatalf("nowPlaying = %+v, want nil", snap.NowPlaying)
	}
}

func TestPlayTrackIndexSkipsSourcelessEntries(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)

	// A route-only entry sits ahead of the playable ones, so queue and
	// engine playlist indices diverge by one.
	queue := []model.Track{
		{ID: "r", Title: "Open Mixtape", Route: "/mixtape"},
		{ID: "1", Title: "Alpha", AudioSource: "/music/alpha.mp3"},
		{ID: "2", Title: "Bravo", AudioSource: "/music/bravo.mp3"},
	}
	p.SetQueue(queue)
	p.PlayTrack(context.Background(), queue[2])

	got := eng.callLog()
	want := []string{"reset", "add(3)", "skipTo(1)", "play"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("engine calls = %v, want %v", got, want)
		}
	}
	active, _ := eng.ActiveTrack()
	if active == nil || active.ID != "2" {
		t.Fatalf("engine active track = %+v, want track 2", active)
	}
}

func TestPlayRouteOnlyTrackLeavesEngineIdle(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)

	route := model.Track{ID: "r", Title: "Open Mixtape", Route: "/mixtape"}
	p.SetQueue([]model.Track{route, testTracks()[0]})
	p.PlayTrack(context.Background(), route)

	for _, c := range eng.callLog() {
		if c == "play" || c == "skipTo(0)" {
			t.Fatalf("engine asked to play a route-only entry: %v", eng.callLog())
		}
	}
	snap := p.Snapshot()
	if snap.NowPlaying == nil || snap.NowPlaying.ID != "r" {
		t.Fatalf("nowPlaying = %+v, want the route entry", snap.NowPlaying)
	}
}

func TestSkipAtBoundaryIsNoOp(t *testing.T) {
	eng := newFakeEngine()
	eng.skipErr = fmt.Errorf("no next track")
	p, _ := newTestPlayer(t, eng, nil)

	tracks := testTracks()
	p.SetQueue(tracks)
	p.PlayTrack(context.Background(), tracks[2])
	eng.resetLog()

	p.PlayNext(context.Background())

	snap := p.Snapshot()
	if snap.NowPlaying == nil || snap.NowPlaying.ID != "3" {
		t.Fatalf("nowPlaying = %+v, want track 3 unchanged", snap.NowPlaying)
	}
	for _, c := range eng.callLog() {
		if c == "play" || c == "reset" {
			t.Fatalf("boundary skip touched playback: %v", eng.callLog())
		}
	}

	// Same at the front.
	p.PlayTrack(context.Background(), tracks[0])
	p.PlayPrev(context.Background())
	if snap := p.Snapshot(); snap.NowPlaying == nil || snap.NowPlaying.ID != "1" {
		t.Fatalf("nowPlaying = %+v, want track 1 unchanged", snap.NowPlaying)
	}
}

func TestSkipFallsBackToQueueStep(t *testing.T) {
	eng := newFakeEngine()
	eng.skipErr = fmt.Errorf("engine lost its playlist")
	p, _ := newTestPlayer(t, eng, nil)

	tracks := testTracks()
	p.SetQueue(tracks)
	p.PlayTrack(context.Background(), tracks[0])

	p.PlayNext(context.Background())

	if snap := p.Snapshot(); snap.NowPlaying == nil || snap.NowPlaying.ID != "2" {
		t.Fatalf("nowPlaying = %+v, want track 2 via manual step", snap.NowPlaying)
	}
}

func TestTogglePlayPauseFollowsEngineState(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)

	eng.state = model.StatePlaying
	p.TogglePlayPause()
	if calls := eng.callLog(); len(calls) != 1 || calls[0] != "pause" {
		t.Fatalf("toggle while playing: calls = %v, want [pause]", calls)
	}

	eng.resetLog()
	p.TogglePlayPause()
	if calls := eng.callLog(); len(calls) != 1 || calls[0] != "play" {
		t.Fatalf("toggle while paused: calls = %v, want [play]", calls)
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	in := []model.Track{
		{ID: "1", Title: "Alpha", Subtitle: "First"},
		{ID: "2", Title: "Bravo"},
		{ID: "1", Title: "Alpha", Subtitle: "Second"},
	}
	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Subtitle != "First" {
		t.Fatalf("first occurrence lost, got %+v", out[0])
	}
}

func TestSetQueueWithPlayerMirrorsWithoutPlaying(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)

	p.SetQueueWithPlayer(context.Background(), testTracks())

	for _, c := range eng.callLog() {
		if c == "play" {
			t.Fatal("SetQueueWithPlayer started playback")
		}
	}
	q, _ := eng.Queue()
	if len(q) != 3 {
		t.Fatalf("engine queue len = %d, want 3", len(q))
	}
	if snap := p.Snapshot(); len(snap.Queue) != 3 {
		t.Fatalf("player queue len = %d, want 3", len(snap.Queue))
	}
}

func TestQueueEnrichmentPatchesEntryAndNowPlaying(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)
	p.enrich = &fakeEnricher{}

	tracks := testTracks()
	p.SetQueue(tracks)
	p.PlayTrack(context.Background(), tracks[1])

	p.applyQueueEnrichment("2", enrich.Resolved{
		Title:    "Bravo",
		Artist:   "The Bravos",
		CoverURL: "http://img/bravo.jpg",
	})

	snap := p.Snapshot()
	if snap.Queue[1].Subtitle != "The Bravos" || snap.Queue[1].CoverURL != "http://img/bravo.jpg" {
		t.Fatalf("queue entry not patched: %+v", snap.Queue[1])
	}
	if snap.NowPlaying.Subtitle != "The Bravos" {
		t.Fatalf("nowPlaying not patched: %+v", snap.NowPlaying)
	}
}

func TestQueueEnrichmentPatchesEngineAtTranslatedIndex(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)
	p.enrich = &fakeEnricher{}

	queue := []model.Track{
		{ID: "r", Title: "Open Mixtape", Route: "/mixtape"},
		{ID: "1", Title: "Alpha", AudioSource: "/music/alpha.mp3"},
		{ID: "2", Title: "Bravo", AudioSource: "/music/bravo.mp3"},
	}
	p.SetQueueWithPlayer(context.Background(), queue)

	p.applyQueueEnrichment("2", enrich.Resolved{
		Title:  "Bravo",
		Artist: "The Bravos",
	})

	// Track 2 sits at queue index 2 but engine index 1; the patch must
	// land on the engine's Bravo entry, not spill past the playlist.
	engQueue, _ := eng.Queue()
	if len(engQueue) != 2 || engQueue[1].Subtitle != "The Bravos" {
		t.Fatalf("engine mirror = %+v, want Bravo patched at index 1", engQueue)
	}
	if engQueue[0].Subtitle == "The Bravos" {
		t.Fatalf("patch landed on the wrong engine entry: %+v", engQueue)
	}
}

func TestClearAllPreservesRecentHistory(t *testing.T) {
	eng := newFakeEngine()
	p, store := newTestPlayer(t, eng, nil)
	ctx := context.Background()

	tracks := testTracks()
	p.SetQueue(tracks)
	p.PlayTrack(ctx, tracks[0])
	p.SetSourceName("Morning Mix")

	p.ClearAll(ctx)

	snap := p.Snapshot()
	if snap.NowPlaying != nil || len(snap.Queue) != 0 {
		t.Fatalf("state not cleared: %+v", snap)
	}
	if snap.SourceName != model.DefaultSourceName {
		t.Fatalf("sourceName = %q, want default", snap.SourceName)
	}
	if len(snap.RecentHistory) == 0 {
		t.Fatal("recent history wiped by ClearAll")
	}
	if got := store.LoadRecentHistory(ctx); len(got) == 0 {
		t.Fatal("persisted history wiped by ClearAll")
	}
	if got := store.LoadQueue(ctx); len(got) != 0 {
		t.Fatalf("persisted queue survived ClearAll: %+v", got)
	}

	// Clearing an already-empty player must not blow up.
	p.ClearAll(ctx)
}

func TestRestoreNeverResumesPlaying(t *testing.T) {
	store := storage.NewPlaybackStore(storage.NewMemoryStore())
	ctx := context.Background()

	saved := model.Track{ID: "1", Title: "Alpha", AudioSource: "/music/alpha.mp3", IsPlaying: true}
	if err := store.SaveNowPlaying(ctx, &saved); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveQueue(ctx, testTracks()); err != nil {
		t.Fatal(err)
	}

	p := New(newFakeEngine(), store, nil)
	defer p.Close()
	p.Restore(ctx)

	snap := p.Snapshot()
	if snap.NowPlaying == nil || snap.NowPlaying.ID != "1" {
		t.Fatalf("nowPlaying = %+v, want restored track 1", snap.NowPlaying)
	}
	if snap.NowPlaying.IsPlaying {
		t.Fatal("restored track came back playing")
	}
	if len(snap.Queue) != 3 {
		t.Fatalf("restored queue len = %d, want 3", len(snap.Queue))
	}
}

func TestHistoryCollapsesRepeats(t *testing.T) {
	eng := newFakeEngine()
	p, _ := newTestPlayer(t, eng, nil)
	ctx := context.Background()

	tracks := testTracks()
	p.SetQueue(tracks)
	p.PlayTrack(ctx, tracks[0])
	p.PlayTrack(ctx, tracks[1])
	p.PlayTrack(ctx, tracks[0])

	snap := p.Snapshot()
	if len(snap.RecentHistory) != 2 {
		t.Fatalf("history = %+v, want 2 entries", snap.RecentHistory)
	}
	if snap.RecentHistory[0].ID != "1" || snap.RecentHistory[1].ID != "2" {
		t.Fatalf("history order = %+v, want [1 2]", snap.RecentHistory)
	}
}
