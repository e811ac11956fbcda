package storage

import (
	"context"
	"testing"

	"C90FM/model"
)

func testStore() *PlaybackStore {
	return NewPlaybackStore(NewMemoryStore())
}

func TestNowPlayingRoundTrip(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	if got := s.LoadNowPlaying(ctx); got != nil {
		t.Fatalf("empty store returned %+v", got)
	}

	track := model.Track{ID: "1", Title: "Alpha", Subtitle: "Band A", AudioSource: "/a.mp3"}
	if err := s.SaveNowPlaying(ctx, &track); err != nil {
		t.Fatal(err)
	}

	got := s.LoadNowPlaying(ctx)
	if got == nil || got.ID != "1" || got.Title != "Alpha" {
		t.Fatalf("LoadNowPlaying = %+v", got)
	}

	// Saving nil deletes.
	if err := s.SaveNowPlaying(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadNowPlaying(ctx); got != nil {
		t.Fatalf("after delete got %+v", got)
	}
}

func TestQueueDefaultsToEmpty(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	if got := s.LoadQueue(ctx); got == nil || len(got) != 0 {
		t.Fatalf("LoadQueue on empty store = %v", got)
	}

	queue := []model.Track{{ID: "1", Title: "Alpha"}, {ID: "2", Title: "Bravo"}}
	if err := s.SaveQueue(ctx, queue); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadQueue(ctx); len(got) != 2 || got[1].ID != "2" {
		t.Fatalf("LoadQueue = %+v", got)
	}
}

func TestCorruptDocumentFallsBackToDefault(t *testing.T) {
	mem := NewMemoryStore()
	s := NewPlaybackStore(mem)
	ctx := context.Background()

	if err := mem.Set(ctx, keyQueue, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadQueue(ctx); len(got) != 0 {
		t.Fatalf("corrupt queue produced %+v", got)
	}

	if err := mem.Set(ctx, keyPosition, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadPosition(ctx); got != 0 {
		t.Fatalf("corrupt position produced %d", got)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	if err := s.SavePosition(ctx, 123456); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadPosition(ctx); got != 123456 {
		t.Fatalf("LoadPosition = %d", got)
	}
}

func TestSourceDefaults(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	src := s.LoadSource(ctx)
	if src.SourceName != model.DefaultSourceName {
		t.Fatalf("default source = %q", src.SourceName)
	}

	if err := s.SaveSource(ctx, model.SourceDescriptor{SourceName: "Road Trip", History: []string{"Road Trip"}}); err != nil {
		t.Fatal(err)
	}
	src = s.LoadSource(ctx)
	if src.SourceName != "Road Trip" || len(src.History) != 1 {
		t.Fatalf("LoadSource = %+v", src)
	}
}

func TestClearKeepsRecentHistory(t *testing.T) {
	s := testStore()
	ctx := context.Background()

	history := []model.Track{{ID: "1", Title: "Alpha"}}
	if err := s.SaveRecentHistory(ctx, history); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveQueue(ctx, history); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveNowPlaying(ctx, &history[0]); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearPlaybackState(ctx); err != nil {
		t.Fatal(err)
	}

	if got := s.LoadNowPlaying(ctx); got != nil {
		t.Fatalf("nowplaying survived clear: %+v", got)
	}
	if got := s.LoadQueue(ctx); len(got) != 0 {
		t.Fatalf("queue survived clear: %+v", got)
	}
	if got := s.LoadRecentHistory(ctx); len(got) != 1 {
		t.Fatalf("history cleared: %+v", got)
	}
}
