package library

import (
	"testing"

	"C90FM/model"
)

func newIndexedLibrary(tracks []model.Track) *Library {
	l := New("", "")
	byID := make(map[string]model.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	l.tracks = tracks
	l.byID = byID
	return l
}

func TestTrackIDStable(t *testing.T) {
	a := trackID("/music/alpha.mp3")
	b := trackID("/music/alpha.mp3")
	if a != b {
		t.Fatalf("same path produced different ids: %s vs %s", a, b)
	}
	if a == trackID("/music/bravo.mp3") {
		t.Fatal("different paths produced the same id")
	}
}

func TestFinishTrackSplitsCombinedTitle(t *testing.T) {
	got := finishTrack(model.Track{Title: "Daft Punk - One More Time"})
	if got.Title != "One More Time" || got.Subtitle != "Daft Punk" {
		t.Fatalf("finishTrack = %+v", got)
	}

	got = finishTrack(model.Track{Title: "Solo Track", Subtitle: "Known Artist"})
	if got.Title != "Solo Track" || got.Subtitle != "Known Artist" {
		t.Fatalf("tagged track mangled: %+v", got)
	}

	got = finishTrack(model.Track{})
	if got.Title != model.UnknownTitle || got.Subtitle != model.UnknownArtist {
		t.Fatalf("sentinels missing: %+v", got)
	}
}

func TestSearch(t *testing.T) {
	l := newIndexedLibrary([]model.Track{
		{ID: "1", Title: "One More Time", Subtitle: "Daft Punk", Album: "Discovery"},
		{ID: "2", Title: "Aerodynamic", Subtitle: "Daft Punk", Album: "Discovery"},
		{ID: "3", Title: "Karma Police", Subtitle: "Radiohead", Album: "OK Computer"},
	})

	if got := l.Search("daft"); len(got) != 2 {
		t.Fatalf("artist search = %d results, want 2", len(got))
	}
	if got := l.Search("computer"); len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("album search = %+v", got)
	}
	if got := l.Search("KARMA"); len(got) != 1 {
		t.Fatalf("search not case-insensitive: %+v", got)
	}
	if got := l.Search(""); len(got) != 3 {
		t.Fatalf("empty query = %d results, want all", len(got))
	}
	if got := l.Search("zzz"); len(got) != 0 {
		t.Fatalf("miss returned %+v", got)
	}
}

func TestGet(t *testing.T) {
	l := newIndexedLibrary([]model.Track{{ID: "1", Title: "One More Time"}})

	if got, ok := l.Get("1"); !ok || got.Title != "One More Time" {
		t.Fatalf("Get(1) = %+v, %v", got, ok)
	}
	if _, ok := l.Get("nope"); ok {
		t.Fatal("unknown id found")
	}
}
