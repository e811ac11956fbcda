package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"C90FM/config"
	"C90FM/engine"
	"C90FM/model"
	"C90FM/player"
	"C90FM/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p := player.New(
		engine.NewNullEngine(),
		storage.NewPlaybackStore(storage.NewMemoryStore()),
		nil,
	)
	t.Cleanup(p.Close)
	return New(&config.Config{ListenAddr: ":0"}, p, nil, nil)
}

func (s *Server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rr, req)
	return rr
}

func TestGetStateReturnsDefaults(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/player", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var snap player.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.SourceName != model.DefaultSourceName {
		t.Fatalf("sourceName = %q", snap.SourceName)
	}
	if snap.NowPlaying != nil {
		t.Fatalf("nowPlaying = %+v, want nil", snap.NowPlaying)
	}
}

func TestPlayWithTrackPayload(t *testing.T) {
	s := newTestServer(t)

	body := `{"track":{"id":"1","title":"Alpha","audioSource":"/music/a.mp3"}}`
	rr := s.do(t, http.MethodPost, "/api/player/play", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var snap player.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.NowPlaying == nil || snap.NowPlaying.ID != "1" {
		t.Fatalf("nowPlaying = %+v", snap.NowPlaying)
	}
}

func TestPlayWithWrappedAudioSource(t *testing.T) {
	s := newTestServer(t)

	body := `{"track":{"id":"1","title":"Alpha","audioSource":{"uri":"/music/a.mp3"}}}`
	rr := s.do(t, http.MethodPost, "/api/player/play", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestPlayRejectsEmptyRequest(t *testing.T) {
	s := newTestServer(t)

	if rr := s.do(t, http.MethodPost, "/api/player/play", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if rr := s.do(t, http.MethodPost, "/api/player/play", `{broken`); rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSetQueueAndClear(t *testing.T) {
	s := newTestServer(t)

	body := `{"tracks":[
		{"id":"1","title":"Alpha","audioSource":"/a.mp3"},
		{"id":"2","title":"Bravo","audioSource":"/b.mp3"},
		{"id":"1","title":"Alpha","audioSource":"/a.mp3"}
	],"sourceName":"Test Mix"}`
	rr := s.do(t, http.MethodPost, "/api/player/queue", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var snap player.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Queue) != 2 {
		t.Fatalf("queue len = %d, want 2 after dedupe", len(snap.Queue))
	}
	if snap.SourceName != "Test Mix" {
		t.Fatalf("sourceName = %q", snap.SourceName)
	}

	rr = s.do(t, http.MethodDelete, "/api/player", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Queue) != 0 || snap.SourceName != model.DefaultSourceName {
		t.Fatalf("state after clear = %+v", snap)
	}
}

func TestSeekValidation(t *testing.T) {
	s := newTestServer(t)

	if rr := s.do(t, http.MethodPost, "/api/player/seek", `{"position":-5}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("negative seek status = %d, want 400", rr.Code)
	}
	if rr := s.do(t, http.MethodPost, "/api/player/seek", `{"position":1500}`); rr.Code != http.StatusOK {
		t.Fatalf("seek status = %d", rr.Code)
	}
}

func TestLibraryEndpointsWithoutLibrary(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/library/tracks", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var tracks []model.Track
	if err := json.Unmarshal(rr.Body.Bytes(), &tracks); err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 0 {
		t.Fatalf("tracks = %+v", tracks)
	}
}

func TestEnrichStatusWithoutService(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/enrich/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var status struct {
		IsRunning bool `json:"isRunning"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.IsRunning {
		t.Fatal("idle daemon reported a running fetch")
	}
}
