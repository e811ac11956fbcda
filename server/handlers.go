package server

import (
	"encoding/json"
	"net/http"

	"C90FM/logger"
	"C90FM/model"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.player.ClearAll(r.Context())
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

// handlePlay accepts either a full track payload or a bare library id.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string       `json:"id"`
		Track *model.Track `json:"track"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	track := req.Track
	if track == nil && req.ID != "" && s.library != nil {
		if t, ok := s.library.Get(req.ID); ok {
			track = &t
		}
	}
	if track == nil {
		writeError(w, http.StatusBadRequest, "no track to play")
		return
	}

	s.player.PlayTrack(r.Context(), *track)
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.player.PlayNext(r.Context())
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.player.PlayPrev(r.Context())
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.player.TogglePlayPause()
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position int64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Position < 0 {
		writeError(w, http.StatusBadRequest, "invalid position")
		return
	}
	s.player.SeekTo(req.Position)
	writeJSON(w, http.StatusOK, map[string]int64{"position": req.Position})
}

// handleSetQueue replaces the queue. With load=true the queue is also
// mirrored into the native engine, ready for skips and auto-advance.
func (s *Server) handleSetQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tracks     []model.Track `json:"tracks"`
		Load       bool          `json:"load"`
		SourceName string        `json:"sourceName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Load {
		s.player.SetQueueWithPlayer(r.Context(), req.Tracks)
	} else {
		s.player.SetQueue(req.Tracks)
	}
	if req.SourceName != "" {
		s.player.SetSourceName(req.SourceName)
	}
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid source name")
		return
	}
	s.player.SetSourceName(req.Name)
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Progress())
}

func (s *Server) handleLibraryTracks(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeJSON(w, http.StatusOK, []model.Track{})
		return
	}
	writeJSON(w, http.StatusOK, s.library.Tracks())
}

func (s *Server) handleLibrarySearch(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeJSON(w, http.StatusOK, []model.Track{})
		return
	}
	writeJSON(w, http.StatusOK, s.library.Search(r.URL.Query().Get("q")))
}

func (s *Server) handleEnrichStatus(w http.ResponseWriter, r *http.Request) {
	if s.enrich == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"isRunning": false, "remaining": 0})
		return
	}
	writeJSON(w, http.StatusOK, s.enrich.Status())
}
