package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"C90FM/config"
	"C90FM/enrich"
	"C90FM/library"
	"C90FM/logger"
	"C90FM/player"
)

// Server is the HTTP and WebSocket control surface. Screens drive the
// player through it and follow state through /ws.
type Server struct {
	cfg     *config.Config
	player  *player.Player
	library *library.Library
	enrich  *enrich.Service
	hub     *Hub

	http *http.Server
}

func New(cfg *config.Config, p *player.Player, lib *library.Library, enricher *enrich.Service) *Server {
	s := &Server{
		cfg:     cfg,
		player:  p,
		library: lib,
		enrich:  enricher,
		hub:     NewHub(),
	}

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/player", s.handleGetState).Methods(http.MethodGet)
	router.HandleFunc("/api/player", s.handleClearAll).Methods(http.MethodDelete)
	router.HandleFunc("/api/player/play", s.handlePlay).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", s.handleNext).Methods(http.MethodPost)
	router.HandleFunc("/api/player/prev", s.handlePrev).Methods(http.MethodPost)
	router.HandleFunc("/api/player/toggle", s.handleToggle).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", s.handleSeek).Methods(http.MethodPost)
	router.HandleFunc("/api/player/queue", s.handleSetQueue).Methods(http.MethodPost)
	router.HandleFunc("/api/player/source", s.handleSetSource).Methods(http.MethodPost)
	router.HandleFunc("/api/player/progress", s.handleProgress).Methods(http.MethodGet)

	router.HandleFunc("/api/library/tracks", s.handleLibraryTracks).Methods(http.MethodGet)
	router.HandleFunc("/api/library/search", s.handleLibrarySearch).Methods(http.MethodGet)

	router.HandleFunc("/api/enrich/status", s.handleEnrichStatus).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.handleWS)

	if lib != nil {
		router.PathPrefix("/artwork/").Handler(
			http.StripPrefix("/artwork/", http.FileServer(http.Dir(lib.ArtworkDir()))))
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start runs the hub, pipes player snapshots to connected clients, and
// serves until ctx is done, then drains with a short shutdown grace.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.pumpSnapshots(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("control server listening", logger.String("addr", s.cfg.ListenAddr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// pumpSnapshots forwards every player state change to the hub.
func (s *Server) pumpSnapshots(ctx context.Context) {
	snapshots := s.player.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-snapshots:
			s.hub.Broadcast(wsMessage{Type: "state", Data: snap})
		}
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
