package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"C90FM/config"
	"C90FM/engine"
	"C90FM/enrich"
	"C90FM/identify"
	"C90FM/library"
	"C90FM/logger"
	"C90FM/player"
	"C90FM/server"
	"C90FM/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the player daemon and its control server.",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: logger.LogLevel(cfg.LogLevel), OutputPath: cfg.LogPath})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence degrades to in-memory when redis is unreachable; the
	// session then simply does not survive a restart.
	var store storage.Store
	redisStore, err := storage.NewRedisStore(cfg)
	if err != nil {
		logger.Warn("redis unavailable, playback state will not persist", logger.ErrorField(err))
		store = storage.NewMemoryStore()
	} else {
		store = redisStore
	}
	defer store.Close()

	eng := engine.Probe(cfg)
	defer eng.Close()

	lookup := identify.NewClient(cfg.IdentifyAPIURL)
	metaCache := enrich.LoadCache(filepath.Join(cfg.CacheDir, "metadata.json"))
	enricher := enrich.NewService(lookup, metaCache, storage.NewTrackCache(store))

	playbackStore := storage.NewPlaybackStore(store)
	p := player.New(eng, playbackStore, enricher)
	defer p.Close()
	p.Restore(ctx)

	lib := library.New(cfg.MusicDir, cfg.CacheDir)
	if cfg.MusicDir != "" {
		if err := lib.Scan(); err != nil {
			logger.Error("initial library scan failed", logger.ErrorField(err))
		}
		go func() {
			if err := lib.Watch(ctx, nil); err != nil && ctx.Err() == nil {
				logger.Warn("library watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	srv := server.New(cfg, p, lib, enricher)
	if err := srv.Start(ctx); err != nil {
		logger.Fatal("control server failed", logger.ErrorField(err))
	}
	logger.Info("shutdown complete")
}
