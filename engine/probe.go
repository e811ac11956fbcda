package engine

import (
	"os/exec"
	"sync"

	"C90FM/config"
	"C90FM/logger"
)

var (
	probeOnce sync.Once
	probed    Engine
)

// Probe resolves the native engine exactly once per process lifetime and
// memoizes the result. The ENGINE_DISABLED capability flag is checked
// before any load attempt: on incompatible runtimes the engine binary can
// take the whole process down asynchronously, which no recover() would
// catch, so when the flag is set we must not even try. Any probe failure
// degrades to the null engine and is logged once here; it never reaches
// callers as an error.
func Probe(cfg *config.Config) Engine {
	probeOnce.Do(func() {
		probed = probe(cfg)
	})
	return probed
}

func probe(cfg *config.Config) Engine {
	if cfg.EngineDisabled {
		logger.Warn("native engine disabled by configuration, playback controls will no-op")
		return NewNullEngine()
	}

	binPath, err := exec.LookPath(cfg.EnginePath)
	if err != nil {
		logger.Warn("native engine binary not found, playback controls will no-op",
			logger.String("path", cfg.EnginePath),
			logger.ErrorField(err))
		return NewNullEngine()
	}

	eng, err := newMPVEngine(binPath, cfg.EngineSocket)
	if err != nil {
		logger.Warn("native engine failed to load, playback controls will no-op",
			logger.String("path", binPath),
			logger.ErrorField(err))
		return NewNullEngine()
	}

	logger.Info("native engine loaded", logger.String("path", binPath))
	return eng
}
