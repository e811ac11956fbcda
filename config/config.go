package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string // HTTP control surface address

	MusicDir string // root directory scanned into the local library
	CacheDir string // metadata cache and extracted artwork live here

	// Native audio engine (mpv). EngineDisabled is the capability flag
	// checked before any load attempt; some runtimes crash asynchronously
	// when the binary is incompatible, so we never probe when it is set.
	EnginePath     string
	EngineSocket   string
	EngineDisabled bool

	IdentifyAPIURL string // song identification lookup base URL

	// Redis, used for the persisted playback session.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	cacheBase := getEnv("CACHE_DIR", filepath.Join("data", "cache"))

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8090"),

		MusicDir: getEnv("MUSIC_DIR", filepath.Join("data", "music")),
		CacheDir: cacheBase,

		EnginePath:     getEnv("ENGINE_PATH", "mpv"),
		EngineSocket:   getEnv("ENGINE_SOCKET", filepath.Join(os.TempDir(), "c90fm-mpv.sock")),
		EngineDisabled: getEnvBool("ENGINE_DISABLED", false),

		IdentifyAPIURL: getEnv("IDENTIFY_API_URL", "https://itunes.apple.com"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", filepath.Join("data", "logs", "c90fm.log")),
	}
}
