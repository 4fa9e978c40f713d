package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultFacesSubDir = "faces"
	DefaultURLPrefix   = "/api/faces"
)

const (
	defaultCleanupQueueSize   = 200
	defaultNumCleanupWorkers  = 2
	defaultMergeMaxAttempts   = 3
	defaultDuplicateScanLimit = 2000
	defaultImageURLCacheTTL   = 10 * time.Minute
	defaultFaceMaxSize        = 320
	defaultPort               = 8080
)

type Config struct {
	// APP_ENV, "development" or "production"
	AppEnv string

	// database path
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for stored face images
	FacesSubDir      string
	FacesPath        string // full-calculated path for face images
	FaceMaxSize      int    // longest side of a stored face crop
	ImageURLPrefix   string
	ImageURLCacheTTL time.Duration

	// cleanup worker settings
	CleanupQueueSize  int
	NumCleanupWorkers int

	// engine bounds
	MergeMaxAttempts   int
	DuplicateScanLimit int

	// http
	Port               int
	CORSAllowedOrigins []string
}

// IsProduction reports whether APP_ENV selects production behaviour
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(log *zap.Logger, envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Warn("invalid integer setting, using default",
			zap.String("key", envVar), zap.String("value", valStr), zap.Int("default", defaultVal), zap.Error(err))
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(log *zap.Logger, envVar string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		log.Warn("invalid duration setting, using default",
			zap.String("key", envVar), zap.String("value", valStr), zap.Duration("default", defaultVal), zap.Error(err))
		return defaultVal
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadConfig reads the configuration from the environment. Invalid numeric
// values are logged and replaced by their defaults.
func LoadConfig(log *zap.Logger) (Config, error) {
	appEnv := getEnvOrDefault("APP_ENV", "development")
	if appEnv != "development" && appEnv != "production" {
		return Config{}, fmt.Errorf("invalid APP_ENV '%s': must be development or production", appEnv)
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "people.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	facesSubDir := getEnvOrDefault("FACES_SUBDIR", DefaultFacesSubDir)
	absFacesPath := filepath.Join(absMediaStorage, facesSubDir)
	if !strings.HasPrefix(filepath.Clean(absFacesPath), absMediaStorage+string(filepath.Separator)) {
		return Config{}, fmt.Errorf("FACES_SUBDIR '%s' resolves outside media storage '%s'", facesSubDir, absMediaStorage)
	}

	cfg := Config{
		AppEnv:             appEnv,
		DatabasePath:       dbPath,
		MediaStoragePath:   absMediaStorage,
		FacesSubDir:        facesSubDir,
		FacesPath:          absFacesPath,
		FaceMaxSize:        getEnvIntOrDefault(log, "FACE_MAX_SIZE", defaultFaceMaxSize),
		ImageURLPrefix:     strings.TrimRight(getEnvOrDefault("IMAGE_URL_PREFIX", DefaultURLPrefix), "/"),
		ImageURLCacheTTL:   getEnvDurationOrDefault(log, "IMAGE_URL_CACHE_TTL", defaultImageURLCacheTTL),
		CleanupQueueSize:   getEnvIntOrDefault(log, "CLEANUP_QUEUE_SIZE", defaultCleanupQueueSize),
		NumCleanupWorkers:  getEnvIntOrDefault(log, "NUM_CLEANUP_WORKERS", defaultNumCleanupWorkers),
		MergeMaxAttempts:   getEnvIntOrDefault(log, "MERGE_MAX_ATTEMPTS", defaultMergeMaxAttempts),
		DuplicateScanLimit: getEnvIntOrDefault(log, "DUPLICATE_SCAN_LIMIT", defaultDuplicateScanLimit),
		Port:               getEnvIntOrDefault(log, "PORT", defaultPort),
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	return cfg, nil
}
