package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Web    WebConfig
	Photos PhotosConfig
	Faces  FacesConfig
	Cache  CacheConfig
}

type WebConfig struct {
	Host           string   // defaults to 0.0.0.0
	Port           int      // defaults to 5000
	AllowedOrigins []string // empty means every origin is allowed
}

type PhotosConfig struct {
	Dir string // folder holding the indexed photos, defaults to ./images
}

// Face encoder backends
const (
	BackendDlib = "dlib"
	BackendHTTP = "http"
	BackendNone = "none"
)

type FacesConfig struct {
	Backend    string  // dlib, http or none (defaults to http)
	EncoderURL string  // face embedding server for the http backend, defaults to http://localhost:8000
	ModelsDir  string  // dlib model directory for the dlib backend, defaults to ./models
	Tolerance  float64 // maximum distance for a match, 0 = backend default (0.6 Euclidean for dlib, 0.5 cosine for http)
}

// Cache store backends
const (
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

type CacheConfig struct {
	Backend string // file or sqlite (defaults to file)
	Path    string // cache file or SQLite database, defaults to ./encodings_cache.gob (.db for sqlite)
	Refresh bool   // re-encode added/changed photos when the loaded cache is stale
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean ("1", "true", "yes" ...).
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	switch strings.ToLower(s) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// defaultCachePath returns the cache location used when FACE_CACHE_PATH is unset.
func defaultCachePath(backend string) string {
	if backend == CacheSQLite {
		return "encodings_cache.db"
	}
	return "encodings_cache.gob"
}

func Load() *Config {
	cacheBackend := strings.ToLower(envString("FACE_CACHE_BACKEND", CacheFile))

	return &Config{
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 5000),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Photos: PhotosConfig{
			Dir: envString("IMAGE_FOLDER", "images"),
		},
		Faces: FacesConfig{
			Backend:    strings.ToLower(envString("FACE_BACKEND", BackendHTTP)),
			EncoderURL: envString("FACE_ENCODER_URL", "http://localhost:8000"),
			ModelsDir:  envString("FACE_MODELS_DIR", "models"),
			Tolerance:  envFloat("FACE_TOLERANCE", 0),
		},
		Cache: CacheConfig{
			Backend: cacheBackend,
			Path:    envString("FACE_CACHE_PATH", defaultCachePath(cacheBackend)),
			Refresh: envBool("FACE_CACHE_REFRESH", false),
		},
	}
}
