package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/classroll/internal/constants"
)

//go:embed timetable.yaml
var sampleTimetableYAML []byte

// SampleTimetable returns the embedded sample timetable (YAML).
// It seeds an empty timetable store when no TIMETABLE_PATH is configured.
func SampleTimetable() []byte {
	out := make([]byte, len(sampleTimetableYAML))
	copy(out, sampleTimetableYAML)
	return out
}

type Config struct {
	Engine    EngineConfig
	Database  DatabaseConfig
	Faces     FacesConfig
	Embedding EmbeddingConfig
	Camera    CameraConfig
	Timetable TimetableConfig
	Admin     AdminConfig
	Web       WebConfig
}

type EngineConfig struct {
	GracePeriod time.Duration // defaults to 10 minutes
	Timezone    string        // IANA name, "Local" by default
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *EngineConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	Ledger       string // "postgres" (default) or "mariadb"
	MariaDBDSN   string // MariaDB DSN when Ledger is "mariadb" (e.g., classroll:classroll@tcp(mariadb:3306)/classroll)
}

type FacesConfig struct {
	Dir         string  // enrolment images, one sub-directory per student
	UnknownDir  string  // snapshots of unrecognized faces
	MaxDistance float64 // cosine distance tolerance for a template match
	Strategy    string  // "first" (gallery order) or "nearest" (HNSW)
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type CameraConfig struct {
	URLs     []string      // JPEG snapshot endpoints, one worker per URL
	Interval time.Duration // frame tick interval
	Scale    float64       // downscale factor applied before face detection
}

type TimetableConfig struct {
	Path string // YAML or CSV file used to seed the timetable store
}

type AdminConfig struct {
	Username     string
	Password     string // plain password, only used when PasswordHash is empty
	PasswordHash string // bcrypt hash
}

// Configured reports whether any admin credential is set.
func (c *AdminConfig) Configured() bool {
	return c.Password != "" || c.PasswordHash != ""
}

type WebConfig struct {
	AllowedOrigins []string // extra CORS origins besides localhost
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

// envDuration reads an environment variable as a Go duration (e.g. "750ms").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Engine: EngineConfig{
			GracePeriod: time.Duration(envInt("GRACE_PERIOD_MINUTES", constants.DefaultGraceMinutes)) * time.Minute,
			Timezone:    envString("TIMEZONE", "Local"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			Ledger:       envString("LEDGER_BACKEND", "postgres"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
		},
		Faces: FacesConfig{
			Dir:         envString("FACES_DIR", "faces"),
			UnknownDir:  envString("UNKNOWN_FACES_DIR", "unknown_faces"),
			MaxDistance: envFloat("FACE_MATCH_MAX_DISTANCE", constants.DefaultDistanceThreshold),
			Strategy:    envString("FACE_MATCH_STRATEGY", "first"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Camera: CameraConfig{
			URLs:     envList("CAMERA_URLS"),
			Interval: envDuration("CAMERA_INTERVAL", constants.DefaultFrameInterval),
			Scale:    envFloat("FRAME_SCALE", constants.DefaultFrameScale),
		},
		Timetable: TimetableConfig{
			Path: os.Getenv("TIMETABLE_PATH"),
		},
		Admin: AdminConfig{
			Username:     envString("ADMIN_USERNAME", "admin"),
			Password:     os.Getenv("ADMIN_PASSWORD"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
