// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTimetableURL   = "https://web4u.banner.wwu.edu/pls/wwis/wwskcfnd.TimeTable"
	DefaultTimetableTitle = "WWU TimeTable of Classes"
	DefaultSearchURL      = "https://www.bing.com/search"
	DefaultRatingsDomain  = "ratemyprofessors.com"
	DefaultUserAgent      = "schedule-planner/1.0 (github.com/pfrederiksen/schedule-planner)"
)

// Config holds all application configuration.
type Config struct {
	TimetableURL   string
	TimetableTitle string
	UserAgent      string
	HTTPTimeout    time.Duration
	FetchRetries   int
	DataDir        string
	LogLevel       string

	// ResolveInstructors enables rating lookups for every distinct instructor.
	ResolveInstructors bool
	SearchURL          string
	RatingsDomain      string
	InstructorTTL      time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		TimetableURL:       getEnv("TIMETABLE_URL", DefaultTimetableURL),
		TimetableTitle:     getEnv("TIMETABLE_TITLE", DefaultTimetableTitle),
		UserAgent:          getEnv("USER_AGENT", DefaultUserAgent),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		FetchRetries:       getEnvInt("FETCH_RETRIES", 3),
		DataDir:            getEnv("DATA_DIR", "~/.local/share/schedule-planner"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ResolveInstructors: getEnvBool("RESOLVE_INSTRUCTORS", false),
		SearchURL:          getEnv("SEARCH_URL", DefaultSearchURL),
		RatingsDomain:      getEnv("RATINGS_DOMAIN", DefaultRatingsDomain),
		InstructorTTL:      getEnvDuration("INSTRUCTOR_CACHE_TTL", 7*24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getEnvDuration accepts Go duration strings ("45s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
