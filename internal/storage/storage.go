package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/schedule-planner/internal/catalog"
	"github.com/pfrederiksen/schedule-planner/internal/instructor"
	"github.com/pfrederiksen/schedule-planner/internal/logger"
)

const instructorsFile = "instructors.json"

// Storage handles persistence of course records and the instructor cache
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the resolved data directory
func (s *Storage) Dir() string {
	return s.dataDir
}

// coursePath returns the path to a course file
func (s *Storage) coursePath(prefix string, code int) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("course_%s_%d.json", strings.ToUpper(prefix), code))
}

// LoadCourse loads a course record from disk. A course that was never saved
// yields nil and no error.
func (s *Storage) LoadCourse(prefix string, code int) (*catalog.Record, error) {
	data, err := os.ReadFile(s.coursePath(prefix, code))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading course: %w", err)
	}

	var rec catalog.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing course: %w", err)
	}

	return &rec, nil
}

// SaveCourse saves a course record to disk
func (s *Storage) SaveCourse(rec *catalog.Record) error {
	if rec == nil || rec.Prefix == "" {
		return fmt.Errorf("saving course: record has no identity")
	}

	rec.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding course: %w", err)
	}

	if err := os.WriteFile(s.coursePath(rec.Prefix, rec.Code), data, 0644); err != nil {
		return fmt.Errorf("writing course: %w", err)
	}

	return nil
}

// ListCourses returns the "PREFIX CODE" identities of every saved course
func (s *Storage) ListCourses() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dataDir, "course_*_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}

	courses := make([]string, 0, len(matches))
	for _, path := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "course_"), ".json")
		parts := strings.SplitN(name, "_", 2)
		if len(parts) != 2 {
			continue
		}
		courses = append(courses, parts[0]+" "+parts[1])
	}
	sort.Strings(courses)
	return courses, nil
}

// LoadInstructors loads the instructor cache. A missing file yields an empty
// cache.
func (s *Storage) LoadInstructors(ttl time.Duration) (*instructor.Cache, error) {
	cache := instructor.NewCache(ttl)

	data, err := os.ReadFile(filepath.Join(s.dataDir, instructorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return nil, fmt.Errorf("reading instructor cache: %w", err)
	}

	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("parsing instructor cache: %w", err)
	}

	// TTL is configuration, not stored, so expiry is checked against the current one
	if removed := cache.CleanExpired(); removed > 0 {
		logger.Debug("Dropped expired instructors", logger.Fields{"removed": removed, "remaining": cache.Size()})
	}

	return cache, nil
}

// SaveInstructors saves the instructor cache to disk
func (s *Storage) SaveInstructors(cache *instructor.Cache) error {
	if cache == nil {
		return nil
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding instructor cache: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dataDir, instructorsFile), data, 0644); err != nil {
		return fmt.Errorf("writing instructor cache: %w", err)
	}

	return nil
}
