package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/eventscout/internal/event"
)

// Files names the stage files inside the data directory
type Files struct {
	Overviews string
	Contents  string
	Details   string
}

// DefaultFiles returns the file names the front-end and the original
// scripts expect
func DefaultFiles() Files {
	return Files{
		Overviews: "event_overviews.json",
		Contents:  "event_contents.json",
		Details:   "event_details.json",
	}
}

// Storage handles persistence of pipeline stage files
type Storage struct {
	dataDir string
	files   Files
}

// New creates a new Storage instance
func New(dataDir string, files Files) (*Storage, error) {
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

	defaults := DefaultFiles()
	if files.Overviews == "" {
		files.Overviews = defaults.Overviews
	}
	if files.Contents == "" {
		files.Contents = defaults.Contents
	}
	if files.Details == "" {
		files.Details = defaults.Details
	}

	return &Storage{
		dataDir: dataDir,
		files:   files,
	}, nil
}

// DataDir returns the resolved data directory
func (s *Storage) DataDir() string {
	return s.dataDir
}

// Path resolves name against the data directory. Absolute names are kept.
func (s *Storage) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dataDir, name)
}

// OverviewsPath returns the path of the event overviews file
func (s *Storage) OverviewsPath() string {
	return s.Path(s.files.Overviews)
}

// ContentsPath returns the path of the event contents file
func (s *Storage) ContentsPath() string {
	return s.Path(s.files.Contents)
}

// DetailsPath returns the path of the event details file
func (s *Storage) DetailsPath() string {
	return s.Path(s.files.Details)
}

// LoadOverviews reads the stubs written by the overview stage
func (s *Storage) LoadOverviews() ([]*event.Stub, error) {
	var stubs []*event.Stub
	if err := readJSON(s.OverviewsPath(), &stubs); err != nil {
		return nil, fmt.Errorf("loading overviews: %w", err)
	}
	if i := firstNull(stubs); i >= 0 {
		return nil, fmt.Errorf("loading overviews: entry %d is null", i)
	}
	return stubs, nil
}

// SaveOverviews overwrites the overviews file with stubs
func (s *Storage) SaveOverviews(stubs []*event.Stub) error {
	if stubs == nil {
		stubs = []*event.Stub{}
	}
	if err := writeJSON(s.OverviewsPath(), stubs); err != nil {
		return fmt.Errorf("saving overviews: %w", err)
	}
	return nil
}

// LoadContents reads the content records written by the fetch stage
func (s *Storage) LoadContents() ([]*event.ContentRecord, error) {
	var records []*event.ContentRecord
	if err := readJSON(s.ContentsPath(), &records); err != nil {
		return nil, fmt.Errorf("loading contents: %w", err)
	}
	if i := firstNull(records); i >= 0 {
		return nil, fmt.Errorf("loading contents: entry %d is null", i)
	}
	return records, nil
}

// SaveContents overwrites the contents file with records
func (s *Storage) SaveContents(records []*event.ContentRecord) error {
	if records == nil {
		records = []*event.ContentRecord{}
	}
	if err := writeJSON(s.ContentsPath(), records); err != nil {
		return fmt.Errorf("saving contents: %w", err)
	}
	return nil
}

// LoadDetails reads the final event records
func (s *Storage) LoadDetails() ([]*event.Record, error) {
	var records []*event.Record
	if err := readJSON(s.DetailsPath(), &records); err != nil {
		return nil, fmt.Errorf("loading details: %w", err)
	}
	if i := firstNull(records); i >= 0 {
		return nil, fmt.Errorf("loading details: entry %d is null", i)
	}
	return records, nil
}

// SaveDetails overwrites the details file with records
func (s *Storage) SaveDetails(records []*event.Record) error {
	if records == nil {
		records = []*event.Record{}
	}
	if err := writeJSON(s.DetailsPath(), records); err != nil {
		return fmt.Errorf("saving details: %w", err)
	}
	return nil
}

// firstNull returns the index of the first null entry, or -1
func firstNull[T any](items []*T) int {
	for i, item := range items {
		if item == nil {
			return i
		}
	}
	return -1
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	return nil
}

// writeJSON encodes v with two-space indentation and replaces path atomically
func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}

	return nil
}
