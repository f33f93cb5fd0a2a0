// Package storage writes captured and annotated frames to disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TimestampFormat names saved files (YYYYMMDD_HHMMSS).
const TimestampFormat = "20060102_150405"

// AnnotatedPrefix marks images that carry the grid.
const AnnotatedPrefix = "small_"

// ErrNoData is returned when asked to save an empty frame.
var ErrNoData = errors.New("storage: no data")

// Store saves JPEGs under a single directory.
type Store struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store rooted at dir. The directory is created on first save.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "storage")
	return s
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the output directory if needed.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("storage: create %s: %w", s.dir, err)
	}
	return nil
}

// SaveFrame writes already-encoded JPEG bytes as <dir>/YYYYMMDD_HHMMSS.jpg.
func (s *Store) SaveFrame(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoData
	}
	return s.write(s.path(""), data)
}

// SaveAnnotated encodes img and writes it as <dir>/small_YYYYMMDD_HHMMSS.jpg.
func (s *Store) SaveAnnotated(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("storage: encode: %w", err)
	}
	return s.write(s.path(AnnotatedPrefix), buf.Bytes())
}

func (s *Store) path(prefix string) string {
	return filepath.Join(s.dir, prefix+s.now().Format(TimestampFormat)+".jpg")
}

// write saves data atomically through a temp file.
func (s *Store) write(path string, data []byte) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("storage: rename %s: %w", path, err)
	}

	s.logger.Debug("image saved", "path", path, "bytes", len(data))
	return path, nil
}
