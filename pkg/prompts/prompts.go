// Package prompts holds the questions asked about each captured frame.
package prompts

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DefaultPrompt replaces any prompt that cannot be loaded.
const DefaultPrompt = "Describe the image"

// MaxFiles is the number of prompt files read at startup.
const MaxFiles = 3

// ErrEmpty is returned when a set would contain no prompts.
var ErrEmpty = errors.New("prompts: empty set")

// Set is an ordered, non-empty list of prompts served round-robin.
type Set struct {
	mu      sync.Mutex
	prompts []string
	next    int
}

// New creates a set from literal prompts.
func New(prompts ...string) (*Set, error) {
	if len(prompts) == 0 {
		return nil, ErrEmpty
	}
	return &Set{prompts: append([]string(nil), prompts...)}, nil
}

// Load reads one prompt per file. Files past MaxFiles are ignored. A file
// that is missing, unreadable or blank contributes DefaultPrompt instead.
// With no paths the set holds just DefaultPrompt.
func Load(paths []string, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "prompts")

	if len(paths) > MaxFiles {
		logger.Warn("too many prompt files, ignoring extras", "max", MaxFiles, "given", len(paths))
		paths = paths[:MaxFiles]
	}
	if len(paths) == 0 {
		return &Set{prompts: []string{DefaultPrompt}}
	}

	s := &Set{prompts: make([]string, 0, len(paths))}
	for _, path := range paths {
		p, err := readPrompt(path)
		if err != nil {
			logger.Error("failed to load prompt, using default", "path", path, "error", err)
			p = DefaultPrompt
		}
		s.prompts = append(s.prompts, p)
	}

	logger.Info("prompts loaded", "count", len(s.prompts))
	return s
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	p := strings.TrimSpace(string(data))
	if p == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return p, nil
}

// TargetPrompt asks for the grid column containing target.
func TargetPrompt(target string) string {
	return fmt.Sprintf("Under what letter is the %s? Format your response like this: 'Letter: X'", target)
}

// ForTarget returns a single-prompt set locating target on the grid.
func ForTarget(target string) *Set {
	return &Set{prompts: []string{TargetPrompt(target)}}
}

// Next returns the current prompt with its index and advances the cursor.
func (s *Set) Next() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.next
	s.next = (s.next + 1) % len(s.prompts)
	return i, s.prompts[i]
}

// Len returns the number of prompts.
func (s *Set) Len() int {
	return len(s.prompts)
}

// All returns a copy of the prompts in order.
func (s *Set) All() []string {
	return append([]string(nil), s.prompts...)
}
