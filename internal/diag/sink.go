// SPDX-License-Identifier: MPL-2.0

package diag

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Sink collects diagnostics. Entries are only ever appended; Snapshot returns
// them in arrival order. A nil *Sink discards everything.
type Sink struct {
	mu      sync.Mutex
	entries []Diagnostic
	logger  *slog.Logger
}

// NewSink creates a sink. When logger is non-nil every added diagnostic is
// also logged at the level matching its severity.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Add appends diagnostics to the sink.
func (s *Sink) Add(ds ...Diagnostic) {
	if s == nil || len(ds) == 0 {
		return
	}
	s.mu.Lock()
	s.entries = append(s.entries, ds...)
	s.mu.Unlock()

	if s.logger == nil {
		return
	}
	for _, d := range ds {
		s.logger.LogAttrs(context.Background(), d.Level(), d.Message, d.LogAttrs()...)
	}
}

// Snapshot returns a copy of the diagnostics collected so far.
func (s *Sink) Snapshot() []Diagnostic {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Len returns the number of collected diagnostics.
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Count returns how many collected diagnostics have the given severity.
func (s *Sink) Count(sev Severity) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.entries {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
