// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// start runs w in the background and returns a stop function that cancels
// it and reports Run's error.
func start(t *testing.T, w *Watcher) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	return func() error {
		cancel()
		return <-errCh
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := New(Config{Root: dir, Ignore: []string{"**/common/vendor.js"}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = w.fsw.Close() })

	tests := []struct {
		rel  string
		want bool
	}{
		{"app.json", true},
		{"pages/index/index.json", true},
		{"pages/index/index.js", true},
		{"pkgA/util.ts", true},
		{"pages/index/index.wxml", false},
		{"pages/index/index.wxss", false},
		{"common/vendor.js", false},
		{"node_modules/x/index.js", false},
		{"pages/index/index.js.map", false},
		{"pages/index/.index.js.swp", false},
	}
	for _, tt := range tests {
		rel, got := w.relevant(filepath.Join(dir, filepath.FromSlash(tt.rel)))
		if got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.rel, got, tt.want)
		}
		if got && rel != tt.rel {
			t.Errorf("relevant(%q) returned %q", tt.rel, rel)
		}
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu    sync.Mutex
		calls [][]string
	)
	done := make(chan struct{}, 1)

	w, err := New(Config{
		Root:     dir,
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			calls = append(calls, changed)
			mu.Unlock()
			done <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := start(t, w)

	for _, name := range []string{"a.js", "app.json", "readme.txt"} {
		writeFile(t, filepath.Join(dir, name))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(250 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("expected 1 debounced callback, got %d: %v", len(calls), calls)
	}
	if !slices.Equal(calls[0], []string{"a.js", "app.json"}) {
		t.Errorf("unexpected changed set %v", calls[0])
	}
}

func TestWatcherIgnoresNonMatching(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node_modules", "x", "keep"))
	fired := make(chan []string, 10)

	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		Ignore:   []string{"**/generated/**"},
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := start(t, w)

	writeFile(t, filepath.Join(dir, "node_modules", "x", "index.js"))
	writeFile(t, filepath.Join(dir, "generated", "a.js"))
	writeFile(t, filepath.Join(dir, "page.wxml"))

	select {
	case changed := <-fired:
		t.Errorf("callback should not fire, got %v", changed)
	case <-time.After(400 * time.Millisecond):
	}
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)

	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := start(t, w)

	if err := os.MkdirAll(filepath.Join(dir, "pkgA", "pages"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher time to register the new directories.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "pkgA", "pages", "a.js"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-fired:
			if slices.Contains(changed, "pkgA/pages/a.js") {
				if err := stop(); err != nil {
					t.Fatalf("Run() error: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("file in a new directory was not observed")
		}
	}
}

func TestWatcherCallbacksDoNotOverlap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		active   atomic.Int32
		overlaps atomic.Int32
		calls    atomic.Int32
	)
	first := make(chan struct{})

	w, err := New(Config{
		Root:     dir,
		Debounce: 20 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			if active.Add(1) > 1 {
				overlaps.Add(1)
			}
			if calls.Add(1) == 1 {
				close(first)
			}
			time.Sleep(150 * time.Millisecond)
			active.Add(-1)
			return errors.New("rebuild failed")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := start(t, w)

	writeFile(t, filepath.Join(dir, "a.js"))
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first callback")
	}
	writeFile(t, filepath.Join(dir, "b.js"))

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if err := stop(); err != nil {
		t.Fatalf("callback errors must not stop the watcher, got %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("expected a second rebuild, got %d", calls.Load())
	}
	if overlaps.Load() != 0 {
		t.Errorf("callbacks overlapped %d times", overlaps.Load())
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Errorf("Run() on cancelled context = %v, want nil", err)
	}
	if err := w.Run(ctx); !errors.Is(err, errRunTwice) {
		t.Errorf("second Run() = %v, want errRunTwice", err)
	}
}

func TestWatcherInvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Root: t.TempDir(), Patterns: []string{"[invalid"}}); err == nil {
		t.Error("expected error for invalid watch pattern")
	}
	if _, err := New(Config{Root: t.TempDir(), Ignore: []string{"{a"}}); err == nil {
		t.Error("expected error for invalid ignore pattern")
	}
}

func TestDefaultsAreCopies(t *testing.T) {
	t.Parallel()

	p := DefaultPatterns()
	p[0] = "changed"
	if DefaultPatterns()[0] == "changed" {
		t.Error("DefaultPatterns() should return a copy")
	}
	i := DefaultIgnores()
	i[0] = "changed"
	if DefaultIgnores()[0] == "changed" {
		t.Error("DefaultIgnores() should return a copy")
	}
}
