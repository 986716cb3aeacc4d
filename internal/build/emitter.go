// SPDX-License-Identifier: MPL-2.0

package build

import (
	"bytes"
	"context"
	"maps"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

type (
	// Emitter receives the final content of every rewritten asset.
	Emitter interface {
		Emit(ctx context.Context, URL string, content []byte) error
	}

	// AFSEmitter overwrites assets in place.
	AFSEmitter struct {
		fs afs.Service
	}

	// RecordingEmitter keeps emitted assets in memory. It backs dry runs.
	RecordingEmitter struct {
		mu    sync.Mutex
		files map[string][]byte
	}
)

// NewAFSEmitter creates an emitter writing through fs.
func NewAFSEmitter(fs afs.Service) *AFSEmitter {
	return &AFSEmitter{fs: fs}
}

// Emit implements Emitter.
func (e *AFSEmitter) Emit(ctx context.Context, URL string, content []byte) error {
	return e.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(content))
}

// NewRecordingEmitter creates an empty recording emitter.
func NewRecordingEmitter() *RecordingEmitter {
	return &RecordingEmitter{files: make(map[string][]byte)}
}

// Emit implements Emitter.
func (e *RecordingEmitter) Emit(_ context.Context, URL string, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[URL] = bytes.Clone(content)
	return nil
}

// Files returns a copy of everything emitted so far, keyed by URL.
func (e *RecordingEmitter) Files() map[string][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.files)
}
