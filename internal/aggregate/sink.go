// ABOUTME: Artifact sinks: an output directory with atomic replace, and an in-memory sink
// ABOUTME: A failed write leaves the previously published artifact untouched

package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/harper/pubfeed/internal/config"
)

// Sink stores a named artifact.
type Sink interface {
	Put(name string, data []byte) error
}

// DirSink writes artifacts into a directory.
type DirSink struct {
	Dir      string
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

// NewDirSink returns a sink for dir with the default output permissions.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir, DirPerm: config.DefaultDirPerms, FilePerm: config.DefaultFilePerms}
}

// Put writes data to a temporary file next to the target and renames it
// into place.
func (s *DirSink) Put(name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, s.DirPerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, s.FilePerm); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, name)); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// MemorySink keeps artifacts in memory. Used for dry runs and rendering.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) Put(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the artifact stored under name.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// Names lists stored artifacts in sorted order.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
