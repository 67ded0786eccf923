package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileSink keeps the last snapshot in a YAML file so the machine can
// resume after a restart. The file is rewritten only when the snapshot
// changes, through a temporary file and a rename.
type FileSink struct {
	path string

	mu   sync.Mutex
	last *Snapshot
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (f *FileSink) PublishState(_ context.Context, st Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last != nil && f.last.Equal(st.Snapshot) {
		return nil
	}
	data, err := yaml.Marshal(st.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	snap := st.Snapshot
	f.last = &snap
	return nil
}

// Log is a no-op: only state is persisted.
func (f *FileSink) Log(context.Context, string) error {
	return nil
}

// LoadSnapshot reads a snapshot written by FileSink. ok is false when
// the file does not exist.
func LoadSnapshot(path string) (snap Snapshot, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("unmarshal snapshot %s: %w", path, err)
	}
	return snap, true, nil
}
