package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// #region file-store
// FileStore keeps the active record as a single JSON document on an afero filesystem.
// Writes go to a temp file that is renamed over the record, so a crash leaves
// either the old or the new record, never a partial one.
type FileStore struct {
	mu   sync.Mutex
	fs   *afero.Afero
	path string
}

// NewFileStore stores the record at path, creating parent directories as needed.
func NewFileStore(fs afero.Fs, path string) (*FileStore, error) {
	a := &afero.Afero{Fs: fs}
	if err := a.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{fs: a, path: path}, nil
}

// Path returns the location of the record.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(_ context.Context) (*LaborState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStore) read() (*LaborState, error) {
	data, err := f.fs.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var rec LaborState
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &rec, nil
}

func (f *FileStore) Save(_ context.Context, s LaborState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, err := f.read()
	if err != nil {
		return err
	}
	var curSession string
	var curRev int64
	if cur != nil {
		curSession, curRev = cur.SessionID, cur.Revision
	}
	if err := checkRevision(cur != nil, curSession, curRev, s); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := f.fs.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fs.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

// #endregion file-store
