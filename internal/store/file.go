package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFileName is the state file created in the user's home directory.
const DefaultFileName = ".stocksync_state.json"

// File keeps all keys in one JSON document. Writes go to a temp file that
// is renamed over the old file, so a batch lands completely or not at all.
type File struct {
	path string

	mu     sync.Mutex
	closed bool
}

// DefaultPath returns the state file path under the user's home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// NewFile returns a file backend at path, or DefaultPath when empty.
func NewFile(path string) (*File, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, ErrClosed
	}
	doc, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *File) SetMany(_ context.Context, entries map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	doc, err := f.loadForWrite()
	if err != nil {
		return err
	}
	for k, v := range entries {
		doc[k] = string(v)
	}
	return f.save(doc)
}

func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	doc, err := f.loadForWrite()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(doc, k)
	}
	return f.save(doc)
}

func (f *File) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// load reads the document. Values are kept as raw strings so a malformed
// value under one key never hides the others.
func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	doc := map[string]string{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return doc, nil
}

// loadForWrite is load, except a corrupt document is replaced rather than
// blocking every later write.
func (f *File) loadForWrite() (map[string]string, error) {
	doc, err := f.load()
	if err == nil {
		return doc, nil
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return map[string]string{}, nil
	}
	return nil, err
}

func (f *File) save(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".stocksync-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
