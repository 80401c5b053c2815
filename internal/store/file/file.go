package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loykin/folio/internal/store"
)

// Store keeps each key in its own JSON file under a directory.
// Writes go to a temp file in the same directory and are renamed into place.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	d := strings.TrimSpace(dir)
	if d == "" {
		return nil, errors.New("empty file store directory")
	}
	d = filepath.Clean(d)
	if err := os.MkdirAll(d, 0o750); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", d, err)
	}
	return &Store{dir: d}, nil
}

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, safeKey(key)+".json")
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+safeKey(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// safeKey maps a key onto [A-Za-z0-9._-], replacing anything else with '_'
// so keys can never escape the store directory.
func safeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := b.String()
	if strings.Trim(out, ".") == "" {
		return strings.Repeat("_", len(out)+1)
	}
	return out
}
