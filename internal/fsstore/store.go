// Package fsstore implements the engine's durable record-of-truth: a
// rigid directory tree of markdown and JSON files under a single
// memory_base_path. The filesystem is authoritative (invariant I4) — the
// vector index is a cache rebuilt from here on demand.
package fsstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store owns one memory_base_path. Concurrent writers are not supported;
// the engine assumes a single writer per base path, enforced by the lock
// file acquired in AcquireLock.
type Store struct {
	base string
}

// New wraps an existing base path without touching the filesystem. Call
// Init to create the directory tree.
func New(base string) *Store {
	return &Store{base: base}
}

// topLevelDirs is the set of directories Init creates eagerly. Leaf files
// (current_context.md, key_moments.md, core/*.md, ...) are created
// lazily by their owning manager on first write, matching the original
// implementation's "initialize if doesn't exist" pattern.
var topLevelDirs = []string{
	"verbatim",
	"notes",
	"working",
	"episodic",
	"semantic",
	"core",
	filepath.Join("core", ".versions"),
	"library",
	filepath.Join("library", "documents"),
	"people",
}

// Init idempotently creates the directory tree. Safe to call every
// session start.
func (s *Store) Init() error {
	for _, d := range topLevelDirs {
		if err := os.MkdirAll(filepath.Join(s.base, d), 0o755); err != nil {
			return fmt.Errorf("fsstore: init %s: %w", d, err)
		}
	}
	return nil
}

// WriteFile writes content to path atomically: write to path+".tmp" then
// rename, so a failed write never corrupts prior state. The parent
// directory is created if missing.
func (s *Store) WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("fsstore: mkdir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("fsstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("fsstore: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// AppendSection appends content to a markdown file, creating it (with an
// optional header written only on first creation) if it doesn't exist
// yet. Appends are not crash-atomic the way WriteFile is — a torn append
// is a tolerable degradation for an append-only log, unlike the
// full-file rewrites consolidation performs.
func (s *Store) AppendSection(path string, header string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("fsstore: mkdir for %s: %w", path, err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if header != "" {
			if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
				return fmt.Errorf("fsstore: init %s: %w", path, err)
			}
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("fsstore: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("fsstore: append %s: %w", path, err)
	}
	return nil
}

// ReadFile returns a file's content, or (nil, nil) if it doesn't exist —
// a missing file on read is not an error.
func (s *Store) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fsstore: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether a path exists.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListDir returns the sorted names of a directory's entries, or an empty
// slice (not an error) if the directory doesn't exist.
func (s *Store) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fsstore: list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// WalkFiles returns the sorted, full paths of every regular file under
// dir, recursively. Used to rebuild the vector index from the
// filesystem authority.
func (s *Store) WalkFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fsstore: walk %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// ContentHash returns the hex SHA-256 of content, used for library
// doc_id prefixes and index-vs-filesystem consistency checks.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
