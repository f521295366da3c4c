package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry describes one cached file as reported by a directory scan.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store is a cache directory for one asset kind.
//
// The directory listing is the index: a file is cached if and only if a
// regular file with exactly its name exists here. There is no manifest.
type Store struct {
	Dir string
}

// New creates the directory if needed and returns a Store rooted at it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// CleanName reduces an asset reference to a bare filename: the query string
// is stripped and any path components are discarded.
func CleanName(name string) string {
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// Path joins the store directory and filename. It does not touch the filesystem.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Exists reports whether a regular file with exactly this name is cached.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Write streams r into the store under name.
//
// The bytes go to a temp file in the same directory which is renamed over
// the final path on success. A reader racing with Write either sees the old
// complete file or the new complete file, never a partial one, and a failed
// write leaves nothing that would satisfy Exists.
func (s *Store) Write(name string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(s.Dir, ".dl-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	defer func() { _ = tmp.Close() }()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return 0, fmt.Errorf("failed to rename to final path: %w", err)
	}
	return written, nil
}

// Delete removes a cached file. Deleting an absent name is not an error.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List scans the directory once and returns every cached entry.
// Temp files from in-flight writes are skipped.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache dir %s: %w", s.Dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".dl-") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Walk calls fn for every cached entry, stopping on the first error.
func (s *Store) Walk(fn func(e Entry) error) error {
	entries, err := s.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}
