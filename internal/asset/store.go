package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pagemark/pagemark/backend-go/internal/typeid"
)

var ErrNotFound = errors.New("asset not found")

// Store owns raster byte buffers on disk, keyed by asset id. Pages and image
// elements reference assets by id; the owner that created a reference
// releases it when it is removed. Because history snapshots and persisted
// document snapshots alias asset ids, the store refcounts: the file is
// deleted only when the last reference is released.
type Store struct {
	dir string

	mu   sync.Mutex
	refs map[string]int
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir, refs: make(map[string]int)}, nil
}

// Dir returns the backing directory (for the static file server).
func (s *Store) Dir() string { return s.dir }

// Put stores a new buffer and returns its asset id with one reference held
// by the caller. ext is the file extension without dot ("png", "jpg").
func (s *Store) Put(data []byte, ext string) (string, error) {
	id := typeid.NewAssetID()
	path := filepath.Join(s.dir, id+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}

	s.mu.Lock()
	s.refs[id] = 1
	s.mu.Unlock()
	return id, nil
}

// Open returns the buffer and extension for an asset id.
func (s *Store) Open(id string) ([]byte, string, error) {
	for _, ext := range []string{"png", "jpg"} {
		data, err := os.ReadFile(filepath.Join(s.dir, id+"."+ext))
		if err == nil {
			return data, ext, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Retain adds a reference to an asset, e.g. when a persisted snapshot starts
// aliasing an id that a live element already owns.
func (s *Store) Retain(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[id]; !ok {
		// id from a previous process lifetime; adopt it with the new reference
		s.refs[id] = 0
	}
	s.refs[id]++
}

// Release drops one reference. The backing file is removed when the count
// reaches zero. Releasing an id the store has never seen removes the file
// outright, which covers assets adopted from a previous process lifetime.
func (s *Store) Release(id string) error {
	s.mu.Lock()
	n, ok := s.refs[id]
	if ok {
		n--
		if n > 0 {
			s.refs[id] = n
			s.mu.Unlock()
			return nil
		}
		delete(s.refs, id)
	}
	s.mu.Unlock()

	return s.remove(id)
}

func (s *Store) remove(id string) error {
	for _, ext := range []string{"png", "jpg"} {
		if err := os.Remove(filepath.Join(s.dir, id+"."+ext)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
