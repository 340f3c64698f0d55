// Package assets holds transient display objects for encoded images. Each
// asset lives until it is revoked; the session revokes an asset as soon as
// the image it shows is superseded.
package assets

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Asset is a stored, immutable display object.
type Asset struct {
	ID      string
	MIME    string
	Data    []byte
	Created time.Time
}

// Store is a concurrency-safe in-memory asset table.
type Store struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

func NewStore() *Store { return &Store{assets: make(map[string]Asset)} }

// Put stores data under a fresh id.
func (s *Store) Put(data []byte, mime string) Asset {
	a := Asset{ID: uuid.NewString(), MIME: mime, Data: data, Created: time.Now()}
	s.mu.Lock()
	s.assets[a.ID] = a
	s.mu.Unlock()
	return a
}

func (s *Store) Get(id string) (Asset, bool) {
	s.mu.RLock()
	a, ok := s.assets[id]
	s.mu.RUnlock()
	return a, ok
}

// Revoke releases an asset. It reports whether the id was live; revoking an
// unknown or empty id is a no-op.
func (s *Store) Revoke(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return false
	}
	delete(s.assets, id)
	return true
}

// Len returns the number of live assets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}
