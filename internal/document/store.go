package document

import (
	"sync"
	"time"
)

// Stored pairs a document with its extracted outline.
type Stored struct {
	Doc     *Document
	Outline *OutlineNode
}

// Store is a thread-safe in-memory document registry with TTL eviction.
// Documents live only for the session: upload, outline inspection, region
// selection and generation all happen against this registry.
type Store struct {
	mu   sync.Mutex
	docs map[string]*Stored
	ttl  time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		docs: make(map[string]*Stored),
		ttl:  ttl,
	}
}

func (s *Store) Put(d *Stored) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.Doc.ID] = d
}

func (s *Store) Get(id string) *Stored {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id]
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	return true
}

// List returns all stored documents, unordered.
func (s *Store) List() []*Stored {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Stored, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}

// Cleanup removes documents older than the TTL.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, d := range s.docs {
		if now.Sub(d.Doc.CreatedAt) > s.ttl {
			delete(s.docs, id)
		}
	}
}
