package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/service/store"
)

// Service is an in-memory document store keyed by id. It keeps the same
// contract as the filesystem store and is the default for tests and
// embedded use.
type Service struct {
	mu        sync.RWMutex
	documents map[string]*document.Document
}

var _ store.Service = (*Service)(nil)

// New creates an empty in-memory store.
func New() *Service {
	return &Service{documents: make(map[string]*document.Document)}
}

// Deposit stores a new document; redelivery of an existing id is rejected.
func (s *Service) Deposit(_ context.Context, doc *document.Document) error {
	if doc == nil {
		return store.ErrNilDocument
	}
	if doc.ID == "" {
		return store.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return store.ErrDuplicateDocument
	}
	s.documents[doc.ID] = doc.Clone()
	return nil
}

// List returns ids occupying a stage ordered by creation time, id tie-break.
func (s *Service) List(_ context.Context, stage document.Stage) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*document.Document
	for _, doc := range s.documents {
		if doc.Stage == stage {
			matched = append(matched, doc)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	ids := make([]string, len(matched))
	for i, doc := range matched {
		ids[i] = doc.ID
	}
	return ids, nil
}

// Move relocates a document between stages under the store lock, which makes
// it the atomic claim primitive: concurrent movers see exactly one success.
func (s *Service) Move(_ context.Context, id string, from, to document.Stage) error {
	if id == "" {
		return store.ErrInvalidID
	}
	if !from.CanTransition(to) {
		return store.ErrInvalidTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, exists := s.documents[id]
	if !exists || doc.Stage != from {
		return store.ErrNotFound
	}
	doc.Stage = to
	doc.Touch()
	return nil
}

// Read returns a copy of the document.
func (s *Service) Read(_ context.Context, id string) (*document.Document, error) {
	if id == "" {
		return nil, store.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, exists := s.documents[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return doc.Clone(), nil
}

// Write overwrites the stored document in place. The stage recorded in the
// store wins: progress writes never relocate a document.
func (s *Service) Write(_ context.Context, doc *document.Document) error {
	if doc == nil {
		return store.ErrNilDocument
	}
	if doc.ID == "" {
		return store.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.documents[doc.ID]
	if !exists {
		return store.ErrNotFound
	}
	updated := doc.Clone()
	updated.Stage = current.Stage
	updated.Touch()
	s.documents[doc.ID] = updated
	return nil
}
