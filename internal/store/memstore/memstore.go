// Package memstore is an in-memory document store used by tests and
// the zero-dependency dev mode. Watchers get a coalescing tick after
// every write to their collection.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/brasaviva/api/internal/store"
)

// Store implements store.Store with mutex-guarded maps.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]map[string]json.RawMessage // collection -> id -> payload
	watchers map[string]map[int]chan struct{}      // collection -> watcher id -> tick
	nextID   int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		docs:     make(map[string]map[string]json.RawMessage),
		watchers: make(map[string]map[int]chan struct{}),
	}
}

func (s *Store) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(data), nil
}

func (s *Store) Set(_ context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]json.RawMessage)
	}
	s.docs[collection][id] = clone(data)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) Add(_ context.Context, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]json.RawMessage)
	}
	s.docs[collection][id] = clone(data)
	s.mu.Unlock()

	s.notify(collection)
	return id, nil
}

func (s *Store) Patch(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()

	data, ok := s.docs[collection][id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "decode stored document")
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "encode patched document")
	}
	s.docs[collection][id] = merged
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()

	if _, ok := s.docs[collection][id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.docs[collection], id)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) List(_ context.Context, collection string, q store.Query) ([]store.Document, error) {
	s.mu.RLock()
	result := make([]store.Document, 0, len(s.docs[collection]))
	for id, data := range s.docs[collection] {
		result = append(result, store.Document{ID: id, Data: clone(data)})
	}
	s.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(result, func(i, j int) bool {
			a, b := sortKey(result[i].Data, q.OrderBy), sortKey(result[j].Data, q.OrderBy)
			if a == b {
				// Stable tiebreak so repeated lists agree.
				return result[i].ID < result[j].ID
			}
			if q.Desc {
				return a > b
			}
			return a < b
		})
	}
	return result, nil
}

func (s *Store) Watch(_ context.Context, collection string) (<-chan struct{}, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchers[collection] == nil {
		s.watchers[collection] = make(map[int]chan struct{})
	}
	id := s.nextID
	s.nextID++

	ch := make(chan struct{}, 1)
	s.watchers[collection][id] = ch

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[collection][id]; ok {
			delete(s.watchers[collection], id)
			close(ch)
		}
	}
	return ch, release, nil
}

func (s *Store) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
			// A tick is already pending; the watcher will re-query anyway.
		}
	}
}

func sortKey(data json.RawMessage, field string) string {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	v, _ := doc[field].(string)
	return v
}

func clone(data json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}
