package twin

import (
	"errors"
	"sync"
	"time"

	"github.com/acharya-hq/smokecheck/internal/api"
)

// assignedTest is the twin's stored record of one company test.
type assignedTest struct {
	ID          string
	Candidate   string
	AssignedBy  string
	CompanyName string
	TestType    string
	Duration    int
	Questions   []api.Question
	Status      string // "assigned" or "completed"
	Answers     []api.Answer
	Score       *float64
	AssignedAt  time.Time
}

// store is a thread-safe, in-memory map of items that keeps insertion
// order so listings are deterministic.
type store[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func newStore[T any]() *store[T] {
	return &store[T]{
		items: make(map[string]T),
		order: make([]string, 0),
	}
}

// Set stores an item. An existing ID keeps its position in the order.
func (s *store[T]) Set(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
}

// errNotFound is returned by Update for an unknown ID.
var errNotFound = errors.New("not found")

// Update applies fn to the item with id under the write lock. The item is
// stored only when fn returns nil.
func (s *store[T]) Update(id string, fn func(item *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return errNotFound
	}
	if err := fn(&item); err != nil {
		return err
	}
	s.items[id] = item
	return nil
}

// Get retrieves an item by ID.
func (s *store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Filter returns items that match the predicate, in insertion order.
func (s *store[T]) Filter(predicate func(item T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]T, 0)
	for _, id := range s.order {
		if predicate(s.items[id]) {
			result = append(result, s.items[id])
		}
	}
	return result
}

// Count returns the number of items in the store.
func (s *store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reset clears all items.
func (s *store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = make([]string, 0)
}
