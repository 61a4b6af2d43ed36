package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/duoplan/duoplan/internal/plan"
)

// MemoryStore is an in-process Store used by tests, the scenario harness,
// and offline bootstrap. Push delivery is synchronous fanout to all
// subscribers of the pairing, including the writer's own subscription,
// matching the echo behavior of real push channels that the engine's loop
// guard exists to absorb.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]plan.Envelope
	subs   map[string]map[int]OnChange
	nextID int

	// FailNext, when set, makes the next Upsert return this error. Tests
	// use it to exercise the transient/authorization paths.
	FailNext error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]plan.Envelope),
		subs: make(map[string]map[int]OnChange),
	}
}

// Fetch implements Store.
func (s *MemoryStore) Fetch(_ context.Context, pairingID string) (*plan.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.docs[pairingID]
	if !ok {
		return nil, nil
	}
	copied := env
	copied.Doc = env.Doc.Clone()
	return &copied, nil
}

// Upsert implements Store. The stored document is deep-copied so later
// caller mutations cannot leak into other subscribers.
func (s *MemoryStore) Upsert(_ context.Context, pairingID string, doc plan.Document) (int64, error) {
	s.mu.Lock()
	if err := s.FailNext; err != nil {
		s.FailNext = nil
		s.mu.Unlock()
		return 0, err
	}

	env := plan.Envelope{Doc: doc.Clone(), Rev: s.docs[pairingID].Rev + 1}
	s.docs[pairingID] = env

	ids := make([]int, 0, len(s.subs[pairingID]))
	for id := range s.subs[pairingID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]OnChange, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[pairingID][id])
	}
	s.mu.Unlock()

	// Deliver outside the lock; subscribers may call back into the store.
	for _, fn := range fns {
		copied := env
		copied.Doc = env.Doc.Clone()
		fn(copied)
	}
	return env.Rev, nil
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(pairingID string, fn OnChange) (Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[pairingID] == nil {
		s.subs[pairingID] = make(map[int]OnChange)
	}
	id := s.nextID
	s.nextID++
	s.subs[pairingID][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[pairingID], id)
	}, nil
}

// SubscriberCount reports active subscriptions for a pairing. Test hook for
// asserting that re-subscribing never leaks duplicates.
func (s *MemoryStore) SubscriberCount(pairingID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[pairingID])
}
