package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// Store is an in-memory implementation of driven.Store.
// Every method holds the lock for its whole duration, so each call is atomic.
type Store struct {
	mu      sync.RWMutex
	intents map[string]domain.Intent
	flows   map[string]domain.Flow

	// index maps an intent ID to its flow IDs in insertion order.
	index map[string][]string

	now func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		intents: make(map[string]domain.Intent),
		flows:   make(map[string]domain.Flow),
		index:   make(map[string][]string),
		now:     time.Now,
	}
}

// SaveIntent stores or replaces an intent.
func (s *Store) SaveIntent(_ context.Context, intent *domain.Intent) error {
	if err := intent.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent.IntentID] = intent.Clone()
	return nil
}

// GetIntent retrieves an intent by ID.
func (s *Store) GetIntent(_ context.Context, id string) (*domain.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := intent.Clone()
	return &out, nil
}

// UpdateIntent merges update into the stored intent.
func (s *Store) UpdateIntent(_ context.Context, id string, update domain.IntentUpdate) (*domain.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	updated := update.Apply(existing)
	updated.UpdatedAt = domain.NextUpdatedAt(existing.UpdatedAt, s.now())
	s.intents[id] = updated

	out := updated.Clone()
	return &out, nil
}

// DeleteIntent removes an intent and the flows indexed under it.
func (s *Store) DeleteIntent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, id)
	for _, flowID := range s.index[id] {
		delete(s.flows, flowID)
	}
	delete(s.index, id)
	return nil
}

// SaveFlow stores or replaces a flow and links it under its intent.
// A flow re-saved under a different intent stays listed under the old one.
func (s *Store) SaveFlow(_ context.Context, flow *domain.Flow) error {
	if err := flow.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[flow.ID] = flow.Clone()
	s.link(flow.IntentID, flow.ID)
	return nil
}

// GetFlow retrieves a flow by ID.
func (s *Store) GetFlow(_ context.Context, id string) (*domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flow, ok := s.flows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := flow.Clone()
	return &out, nil
}

// GetFlowsByIntentID returns the flows indexed under an intent.
func (s *Store) GetFlowsByIntentID(_ context.Context, intentID string) ([]domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.index[intentID]
	flows := make([]domain.Flow, 0, len(ids))
	for _, id := range ids {
		if flow, ok := s.flows[id]; ok {
			flows = append(flows, flow.Clone())
		}
	}
	return flows, nil
}

// UpdateFlow merges update into the stored flow.
func (s *Store) UpdateFlow(_ context.Context, id string, update domain.FlowUpdate) (*domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.flows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	updated := update.Apply(existing)
	s.flows[id] = updated

	out := updated.Clone()
	return &out, nil
}

// DeleteFlow removes a flow and unlinks it from its current intent.
func (s *Store) DeleteFlow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[id]
	if !ok {
		return nil
	}
	delete(s.flows, id)
	s.unlink(flow.IntentID, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// link adds flowID to the intent's index entry (caller must hold lock).
func (s *Store) link(intentID, flowID string) {
	ids := s.index[intentID]
	if slices.Contains(ids, flowID) {
		return
	}
	s.index[intentID] = append(ids, flowID)
}

// unlink removes flowID from the intent's index entry, dropping the entry
// once empty (caller must hold lock).
func (s *Store) unlink(intentID, flowID string) {
	ids := slices.DeleteFunc(s.index[intentID], func(id string) bool { return id == flowID })
	if len(ids) == 0 {
		delete(s.index, intentID)
		return
	}
	s.index[intentID] = ids
}
