package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// MemoryStore is an in-memory LeadStore for the batch CLI and tests.
// It stores copies, so callers never share lead pointers with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[uuid.UUID]domain.Lead
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{leads: make(map[uuid.UUID]domain.Lead)}
}

// Put inserts or replaces a lead.
func (s *MemoryStore) Put(lead *domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = *lead
}

// GetByID returns a copy of the lead or NotFoundError.
func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[id]
	if !ok {
		return nil, domain.NotFoundError("lead", id.String())
	}
	out := lead
	return &out, nil
}

// Update replaces the stored lead, failing when it does not exist.
func (s *MemoryStore) Update(ctx context.Context, lead *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[lead.ID]; !ok {
		return domain.NotFoundError("lead", lead.ID.String())
	}
	s.leads[lead.ID] = *lead
	return nil
}

// List returns copies of all leads in arbitrary order.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		l := lead
		out = append(out, &l)
	}
	return out, nil
}

// NoopLocker satisfies Locker for single-process deployments where the
// in-process guard is sufficient.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, leadID uuid.UUID) (bool, error) { return true, nil }
func (NoopLocker) Release(ctx context.Context, leadID uuid.UUID) error         { return nil }
