package autosave

import (
	"context"
	"sync"

	"github.com/examforge/sessiond/internal/model"
)

// MemoryStore is an in-process Store with the same semantics as
// RedisStore. Used in tests and when no REDIS_URL is configured.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]model.Draft
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]model.Draft)}
}

func (s *MemoryStore) key(examID, email string) string {
	return examID + ":" + email
}

// SaveField implements Store.
func (s *MemoryStore) SaveField(_ context.Context, examID, email, questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(examID, email)
	if s.drafts[k] == nil {
		s.drafts[k] = model.Draft{}
	}
	s.drafts[k][questionID] = value
	return nil
}

// Restore implements Store. A missing draft yields an empty one.
func (s *MemoryStore) Restore(_ context.Context, examID, email string) (model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[s.key(examID, email)]
	if !ok {
		return model.Draft{}, nil
	}
	return d.Clone(), nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, examID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, s.key(examID, email))
	return nil
}
