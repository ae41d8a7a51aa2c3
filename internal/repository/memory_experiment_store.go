package repository

import (
	"context"
	"sync"

	"EsgPulse/internal/domain/models"
)

// MemoryExperimentStore is the default append-only history used when
// ClickHouse is disabled.
type MemoryExperimentStore struct {
	mu   sync.RWMutex
	recs []models.ExperimentRecord
}

func NewMemoryExperimentStore() *MemoryExperimentStore {
	return &MemoryExperimentStore{}
}

func (s *MemoryExperimentStore) Append(_ context.Context, rec models.ExperimentRecord) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

// History returns the most recent records for a family, newest first.
func (s *MemoryExperimentStore) History(_ context.Context, family models.ModelFamily, limit int) ([]models.ExperimentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ExperimentRecord, 0, limit)
	for i := len(s.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.recs[i].Family == family {
			out = append(out, s.recs[i])
		}
	}
	return out, nil
}

func (s *MemoryExperimentStore) Close() error { return nil }
