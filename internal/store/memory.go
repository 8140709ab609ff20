package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalforge/internal/models"
)

// MemoryStore keeps run records in memory. Used when no Postgres DSN is
// configured and throughout the tests.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*models.RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*models.RunRecord)}
}

func (s *MemoryStore) CreateRun(_ context.Context, record *models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[record.ID]; exists {
		return fmt.Errorf("run %s already recorded", record.ID)
	}
	clone := *record
	s.runs[record.ID] = &clone
	return nil
}

func (s *MemoryStore) RecentSignalCount(_ context.Context, windowHours int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	count := 0
	for _, r := range s.runs {
		if r.Type == models.RunSignal && r.FinishedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ActiveSymbols(_ context.Context, windowHours int) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	active := make(map[string]struct{})
	for _, r := range s.runs {
		if r.Type == models.RunSignal && r.FinishedAt.After(cutoff) && r.Symbol != "" {
			active[r.Symbol] = struct{}{}
		}
	}
	return active, nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, runID string, tier models.Tier, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	ts := at
	switch tier {
	case models.TierPremium:
		r.DeliveredPremium = &ts
	case models.TierStandard:
		r.DeliveredStandard = &ts
	case models.TierFree:
		r.DeliveredFree = &ts
	default:
		return fmt.Errorf("unknown tier %q", tier)
	}
	return nil
}

// Run returns a copy of a stored record, for tests and the CLI summary.
func (s *MemoryStore) Run(id string) (*models.RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, false
	}
	clone := *r
	return &clone, true
}
