package store

import (
	"context"
	"fmt"
	"sync"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

// InMemoryResultStore is an append-only result history held in memory.
type InMemoryResultStore struct {
	mu       sync.RWMutex
	byID     map[string]models.ScreeningResult
	bySymbol map[string][]string
}

func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{
		byID:     make(map[string]models.ScreeningResult),
		bySymbol: make(map[string][]string),
	}
}

func (s *InMemoryResultStore) Save(_ context.Context, result *models.ScreeningResult) error {
	if result == nil || result.AuditID == "" {
		return fmt.Errorf("screening result requires an audit id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[result.AuditID]; ok {
		return fmt.Errorf("save result %s: %w", result.AuditID, sentinel.ErrConflict)
	}
	s.byID[result.AuditID] = *result
	s.bySymbol[result.Symbol] = append(s.bySymbol[result.Symbol], result.AuditID)
	return nil
}

// Publish lets the store act as a result sink.
func (s *InMemoryResultStore) Publish(ctx context.Context, result *models.ScreeningResult) error {
	return s.Save(ctx, result)
}

func (s *InMemoryResultStore) FindByAuditID(_ context.Context, auditID string) (*models.ScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.byID[auditID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &result, nil
}

func (s *InMemoryResultStore) ListBySymbol(_ context.Context, symbol string, limit int) ([]models.ScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySymbol[normalizeSymbol(symbol)]
	out := []models.ScreeningResult{}
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.byID[ids[i]])
	}
	return out, nil
}
