package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

// InMemoryStore keeps instruments, evidence and holdings in maps. It backs
// the CLI and tests; every read returns copies.
type InMemoryStore struct {
	mu          sync.RWMutex
	instruments map[string]*models.Instrument
	evidence    map[uuid.UUID][]models.Evidence
	holdings    map[uuid.UUID][]models.Holding
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		instruments: make(map[string]*models.Instrument),
		evidence:    make(map[uuid.UUID][]models.Evidence),
		holdings:    make(map[uuid.UUID][]models.Holding),
	}
}

// Upsert creates or updates an instrument by symbol. Updates keep the
// original ID and CreatedAt.
func (s *InMemoryStore) Upsert(ctx context.Context, inst *models.Instrument) (*models.Instrument, error) {
	if err := validateInstrument(inst); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	stored := cloneInstrument(inst)
	stored.Symbol = normalizeSymbol(inst.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.instruments[stored.Symbol]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		if stored.ID == uuid.Nil {
			stored.ID = uuid.New()
		}
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.instruments[stored.Symbol] = stored
	return cloneInstrument(stored), nil
}

// Deactivate soft-deletes an instrument. It stays resolvable.
func (s *InMemoryStore) Deactivate(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instruments[normalizeSymbol(symbol)]
	if !ok {
		return sentinel.ErrNotFound
	}
	inst.Active = false
	inst.UpdatedAt = requestcontext.Now(ctx)
	return nil
}

// AddEvidence attaches evidence to an instrument. An item whose ID is
// already stored replaces the earlier copy, so re-imports are idempotent.
func (s *InMemoryStore) AddEvidence(_ context.Context, symbol string, items ...models.Evidence) error {
	for _, e := range items {
		if err := validateEvidence(e); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instruments[normalizeSymbol(symbol)]
	if !ok {
		return fmt.Errorf("add evidence for %s: %w", symbol, sentinel.ErrNotFound)
	}
	current := s.evidence[inst.ID]
	index := make(map[string]int, len(current))
	for i, e := range current {
		index[e.ID] = i
	}
	for _, e := range items {
		e.InstrumentID = inst.ID
		if i, ok := index[e.ID]; ok {
			current[i] = e
			continue
		}
		index[e.ID] = len(current)
		current = append(current, e)
	}
	s.evidence[inst.ID] = current
	return nil
}

// SetHoldings replaces a basket's holdings.
func (s *InMemoryStore) SetHoldings(_ context.Context, basketSymbol string, holdings []models.Holding) error {
	for _, h := range holdings {
		if err := validateHolding(h); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	basket, ok := s.instruments[normalizeSymbol(basketSymbol)]
	if !ok {
		return fmt.Errorf("set holdings for %s: %w", basketSymbol, sentinel.ErrNotFound)
	}
	if !basket.IsBasket() {
		return fmt.Errorf("set holdings for %s: instrument is not a basket", basketSymbol)
	}
	stored := make([]models.Holding, len(holdings))
	for i, h := range holdings {
		stored[i] = models.Holding{BasketID: basket.ID, Symbol: normalizeSymbol(h.Symbol), Weight: h.Weight}
	}
	s.holdings[basket.ID] = stored
	return nil
}

func (s *InMemoryStore) FindBySymbol(_ context.Context, symbol string) (*models.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instruments[normalizeSymbol(symbol)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneInstrument(inst), nil
}

func (s *InMemoryStore) ListEvidence(_ context.Context, instrumentID uuid.UUID) ([]models.Evidence, error) {
	s.mu.RLock()
	out := append([]models.Evidence{}, s.evidence[instrumentID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ObservedAt.Equal(out[j].ObservedAt) {
			return out[i].ObservedAt.Before(out[j].ObservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) ListHoldings(_ context.Context, basketID uuid.UUID) ([]models.Holding, error) {
	s.mu.RLock()
	out := append([]models.Holding{}, s.holdings[basketID]...)
	s.mu.RUnlock()

	sortHoldings(out)
	return out, nil
}

func sortHoldings(h []models.Holding) {
	sort.SliceStable(h, func(i, j int) bool {
		if h[i].Weight != h[j].Weight {
			return h[i].Weight > h[j].Weight
		}
		return h[i].Symbol < h[j].Symbol
	})
}

func cloneInstrument(in *models.Instrument) *models.Instrument {
	out := *in
	if in.Financials != nil {
		fin := *in.Financials
		out.Financials = &fin
	}
	if in.Contracts != nil {
		c := *in.Contracts
		out.Contracts = &c
	}
	return &out
}
