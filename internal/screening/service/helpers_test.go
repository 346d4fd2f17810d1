package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"screener/internal/screening/models"
	"screener/internal/screening/store"
	"screener/pkg/platform/audit"
)

var evalTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var recent = evalTime.AddDate(0, -2, 0)

var cleanRatios = &models.FinancialRatios{
	DebtRatio:                0.10,
	CashRatio:                0.10,
	ReceivablesRatio:         0.20,
	ImpermissibleIncomeRatio: 0.01,
}

// fixture seeds an in-memory store through its public write API.
type fixture struct {
	ctx   context.Context
	store *store.InMemoryStore
}

func newFixture(ctx context.Context) *fixture {
	return &fixture{ctx: ctx, store: store.NewInMemoryStore()}
}

func (f *fixture) company(symbol string, financials *models.FinancialRatios, evidence ...models.Evidence) {
	_, err := f.store.Upsert(f.ctx, &models.Instrument{
		Symbol:     symbol,
		Name:       symbol + " Corp",
		Kind:       models.KindCompany,
		Active:     true,
		Financials: financials,
	})
	if err != nil {
		panic(err)
	}
	if len(evidence) > 0 {
		if err := f.store.AddEvidence(f.ctx, symbol, evidence...); err != nil {
			panic(err)
		}
	}
}

func (f *fixture) basket(symbol string, holdings ...models.Holding) {
	_, err := f.store.Upsert(f.ctx, &models.Instrument{Symbol: symbol, Name: symbol + " Fund", Kind: models.KindBasket, Active: true})
	if err != nil {
		panic(err)
	}
	if err := f.store.SetHoldings(f.ctx, symbol, holdings); err != nil {
		panic(err)
	}
}

func settlement(id string) models.Evidence {
	cat := models.BDSSettlementEnterprise
	return models.Evidence{
		ID:          id,
		Policy:      models.PolicyBDS,
		SubCategory: &cat,
		Strength:    models.StrengthHigh,
		Notes:       "operates in a settlement",
		ObservedAt:  recent,
		Source:      models.Source{Domain: "example.org", Title: "Report " + id, URL: "https://example.org/" + id},
	}
}

func defenseLow(id string) models.Evidence {
	return models.Evidence{
		ID:         id,
		Policy:     models.PolicyDefense,
		Strength:   models.StrengthLow,
		Notes:      "component supplier",
		ObservedAt: recent,
		Source:     models.Source{URL: "https://example.org/" + id},
	}
}

func holding(symbol string, weight float64) models.Holding {
	return models.Holding{Symbol: symbol, Weight: weight}
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("audit-%d", n.Add(1))
	}
}

// stubStore wraps the in-memory store and lets a test replace single lookups.
type stubStore struct {
	*store.InMemoryStore
	find     func(ctx context.Context, symbol string) (*models.Instrument, error)
	evidence func(ctx context.Context, id uuid.UUID) ([]models.Evidence, error)
}

func (s *stubStore) FindBySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	if s.find != nil {
		return s.find(ctx, symbol)
	}
	return s.InMemoryStore.FindBySymbol(ctx, symbol)
}

func (s *stubStore) ListEvidence(ctx context.Context, id uuid.UUID) ([]models.Evidence, error) {
	if s.evidence != nil {
		return s.evidence(ctx, id)
	}
	return s.InMemoryStore.ListEvidence(ctx, id)
}

// countingProvider serves fixed ratios and counts calls per symbol.
type countingProvider struct {
	mu     sync.Mutex
	calls  map[string]int
	ratios *models.FinancialRatios
	err    error
}

func newCountingProvider(ratios *models.FinancialRatios, err error) *countingProvider {
	return &countingProvider{calls: make(map[string]int), ratios: ratios, err: err}
}

func (p *countingProvider) FetchRatios(_ context.Context, symbol string) (*models.FinancialRatios, error) {
	p.mu.Lock()
	p.calls[symbol]++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	out := *p.ratios
	return &out, nil
}

func (p *countingProvider) callsFor(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[symbol]
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (r *recordingAudit) Emit(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type failingSink struct{}

func (failingSink) Publish(context.Context, *models.ScreeningResult) error {
	return errors.New("broker unreachable")
}

func warningCodes(ws []models.Warning) []models.WarningCode {
	out := make([]models.WarningCode, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}
