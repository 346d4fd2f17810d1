// Package dataset loads instruments, their evidence and basket holdings from
// a YAML file into any instrument store. The server uses it to seed the
// in-memory store and screenctl uses it for offline runs.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"screener/internal/screening/models"
)

// Loader is the write side shared by InMemoryStore and PostgresStore.
type Loader interface {
	Upsert(ctx context.Context, inst *models.Instrument) (*models.Instrument, error)
	AddEvidence(ctx context.Context, symbol string, items ...models.Evidence) error
	SetHoldings(ctx context.Context, basketSymbol string, holdings []models.Holding) error
}

// File is the on-disk layout.
//
//	instruments:
//	  - symbol: ACME
//	    name: Acme Corp
//	    kind: company
//	    financials: {debt_ratio: 0.1, cash_ratio: 0.1, receivables_ratio: 0.2, impermissible_income_ratio: 0.01}
//	    evidence:
//	      - id: acme-1
//	        policy: bds
//	        sub_category: settlement_enterprise
//	        strength: high
//	        observed_at: 2025-11-02T00:00:00Z
type File struct {
	Instruments []Instrument `yaml:"instruments"`
}

type Instrument struct {
	Symbol     string                  `yaml:"symbol"`
	Name       string                  `yaml:"name"`
	Kind       string                  `yaml:"kind"`
	Active     *bool                   `yaml:"active"`
	Financials *models.FinancialRatios `yaml:"financials"`
	Contracts  *Contracts              `yaml:"contracts"`
	Evidence   []Evidence              `yaml:"evidence"`
	Holdings   []models.Holding        `yaml:"holdings"`
}

// Contracts keeps the dollar total as a string so no float rounding happens
// before it reaches decimal.
type Contracts struct {
	TotalUSD      string    `yaml:"total_usd"`
	ContractCount int       `yaml:"contract_count"`
	AsOf          time.Time `yaml:"as_of"`
}

type Evidence struct {
	ID          string        `yaml:"id"`
	Policy      string        `yaml:"policy"`
	SubCategory string        `yaml:"sub_category"`
	Strength    string        `yaml:"strength"`
	Notes       string        `yaml:"notes"`
	ObservedAt  time.Time     `yaml:"observed_at"`
	Source      models.Source `yaml:"source"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Instruments int `json:"instruments"`
	Evidence    int `json:"evidence"`
	Holdings    int `json:"holdings"`
}

// ReadFile parses the dataset at path.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a dataset. Unknown fields are rejected so typos surface
// instead of silently dropping evidence.
func Parse(raw []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return &f, nil
}

// Apply writes every instrument first, then evidence, then holdings, so
// holdings may name instruments declared later in the file.
func (f *File) Apply(ctx context.Context, store Loader) (Summary, error) {
	var sum Summary
	for i := range f.Instruments {
		inst, err := f.Instruments[i].toModel()
		if err != nil {
			return sum, fmt.Errorf("instrument %d (%s): %w", i, f.Instruments[i].Symbol, err)
		}
		if _, err := store.Upsert(ctx, inst); err != nil {
			return sum, fmt.Errorf("upsert %s: %w", inst.Symbol, err)
		}
		sum.Instruments++
	}

	for _, rec := range f.Instruments {
		if len(rec.Evidence) == 0 {
			continue
		}
		items := make([]models.Evidence, 0, len(rec.Evidence))
		for _, e := range rec.Evidence {
			item, err := e.toModel()
			if err != nil {
				return sum, fmt.Errorf("evidence %s for %s: %w", e.ID, rec.Symbol, err)
			}
			items = append(items, item)
		}
		if err := store.AddEvidence(ctx, rec.Symbol, items...); err != nil {
			return sum, fmt.Errorf("add evidence for %s: %w", rec.Symbol, err)
		}
		sum.Evidence += len(items)
	}

	for _, rec := range f.Instruments {
		if len(rec.Holdings) == 0 {
			continue
		}
		if err := store.SetHoldings(ctx, rec.Symbol, rec.Holdings); err != nil {
			return sum, fmt.Errorf("set holdings for %s: %w", rec.Symbol, err)
		}
		sum.Holdings += len(rec.Holdings)
	}
	return sum, nil
}

func (r Instrument) toModel() (*models.Instrument, error) {
	kind := models.InstrumentKind(strings.ToLower(strings.TrimSpace(r.Kind)))
	if kind == "" {
		kind = models.KindCompany
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	inst := &models.Instrument{
		Symbol:     r.Symbol,
		Name:       r.Name,
		Kind:       kind,
		Active:     active,
		Financials: r.Financials,
	}
	if r.Contracts != nil {
		total, err := decimal.NewFromString(strings.TrimSpace(r.Contracts.TotalUSD))
		if err != nil {
			return nil, fmt.Errorf("contracts.total_usd: %w", err)
		}
		inst.Contracts = &models.ContractSummary{
			TotalUSD:      total,
			ContractCount: r.Contracts.ContractCount,
			AsOf:          r.Contracts.AsOf,
		}
	}
	return inst, nil
}

func (e Evidence) toModel() (models.Evidence, error) {
	policy, err := models.ParsePolicy(e.Policy)
	if err != nil {
		return models.Evidence{}, err
	}
	strength, err := models.ParseStrength(e.Strength)
	if err != nil {
		return models.Evidence{}, err
	}
	item := models.Evidence{
		ID:         e.ID,
		Policy:     policy,
		Strength:   strength,
		Notes:      e.Notes,
		ObservedAt: e.ObservedAt,
		Source:     e.Source,
	}
	if e.SubCategory != "" {
		cat, err := models.ParseBDSCategory(e.SubCategory)
		if err != nil {
			return models.Evidence{}, err
		}
		item.SubCategory = &cat
	}
	return item, nil
}
