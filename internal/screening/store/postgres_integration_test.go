//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"screener/internal/screening/models"
	"screener/internal/screening/store"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
	"screener/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	results  *store.PostgresResultStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(store.Migrate(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
	s.results = store.NewPostgresResultStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	err := s.postgres.TruncateTables(context.Background(), "holdings", "evidence", "instruments", "screening_results")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestInstrumentRoundTrip() {
	asOf := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	inst, err := s.store.Upsert(s.ctx, &models.Instrument{
		Symbol: "acme",
		Name:   "Acme Corp",
		Kind:   models.KindCompany,
		Active: true,
		Financials: &models.FinancialRatios{
			DebtRatio: 0.21, CashRatio: 0.1, ReceivablesRatio: 0.3, ImpermissibleIncomeRatio: 0.01, AsOf: asOf,
		},
		Contracts: &models.ContractSummary{TotalUSD: decimal.RequireFromString("1250000000.50"), ContractCount: 4, AsOf: asOf},
	})
	s.Require().NoError(err)

	got, err := s.store.FindBySymbol(s.ctx, "ACME")
	s.Require().NoError(err)
	s.Equal(inst.ID, got.ID)
	s.Equal(models.KindCompany, got.Kind)
	s.Require().NotNil(got.Financials)
	s.InDelta(0.21, got.Financials.DebtRatio, 1e-9)
	s.True(got.Financials.AsOf.Equal(asOf))
	s.Require().NotNil(got.Contracts)
	s.True(got.Contracts.TotalUSD.Equal(decimal.RequireFromString("1250000000.50")))
	s.Equal(4, got.Contracts.ContractCount)

	s.Run("upsert keeps identity", func() {
		later := requestcontext.WithTime(s.ctx, requestcontext.Now(s.ctx).Add(time.Hour))
		again, err := s.store.Upsert(later, &models.Instrument{Symbol: "ACME", Name: "Acme Holdings", Kind: models.KindCompany, Active: true})
		s.Require().NoError(err)
		s.Equal(inst.ID, again.ID)
		s.True(again.CreatedAt.Equal(inst.CreatedAt))

		got, err := s.store.FindBySymbol(s.ctx, "ACME")
		s.Require().NoError(err)
		s.Equal("Acme Holdings", got.Name)
		s.Nil(got.Financials)
	})

	s.Run("deactivate", func() {
		s.Require().NoError(s.store.Deactivate(s.ctx, "acme"))
		got, err := s.store.FindBySymbol(s.ctx, "ACME")
		s.Require().NoError(err)
		s.False(got.Active)
		s.ErrorIs(s.store.Deactivate(s.ctx, "NOPE"), sentinel.ErrNotFound)
	})

	_, err = s.store.FindBySymbol(s.ctx, "MISSING")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestEvidence() {
	inst, err := s.store.Upsert(s.ctx, &models.Instrument{Symbol: "EVID", Name: "Evid", Kind: models.KindCompany, Active: true})
	s.Require().NoError(err)

	cat := models.BDSSettlementEnterprise
	items := []models.Evidence{
		{ID: "ev-2", Policy: models.PolicyDefense, Strength: models.StrengthMedium, Notes: "supplier",
			ObservedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Source: models.Source{URL: "https://example.org/2"}},
		{ID: "ev-1", Policy: models.PolicyBDS, SubCategory: &cat, Strength: models.StrengthHigh, Notes: "site works",
			ObservedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Source: models.Source{Domain: "example.org", Title: "Report", URL: "https://example.org/1"}},
	}
	s.Require().NoError(s.store.AddEvidence(s.ctx, "EVID", items...))

	got, err := s.store.ListEvidence(s.ctx, inst.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("ev-1", got[0].ID)
	s.Require().NotNil(got[0].SubCategory)
	s.Equal(models.BDSSettlementEnterprise, *got[0].SubCategory)
	s.Equal("Report", got[0].Source.Title)
	s.Nil(got[1].SubCategory)

	s.Run("conflicting id replaces the row", func() {
		replaced := items[0]
		replaced.Notes = "supplier, updated"
		s.Require().NoError(s.store.AddEvidence(s.ctx, "EVID", replaced))
		got, err := s.store.ListEvidence(s.ctx, inst.ID)
		s.Require().NoError(err)
		s.Len(got, 2)
		s.Equal("supplier, updated", got[1].Notes)
	})

	s.Run("unknown instrument", func() {
		s.ErrorIs(s.store.AddEvidence(s.ctx, "NOPE", items[0]), sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestHoldings() {
	fund, err := s.store.Upsert(s.ctx, &models.Instrument{Symbol: "FUND", Name: "Fund", Kind: models.KindBasket, Active: true})
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetHoldings(s.ctx, "FUND", []models.Holding{
		{Symbol: "bbb", Weight: 4},
		{Symbol: "aaa", Weight: 9},
		{Symbol: "ccc", Weight: 4},
	}))
	got, err := s.store.ListHoldings(s.ctx, fund.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal("AAA", got[0].Symbol)
	s.Equal("BBB", got[1].Symbol)
	s.InDelta(4.0, got[2].Weight, 1e-9)

	s.Run("replace", func() {
		s.Require().NoError(s.store.SetHoldings(s.ctx, "FUND", []models.Holding{{Symbol: "ZZZ", Weight: 50}}))
		got, err := s.store.ListHoldings(s.ctx, fund.ID)
		s.Require().NoError(err)
		s.Len(got, 1)
	})
}

func (s *PostgresStoreSuite) TestResults() {
	for i, id := range []string{"r1", "r2"} {
		err := s.results.Save(s.ctx, &models.ScreeningResult{
			Symbol:       "ACME",
			AuditID:      id,
			FinalVerdict: models.VerdictReview,
			Confidence:   models.ConfidenceMedium,
			Reasons:      []string{"Holdings under review: 12.0% of basket"},
			ScreenedAt:   time.Date(2026, 2, 1, 12, i, 0, 0, time.UTC),
		})
		s.Require().NoError(err)
	}

	got, err := s.results.FindByAuditID(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(models.VerdictReview, got.FinalVerdict)
	s.Equal([]string{"Holdings under review: 12.0% of basket"}, got.Reasons)

	list, err := s.results.ListBySymbol(s.ctx, "ACME", 10)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("r2", list[0].AuditID)

	err = s.results.Save(s.ctx, &models.ScreeningResult{Symbol: "ACME", AuditID: "r1"})
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.results.FindByAuditID(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
