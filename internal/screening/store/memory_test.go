package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"screener/internal/screening/models"
	"screener/internal/screening/store"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	s.store = store.NewInMemoryStore()
}

func (s *InMemoryStoreSuite) upsert(symbol string, kind models.InstrumentKind) *models.Instrument {
	inst, err := s.store.Upsert(s.ctx, &models.Instrument{Symbol: symbol, Name: symbol + " Ltd", Kind: kind, Active: true})
	s.Require().NoError(err)
	return inst
}

func (s *InMemoryStoreSuite) TestUpsert() {
	s.Run("normalises symbol and assigns identity", func() {
		inst := s.upsert(" acme ", models.KindCompany)
		s.Equal("ACME", inst.Symbol)
		s.NotEqual(uuid.Nil, inst.ID)
		s.Equal(requestcontext.Now(s.ctx), inst.CreatedAt)
	})

	s.Run("update keeps id and created_at", func() {
		first := s.upsert("KEEP", models.KindCompany)
		later := requestcontext.WithTime(s.ctx, requestcontext.Now(s.ctx).Add(time.Hour))
		second, err := s.store.Upsert(later, &models.Instrument{Symbol: "keep", Name: "Renamed", Kind: models.KindCompany, Active: true})
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal(first.CreatedAt, second.CreatedAt)
		s.True(second.UpdatedAt.After(first.UpdatedAt))
		s.Equal("Renamed", second.Name)
	})

	s.Run("rejects unknown kind", func() {
		_, err := s.store.Upsert(s.ctx, &models.Instrument{Symbol: "BAD", Kind: "bond"})
		s.Error(err)
	})
}

func (s *InMemoryStoreSuite) TestFindBySymbol() {
	s.upsert("FIND", models.KindCompany)

	found, err := s.store.FindBySymbol(s.ctx, "find")
	s.Require().NoError(err)
	s.Equal("FIND", found.Symbol)

	_, err = s.store.FindBySymbol(s.ctx, "MISSING")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Run("returned instrument is a copy", func() {
		found.Name = "mutated"
		again, err := s.store.FindBySymbol(s.ctx, "FIND")
		s.Require().NoError(err)
		s.Equal("FIND Ltd", again.Name)
	})
}

func (s *InMemoryStoreSuite) TestDeactivate() {
	s.upsert("GONE", models.KindCompany)
	s.Require().NoError(s.store.Deactivate(s.ctx, "gone"))

	inst, err := s.store.FindBySymbol(s.ctx, "GONE")
	s.Require().NoError(err)
	s.False(inst.Active)

	s.ErrorIs(s.store.Deactivate(s.ctx, "NOPE"), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestAddEvidence() {
	inst := s.upsert("EVID", models.KindCompany)
	cat := models.BDSSettlementEnterprise
	older := models.Evidence{ID: "b", Policy: models.PolicyBDS, SubCategory: &cat, Strength: models.StrengthHigh, ObservedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := models.Evidence{ID: "a", Policy: models.PolicyDefense, Strength: models.StrengthLow, ObservedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	s.Require().NoError(s.store.AddEvidence(s.ctx, "EVID", newer, older))

	got, err := s.store.ListEvidence(s.ctx, inst.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("b", got[0].ID)
	s.Equal("a", got[1].ID)
	s.Equal(inst.ID, got[0].InstrumentID)

	s.Run("same id replaces the stored copy", func() {
		updated := newer
		updated.Notes = "merged"
		s.Require().NoError(s.store.AddEvidence(s.ctx, "EVID", updated))
		got, err := s.store.ListEvidence(s.ctx, inst.ID)
		s.Require().NoError(err)
		s.Len(got, 2)
		s.Equal("merged", got[1].Notes)
	})

	s.Run("rejects malformed evidence", func() {
		err := s.store.AddEvidence(s.ctx, "EVID", models.Evidence{ID: "x", Policy: models.PolicyBDS, Strength: "SEVERE"})
		s.Error(err)
		sub := models.BDSOther
		err = s.store.AddEvidence(s.ctx, "EVID", models.Evidence{ID: "y", Policy: models.PolicyShariah, SubCategory: &sub, Strength: models.StrengthLow})
		s.Error(err)
	})

	s.Run("unknown instrument", func() {
		err := s.store.AddEvidence(s.ctx, "NONE", newer)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("no evidence is an empty list", func() {
		other := s.upsert("EMPTY", models.KindCompany)
		got, err := s.store.ListEvidence(s.ctx, other.ID)
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})
}

func (s *InMemoryStoreSuite) TestHoldings() {
	fund := s.upsert("FUND", models.KindBasket)
	s.upsert("CO", models.KindCompany)

	err := s.store.SetHoldings(s.ctx, "FUND", []models.Holding{
		{Symbol: "bbb", Weight: 10},
		{Symbol: "AAA", Weight: 30},
		{Symbol: "CCC", Weight: 10},
	})
	s.Require().NoError(err)

	got, err := s.store.ListHoldings(s.ctx, fund.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal([]string{"AAA", "BBB", "CCC"}, []string{got[0].Symbol, got[1].Symbol, got[2].Symbol})
	s.Equal(fund.ID, got[0].BasketID)

	s.Run("companies cannot hold", func() {
		s.Error(s.store.SetHoldings(s.ctx, "CO", []models.Holding{{Symbol: "X", Weight: 1}}))
	})

	s.Run("weights outside 0..100 are rejected", func() {
		s.Error(s.store.SetHoldings(s.ctx, "FUND", []models.Holding{{Symbol: "X", Weight: 101}}))
	})
}

func TestInMemoryResultStore(t *testing.T) {
	ctx := context.Background()
	results := store.NewInMemoryResultStore()

	for i, id := range []string{"a1", "a2", "a3"} {
		r := &models.ScreeningResult{Symbol: "ACME", AuditID: id, ScreenedAt: time.Unix(int64(i), 0)}
		if err := results.Publish(ctx, r); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}

	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"find by audit id", func(t *testing.T) {
			r, err := results.FindByAuditID(ctx, "a2")
			if err != nil || r.AuditID != "a2" {
				t.Fatalf("FindByAuditID = %v, %v", r, err)
			}
		}},
		{"missing audit id", func(t *testing.T) {
			if _, err := results.FindByAuditID(ctx, "zz"); !errors.Is(err, sentinel.ErrNotFound) {
				t.Fatalf("err = %v, want not found", err)
			}
		}},
		{"newest first with limit", func(t *testing.T) {
			got, err := results.ListBySymbol(ctx, "acme", 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].AuditID != "a3" || got[1].AuditID != "a2" {
				t.Fatalf("ListBySymbol = %+v", got)
			}
		}},
		{"duplicate audit id conflicts", func(t *testing.T) {
			err := results.Save(ctx, &models.ScreeningResult{Symbol: "ACME", AuditID: "a1"})
			if err == nil {
				t.Fatal("expected conflict")
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}
