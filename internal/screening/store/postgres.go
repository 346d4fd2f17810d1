package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
	txcontext "screener/pkg/platform/tx"
	"screener/pkg/requestcontext"
)

// PostgresStore persists instruments, evidence and holdings in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed instrument store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Upsert creates or updates an instrument keyed by symbol.
func (s *PostgresStore) Upsert(ctx context.Context, inst *models.Instrument) (*models.Instrument, error) {
	if err := validateInstrument(inst); err != nil {
		return nil, err
	}
	stored := cloneInstrument(inst)
	stored.Symbol = normalizeSymbol(inst.Symbol)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := requestcontext.Now(ctx)

	var (
		debt, cash, receivables, impermissible sql.NullFloat64
		financialsAsOf, contractsAsOf          sql.NullTime
		contractsTotal                         decimal.NullDecimal
		contractCount                          sql.NullInt64
	)
	if f := stored.Financials; f != nil {
		debt = sql.NullFloat64{Float64: f.DebtRatio, Valid: true}
		cash = sql.NullFloat64{Float64: f.CashRatio, Valid: true}
		receivables = sql.NullFloat64{Float64: f.ReceivablesRatio, Valid: true}
		impermissible = sql.NullFloat64{Float64: f.ImpermissibleIncomeRatio, Valid: true}
		financialsAsOf = nullTime(f.AsOf)
	}
	if c := stored.Contracts; c != nil {
		contractsTotal = decimal.NullDecimal{Decimal: c.TotalUSD, Valid: true}
		contractCount = sql.NullInt64{Int64: int64(c.ContractCount), Valid: true}
		contractsAsOf = nullTime(c.AsOf)
	}

	query := `
		INSERT INTO instruments (
			id, symbol, name, kind, active,
			debt_ratio, cash_ratio, receivables_ratio, impermissible_income_ratio, financials_as_of,
			contracts_total_usd, contract_count, contracts_as_of,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			active = EXCLUDED.active,
			debt_ratio = EXCLUDED.debt_ratio,
			cash_ratio = EXCLUDED.cash_ratio,
			receivables_ratio = EXCLUDED.receivables_ratio,
			impermissible_income_ratio = EXCLUDED.impermissible_income_ratio,
			financials_as_of = EXCLUDED.financials_as_of,
			contracts_total_usd = EXCLUDED.contracts_total_usd,
			contract_count = EXCLUDED.contract_count,
			contracts_as_of = EXCLUDED.contracts_as_of,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		stored.ID, stored.Symbol, stored.Name, string(stored.Kind), stored.Active,
		debt, cash, receivables, impermissible, financialsAsOf,
		contractsTotal, contractCount, contractsAsOf,
		now,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert instrument: %w", err)
	}
	return stored, nil
}

// Deactivate soft-deletes an instrument.
func (s *PostgresStore) Deactivate(ctx context.Context, symbol string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE instruments SET active = FALSE, updated_at = $2 WHERE symbol = $1`,
		normalizeSymbol(symbol), requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("deactivate instrument: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate instrument: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// AddEvidence inserts evidence in one transaction. A conflicting ID
// replaces the stored row.
func (s *PostgresStore) AddEvidence(ctx context.Context, symbol string, items ...models.Evidence) error {
	for _, e := range items {
		if err := validateEvidence(e); err != nil {
			return err
		}
	}
	inst, err := s.FindBySymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("add evidence for %s: %w", symbol, err)
	}

	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := s.execer(ctx)
		for _, e := range items {
			var sub sql.NullString
			if e.SubCategory != nil {
				sub = sql.NullString{String: string(*e.SubCategory), Valid: true}
			}
			_, err := exec.ExecContext(ctx, `
				INSERT INTO evidence (
					id, instrument_id, policy, sub_category, strength, notes, observed_at,
					source_domain, source_title, source_url, source_publisher
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (id) DO UPDATE SET
					policy = EXCLUDED.policy,
					sub_category = EXCLUDED.sub_category,
					strength = EXCLUDED.strength,
					notes = EXCLUDED.notes,
					observed_at = EXCLUDED.observed_at,
					source_domain = EXCLUDED.source_domain,
					source_title = EXCLUDED.source_title,
					source_url = EXCLUDED.source_url,
					source_publisher = EXCLUDED.source_publisher
			`,
				e.ID, inst.ID, string(e.Policy), sub, string(e.Strength), e.Notes, nullTime(e.ObservedAt),
				e.Source.Domain, e.Source.Title, e.Source.URL, e.Source.Publisher,
			)
			if err != nil {
				return fmt.Errorf("insert evidence %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// SetHoldings replaces a basket's holdings using one batched insert.
func (s *PostgresStore) SetHoldings(ctx context.Context, basketSymbol string, holdings []models.Holding) error {
	for _, h := range holdings {
		if err := validateHolding(h); err != nil {
			return err
		}
	}
	basket, err := s.FindBySymbol(ctx, basketSymbol)
	if err != nil {
		return fmt.Errorf("set holdings for %s: %w", basketSymbol, err)
	}
	if !basket.IsBasket() {
		return fmt.Errorf("set holdings for %s: instrument is not a basket", basketSymbol)
	}

	symbols := make([]string, len(holdings))
	weights := make([]float64, len(holdings))
	for i, h := range holdings {
		symbols[i] = normalizeSymbol(h.Symbol)
		weights[i] = h.Weight
	}

	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := s.execer(ctx)
		if _, err := exec.ExecContext(ctx, `DELETE FROM holdings WHERE basket_id = $1`, basket.ID); err != nil {
			return fmt.Errorf("clear holdings: %w", err)
		}
		if len(holdings) == 0 {
			return nil
		}
		_, err := exec.ExecContext(ctx, `
			INSERT INTO holdings (basket_id, symbol, weight)
			SELECT $1, unnest($2::text[]), unnest($3::float8[])
		`, basket.ID, pq.Array(symbols), pq.Array(weights))
		if err != nil {
			return fmt.Errorf("insert holdings: %w", err)
		}
		return nil
	})
}

const selectInstrument = `
	SELECT id, symbol, name, kind, active,
		   debt_ratio, cash_ratio, receivables_ratio, impermissible_income_ratio, financials_as_of,
		   contracts_total_usd, contract_count, contracts_as_of,
		   created_at, updated_at
	FROM instruments
`

func (s *PostgresStore) FindBySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectInstrument+`WHERE symbol = $1`, normalizeSymbol(symbol))
	inst, err := scanInstrument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find instrument: %w", err)
	}
	return inst, nil
}

func (s *PostgresStore) ListEvidence(ctx context.Context, instrumentID uuid.UUID) ([]models.Evidence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instrument_id, policy, sub_category, strength, notes, observed_at,
			   source_domain, source_title, source_url, source_publisher
		FROM evidence
		WHERE instrument_id = $1
		ORDER BY observed_at ASC NULLS FIRST, id ASC
	`, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	out := []models.Evidence{}
	for rows.Next() {
		var (
			e          models.Evidence
			policy     string
			strength   string
			sub        sql.NullString
			observedAt sql.NullTime
		)
		err := rows.Scan(
			&e.ID, &e.InstrumentID, &policy, &sub, &strength, &e.Notes, &observedAt,
			&e.Source.Domain, &e.Source.Title, &e.Source.URL, &e.Source.Publisher,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		e.Policy = models.Policy(policy)
		e.Strength = models.Strength(strength)
		if sub.Valid {
			cat := models.BDSCategory(sub.String)
			e.SubCategory = &cat
		}
		if observedAt.Valid {
			e.ObservedAt = observedAt.Time
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListHoldings(ctx context.Context, basketID uuid.UUID) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT basket_id, symbol, weight
		FROM holdings
		WHERE basket_id = $1
		ORDER BY weight DESC, symbol ASC
	`, basketID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	out := []models.Holding{}
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.BasketID, &h.Symbol, &h.Weight); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstrument(row rowScanner) (*models.Instrument, error) {
	var (
		inst                                   models.Instrument
		kind                                   string
		debt, cash, receivables, impermissible sql.NullFloat64
		financialsAsOf, contractsAsOf          sql.NullTime
		contractsTotal                         decimal.NullDecimal
		contractCount                          sql.NullInt64
	)
	err := row.Scan(
		&inst.ID, &inst.Symbol, &inst.Name, &kind, &inst.Active,
		&debt, &cash, &receivables, &impermissible, &financialsAsOf,
		&contractsTotal, &contractCount, &contractsAsOf,
		&inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.Kind = models.InstrumentKind(kind)
	// ratios are written together; debt stands for the set
	if debt.Valid {
		inst.Financials = &models.FinancialRatios{
			DebtRatio:                debt.Float64,
			CashRatio:                cash.Float64,
			ReceivablesRatio:         receivables.Float64,
			ImpermissibleIncomeRatio: impermissible.Float64,
			AsOf:                     financialsAsOf.Time,
		}
	}
	if contractsTotal.Valid {
		inst.Contracts = &models.ContractSummary{
			TotalUSD:      contractsTotal.Decimal,
			ContractCount: int(contractCount.Int64),
			AsOf:          contractsAsOf.Time,
		}
	}
	return &inst, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
