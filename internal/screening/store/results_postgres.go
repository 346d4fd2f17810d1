package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

// PostgresResultStore appends results to screening_results as JSONB.
type PostgresResultStore struct {
	db *sql.DB
}

func NewPostgresResultStore(db *sql.DB) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

func (s *PostgresResultStore) Save(ctx context.Context, result *models.ScreeningResult) error {
	if result == nil || result.AuditID == "" {
		return fmt.Errorf("screening result requires an audit id")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal screening result: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO screening_results (audit_id, symbol, final_verdict, confidence, screened_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (audit_id) DO NOTHING
	`,
		result.AuditID,
		result.Symbol,
		string(result.FinalVerdict),
		string(result.Confidence),
		result.ScreenedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert screening result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert screening result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save result %s: %w", result.AuditID, sentinel.ErrConflict)
	}
	return nil
}

// Publish lets the store act as a result sink.
func (s *PostgresResultStore) Publish(ctx context.Context, result *models.ScreeningResult) error {
	return s.Save(ctx, result)
}

func (s *PostgresResultStore) FindByAuditID(ctx context.Context, auditID string) (*models.ScreeningResult, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM screening_results WHERE audit_id = $1`, auditID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find screening result: %w", err)
	}
	var result models.ScreeningResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode screening result %s: %w", auditID, sentinel.ErrBadData)
	}
	return &result, nil
}

func (s *PostgresResultStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.ScreeningResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM screening_results
		WHERE symbol = $1
		ORDER BY screened_at DESC, audit_id DESC
		LIMIT $2
	`, normalizeSymbol(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query screening results: %w", err)
	}
	defer rows.Close()

	out := []models.ScreeningResult{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan screening result: %w", err)
		}
		var result models.ScreeningResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("decode screening result: %w", sentinel.ErrBadData)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate screening results: %w", err)
	}
	return out, nil
}
