package service

import (
	"context"
	"errors"
	"strings"

	"screener/internal/screening/models"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

const defaultHistoryLimit = 20

// record hands a finished result to the sink and the compliance trail.
// Both are fail-closed.
func (s *Service) record(ctx context.Context, result *models.ScreeningResult) error {
	if s.sink != nil {
		if err := s.sink.Publish(ctx, result); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish screening result",
				"symbol", result.Symbol,
				"audit_id", result.AuditID,
				"error", err,
			)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record screening result")
		}
	}

	s.metrics.IncrementVerdict(string(result.FinalVerdict), string(result.Kind))

	if s.audit == nil {
		return nil
	}
	action := audit.EventScreeningCompleted
	if result.LookThrough != nil {
		action = audit.EventBasketScreened
	}
	event := audit.Event{
		Timestamp:  result.ScreenedAt,
		Subject:    result.Symbol,
		Action:     string(action),
		Decision:   string(result.FinalVerdict),
		Confidence: string(result.Confidence),
		Reason:     summarizeReasons(result.Reasons),
		AuditID:    result.AuditID,
		RequestID:  requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write compliance audit")
	}
	return nil
}

// emitOperational records routine events. Failures are logged only.
func (s *Service) emitOperational(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "operational audit failed",
			"action", action,
			"subject", subject,
			"error", err,
		)
	}
}

// summarizeReasons keeps the audit row short; the full list lives in the
// persisted result.
func summarizeReasons(reasons []string) string {
	const limit = 3
	if len(reasons) > limit {
		return strings.Join(reasons[:limit], "; ") + "; ..."
	}
	return strings.Join(reasons, "; ")
}

// FindResult returns a previously recorded result.
func (s *Service) FindResult(ctx context.Context, auditID string) (*models.ScreeningResult, error) {
	if strings.TrimSpace(auditID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "audit_id is required")
	}
	if s.results == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "result history is not configured")
	}
	result, err := s.results.FindByAuditID(ctx, auditID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "screening result not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load screening result")
	}
	return result, nil
}

// ListResults returns the newest recorded results for a symbol.
func (s *Service) ListResults(ctx context.Context, symbol string, limit int) ([]models.ScreeningResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "symbol is required")
	}
	if s.results == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "result history is not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	results, err := s.results.ListBySymbol(ctx, symbol, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list screening results")
	}
	return results, nil
}
