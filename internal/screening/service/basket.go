package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"screener/internal/screening/engine"
	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

// screenBasket expands a basket's holdings and folds them into one result.
// Expansion stops at the depth bound or when a basket reaches itself again;
// the basket is then a REVIEW/Low placeholder.
func (s *Service) screenBasket(ctx context.Context, call *screenCall, basket *models.Instrument, depth int, path []string) (models.ScreeningResult, []models.Warning, error) {
	if depth >= call.plan.maxDepth || slices.Contains(path, basket.Symbol) {
		return engine.DepthLimitResult(basket, call.plan.filters), []models.Warning{{
			Symbol:  basket.Symbol,
			Code:    models.WarningDepthLimit,
			Message: fmt.Sprintf("look-through stopped at depth %d", depth),
		}}, nil
	}

	holdings, err := s.instruments.ListHoldings(ctx, basket.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ScreeningResult{}, nil, ctxErr
		}
		s.logger.ErrorContext(ctx, "holdings lookup failed",
			"symbol", basket.Symbol,
			"error", err,
		)
		return s.unavailableResult(basket, call.plan.filters), []models.Warning{{
			Symbol:  basket.Symbol,
			Code:    models.WarningEvidenceUnavailable,
			Message: "holdings could not be loaded",
		}}, nil
	}

	path = append(slices.Clone(path), basket.Symbol)
	results := make([]engine.HoldingResult, len(holdings))
	warnings := make([][]models.Warning, len(holdings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, h := range holdings {
		h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
		results[i].Holding = h
		g.Go(func() error {
			r, warns, err := s.screenHolding(gctx, call, basket.Symbol, h, depth+1, path)
			if err != nil {
				return err
			}
			results[i].Result = r
			warnings[i] = warns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ScreeningResult{}, nil, err
	}

	var all []models.Warning
	for _, w := range warnings {
		all = append(all, w...)
	}
	return engine.AggregateBasket(s.cfg, basket, call.plan.filters, results), all, nil
}

// screenHolding screens one holding. An unresolvable holding yields a nil
// result and a warning; it never fails the basket.
func (s *Service) screenHolding(ctx context.Context, call *screenCall, basketSymbol string, h models.Holding, depth int, path []string) (*models.ScreeningResult, []models.Warning, error) {
	inst, err := s.instruments.FindBySymbol(ctx, h.Symbol)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "holding lookup failed",
				"basket", basketSymbol,
				"symbol", h.Symbol,
				"error", err,
			)
		}
		return nil, []models.Warning{{
			Symbol:  h.Symbol,
			Code:    models.WarningHoldingUnresolved,
			Message: fmt.Sprintf("holding of %s (%.1f%%) could not be resolved and was skipped", basketSymbol, h.Weight),
		}}, nil
	}

	result, warnings, err := s.screenResolved(ctx, call, inst, depth, path)
	if err != nil {
		return nil, nil, err
	}
	return &result, warnings, nil
}
