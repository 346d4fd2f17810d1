// Package service orchestrates screening: it resolves instruments and their
// evidence, runs the pure engine, expands baskets and records every result.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"screener/internal/screening/engine"
	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/internal/screening/ports"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

const (
	// DefaultConcurrency bounds parallel symbol lookups per call.
	DefaultConcurrency = 8

	tracerName = "screener/screening"
)

const (
	reasonNotFound            = "Instrument not found"
	reasonEvidenceUnavailable = "Evidence unavailable"
)

// Type aliases for shared interfaces.
type (
	InstrumentStore       = ports.InstrumentStore
	ResultStore           = ports.ResultStore
	ResultSink            = ports.ResultSink
	FinancialDataProvider = ports.FinancialDataProvider
	AuditPublisher        = ports.AuditPublisher
)

type Service struct {
	instruments InstrumentStore
	results     ResultStore
	financial   FinancialDataProvider
	sink        ResultSink
	audit       AuditPublisher
	cfg         engine.Config
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	newAuditID  func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEngineConfig replaces the default rule tables.
func WithEngineConfig(cfg engine.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithFinancialProvider enables external ratio estimates for instruments
// without stored financials.
func WithFinancialProvider(p FinancialDataProvider) Option {
	return func(s *Service) {
		s.financial = p
	}
}

// WithResultStore enables result lookups by audit ID. Persisting results is
// the sink's job.
func WithResultStore(store ResultStore) Option {
	return func(s *Service) {
		s.results = store
	}
}

// WithResultSink sets the sink that receives every top-level result.
func WithResultSink(sink ResultSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithAuditIDGenerator overrides audit ID minting. Tests use it for stable IDs.
func WithAuditIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newAuditID = fn
	}
}

func New(instruments InstrumentStore, opts ...Option) (*Service, error) {
	if instruments == nil {
		return nil, fmt.Errorf("instrument store is required")
	}

	svc := &Service{
		instruments: instruments,
		cfg:         engine.DefaultConfig(),
		concurrency: DefaultConcurrency,
		newAuditID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer(tracerName)
	}
	if err := svc.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return svc, nil
}

// screenCall carries the per-call state shared by every symbol.
type screenCall struct {
	plan       screenPlan
	now        time.Time
	financials *financialLookups
}

// Screen evaluates every requested symbol and returns results in request
// order. Recoverable conditions become warnings; a rejected request or a
// failed sink fails the whole call with no partial results.
func (s *Service) Screen(ctx context.Context, req models.ScreenRequest) (*models.ScreenResponse, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "screening.Screen")
	defer span.End()

	plan, err := normalizeRequest(req)
	if err != nil {
		s.metrics.IncrementRejected()
		s.emitOperational(ctx, audit.EventScreeningRejected, "request", err.Error())
		span.SetStatus(codes.Error, "rejected")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("screening.symbols", len(plan.symbols)),
		attribute.Bool("screening.lookthrough", plan.lookThrough),
		attribute.Int("screening.max_depth", plan.maxDepth),
	)

	call := &screenCall{
		plan:       plan,
		now:        requestcontext.Now(ctx),
		financials: newFinancialLookups(s.financial),
	}

	results := make([]models.ScreeningResult, len(plan.symbols))
	warnings := make([][]models.Warning, len(plan.symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, symbol := range plan.symbols {
		g.Go(func() error {
			result, warns, err := s.screenSymbol(gctx, call, symbol, 0, nil)
			if err != nil {
				return err
			}
			results[i] = result
			warnings[i] = warns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "screening failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "screening failed")
	}

	resp := &models.ScreenResponse{
		Results:  results,
		Warnings: make([]models.Warning, 0, len(plan.duplicates)),
	}
	for _, sym := range plan.duplicates {
		resp.Warnings = append(resp.Warnings, models.Warning{
			Symbol:  sym,
			Code:    models.WarningDuplicateSymbol,
			Message: "symbol requested more than once; screened once",
		})
	}
	for i := range results {
		r := &results[i]
		r.AuditID = s.newAuditID()
		r.ScreenedAt = call.now

		if r.Confidence == models.ConfidenceLow {
			warnings[i] = append(warnings[i], models.Warning{
				Symbol:  r.Symbol,
				Code:    models.WarningLowConfidence,
				Message: "verdict rests on limited or missing data",
			})
		}
		if err := s.record(ctx, r); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "result not recorded")
			return nil, err
		}
		resp.Warnings = append(resp.Warnings, warnings[i]...)
	}
	for _, w := range resp.Warnings {
		s.metrics.IncrementWarning(string(w.Code))
	}

	s.metrics.ObserveScreenLatency(time.Since(start))
	s.logger.InfoContext(ctx, "screening completed",
		"symbols", len(plan.symbols),
		"warnings", len(resp.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// screenSymbol resolves and screens one symbol. depth counts the basket
// expansions above it and path holds the baskets being expanded. Errors are
// reserved for conditions that must fail the call, which at present is only
// context cancellation.
func (s *Service) screenSymbol(ctx context.Context, call *screenCall, symbol string, depth int, path []string) (models.ScreeningResult, []models.Warning, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "screening.Symbol", trace.WithAttributes(
		attribute.String("screening.symbol", symbol),
		attribute.Int("screening.depth", depth),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return models.ScreeningResult{}, nil, err
	}

	inst, err := s.instruments.FindBySymbol(ctx, symbol)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ScreeningResult{}, nil, ctxErr
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emitOperational(ctx, audit.EventSymbolUnresolved, symbol, "instrument not found")
			return s.notFoundResult(symbol, call.plan.filters), []models.Warning{{
				Symbol:  symbol,
				Code:    models.WarningNotFound,
				Message: "no instrument matches this symbol",
			}}, nil
		}
		s.logger.ErrorContext(ctx, "instrument lookup failed",
			"symbol", symbol,
			"error", err,
		)
		span.RecordError(err)
		placeholder := &models.Instrument{Symbol: symbol}
		return s.unavailableResult(placeholder, call.plan.filters), []models.Warning{{
			Symbol:  symbol,
			Code:    models.WarningEvidenceUnavailable,
			Message: "instrument store unavailable",
		}}, nil
	}

	result, warnings, err := s.screenResolved(ctx, call, inst, depth, path)
	if err != nil {
		return models.ScreeningResult{}, nil, err
	}

	s.metrics.ObserveSymbolLatency(string(inst.Kind), time.Since(start))
	span.SetAttributes(
		attribute.String("screening.verdict", string(result.FinalVerdict)),
		attribute.String("screening.confidence", string(result.Confidence)),
	)
	return result, warnings, nil
}

// screenResolved screens a known instrument, expanding baskets when the
// request asks for look-through.
func (s *Service) screenResolved(ctx context.Context, call *screenCall, inst *models.Instrument, depth int, path []string) (models.ScreeningResult, []models.Warning, error) {
	var warnings []models.Warning
	if !inst.Active {
		warnings = append(warnings, models.Warning{
			Symbol:  inst.Symbol,
			Code:    models.WarningInactive,
			Message: "instrument is deactivated",
		})
	}

	var (
		result models.ScreeningResult
		more   []models.Warning
		err    error
	)
	if inst.IsBasket() && call.plan.lookThrough {
		result, more, err = s.screenBasket(ctx, call, inst, depth, path)
	} else {
		result, more, err = s.screenInstrument(ctx, call, inst)
	}
	if err != nil {
		return models.ScreeningResult{}, nil, err
	}
	return result, append(warnings, more...), nil
}

func (s *Service) screenInstrument(ctx context.Context, call *screenCall, inst *models.Instrument) (models.ScreeningResult, []models.Warning, error) {
	evidence, err := s.instruments.ListEvidence(ctx, inst.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ScreeningResult{}, nil, ctxErr
		}
		s.logger.ErrorContext(ctx, "evidence lookup failed",
			"symbol", inst.Symbol,
			"error", err,
		)
		return s.unavailableResult(inst, call.plan.filters), []models.Warning{{
			Symbol:  inst.Symbol,
			Code:    models.WarningEvidenceUnavailable,
			Message: "evidence could not be loaded",
		}}, nil
	}

	financials, warnings := s.resolveFinancials(ctx, call, inst)

	eval := engine.ScreenInstrument(s.cfg, engine.InstrumentInput{
		Instrument: inst,
		Evidence:   evidence,
		Filters:    call.plan.filters,
		Financials: financials,
	}, call.now)

	for _, f := range eval.Failures {
		s.logger.WarnContext(ctx, "category scoring failed",
			"symbol", inst.Symbol,
			"policy", f.Policy,
			"category", f.Category,
			"error", f.Err,
		)
		warnings = append(warnings, models.Warning{
			Symbol:  inst.Symbol,
			Code:    models.WarningCategoryFailed,
			Message: fmt.Sprintf("%s/%s could not be scored and was treated as pass", f.Policy, f.Category),
		})
	}
	return eval.Result, warnings, nil
}

func (s *Service) notFoundResult(symbol string, filters models.Filters) models.ScreeningResult {
	inst := &models.Instrument{Symbol: symbol}
	return engine.PlaceholderResult(inst, filters, models.VerdictPass, models.ConfidenceLow, reasonNotFound)
}

func (s *Service) unavailableResult(inst *models.Instrument, filters models.Filters) models.ScreeningResult {
	return engine.PlaceholderResult(inst, filters, models.VerdictReview, models.ConfidenceLow, reasonEvidenceUnavailable)
}
