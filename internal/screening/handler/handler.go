package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"screener/internal/screening/models"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

// Service defines the screening operations exposed over HTTP.
type Service interface {
	Screen(ctx context.Context, req models.ScreenRequest) (*models.ScreenResponse, error)
	FindResult(ctx context.Context, auditID string) (*models.ScreeningResult, error)
	ListResults(ctx context.Context, symbol string, limit int) ([]models.ScreeningResult, error)
}

// Handler wires screening endpoints to the screening service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a screening handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts screening endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/screen", h.HandleScreen)
	r.Get("/screen/results/{auditID}", h.HandleGetResult)
	r.Get("/screen/history/{symbol}", h.HandleHistory)
}

// HandleScreen handles POST /screen.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ScreenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.service.Screen(ctx, req.ToModel())
	if err != nil {
		h.logger.ErrorContext(ctx, "screening failed",
			"request_id", requestID,
			"symbols", len(req.Symbols),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "screening request served",
		"request_id", requestID,
		"results", len(resp.Results),
		"warnings", len(resp.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetResult handles GET /screen/results/{auditID}.
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auditID := chi.URLParam(r, "auditID")

	result, err := h.service.FindResult(ctx, auditID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "result lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"audit_id", auditID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleHistory handles GET /screen/history/{symbol}?limit=N.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := chi.URLParam(r, "symbol")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	results, err := h.service.ListResults(ctx, symbol, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "history lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"symbol", symbol,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Symbol: symbol, Results: results})
}
