package handler

import "screener/internal/screening/models"

// HistoryResponse is the body for GET /screen/history/{symbol}, newest first.
type HistoryResponse struct {
	Symbol  string                   `json:"symbol"`
	Results []models.ScreeningResult `json:"results"`
}
