package transport

import (
	"net/http"

	"tillpoint/internal/middleware"
	"tillpoint/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportHandler serves the dashboard aggregates. Chart rendering happens
// client-side; this only returns the numbers.
type ReportHandler struct {
	reportService service.ReportService
	logger        *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the dashboard routes
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/dashboard", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/summary", h.Summary)
		r.Get("/sales-trend", h.SalesTrend)
	})
}

// Summary handles the headline numbers: product count, sale count, revenue
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	summary, err := h.reportService.Summary(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to load dashboard summary", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// SalesTrend handles the daily revenue/transactions chart data
func (h *ReportHandler) SalesTrend(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	trend, err := h.reportService.SalesTrend(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to load sales trend", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load sales trend")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"trend": trend})
}
