package transport

import (
	"errors"
	"net/http"

	"tillpoint/internal/domain"
	"tillpoint/internal/middleware"
	"tillpoint/internal/repository"
	"tillpoint/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleLineRequest is one product line of a submitted cart
type SaleLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// SubmitSaleRequest represents the checkout payload
type SubmitSaleRequest struct {
	Lines []SaleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// SaleListResponse represents a paginated sale history page
type SaleListResponse struct {
	Sales    []*domain.Sale `json:"sales"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// SaleHandler handles HTTP requests for checkout and sale history
type SaleHandler struct {
	saleService service.SaleService
	logger      *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		logger:      logger,
	}
}

// RegisterRoutes registers all sale routes. Checkout additionally goes
// through the rate limiter, it is the one write-heavy endpoint.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimiter func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(rateLimiter).Post("/", h.SubmitSale)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})
}

// SubmitSale handles the checkout submission
func (h *SaleHandler) SubmitSale(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	var req SubmitSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sale validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		lines = append(lines, domain.CartLine{ProductID: productID, Quantity: line.Quantity})
	}

	receipt, err := h.saleService.SubmitSale(r.Context(), ownerID, lines)
	if err != nil {
		h.respondSaleError(w, err)
		return
	}

	h.logger.Info("Sale committed",
		zap.String("sale_id", receipt.SaleID.String()),
		zap.Float64("total", receipt.TotalAmount),
		zap.Int("line_items", len(receipt.Items)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, receipt)
}

// Get handles retrieving one sale receipt
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	receipt, err := h.saleService.GetSale(r.Context(), ownerID, saleID)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
			return
		}
		h.logger.Error("Failed to get sale", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get sale")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, receipt)
}

// List handles the sale history page
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	page, pageSize := paginationParams(r)

	sales, total, err := h.saleService.ListSales(r.Context(), ownerID, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SaleListResponse{
		Sales:    sales,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *SaleHandler) respondSaleError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError
	var commit *service.CommitError

	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrDuplicateProduct):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.As(err, &insufficient):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "insufficient stock", map[string]interface{}{
			"shortages": insufficient.Shortages,
		})
	case errors.As(err, &commit):
		h.logger.Error("Sale commit failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "sale could not be committed; no changes were made")
	default:
		h.logger.Error("Sale submission failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process sale")
	}
}
