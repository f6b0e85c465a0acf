package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tillpoint/internal/domain"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart        = errors.New("cart must contain at least one line")
	ErrInvalidQuantity  = errors.New("every line quantity must be at least 1")
	ErrDuplicateProduct = errors.New("cart contains the same product more than once")
)

// StockShortage describes one product whose requested quantity exceeds the
// committed stock, with enough detail for the caller to adjust the cart.
type StockShortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// InsufficientStockError rejects a whole submission because one or more
// lines exceed available stock. No partial sale is created.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Shortages))
}

// CommitError reports that the atomic write could not be applied. Stock and
// the sale ledger are guaranteed unchanged.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("sale commit failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// SaleService coordinates the sale transaction: it validates a submitted
// cart against current stock, computes the authoritative total from prices
// snapshotted at commit time, and commits the sale header, line items, and
// stock decrements as one atomic unit.
type SaleService interface {
	SubmitSale(ctx context.Context, ownerID uuid.UUID, lines []domain.CartLine) (*domain.Receipt, error)
	GetSale(ctx context.Context, ownerID, saleID uuid.UUID) (*domain.Receipt, error)
	ListSales(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]*domain.Sale, int, error)
}

type saleService struct {
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(productRepo repository.ProductRepository, saleRepo repository.SaleRepository) SaleService {
	return &saleService{
		productRepo: productRepo,
		saleRepo:    saleRepo,
	}
}

// SubmitSale runs the checkout workflow. On any failure nothing is
// persisted: neither the sale, nor line items, nor stock changes.
func (s *saleService) SubmitSale(ctx context.Context, ownerID uuid.UUID, lines []domain.CartLine) (*domain.Receipt, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		// The cart builder merges quantities, so a duplicate means a
		// buggy caller; reject rather than silently summing.
		if seen[line.ProductID] {
			return nil, ErrDuplicateProduct
		}
		seen[line.ProductID] = true
	}

	// Fetch every product scoped to the owner. A product belonging to a
	// different owner is reported as not found, never as a permission
	// error, so existence does not leak across the tenant boundary.
	products := make(map[uuid.UUID]*domain.Product, len(lines))
	for _, line := range lines {
		product, err := s.productRepo.FindByID(ctx, ownerID, line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, repository.ErrProductNotFound
			}
			return nil, fmt.Errorf("failed to load product %s: %w", line.ProductID, err)
		}
		products[line.ProductID] = product
	}

	// Pre-check stock across the whole cart so the caller learns about
	// every shortage at once. This is advisory; the commit re-checks
	// inside the transaction.
	var shortages []StockShortage
	for _, line := range lines {
		product := products[line.ProductID]
		if line.Quantity > product.StockQuantity {
			shortages = append(shortages, StockShortage{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.StockQuantity,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	// Snapshot prices and build the sale.
	sale := &domain.Sale{
		ID:       uuid.New(),
		UserID:   ownerID,
		SaleDate: time.Now(),
	}

	items := make([]domain.SaleLineItem, 0, len(lines))
	decrements := make([]domain.StockDecrement, 0, len(lines))
	var total float64
	for _, line := range lines {
		product := products[line.ProductID]
		items = append(items, domain.SaleLineItem{
			ID:          uuid.New(),
			SaleID:      sale.ID,
			ProductID:   product.ID,
			UserID:      ownerID,
			Quantity:    line.Quantity,
			PriceAtSale: product.Price,
		})
		decrements = append(decrements, domain.StockDecrement{
			ProductID: product.ID,
			Quantity:  line.Quantity,
		})
		total += float64(line.Quantity) * product.Price
	}
	sale.TotalAmount = total

	if err := s.saleRepo.CommitSale(ctx, sale, items, decrements); err != nil {
		// A conditional decrement that matched no row means a racing
		// submission won the stock; report it the same way as the
		// pre-check, with fresh availability where we can get it.
		var conflict *repository.StockConflictError
		if errors.As(err, &conflict) {
			shortage := StockShortage{
				ProductID:   conflict.ProductID,
				ProductName: products[conflict.ProductID].Name,
				Requested:   quantityFor(lines, conflict.ProductID),
				Available:   products[conflict.ProductID].StockQuantity,
			}
			if fresh, ferr := s.productRepo.FindByID(ctx, ownerID, conflict.ProductID); ferr == nil {
				shortage.Available = fresh.StockQuantity
			}
			return nil, &InsufficientStockError{Shortages: []StockShortage{shortage}}
		}
		return nil, &CommitError{Err: err}
	}

	return &domain.Receipt{
		SaleID:      sale.ID,
		TotalAmount: sale.TotalAmount,
		SaleDate:    sale.SaleDate,
		Items:       items,
	}, nil
}

// GetSale retrieves a committed sale as a receipt
func (s *saleService) GetSale(ctx context.Context, ownerID, saleID uuid.UUID) (*domain.Receipt, error) {
	sale, items, err := s.saleRepo.FindByID(ctx, ownerID, saleID)
	if err != nil {
		return nil, err
	}

	return &domain.Receipt{
		SaleID:      sale.ID,
		TotalAmount: sale.TotalAmount,
		SaleDate:    sale.SaleDate,
		Items:       items,
	}, nil
}

// ListSales retrieves an owner's sale history
func (s *saleService) ListSales(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]*domain.Sale, int, error) {
	return s.saleRepo.List(ctx, ownerID, page, pageSize)
}

func quantityFor(lines []domain.CartLine, productID uuid.UUID) int {
	for _, line := range lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}
