package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tillpoint/internal/domain"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Mock repositories for testing
type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if existing, ok := m.products[product.ID]; !ok || existing.UserID != product.UserID {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if existing, ok := m.products[id]; !ok || existing.UserID != ownerID {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok || product.UserID != ownerID {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) List(ctx context.Context, ownerID uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	var products []*domain.Product
	for _, product := range m.products {
		if product.UserID == ownerID {
			products = append(products, product)
		}
	}
	return products, len(products), nil
}

func (m *mockProductRepository) Search(ctx context.Context, ownerID uuid.UUID, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return m.List(ctx, ownerID, page, pageSize, "created_at", repository.SortOrderDesc)
}

// mockSaleRepository applies commits against the product mock's stock the
// way the real transaction does: conditionally, and all-or-nothing.
type mockSaleRepository struct {
	productRepo  *mockProductRepository
	sales        map[uuid.UUID]*domain.Sale
	items        map[uuid.UUID][]domain.SaleLineItem
	commitErr    error
	beforeCommit func()
}

func newMockSaleRepository(productRepo *mockProductRepository) *mockSaleRepository {
	return &mockSaleRepository{
		productRepo: productRepo,
		sales:       make(map[uuid.UUID]*domain.Sale),
		items:       make(map[uuid.UUID][]domain.SaleLineItem),
	}
}

func (m *mockSaleRepository) CommitSale(ctx context.Context, sale *domain.Sale, items []domain.SaleLineItem, decrements []domain.StockDecrement) error {
	if m.beforeCommit != nil {
		m.beforeCommit()
	}
	if m.commitErr != nil {
		return m.commitErr
	}

	// Check every decrement before applying any, mirroring the rollback
	// behavior of the real transaction
	for _, dec := range decrements {
		product, ok := m.productRepo.products[dec.ProductID]
		if !ok || product.StockQuantity < dec.Quantity {
			return &repository.StockConflictError{ProductID: dec.ProductID}
		}
	}
	for _, dec := range decrements {
		m.productRepo.products[dec.ProductID].StockQuantity -= dec.Quantity
	}

	m.sales[sale.ID] = sale
	m.items[sale.ID] = items
	return nil
}

func (m *mockSaleRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Sale, []domain.SaleLineItem, error) {
	sale, ok := m.sales[id]
	if !ok || sale.UserID != ownerID {
		return nil, nil, repository.ErrSaleNotFound
	}
	return sale, m.items[id], nil
}

func (m *mockSaleRepository) List(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]*domain.Sale, int, error) {
	var sales []*domain.Sale
	for _, sale := range m.sales {
		if sale.UserID == ownerID {
			sales = append(sales, sale)
		}
	}
	return sales, len(sales), nil
}

func (m *mockSaleRepository) Summary(ctx context.Context, ownerID uuid.UUID) (*domain.SalesSummary, error) {
	summary := &domain.SalesSummary{}
	for _, product := range m.productRepo.products {
		if product.UserID == ownerID {
			summary.TotalProducts++
		}
	}
	for _, sale := range m.sales {
		if sale.UserID == ownerID {
			summary.TotalSales++
			summary.TotalRevenue += sale.TotalAmount
		}
	}
	return summary, nil
}

func (m *mockSaleRepository) DailyTrend(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]domain.DailySales, error) {
	byDay := make(map[string]*domain.DailySales)
	for _, sale := range m.sales {
		if sale.UserID != ownerID || sale.SaleDate.Before(since) {
			continue
		}
		key := sale.SaleDate.Format("2006-01-02")
		if _, ok := byDay[key]; !ok {
			day, _ := time.Parse("2006-01-02", key)
			byDay[key] = &domain.DailySales{Date: day}
		}
		byDay[key].Revenue += sale.TotalAmount
		byDay[key].Transactions++
	}
	var trend []domain.DailySales
	for _, day := range byDay {
		trend = append(trend, *day)
	}
	return trend, nil
}

func seedMockProduct(repo *mockProductRepository, ownerID uuid.UUID, name string, price float64, stock int) *domain.Product {
	product := &domain.Product{
		ID:            uuid.New(),
		UserID:        ownerID,
		Name:          name,
		SKU:           "SKU-" + uuid.New().String()[:8],
		Price:         price,
		StockQuantity: stock,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	repo.products[product.ID] = product
	return product
}

func newTestSaleService() (SaleService, *mockProductRepository, *mockSaleRepository) {
	productRepo := newMockProductRepository()
	saleRepo := newMockSaleRepository(productRepo)
	return NewSaleService(productRepo, saleRepo), productRepo, saleRepo
}

func TestSubmitSaleSuccess(t *testing.T) {
	svc, productRepo, saleRepo := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 5)

	receipt, err := svc.SubmitSale(ctx, ownerID, []domain.CartLine{{ProductID: p1.ID, Quantity: 3}})
	if err != nil {
		t.Fatalf("SubmitSale failed: %v", err)
	}

	if receipt.TotalAmount != 30.00 {
		t.Errorf("Expected total 30.00, got %f", receipt.TotalAmount)
	}
	if len(receipt.Items) != 1 {
		t.Fatalf("Expected 1 line item, got %d", len(receipt.Items))
	}
	if receipt.Items[0].PriceAtSale != 10.00 {
		t.Errorf("Expected snapshot price 10.00, got %f", receipt.Items[0].PriceAtSale)
	}
	if productRepo.products[p1.ID].StockQuantity != 2 {
		t.Errorf("Expected stock 2, got %d", productRepo.products[p1.ID].StockQuantity)
	}
	if _, ok := saleRepo.sales[receipt.SaleID]; !ok {
		t.Error("Expected sale to be persisted")
	}
}

func TestSubmitSaleComputesTotalAcrossLines(t *testing.T) {
	svc, productRepo, _ := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 5)
	p2 := seedMockProduct(productRepo, ownerID, "Croissant", 4.50, 8)

	receipt, err := svc.SubmitSale(ctx, ownerID, []domain.CartLine{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 4},
	})
	if err != nil {
		t.Fatalf("SubmitSale failed: %v", err)
	}

	if receipt.TotalAmount != 38.00 {
		t.Errorf("Expected total 38.00, got %f", receipt.TotalAmount)
	}
}

func TestSubmitSaleInsufficientStock(t *testing.T) {
	svc, productRepo, saleRepo := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 2)

	_, err := svc.SubmitSale(ctx, ownerID, []domain.CartLine{{ProductID: p1.ID, Quantity: 3}})

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if len(insufficient.Shortages) != 1 {
		t.Fatalf("Expected 1 shortage, got %d", len(insufficient.Shortages))
	}
	shortage := insufficient.Shortages[0]
	if shortage.ProductID != p1.ID || shortage.Requested != 3 || shortage.Available != 2 {
		t.Errorf("Unexpected shortage detail: %+v", shortage)
	}

	if productRepo.products[p1.ID].StockQuantity != 2 {
		t.Errorf("Expected stock unchanged at 2, got %d", productRepo.products[p1.ID].StockQuantity)
	}
	if len(saleRepo.sales) != 0 {
		t.Error("Expected no persisted sale")
	}
}

func TestSubmitSaleReportsEveryShortageAtOnce(t *testing.T) {
	svc, productRepo, _ := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 1)
	p2 := seedMockProduct(productRepo, ownerID, "Croissant", 4.50, 0)

	_, err := svc.SubmitSale(ctx, ownerID, []domain.CartLine{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 1},
	})

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if len(insufficient.Shortages) != 2 {
		t.Errorf("Expected both shortages reported, got %d", len(insufficient.Shortages))
	}
}

func TestSubmitSaleRejectsInvalidRequests(t *testing.T) {
	svc, productRepo, saleRepo := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 5)

	tests := []struct {
		name    string
		lines   []domain.CartLine
		wantErr error
	}{
		{"empty cart", nil, ErrEmptyCart},
		{"zero quantity", []domain.CartLine{{ProductID: p1.ID, Quantity: 0}}, ErrInvalidQuantity},
		{"negative quantity", []domain.CartLine{{ProductID: p1.ID, Quantity: -1}}, ErrInvalidQuantity},
		{"duplicate product", []domain.CartLine{{ProductID: p1.ID, Quantity: 2}, {ProductID: p1.ID, Quantity: 1}}, ErrDuplicateProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitSale(ctx, ownerID, tt.lines)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if productRepo.products[p1.ID].StockQuantity != 5 {
				t.Errorf("Expected stock unchanged at 5, got %d", productRepo.products[p1.ID].StockQuantity)
			}
			if len(saleRepo.sales) != 0 {
				t.Error("Expected no persisted sale")
			}
		})
	}
}

func TestSubmitSaleFailureIsIdempotent(t *testing.T) {
	svc, productRepo, saleRepo := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 2)
	lines := []domain.CartLine{{ProductID: p1.ID, Quantity: 3}}

	_, first := svc.SubmitSale(ctx, ownerID, lines)
	_, second := svc.SubmitSale(ctx, ownerID, lines)

	var e1, e2 *InsufficientStockError
	if !errors.As(first, &e1) || !errors.As(second, &e2) {
		t.Fatalf("Expected InsufficientStockError both times, got %v then %v", first, second)
	}
	if e1.Shortages[0] != e2.Shortages[0] {
		t.Errorf("Expected identical shortage reports, got %+v then %+v", e1.Shortages[0], e2.Shortages[0])
	}
	if productRepo.products[p1.ID].StockQuantity != 2 || len(saleRepo.sales) != 0 {
		t.Error("Expected no state change from either failed submission")
	}
}

func TestSubmitSaleUnknownProduct(t *testing.T) {
	svc, _, _ := newTestSaleService()
	ctx := context.Background()

	_, err := svc.SubmitSale(ctx, uuid.New(), []domain.CartLine{{ProductID: uuid.New(), Quantity: 1}})
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestSubmitSaleCrossOwnerIsNotFound(t *testing.T) {
	svc, productRepo, _ := newTestSaleService()
	ctx := context.Background()

	// Another owner's product must look nonexistent, not forbidden
	p1 := seedMockProduct(productRepo, uuid.New(), "Americano", 10.00, 5)

	_, err := svc.SubmitSale(ctx, uuid.New(), []domain.CartLine{{ProductID: p1.ID, Quantity: 1}})
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestSubmitSaleCommitConflictBecomesInsufficientStock(t *testing.T) {
	svc, productRepo, saleRepo := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 5)

	// A racing submission drains the stock between the pre-check and the
	// commit; the conditional update then matches no row
	saleRepo.commitErr = &repository.StockConflictError{ProductID: p1.ID}
	saleRepo.beforeCommit = func() {
		productRepo.products[p1.ID].StockQuantity = 1
	}

	_, err := svc.SubmitSale(ctx, ownerID, []domain.CartLine{{ProductID: p1.ID, Quantity: 5}})

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	shortage := insufficient.Shortages[0]
	if shortage.Requested != 5 || shortage.Available != 1 {
		t.Errorf("Expected requested 5 / available 1 from re-read, got %+v", shortage)
	}
}

func TestSubmitSaleCommitFailureLeavesNoPartialState(t *testing.T) {
	svc, productRepo, saleRepo := newTestSaleService()
	ownerID := uuid.New()
	ctx := context.Background()

	p1 := seedMockProduct(productRepo, ownerID, "Americano", 10.00, 5)
	saleRepo.commitErr = fmt.Errorf("storage unavailable")

	_, err := svc.SubmitSale(ctx, ownerID, []domain.CartLine{{ProductID: p1.ID, Quantity: 3}})

	var commit *CommitError
	if !errors.As(err, &commit) {
		t.Fatalf("Expected CommitError, got %v", err)
	}
	if productRepo.products[p1.ID].StockQuantity != 5 {
		t.Errorf("Expected stock unchanged at 5, got %d", productRepo.products[p1.ID].StockQuantity)
	}
	if len(saleRepo.sales) != 0 || len(saleRepo.items) != 0 {
		t.Error("Expected no persisted sale or items")
	}
}

func TestProperty_SaleTotalEqualsSumOfLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("committed total equals the sum of quantity times snapshot price", prop.ForAll(
		func(prices []float64, stocks []int) bool {
			if len(prices) == 0 {
				return true
			}
			if len(stocks) < len(prices) {
				return true
			}

			svc, productRepo, _ := newTestSaleService()
			ownerID := uuid.New()
			ctx := context.Background()

			var lines []domain.CartLine
			var expected float64
			for i, price := range prices {
				stock := stocks[i]%100 + 1
				product := seedMockProduct(productRepo, ownerID, fmt.Sprintf("Product %d", i), price, stock)
				qty := stock/2 + 1
				lines = append(lines, domain.CartLine{ProductID: product.ID, Quantity: qty})
				expected += float64(qty) * price
			}

			receipt, err := svc.SubmitSale(ctx, ownerID, lines)
			if err != nil {
				t.Logf("FAIL: SubmitSale failed: %v", err)
				return false
			}

			if receipt.TotalAmount != expected {
				t.Logf("FAIL: Expected total %f, got %f", expected, receipt.TotalAmount)
				return false
			}

			var fromItems float64
			for _, item := range receipt.Items {
				fromItems += float64(item.Quantity) * item.PriceAtSale
			}
			if receipt.TotalAmount != fromItems {
				t.Logf("FAIL: Receipt total %f does not match its own items %f", receipt.TotalAmount, fromItems)
				return false
			}

			return true
		},
		gen.SliceOfN(5, gen.Float64Range(0.01, 500)),
		gen.SliceOfN(5, gen.IntRange(1, 1000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
