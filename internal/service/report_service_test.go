package service

import (
	"context"
	"testing"
	"time"

	"tillpoint/internal/domain"

	"github.com/google/uuid"
)

func seedMockSale(saleRepo *mockSaleRepository, ownerID uuid.UUID, amount float64, date time.Time) {
	sale := &domain.Sale{
		ID:          uuid.New(),
		UserID:      ownerID,
		TotalAmount: amount,
		SaleDate:    date,
	}
	saleRepo.sales[sale.ID] = sale
}

func TestReportSummary(t *testing.T) {
	productRepo := newMockProductRepository()
	saleRepo := newMockSaleRepository(productRepo)
	svc := NewReportService(saleRepo)
	ownerID := uuid.New()
	ctx := context.Background()

	seedMockProduct(productRepo, ownerID, "Americano", 10.00, 5)
	seedMockProduct(productRepo, ownerID, "Croissant", 4.50, 8)
	seedMockProduct(productRepo, uuid.New(), "Not mine", 1.00, 1)

	now := time.Now()
	seedMockSale(saleRepo, ownerID, 30.00, now)
	seedMockSale(saleRepo, ownerID, 12.50, now)
	seedMockSale(saleRepo, uuid.New(), 99.00, now)

	summary, err := svc.Summary(ctx, ownerID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if summary.TotalProducts != 2 {
		t.Errorf("Expected 2 products, got %d", summary.TotalProducts)
	}
	if summary.TotalSales != 2 {
		t.Errorf("Expected 2 sales, got %d", summary.TotalSales)
	}
	if summary.TotalRevenue != 42.50 {
		t.Errorf("Expected revenue 42.50, got %f", summary.TotalRevenue)
	}
}

func TestSalesTrendZeroFillsTheWindow(t *testing.T) {
	productRepo := newMockProductRepository()
	saleRepo := newMockSaleRepository(productRepo)
	ownerID := uuid.New()
	ctx := context.Background()

	fixedNow := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	svc := &reportService{
		saleRepo: saleRepo,
		now:      func() time.Time { return fixedNow },
	}

	seedMockSale(saleRepo, ownerID, 25.00, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	seedMockSale(saleRepo, ownerID, 10.00, time.Date(2026, 3, 8, 11, 0, 0, 0, time.UTC))
	seedMockSale(saleRepo, ownerID, 5.00, time.Date(2026, 3, 8, 16, 0, 0, 0, time.UTC))
	// Outside the window, must not appear
	seedMockSale(saleRepo, ownerID, 99.00, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	trend, err := svc.SalesTrend(ctx, ownerID)
	if err != nil {
		t.Fatalf("SalesTrend failed: %v", err)
	}

	if len(trend) != TrendDays {
		t.Fatalf("Expected %d days, got %d", TrendDays, len(trend))
	}

	if got := trend[0].Date.Format("2006-01-02"); got != "2026-03-04" {
		t.Errorf("Expected window to start 2026-03-04, got %s", got)
	}
	if got := trend[TrendDays-1].Date.Format("2006-01-02"); got != "2026-03-10" {
		t.Errorf("Expected window to end 2026-03-10, got %s", got)
	}

	if trend[0].Revenue != 25.00 || trend[0].Transactions != 1 {
		t.Errorf("Unexpected first day: %+v", trend[0])
	}
	if trend[4].Revenue != 15.00 || trend[4].Transactions != 2 {
		t.Errorf("Unexpected 2026-03-08 aggregate: %+v", trend[4])
	}

	for _, i := range []int{1, 2, 3, 5, 6} {
		if trend[i].Revenue != 0 || trend[i].Transactions != 0 {
			t.Errorf("Expected zero-filled day at index %d, got %+v", i, trend[i])
		}
	}
}

func TestSalesTrendEmptyHistory(t *testing.T) {
	productRepo := newMockProductRepository()
	saleRepo := newMockSaleRepository(productRepo)
	svc := NewReportService(saleRepo)

	trend, err := svc.SalesTrend(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("SalesTrend failed: %v", err)
	}

	if len(trend) != TrendDays {
		t.Fatalf("Expected %d days, got %d", TrendDays, len(trend))
	}
	for _, day := range trend {
		if day.Revenue != 0 || day.Transactions != 0 {
			t.Errorf("Expected all-zero trend, got %+v", day)
		}
	}
}
