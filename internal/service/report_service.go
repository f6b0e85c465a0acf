package service

import (
	"context"
	"time"

	"tillpoint/internal/domain"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
)

// TrendDays is the window of the dashboard sales trend chart
const TrendDays = 7

// ReportService produces the dashboard aggregates: headline totals and the
// recent daily sales trend.
type ReportService interface {
	Summary(ctx context.Context, ownerID uuid.UUID) (*domain.SalesSummary, error)
	SalesTrend(ctx context.Context, ownerID uuid.UUID) ([]domain.DailySales, error)
}

type reportService struct {
	saleRepo repository.SaleRepository
	now      func() time.Time
}

// NewReportService creates a new instance of ReportService
func NewReportService(saleRepo repository.SaleRepository) ReportService {
	return &reportService{
		saleRepo: saleRepo,
		now:      time.Now,
	}
}

// Summary returns the owner's headline numbers
func (s *reportService) Summary(ctx context.Context, ownerID uuid.UUID) (*domain.SalesSummary, error) {
	return s.saleRepo.Summary(ctx, ownerID)
}

// SalesTrend returns one entry per day for the last TrendDays days, oldest
// first. Days without sales are zero-filled so the chart always has a full
// window.
func (s *reportService) SalesTrend(ctx context.Context, ownerID uuid.UUID) ([]domain.DailySales, error) {
	today := s.now().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(TrendDays - 1))

	aggregated, err := s.saleRepo.DailyTrend(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]domain.DailySales, len(aggregated))
	for _, day := range aggregated {
		byDay[day.Date.Format("2006-01-02")] = day
	}

	trend := make([]domain.DailySales, 0, TrendDays)
	for i := 0; i < TrendDays; i++ {
		date := since.AddDate(0, 0, i)
		key := date.Format("2006-01-02")
		if day, ok := byDay[key]; ok {
			day.Date = date
			trend = append(trend, day)
		} else {
			trend = append(trend, domain.DailySales{Date: date})
		}
	}

	return trend, nil
}
