package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tillpoint/internal/domain"

	"github.com/google/uuid"
)

var ErrSaleNotFound = errors.New("sale not found")

// StockConflictError reports a conditional stock decrement that affected no
// rows: the product's committed stock was below the requested quantity when
// the transaction tried to apply it.
type StockConflictError struct {
	ProductID uuid.UUID
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s at commit time", e.ProductID)
}

// SaleRepository defines the interface for sale ledger data access. All reads
// are scoped to the owning user.
type SaleRepository interface {
	// CommitSale applies the sale header, its line items, and the stock
	// decrements as a single transaction. Either every write commits or
	// none do. Returns *StockConflictError if any decrement would take a
	// product's stock below zero.
	CommitSale(ctx context.Context, sale *domain.Sale, items []domain.SaleLineItem, decrements []domain.StockDecrement) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Sale, []domain.SaleLineItem, error)
	List(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]*domain.Sale, int, error)
	Summary(ctx context.Context, ownerID uuid.UUID) (*domain.SalesSummary, error)
	DailyTrend(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]domain.DailySales, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// CommitSale inserts the sale and its items and decrements stock inside one
// transaction. Each decrement is conditional on sufficient stock, which
// closes the race between the coordinator's pre-check and the write: if two
// submissions race over the same product, the loser's UPDATE matches no row
// and the whole transaction rolls back.
func (r *saleRepository) CommitSale(ctx context.Context, sale *domain.Sale, items []domain.SaleLineItem, decrements []domain.StockDecrement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, user_id, total_amount, sale_date)
		VALUES ($1, $2, $3, $4)`,
		sale.ID, sale.UserID, sale.TotalAmount, sale.SaleDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, user_id, quantity, price_at_sale)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.SaleID, item.ProductID, item.UserID, item.Quantity, item.PriceAtSale,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	for _, dec := range decrements {
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1, updated_at = NOW()
			WHERE id = $2 AND user_id = $3 AND stock_quantity >= $1`,
			dec.Quantity, dec.ProductID, sale.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return &StockConflictError{ProductID: dec.ProductID}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale transaction: %w", err)
	}

	return nil
}

// FindByID retrieves a sale and its line items, scoped to its owner
func (r *saleRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Sale, []domain.SaleLineItem, error) {
	sale := &domain.Sale{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_amount, sale_date
		FROM sales
		WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	).Scan(&sale.ID, &sale.UserID, &sale.TotalAmount, &sale.SaleDate)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrSaleNotFound
		}
		return nil, nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, user_id, quantity, price_at_sale
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	items := []domain.SaleLineItem{}
	for rows.Next() {
		item := domain.SaleLineItem{}
		err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.UserID, &item.Quantity, &item.PriceAtSale)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return sale, items, nil
}

// List retrieves an owner's sales, newest first, with pagination
func (r *saleRepository) List(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]*domain.Sale, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales WHERE user_id = $1", ownerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	offset := (page - 1) * pageSize

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, sale_date
		FROM sales
		WHERE user_id = $1
		ORDER BY sale_date DESC
		LIMIT $2 OFFSET $3`,
		ownerID, pageSize, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale := &domain.Sale{}
		err := rows.Scan(&sale.ID, &sale.UserID, &sale.TotalAmount, &sale.SaleDate)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, total, nil
}

// Summary aggregates the dashboard headline numbers for an owner
func (r *saleRepository) Summary(ctx context.Context, ownerID uuid.UUID) (*domain.SalesSummary, error) {
	summary := &domain.SalesSummary{}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products WHERE user_id = $1),
			COUNT(s.id),
			COALESCE(SUM(s.total_amount), 0)
		FROM sales s
		WHERE s.user_id = $1`,
		ownerID,
	).Scan(&summary.TotalProducts, &summary.TotalSales, &summary.TotalRevenue)

	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales summary: %w", err)
	}

	return summary, nil
}

// DailyTrend aggregates revenue and transaction counts per day since the
// given time. Days with no sales are absent; the service zero-fills them.
func (r *saleRepository) DailyTrend(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]domain.DailySales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DATE(sale_date), SUM(total_amount), COUNT(*)
		FROM sales
		WHERE user_id = $1 AND sale_date >= $2
		GROUP BY DATE(sale_date)
		ORDER BY DATE(sale_date) ASC`,
		ownerID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily sales: %w", err)
	}
	defer rows.Close()

	trend := []domain.DailySales{}
	for rows.Next() {
		day := domain.DailySales{}
		err := rows.Scan(&day.Date, &day.Revenue, &day.Transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily sales: %w", err)
		}
		trend = append(trend, day)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily sales: %w", err)
	}

	return trend, nil
}
