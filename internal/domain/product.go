package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyName     = errors.New("product name is required")
	ErrNegativePrice = errors.New("price must not be negative")
	ErrNegativeStock = errors.New("stock quantity must not be negative")
)

// Product represents a sellable item in a user's inventory
type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	SKU           string    `json:"sku" db:"sku"`
	Description   string    `json:"description" db:"description"`
	Price         float64   `json:"price" db:"price"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// NewProduct builds a Product, rejecting invalid values at the boundary
// instead of letting them reach the database.
func NewProduct(userID uuid.UUID, name, sku, description string, price float64, stockQuantity int) (*Product, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if price < 0 {
		return nil, ErrNegativePrice
	}
	if stockQuantity < 0 {
		return nil, ErrNegativeStock
	}

	now := time.Now()
	return &Product{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          name,
		SKU:           sku,
		Description:   description,
		Price:         price,
		StockQuantity: stockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
