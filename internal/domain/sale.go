package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sale is the header row of a committed checkout. Immutable once created.
type Sale struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	TotalAmount float64   `json:"total_amount" db:"total_amount"`
	SaleDate    time.Time `json:"sale_date" db:"sale_date"`
}

// SaleLineItem records one product sold as part of a Sale. PriceAtSale is the
// product price snapshotted at commit time, so historical receipts are not
// affected by later price changes.
type SaleLineItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SaleID      uuid.UUID `json:"sale_id" db:"sale_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
	PriceAtSale float64   `json:"price_at_sale" db:"price_at_sale"`
}

// Receipt confirms a successfully committed sale.
type Receipt struct {
	SaleID      uuid.UUID      `json:"sale_id"`
	TotalAmount float64        `json:"total_amount"`
	SaleDate    time.Time      `json:"sale_date"`
	Items       []SaleLineItem `json:"items"`
}

// CartLine is a single requested product and quantity within a submitted cart.
// It is ephemeral: nothing is persisted until the sale commits.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// StockDecrement describes one product's stock reduction inside a sale commit.
type StockDecrement struct {
	ProductID uuid.UUID
	Quantity  int
}
