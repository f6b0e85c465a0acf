package domain

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotInCart     = errors.New("product is not in the cart")
	ErrExceedsStock  = errors.New("requested quantity exceeds known stock")
	ErrBadQuantity   = errors.New("quantity must be at least 1")
	ErrProductAbsent = errors.New("product has no stock available")
)

type cartItem struct {
	product  Product
	quantity int
}

// Cart accumulates selected products and quantities before a sale is
// submitted. The stock ceiling it enforces is advisory, based on the stock
// known at selection time; the sale coordinator re-validates authoritatively
// at commit. Carts preserve insertion order and merge repeated adds, so the
// lines they produce never contain a duplicate product.
//
// A Cart is plain in-memory state for a single session and is not safe for
// concurrent use.
type Cart struct {
	items []cartItem
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty units of product into the cart, merging with an existing line
// for the same product. The merged quantity is capped at the product's stock
// as known at selection time.
func (c *Cart) Add(product Product, qty int) error {
	if qty < 1 {
		return ErrBadQuantity
	}
	if product.StockQuantity < 1 {
		return ErrProductAbsent
	}

	for i := range c.items {
		if c.items[i].product.ID == product.ID {
			merged := c.items[i].quantity + qty
			if merged > c.items[i].product.StockQuantity {
				merged = c.items[i].product.StockQuantity
			}
			c.items[i].quantity = merged
			return nil
		}
	}

	if qty > product.StockQuantity {
		qty = product.StockQuantity
	}
	c.items = append(c.items, cartItem{product: product, quantity: qty})
	return nil
}

// SetQuantity replaces the quantity of an existing line. Setting it to zero
// or below removes the line, matching the minus button reaching zero.
func (c *Cart) SetQuantity(productID uuid.UUID, qty int) error {
	for i := range c.items {
		if c.items[i].product.ID == productID {
			if qty <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
				return nil
			}
			if qty > c.items[i].product.StockQuantity {
				return ErrExceedsStock
			}
			c.items[i].quantity = qty
			return nil
		}
	}
	return ErrNotInCart
}

// Remove drops a product's line from the cart.
func (c *Cart) Remove(productID uuid.UUID) {
	for i := range c.items {
		if c.items[i].product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Total returns the running total based on the prices known at selection
// time. The committed sale total is recomputed by the coordinator from
// prices fetched at commit time.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.items {
		total += item.product.Price * float64(item.quantity)
	}
	return total
}

// Len reports the number of distinct product lines in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// Lines produces the ordered cart lines to submit. The slice is a copy; the
// cart can be cleared or mutated afterwards without affecting a submission
// in flight.
func (c *Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c.items))
	for _, item := range c.items {
		lines = append(lines, CartLine{ProductID: item.product.ID, Quantity: item.quantity})
	}
	return lines
}

// Clear empties the cart after a successful sale.
func (c *Cart) Clear() {
	c.items = nil
}
