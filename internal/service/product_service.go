package service

import (
	"context"
	"fmt"
	"time"

	"tillpoint/internal/domain"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
)

// ProductInput carries the editable product fields from the inventory forms
type ProductInput struct {
	Name          string
	SKU           string
	Description   string
	Price         float64
	StockQuantity int
}

// ProductService defines the interface for inventory business logic
type ProductService interface {
	CreateProduct(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, ownerID, productID uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, ownerID, productID uuid.UUID) error
	GetProduct(ctx context.Context, ownerID, productID uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, ownerID uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	SearchProducts(ctx context.Context, ownerID uuid.UUID, query string, page, pageSize int) ([]*domain.Product, int, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// CreateProduct validates the input at the boundary and stores the product
func (s *productService) CreateProduct(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(ownerID, input.Name, input.SKU, input.Description, input.Price, input.StockQuantity)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct applies edited fields to an existing product
func (s *productService) UpdateProduct(ctx context.Context, ownerID, productID uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}

	if input.Name == "" {
		return nil, domain.ErrEmptyName
	}
	if input.Price < 0 {
		return nil, domain.ErrNegativePrice
	}
	if input.StockQuantity < 0 {
		return nil, domain.ErrNegativeStock
	}

	product.Name = input.Name
	product.SKU = input.SKU
	product.Description = input.Description
	product.Price = input.Price
	product.StockQuantity = input.StockQuantity
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product unless historical sales reference it
func (s *productService) DeleteProduct(ctx context.Context, ownerID, productID uuid.UUID) error {
	return s.productRepo.Delete(ctx, ownerID, productID)
}

// GetProduct retrieves one of the owner's products
func (s *productService) GetProduct(ctx context.Context, ownerID, productID uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, ownerID, productID)
}

// ListProducts retrieves the owner's inventory page
func (s *productService) ListProducts(ctx context.Context, ownerID uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return s.productRepo.List(ctx, ownerID, page, pageSize, sortBy, sortOrder)
}

// SearchProducts searches the owner's inventory by name or SKU
func (s *productService) SearchProducts(ctx context.Context, ownerID uuid.UUID, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return s.productRepo.Search(ctx, ownerID, query, page, pageSize)
}
