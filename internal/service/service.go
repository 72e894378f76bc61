// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	perrors "github.com/jarvis/product_service/internal/errors"
	"github.com/jarvis/product_service/internal/store"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// Create adds a new product to the catalog.
	// Returns ErrDuplicateName if a non-deleted product already holds the name.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if the product is absent or soft-deleted.
	FindByID(ctx context.Context, id int64) (*ProductDto, error)

	// Update overwrites all mutable fields of a product.
	// Returns ErrProductNotFound if the product is absent or soft-deleted,
	// ErrDuplicateName if the name belongs to another non-deleted product.
	Update(ctx context.Context, id int64, product ProductCreateDto) (*ProductDto, error)

	// Patch overwrites only the fields present in the input; name is not patchable.
	// Returns ErrProductNotFound if the product is absent or soft-deleted.
	Patch(ctx context.Context, id int64, patch ProductPatchDto) (*ProductDto, error)

	// Delete soft-deletes a product. The transition is one-way: afterwards the
	// id behaves as absent for every id-based operation, this one included.
	Delete(ctx context.Context, id int64) error

	// FindAll returns every stored product, soft-deleted ones included.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindPage returns one page of products under the query's filter and sort.
	// Returns ErrInvalidSortField for sort fields outside the whitelist.
	FindPage(ctx context.Context, query PageQueryDto) (*PageDto, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
}

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ProductCreateDto represents the data transfer object for creating or fully
// updating a product.
type ProductCreateDto struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Price    int64  `json:"price"    validate:"min=0"`
	Quantity int32  `json:"quantity" validate:"min=0"`
	Category string `json:"category" validate:"required"`
}

// ProductDto represents the data transfer object for a product.
// The deleted flag is deliberately not part of the representation.
type ProductDto struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int32  `json:"quantity"`
	Category string `json:"category"`
}

// ProductPatchDto represents a partial update. Nil fields are left untouched.
type ProductPatchDto struct {
	Price    *int64  `json:"price"    validate:"omitempty,min=0"`
	Quantity *int32  `json:"quantity" validate:"omitempty,min=0"`
	Category *string `json:"category" validate:"omitempty,min=1"`
}

// PageQueryDto describes a paged product query as it arrives from the
// transport layer. Filter fields are optional; their precedence is resolved
// by the store's filter rule chain.
type PageQueryDto struct {
	Page     int32
	Size     int32
	SortBy   string
	SortDir  string
	Category *string
	MinPrice *int64
	MaxPrice *int64
	MinQty   *int32
	MaxQty   *int32
}

// PageDto is one page of products plus pagination metadata.
type PageDto struct {
	Content       []ProductDto `json:"content"`
	TotalElements int64        `json:"totalElements"`
	TotalPages    int32        `json:"totalPages"`
	Page          int32        `json:"page"`
	Size          int32        `json:"size"`
}

// Create adds a new product and returns it as a ProductDto.
// The name lookup is an early exit only; the store's unique constraint is the
// authoritative duplicate signal, so concurrent creators cannot slip through.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	if _, err := s.repository.FindByName(ctx, product.Name); err == nil {
		return nil, fmt.Errorf("product already exists with name %s: %w", product.Name, perrors.ErrDuplicateName)
	} else if !errors.Is(err, perrors.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check product name %s: %w", product.Name, err)
	}

	created, err := s.repository.Create(ctx, store.CreateParams{
		Name:     product.Name,
		Price:    product.Price,
		Quantity: product.Quantity,
		Category: product.Category,
	})
	if err != nil {
		if errors.Is(err, perrors.ErrDuplicateName) {
			return nil, fmt.Errorf("product already exists with name %s: %w", product.Name, perrors.ErrDuplicateName)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toDto(created), nil
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no visible product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id int64) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	return toDto(product), nil
}

// Update overwrites all four mutable fields of a product and returns the
// updated representation. A product may keep its own name: the collision
// check only fires when the name belongs to a different non-deleted product.
func (s *Service) Update(ctx context.Context, id int64, product ProductCreateDto) (*ProductDto, error) {
	if holder, err := s.repository.FindByName(ctx, product.Name); err == nil {
		if holder.ID != id {
			return nil, fmt.Errorf("product already exists with name %s: %w", product.Name, perrors.ErrDuplicateName)
		}
	} else if !errors.Is(err, perrors.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check product name %s: %w", product.Name, err)
	}

	updated, err := s.repository.Update(ctx, store.UpdateParams{
		ID:       id,
		Name:     product.Name,
		Price:    product.Price,
		Quantity: product.Quantity,
		Category: product.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %d: %w", id, err)
	}
	return toDto(updated), nil
}

// Patch overwrites only the fields present in the input and returns the
// updated representation. A patch with no fields re-persists the record
// unchanged.
func (s *Service) Patch(ctx context.Context, id int64, patch ProductPatchDto) (*ProductDto, error) {
	current, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}

	if patch.Price != nil {
		current.Price = *patch.Price
	}
	if patch.Quantity != nil {
		current.Quantity = *patch.Quantity
	}
	if patch.Category != nil {
		current.Category = *patch.Category
	}

	updated, err := s.repository.Update(ctx, store.UpdateParams{
		ID:       current.ID,
		Name:     current.Name,
		Price:    current.Price,
		Quantity: current.Quantity,
		Category: current.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to patch product with ID %d: %w", id, err)
	}
	return toDto(updated), nil
}

// Delete soft-deletes a product by its ID.
// Returns ErrProductNotFound if no visible product exists with the given ID.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repository.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %d: %w", id, err)
	}
	return nil
}

// FindAll retrieves every stored product, soft-deleted ones included, and
// returns them as ProductDTOs.
func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	productDTOs := make([]ProductDto, len(products))
	for i, item := range products {
		productDTOs[i] = *toDto(&item)
	}
	return productDTOs, nil
}

// FindPage retrieves one page of products under the query's filter and sort
// and returns it with pagination metadata.
func (s *Service) FindPage(ctx context.Context, query PageQueryDto) (*PageDto, error) {
	column, ok := store.SortColumn(query.SortBy)
	if !ok {
		return nil, fmt.Errorf("%q: %w", query.SortBy, perrors.ErrInvalidSortField)
	}

	page, err := s.repository.FindPage(ctx, store.PageQuery{
		Page:     query.Page,
		Size:     query.Size,
		SortBy:   column,
		SortDesc: strings.EqualFold(query.SortDir, "desc"),
		Category: query.Category,
		MinPrice: query.MinPrice,
		MaxPrice: query.MaxPrice,
		MinQty:   query.MinQty,
		MaxQty:   query.MaxQty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product page: %w", err)
	}

	content := make([]ProductDto, len(page.Content))
	for i, item := range page.Content {
		content[i] = *toDto(&item)
	}
	return &PageDto{
		Content:       content,
		TotalElements: page.TotalElements,
		TotalPages:    totalPages(page.TotalElements, page.Size),
		Page:          page.Page,
		Size:          page.Size,
	}, nil
}

// totalPages computes the page count for a total element count.
func totalPages(total int64, size int32) int32 {
	if size <= 0 {
		return 0
	}
	return int32((total + int64(size) - 1) / int64(size))
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:       product.ID,
		Name:     product.Name,
		Price:    product.Price,
		Quantity: product.Quantity,
		Category: product.Category,
	}
}
