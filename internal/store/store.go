// Package store provides an interface for product storage operations.
package store

import (
	"context"
)

// Product represents a product row. Deletion is logical: the row stays in
// storage with Deleted set to true.
type Product struct {
	ID       int64
	Name     string
	Price    int64
	Quantity int32
	Category string
	Deleted  bool
}

// CreateParams holds the fields of a new product.
type CreateParams struct {
	Name     string
	Price    int64
	Quantity int32
	Category string
}

// UpdateParams holds the full set of mutable fields for an update.
type UpdateParams struct {
	ID       int64
	Name     string
	Price    int64
	Quantity int32
	Category string
}

// PageQuery describes a paged, sorted and optionally filtered product query.
// SortBy must be a column returned by SortColumn. Filter fields are optional;
// which one takes effect is decided by the filter rule chain (see filter.go).
type PageQuery struct {
	Page     int32
	Size     int32
	SortBy   string
	SortDesc bool
	Category *string
	MinPrice *int64
	MaxPrice *int64
	MinQty   *int32
	MaxQty   *int32
}

// Page is a bounded slice of products plus the total match count under the
// same filter.
type Page struct {
	Content       []Product
	TotalElements int64
	Page          int32
	Size          int32
}

// sortColumns is the whitelist of externally sortable fields.
var sortColumns = map[string]string{
	"id":       "id",
	"name":     "name",
	"price":    "price",
	"quantity": "quantity",
	"category": "category",
}

// SortColumn maps an external sort field name to its column name.
// ok is false for fields that are not sortable.
func SortColumn(field string) (string, bool) {
	column, ok := sortColumns[field]
	return column, ok
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
//
// Visibility of soft-deleted rows is intentionally uneven and mirrors the
// historical API contract: id and name lookups treat deleted rows as absent,
// while FindAll and FindPage return them.
type ProductStore interface {
	// FindByID retrieves a single non-deleted product by its identifier.
	// Returns ErrProductNotFound if no such product exists or it is deleted.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindByName retrieves a non-deleted product by its exact name.
	// Returns ErrProductNotFound if no such product exists.
	FindByName(ctx context.Context, name string) (*Product, error)

	// FindAll returns every stored product, deleted ones included, ordered by id.
	FindAll(ctx context.Context) ([]Product, error)

	// FindPage returns one page of products matching the query's filter,
	// deleted ones included, plus the total match count.
	FindPage(ctx context.Context, query PageQuery) (*Page, error)

	// Create adds a new product with Deleted=false and a store-assigned id.
	// Returns ErrDuplicateName if a non-deleted product already holds the name.
	Create(ctx context.Context, params CreateParams) (*Product, error)

	// Update overwrites all mutable fields of a non-deleted product.
	// Returns ErrProductNotFound if the product is absent or deleted,
	// ErrDuplicateName if the new name collides with another non-deleted product.
	Update(ctx context.Context, params UpdateParams) (*Product, error)

	// SoftDelete marks a non-deleted product as deleted.
	// Returns ErrProductNotFound if the product is absent or already deleted.
	SoftDelete(ctx context.Context, id int64) error
}
