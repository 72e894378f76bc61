// Package errors provides custom error types for product-related operations.
package errors

import "errors"

var (
	// ErrProductNotFound is returned when no visible (non-deleted) product matches an id lookup.
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateName is returned when a create or update would give two
	// non-deleted products the same name.
	ErrDuplicateName = errors.New("product name already in use")

	// ErrInvalidSortField is returned when a paged query asks to sort by a column
	// that is not in the sortable whitelist.
	ErrInvalidSortField = errors.New("unsupported sort field")

	// ErrStoreUnavailable is returned when the persistence layer cannot be reached
	// or a query exceeds its deadline.
	ErrStoreUnavailable = errors.New("store unavailable")
)
