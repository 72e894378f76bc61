package store

import (
	"context"
	"sort"
	"sync"

	perrors "github.com/jarvis/product_service/internal/errors"
)

// inMemory implements ProductStore using an in-memory map. It mirrors the
// PostgreSQL implementation's semantics, including the partial uniqueness of
// names among non-deleted products, and shares the filter rule chain with it.
type inMemory struct {
	mu       sync.RWMutex
	products map[int64]Product
	nextID   int64
}

// NewInMemoryStore creates a new instance of ProductStore
func NewInMemoryStore() ProductStore {
	return &inMemory{
		products: make(map[int64]Product),
		nextID:   1,
	}
}

// FindByID retrieves a non-deleted product by its identifier.
func (s *inMemory) FindByID(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok || p.Deleted {
		return nil, perrors.ErrProductNotFound
	}
	return &p, nil
}

// FindByName retrieves a non-deleted product by its exact name.
func (s *inMemory) FindByName(_ context.Context, name string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.activeByName(name); ok {
		return &p, nil
	}
	return nil, perrors.ErrProductNotFound
}

// FindAll retrieves every stored product, deleted ones included, ordered by id.
func (s *inMemory) FindAll(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// FindPage retrieves one page of products matching the query's filter,
// deleted ones included.
func (s *inMemory) FindPage(_ context.Context, query PageQuery) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule := activeFilter(query)
	matched := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if rule == nil || rule.Match(query, p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if query.SortDesc {
			return lessBy(query.SortBy, matched[j], matched[i])
		}
		return lessBy(query.SortBy, matched[i], matched[j])
	})

	total := int64(len(matched))
	start := int(query.Page) * int(query.Size)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(query.Size)
	if end > len(matched) {
		end = len(matched)
	}

	return &Page{
		Content:       matched[start:end],
		TotalElements: total,
		Page:          query.Page,
		Size:          query.Size,
	}, nil
}

// Create adds a new product with the next free id.
func (s *inMemory) Create(_ context.Context, params CreateParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activeByName(params.Name); exists {
		return nil, perrors.ErrDuplicateName
	}
	product := Product{
		ID:       s.nextID,
		Name:     params.Name,
		Price:    params.Price,
		Quantity: params.Quantity,
		Category: params.Category,
	}
	s.nextID++
	s.products[product.ID] = product

	return &product, nil
}

// Update overwrites all mutable fields of a non-deleted product.
func (s *inMemory) Update(_ context.Context, params UpdateParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[params.ID]
	if !ok || current.Deleted {
		return nil, perrors.ErrProductNotFound
	}
	if other, exists := s.activeByName(params.Name); exists && other.ID != params.ID {
		return nil, perrors.ErrDuplicateName
	}
	current.Name = params.Name
	current.Price = params.Price
	current.Quantity = params.Quantity
	current.Category = params.Category
	s.products[params.ID] = current

	return &current, nil
}

// SoftDelete marks a non-deleted product as deleted.
func (s *inMemory) SoftDelete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[id]
	if !ok || current.Deleted {
		return perrors.ErrProductNotFound
	}
	current.Deleted = true
	s.products[id] = current
	return nil
}

// activeByName finds the non-deleted product holding a name.
// Callers must hold at least the read lock.
func (s *inMemory) activeByName(name string) (Product, bool) {
	for _, p := range s.products {
		if !p.Deleted && p.Name == name {
			return p, true
		}
	}
	return Product{}, false
}

// lessBy orders two products by the given column ascending, with id as the
// tie-break so pages stay stable.
func lessBy(column string, a, b Product) bool {
	switch column {
	case "name":
		if a.Name != b.Name {
			return a.Name < b.Name
		}
	case "price":
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case "quantity":
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
	case "category":
		if a.Category != b.Category {
			return a.Category < b.Category
		}
	}
	return a.ID < b.ID
}
