package store

import (
	sq "github.com/Masterminds/squirrel"
)

// filterRule is one branch of the paged-query filter chain. Rules are
// evaluated in order and the first rule whose Applies condition holds wins;
// filter fields belonging to later rules are ignored. SQL and Match express
// the same predicate for the SQL and the in-memory store respectively.
type filterRule struct {
	Name    string
	Applies func(q PageQuery) bool
	SQL     func(q PageQuery) sq.Sqlizer
	Match   func(q PageQuery, p Product) bool
}

var filterRules = []filterRule{
	{
		Name: "category",
		Applies: func(q PageQuery) bool {
			return q.Category != nil
		},
		SQL: func(q PageQuery) sq.Sqlizer {
			return sq.Eq{"category": *q.Category}
		},
		Match: func(q PageQuery, p Product) bool {
			return p.Category == *q.Category
		},
	},
	{
		Name: "price_range",
		Applies: func(q PageQuery) bool {
			return q.MinPrice != nil && q.MaxPrice != nil
		},
		SQL: func(q PageQuery) sq.Sqlizer {
			return sq.And{
				sq.GtOrEq{"price": *q.MinPrice},
				sq.LtOrEq{"price": *q.MaxPrice},
			}
		},
		Match: func(q PageQuery, p Product) bool {
			return p.Price >= *q.MinPrice && p.Price <= *q.MaxPrice
		},
	},
	{
		Name: "quantity_range",
		Applies: func(q PageQuery) bool {
			return q.MinQty != nil && q.MaxQty != nil
		},
		SQL: func(q PageQuery) sq.Sqlizer {
			return sq.And{
				sq.GtOrEq{"quantity": *q.MinQty},
				sq.LtOrEq{"quantity": *q.MaxQty},
			}
		},
		Match: func(q PageQuery, p Product) bool {
			return p.Quantity >= *q.MinQty && p.Quantity <= *q.MaxQty
		},
	},
}

// activeFilter returns the first rule that applies to q, or nil when the
// query is unfiltered.
func activeFilter(q PageQuery) *filterRule {
	for i := range filterRules {
		if filterRules[i].Applies(q) {
			return &filterRules[i]
		}
	}
	return nil
}
