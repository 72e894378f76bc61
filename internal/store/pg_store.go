package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	perrors "github.com/jarvis/product_service/internal/errors"
)

// Migrations holds the SQL schema migrations for the product table.
// They are applied at startup and by the integration tests.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsPath is the directory inside Migrations holding the SQL files.
const MigrationsPath = "migrations"

// uniqueViolation is the PostgreSQL error code raised by the partial unique
// index on name. A violation is the authoritative duplicate-name signal; the
// service-level name lookup is only an early exit.
const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var productColumns = []string{"id", "name", "price", "quantity", "category", "deleted"}

// PgStore implements ProductStore using PostgreSQL as the data store.
// Every query runs under a bounded timeout so a stalled database surfaces as
// ErrStoreUnavailable instead of hanging the request.
type PgStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool, queryTimeout time.Duration) *PgStore {
	return &PgStore{
		db:      dbp,
		timeout: queryTimeout,
	}
}

// FindByID retrieves a non-deleted product by its identifier.
// Returns ErrProductNotFound if no such product exists or it is deleted.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	return p.findOne(ctx, "find product by ID", sq.Eq{"id": id, "deleted": false})
}

// FindByName retrieves a non-deleted product by its exact name.
// Returns ErrProductNotFound if no such product exists.
func (p *PgStore) FindByName(ctx context.Context, name string) (*Product, error) {
	return p.findOne(ctx, "find product by name", sq.Eq{"name": name, "deleted": false})
}

// FindAll retrieves every stored product, deleted ones included, ordered by id.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	qCtx, cancel := p.queryCtx(ctx)
	defer cancel()

	sqlStr, args, err := psql.Select(productColumns...).From("product").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find all query: %w", err)
	}
	rows, err := p.db.Query(qCtx, sqlStr, args...)
	if err != nil {
		return nil, p.classify("failed to find all products", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, p.classify("failed to scan products", err)
	}
	return products, nil
}

// FindPage retrieves one page of products matching the query's filter,
// deleted ones included, plus the total match count under the same filter.
func (p *PgStore) FindPage(ctx context.Context, query PageQuery) (*Page, error) {
	qCtx, cancel := p.queryCtx(ctx)
	defer cancel()

	builder := psql.Select(productColumns...).From("product")
	countBuilder := psql.Select("COUNT(*)").From("product")
	if rule := activeFilter(query); rule != nil {
		predicate := rule.SQL(query)
		builder = builder.Where(predicate)
		countBuilder = countBuilder.Where(predicate)
	}

	direction := " ASC"
	if query.SortDesc {
		direction = " DESC"
	}
	builder = builder.
		OrderBy(query.SortBy + direction).
		Limit(uint64(query.Size)).
		Offset(uint64(query.Page) * uint64(query.Size))

	countSQL, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := p.db.QueryRow(qCtx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, p.classify("failed to count products", err)
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build page query: %w", err)
	}
	rows, err := p.db.Query(qCtx, sqlStr, args...)
	if err != nil {
		return nil, p.classify("failed to find product page", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, p.classify("failed to scan product page", err)
	}

	return &Page{
		Content:       products,
		TotalElements: total,
		Page:          query.Page,
		Size:          query.Size,
	}, nil
}

// Create adds a new product with a store-assigned id.
// Returns ErrDuplicateName if a non-deleted product already holds the name.
func (p *PgStore) Create(ctx context.Context, params CreateParams) (*Product, error) {
	qCtx, cancel := p.queryCtx(ctx)
	defer cancel()

	sqlStr, args, err := psql.Insert("product").
		Columns("name", "price", "quantity", "category").
		Values(params.Name, params.Price, params.Quantity, params.Category).
		Suffix("RETURNING id, name, price, quantity, category, deleted").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}
	rows, err := p.db.Query(qCtx, sqlStr, args...)
	if err != nil {
		return nil, p.classify("failed to create product", err)
	}
	product, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, p.classify("failed to create product", err)
	}
	return &product, nil
}

// Update overwrites all mutable fields of a non-deleted product.
// Returns ErrProductNotFound if the product is absent or deleted,
// ErrDuplicateName if the new name collides with another non-deleted product.
func (p *PgStore) Update(ctx context.Context, params UpdateParams) (*Product, error) {
	qCtx, cancel := p.queryCtx(ctx)
	defer cancel()

	sqlStr, args, err := psql.Update("product").
		Set("name", params.Name).
		Set("price", params.Price).
		Set("quantity", params.Quantity).
		Set("category", params.Category).
		Where(sq.Eq{"id": params.ID, "deleted": false}).
		Suffix("RETURNING id, name, price, quantity, category, deleted").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}
	rows, err := p.db.Query(qCtx, sqlStr, args...)
	if err != nil {
		return nil, p.classify("failed to update product", err)
	}
	product, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, p.classify("failed to update product", err)
	}
	return &product, nil
}

// SoftDelete marks a non-deleted product as deleted.
// Returns ErrProductNotFound if the product is absent or already deleted.
func (p *PgStore) SoftDelete(ctx context.Context, id int64) error {
	qCtx, cancel := p.queryCtx(ctx)
	defer cancel()

	sqlStr, args, err := psql.Update("product").
		Set("deleted", true).
		Where(sq.Eq{"id": id, "deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	tag, err := p.db.Exec(qCtx, sqlStr, args...)
	if err != nil {
		return p.classify("failed to delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return perrors.ErrProductNotFound
	}
	return nil
}

func (p *PgStore) findOne(ctx context.Context, op string, where sq.Eq) (*Product, error) {
	qCtx, cancel := p.queryCtx(ctx)
	defer cancel()

	sqlStr, args, err := psql.Select(productColumns...).From("product").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}
	rows, err := p.db.Query(qCtx, sqlStr, args...)
	if err != nil {
		return nil, p.classify(op, err)
	}
	product, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, p.classify(op, err)
	}
	return &product, nil
}

// queryCtx bounds a single store call with the configured query timeout.
func (p *PgStore) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

// classify maps low-level pgx failures onto the error kinds the service layer
// understands: unique violations become ErrDuplicateName, deadline and
// connection failures become ErrStoreUnavailable.
func (p *PgStore) classify(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return perrors.ErrDuplicateName
	case errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err):
		return fmt.Errorf("%s: %w", op, perrors.ErrStoreUnavailable)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
