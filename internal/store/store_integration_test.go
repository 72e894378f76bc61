package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	perrors "github.com/jarvis/product_service/internal/errors"
	"github.com/jarvis/product_service/pkg/bootstrap"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipIntegrationTests is the environment variable that can be set to skip integration tests.
const skipIntegrationTests = "PRODUCT_SVC_SKIP_INTEGRATION_TESTS"

// ProductStoreSuite runs the PgStore against a real PostgreSQL instance in a
// Docker container, with the embedded migrations applied once per suite.
type ProductStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       *PgStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts the PostgreSQL container, applies migrations and connects the pool.
func (s *ProductStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("products"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	err = bootstrap.RunMigrations(connStr, Migrations, MigrationsPath)
	require.NoError(s.T(), err, "Failed to apply migrations")
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool, 3*time.Second)
	s.logger.Info("Initialization complete for ProductStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *ProductStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating the product table.
func (s *ProductStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE product RESTART IDENTITY")
	require.NoError(s.T(), err, "Failed to truncate product table")
}

func (s *ProductStoreSuite) TestCreateAndFindByID() {
	created, err := s.store.Create(s.ctx, CreateParams{Name: "Laptop DELL", Price: 50000, Quantity: 5, Category: "Electronics"})
	s.Require().NoError(err)
	s.Require().NotZero(created.ID)
	s.Require().False(created.Deleted)

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created, found)

	byName, err := s.store.FindByName(s.ctx, "Laptop DELL")
	s.Require().NoError(err)
	s.Equal(created.ID, byName.ID)

	_, err = s.store.FindByID(s.ctx, created.ID+1000)
	s.ErrorIs(err, perrors.ErrProductNotFound)
}

func (s *ProductStoreSuite) TestUniqueConstraint() {
	_, err := s.store.Create(s.ctx, CreateParams{Name: "Phone", Price: 30000, Quantity: 10, Category: "Electronics"})
	s.Require().NoError(err)

	_, err = s.store.Create(s.ctx, CreateParams{Name: "Phone", Price: 1, Quantity: 1, Category: "Other"})
	s.ErrorIs(err, perrors.ErrDuplicateName)
}

func (s *ProductStoreSuite) TestUniqueConstraintIgnoresDeleted() {
	created, err := s.store.Create(s.ctx, CreateParams{Name: "Phone", Price: 30000, Quantity: 10, Category: "Electronics"})
	s.Require().NoError(err)
	s.Require().NoError(s.store.SoftDelete(s.ctx, created.ID))

	// the name is free again once its holder is deleted
	recreated, err := s.store.Create(s.ctx, CreateParams{Name: "Phone", Price: 35000, Quantity: 1, Category: "Electronics"})
	s.Require().NoError(err)
	s.NotEqual(created.ID, recreated.ID)
}

func (s *ProductStoreSuite) TestUpdate() {
	created, err := s.store.Create(s.ctx, CreateParams{Name: "Desk", Price: 12000, Quantity: 2, Category: "Furniture"})
	s.Require().NoError(err)

	updated, err := s.store.Update(s.ctx, UpdateParams{ID: created.ID, Name: "Desk", Price: 13000, Quantity: 3, Category: "Office"})
	s.Require().NoError(err)
	s.Equal(int64(13000), updated.Price)
	s.Equal(int32(3), updated.Quantity)
	s.Equal("Office", updated.Category)

	_, err = s.store.Update(s.ctx, UpdateParams{ID: created.ID + 1000, Name: "Ghost", Price: 1, Quantity: 1, Category: "None"})
	s.ErrorIs(err, perrors.ErrProductNotFound)
}

func (s *ProductStoreSuite) TestUpdateDuplicateName() {
	_, err := s.store.Create(s.ctx, CreateParams{Name: "Chair", Price: 4000, Quantity: 20, Category: "Furniture"})
	s.Require().NoError(err)
	desk, err := s.store.Create(s.ctx, CreateParams{Name: "Desk", Price: 12000, Quantity: 2, Category: "Furniture"})
	s.Require().NoError(err)

	// renaming onto another product's name trips the partial unique index
	_, err = s.store.Update(s.ctx, UpdateParams{ID: desk.ID, Name: "Chair", Price: 12000, Quantity: 2, Category: "Furniture"})
	s.ErrorIs(err, perrors.ErrDuplicateName)

	// keeping its own name does not
	_, err = s.store.Update(s.ctx, UpdateParams{ID: desk.ID, Name: "Desk", Price: 12500, Quantity: 2, Category: "Furniture"})
	s.NoError(err)
}

func (s *ProductStoreSuite) TestSoftDeleteVisibility() {
	created, err := s.store.Create(s.ctx, CreateParams{Name: "Pen", Price: 50, Quantity: 500, Category: "Stationery"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.SoftDelete(s.ctx, created.ID))

	_, err = s.store.FindByID(s.ctx, created.ID)
	s.ErrorIs(err, perrors.ErrProductNotFound)

	err = s.store.SoftDelete(s.ctx, created.ID)
	s.ErrorIs(err, perrors.ErrProductNotFound)

	// list and page queries still see the deleted row
	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.True(all[0].Deleted)

	page, err := s.store.FindPage(s.ctx, PageQuery{Page: 0, Size: 5, SortBy: "id"})
	s.Require().NoError(err)
	s.Equal(int64(1), page.TotalElements)
}

func (s *ProductStoreSuite) TestFindPage() {
	seed := []CreateParams{
		{Name: "Laptop DELL", Price: 50000, Quantity: 5, Category: "Electronics"},
		{Name: "Phone", Price: 30000, Quantity: 10, Category: "Electronics"},
		{Name: "TV", Price: 45000, Quantity: 3, Category: "Electronics"},
		{Name: "Desk", Price: 12000, Quantity: 2, Category: "Furniture"},
		{Name: "Chair", Price: 4000, Quantity: 20, Category: "Furniture"},
	}
	for _, params := range seed {
		_, err := s.store.Create(s.ctx, params)
		s.Require().NoError(err)
	}

	category := "Electronics"
	page, err := s.store.FindPage(s.ctx, PageQuery{Page: 0, Size: 2, SortBy: "price", SortDesc: true, Category: &category})
	s.Require().NoError(err)
	s.Require().Len(page.Content, 2)
	s.Equal("Laptop DELL", page.Content[0].Name)
	s.Equal("TV", page.Content[1].Name)
	s.Equal(int64(3), page.TotalElements)

	// second page holds the remainder
	page, err = s.store.FindPage(s.ctx, PageQuery{Page: 1, Size: 2, SortBy: "price", SortDesc: true, Category: &category})
	s.Require().NoError(err)
	s.Require().Len(page.Content, 1)
	s.Equal("Phone", page.Content[0].Name)

	minPrice, maxPrice := int64(10000), int64(40000)
	page, err = s.store.FindPage(s.ctx, PageQuery{Page: 0, Size: 5, SortBy: "id", MinPrice: &minPrice, MaxPrice: &maxPrice})
	s.Require().NoError(err)
	s.Require().Len(page.Content, 2)
	s.Equal("Phone", page.Content[0].Name)
	s.Equal("Desk", page.Content[1].Name)
}

// TestProductStoreIntegration runs the ProductStore integration tests.
func TestProductStoreIntegration(t *testing.T) {
	// Skip integration tests if the environment variable is set
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	// Run the test suite
	suite.Run(t, new(ProductStoreSuite))
}
