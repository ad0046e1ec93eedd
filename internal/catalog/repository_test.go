package catalog_test

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/sqlitedb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	// Use in-memory database for tests
	db, err := sqlitedb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, sqlitedb.RunMigrations(db, "./migrations", "schema_migrations_products"))

	return catalog.NewRepository(db)
}

func TestGetAllProducts_ReturnsSeededCatalog(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.GetAllProducts(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 5) // seed migration inserts 5 products
	assert.Equal(t, "L1", products[0].ID)
	assert.Equal(t, "350.00", products[0].DisplayPrice())
	assert.Equal(t, catalog.StatusAvailable, products[0].Status)
	assert.Equal(t, catalog.StatusUnavailable, products[4].Status)
}

func TestGetAllProducts_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetAllProducts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetProduct_ReturnsProduct(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), "L3")
	require.NoError(t, err)

	assert.Equal(t, "Prada", p.Brand)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("515.50")))
	assert.False(t, p.CreatedAt.IsZero())
}

func TestGetProduct_UnknownID(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), "nope")

	assert.Nil(t, p)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestUpsertProduct_InsertThenReplace(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p := &catalog.Product{
		ID:     "N1",
		Brand:  "Hermes",
		Title:  "Silk scarf",
		Price:  decimal.RequireFromString("120"),
		Status: catalog.StatusAvailable,
	}
	require.NoError(t, repo.UpsertProduct(ctx, p))

	got, err := repo.GetProduct(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, "120.00", got.DisplayPrice())

	p.Price = decimal.RequireFromString("99.5")
	p.Status = catalog.StatusUnavailable
	require.NoError(t, repo.UpsertProduct(ctx, p))

	got, err = repo.GetProduct(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, "99.50", got.DisplayPrice())
	assert.False(t, got.Available())

	all, err := repo.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestUpsertProduct_RequiresID(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.UpsertProduct(context.Background(), &catalog.Product{Title: "no id"})
	assert.Error(t, err)
}

func TestUpsertProduct_RejectsUnknownStatus(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.UpsertProduct(context.Background(), &catalog.Product{ID: "X", Status: "sold"})
	assert.Error(t, err)
}
