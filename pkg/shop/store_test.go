package shop

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed low-dimension vectors
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Dimension() int { return 4 }

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0.1, 0.1, 0.1, 0.1}, nil
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.GenerateEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func testCatalog() Catalog {
	return Catalog{
		Products: []Product{
			{ProductID: 1, ProductName: "Trek Domane", Category: "Road Bikes", Price: 2500, Description: "A lightweight carbon road bike."},
			{ProductID: 2, ProductName: "Mountain Helmet", Category: "Helmets", Price: 99, Description: "A sturdy helmet for trail riding."},
		},
		Users: []User{
			{UserID: 1, FirstName: "Ada", LastName: "Nguyen", Email: "ada@example.com", Phone: "555-0101"},
			{UserID: 2, FirstName: "Sam", LastName: "Ortiz", Phone: "555-0102"},
		},
		Purchases: []Purchase{
			{UserID: 1, ProductID: 2, DateOfPurchase: "01/02/2026", Amount: 99, ProductName: "Mountain Helmet", Category: "Helmets"},
		},
	}
}

func newTestStore(t *testing.T, embedder EmbeddingProvider) *Store {
	t.Helper()
	store, err := OpenStore(StoreConfig{
		DBPath:   filepath.Join(t.TempDir(), "shop.db"),
		Embedder: embedder,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SeedCatalog(context.Background(), testCatalog()))
	return store
}

func TestStore_SeedAndLookups(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	product, err := store.ProductByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Trek Domane", product.ProductName)
	assert.Equal(t, 2500.0, product.Price)

	_, err = store.ProductByID(ctx, 999)
	assert.ErrorIs(t, err, ErrProductNotFound)

	user, err := store.UserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = store.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	amount, found, err := store.PurchaseAmount(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 99.0, amount)

	_, found, err = store.PurchaseAmount(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SeedIdempotent(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	// Re-seeding the same catalog keeps a single row per product.
	require.NoError(t, store.SeedCatalog(ctx, testCatalog()))

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM products").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_SearchProducts(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"A lightweight carbon road bike.":   {1, 0, 0, 0},
		"A sturdy helmet for trail riding.": {0, 1, 0, 0},
		"looking for a fast bike for roads": {0.9, 0.1, 0, 0},
		"something to protect my head":      {0.1, 0.9, 0, 0},
	}}
	store := newTestStore(t, embedder)
	ctx := context.Background()

	matches, err := store.SearchProducts(ctx, "looking for a fast bike for roads", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Trek Domane", matches[0].Product.ProductName)
	assert.Greater(t, matches[0].SimilarityScore, matches[1].SimilarityScore)

	matches, err = store.SearchProducts(ctx, "something to protect my head", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Mountain Helmet", matches[0].Product.ProductName)
}

func TestStore_SearchWithoutEmbedder(t *testing.T) {
	store := newTestStore(t, nil)

	_, err := store.SearchProducts(context.Background(), "anything", 2)
	assert.Error(t, err)
}

func TestStore_SeedFromFile(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")

	data, err := json.Marshal(testCatalog())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(catalogPath, data, 0o644))

	store, err := OpenStore(StoreConfig{
		DBPath: filepath.Join(dir, "shop.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Seed(context.Background(), catalogPath))

	product, err := store.ProductByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Mountain Helmet", product.ProductName)
}

func TestCatalogWatcher_Reseeds(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")

	initial := testCatalog()
	data, err := json.Marshal(initial)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(catalogPath, data, 0o644))

	store, err := OpenStore(StoreConfig{
		DBPath: filepath.Join(dir, "shop.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Seed(context.Background(), catalogPath))

	watcher, err := NewCatalogWatcher(store, catalogPath, zerolog.Nop())
	require.NoError(t, err)
	defer watcher.Stop()

	updated := initial
	updated.Products = append(updated.Products, Product{
		ProductID: 3, ProductName: "Bike Lock", Category: "Accessories", Price: 35,
		Description: "A hardened steel lock.",
	})
	data, err = json.Marshal(updated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(catalogPath, data, 0o644))

	assert.Eventually(t, func() bool {
		_, err := store.ProductByID(context.Background(), 3)
		return err == nil
	}, 5*time.Second, 100*time.Millisecond)
}
