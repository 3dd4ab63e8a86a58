// Package shop holds the retail data the agent roles act on: a product
// catalog with vector search, user contact records, and purchase history.
// It backs the domain tools the sales, refunds, and product roles expose.
package shop

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/harun/switchboard/internal/observability"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// ErrProductNotFound is returned when a product ID has no catalog row
var ErrProductNotFound = errors.New("product not found")

// ErrUserNotFound is returned when a user ID has no record
var ErrUserNotFound = errors.New("user not found")

// Product is one catalog entry
type Product struct {
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"product_description"`
}

// User is one customer record
type User struct {
	UserID    int    `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Purchase is one purchase-history row
type Purchase struct {
	UserID         int     `json:"user_id"`
	ProductID      int     `json:"product_id"`
	DateOfPurchase string  `json:"date_of_purchase"`
	Amount         float64 `json:"amount"`
	ProductName    string  `json:"product_name"`
	Category       string  `json:"category"`
}

// Catalog is the JSON seed file layout
type Catalog struct {
	Products  []Product  `json:"products"`
	Users     []User     `json:"users"`
	Purchases []Purchase `json:"purchases"`
}

// ProductMatch is one vector search hit with its similarity score
type ProductMatch struct {
	Product         Product `json:"product"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Store is the sqlite-backed shop database
type Store struct {
	db       *sql.DB
	embedder EmbeddingProvider
	logger   zerolog.Logger
}

// StoreConfig holds store construction parameters
type StoreConfig struct {
	DBPath   string
	Embedder EmbeddingProvider // optional; nil disables vector search
	Logger   zerolog.Logger
}

// OpenStore opens (creating if needed) the shop database
func OpenStore(cfg StoreConfig) (*Store, error) {
	observability.EnsureRegistered()

	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:       db,
		embedder: cfg.Embedder,
		logger:   cfg.Logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", cfg.DBPath).Msg("Shop store opened")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS products (
			product_id INTEGER PRIMARY KEY,
			product_name TEXT NOT NULL,
			category TEXT NOT NULL,
			price REAL NOT NULL,
			product_description TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT,
			phone TEXT
		);

		CREATE TABLE IF NOT EXISTS purchase_history (
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			date_of_purchase TEXT NOT NULL,
			amount REAL NOT NULL,
			product_name TEXT NOT NULL,
			category TEXT NOT NULL,
			PRIMARY KEY (user_id, product_id)
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Create vector table if an embedder is available
	if s.embedder != nil {
		vectorSchema := fmt.Sprintf(`
			CREATE VIRTUAL TABLE IF NOT EXISTS product_embeddings USING vec0(
				product_id INTEGER PRIMARY KEY,
				embedding float[%d] distance_metric=cosine
			);
		`, s.embedder.Dimension())

		if _, err := s.db.Exec(vectorSchema); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
	}

	return nil
}

// Seed loads a JSON catalog file into the store, replacing matching rows
// and embedding product descriptions when an embedder is configured.
func (s *Store) Seed(ctx context.Context, catalogPath string) error {
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}

	return s.SeedCatalog(ctx, catalog)
}

// SeedCatalog upserts catalog entries directly
func (s *Store) SeedCatalog(ctx context.Context, catalog Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range catalog.Products {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO products
				(product_id, product_name, category, price, product_description)
			VALUES (?, ?, ?, ?, ?)`,
			p.ProductID, p.ProductName, p.Category, p.Price, p.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %d: %w", p.ProductID, err)
		}

		if s.embedder != nil {
			if err := s.storeEmbedding(ctx, tx, p); err != nil {
				// Skip this product's vector; the transactional row stays usable.
				s.logger.Warn().Err(err).Int("product_id", p.ProductID).Msg("Failed to embed product")
			}
		}
	}

	for _, u := range catalog.Users {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO users (user_id, first_name, last_name, email, phone)
			VALUES (?, ?, ?, ?, ?)`,
			u.UserID, u.FirstName, u.LastName, u.Email, u.Phone,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert user %d: %w", u.UserID, err)
		}
	}

	for _, ph := range catalog.Purchases {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO purchase_history
				(user_id, product_id, date_of_purchase, amount, product_name, category)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ph.UserID, ph.ProductID, ph.DateOfPurchase, ph.Amount, ph.ProductName, ph.Category,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert purchase (%d, %d): %w", ph.UserID, ph.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info().
		Int("products", len(catalog.Products)).
		Int("users", len(catalog.Users)).
		Int("purchases", len(catalog.Purchases)).
		Msg("Catalog seeded")

	return nil
}

func (s *Store) storeEmbedding(ctx context.Context, tx *sql.Tx, p Product) error {
	embedding, err := s.embedder.GenerateEmbedding(ctx, p.Description)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO product_embeddings (product_id, embedding) VALUES (?, ?)",
		p.ProductID, string(embeddingJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}

// SearchProducts runs a vector similarity search over product descriptions
func (s *Store) SearchProducts(ctx context.Context, prompt string, limit int) ([]ProductMatch, error) {
	if s.embedder == nil {
		return nil, errors.New("vector search is not configured")
	}
	if limit <= 0 {
		limit = 2
	}

	start := time.Now()

	embedding, err := s.embedder.GenerateEmbedding(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.product_id, p.product_name, p.category, p.price, p.product_description,
			vec_distance_cosine(e.embedding, ?) AS distance
		FROM product_embeddings e
		JOIN products p ON p.product_id = e.product_id
		ORDER BY distance ASC
		LIMIT ?`,
		string(embeddingJSON), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []ProductMatch
	for rows.Next() {
		var m ProductMatch
		var distance float64
		if err := rows.Scan(
			&m.Product.ProductID, &m.Product.ProductName, &m.Product.Category,
			&m.Product.Price, &m.Product.Description, &distance,
		); err != nil {
			return nil, err
		}
		m.SimilarityScore = 1.0 - distance
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("prompt", prompt).
		Int("results", len(matches)).
		Dur("duration", time.Since(start)).
		Msg("Product search completed")

	return matches, nil
}

// ProductByID fetches one product row
func (s *Store) ProductByID(ctx context.Context, productID int) (*Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, product_name, category, price, product_description
		FROM products WHERE product_id = ?`, productID,
	).Scan(&p.ProductID, &p.ProductName, &p.Category, &p.Price, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UserByID fetches one user record
func (s *Store) UserByID(ctx context.Context, userID int) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, '')
		FROM users WHERE user_id = ?`, userID,
	).Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Email, &u.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// PurchaseAmount returns the amount paid for one (user, product) purchase
func (s *Store) PurchaseAmount(ctx context.Context, userID, productID int) (float64, bool, error) {
	var amount float64
	err := s.db.QueryRowContext(ctx,
		"SELECT amount FROM purchase_history WHERE user_id = ? AND product_id = ?",
		userID, productID,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return amount, true, nil
}

// AddPurchase records an order in the purchase history
func (s *Store) AddPurchase(ctx context.Context, p Purchase) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO purchase_history
			(user_id, product_id, date_of_purchase, amount, product_name, category)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.UserID, p.ProductID, p.DateOfPurchase, p.Amount, p.ProductName, p.Category,
	)
	return err
}

// Close closes the shop database
func (s *Store) Close() error {
	return s.db.Close()
}
