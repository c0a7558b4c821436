package database

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/OTapias/alican-teca/models"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// InitDB opens the Postgres pool and bootstraps the schema. DATABASE_URL
// wins when set (managed Postgres hands out a single connection string);
// otherwise the connection is composed from the discrete env vars.
func InitDB(logger *zap.Logger) (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "postgres")
		password := getEnv("DB_PASSWORD", "postgres")
		dbname := getEnv("DB_NAME", "alicanteca")
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	createTables := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		price INTEGER NOT NULL,
		currency_code TEXT NOT NULL,
		image TEXT
	);
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		items JSON NOT NULL,
		amount INTEGER NOT NULL,
		currency_code TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		provider TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

// SeedProducts upserts the static catalog so a fresh database serves the
// same products the seed fallback does.
func SeedProducts(db *sql.DB, catalog []models.Product, logger *zap.Logger) error {
	for _, p := range catalog {
		_, err := db.Exec(
			`INSERT INTO products (id, title, description, price, currency_code, image)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
			   title = EXCLUDED.title, description = EXCLUDED.description,
			   price = EXCLUDED.price, currency_code = EXCLUDED.currency_code,
			   image = EXCLUDED.image`,
			p.ID, p.Title, p.Description, p.Price, p.CurrencyCode, p.Image,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	logger.Info("Product catalog seeded", zap.Int("count", len(catalog)))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
