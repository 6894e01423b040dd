package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/foxxcyber/pantry-assist/internal/config"
)

// DB wraps the connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect creates a new database connection pool
func Connect(cfg *config.Config, logger *zap.Logger) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	// Configure pool
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger = logger.Named("database")
	logger.Info("database connected", zap.Int32("max_conns", poolConfig.MaxConns))
	return &DB{Pool: pool, logger: logger}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies pending migrations in version order
func RunMigrations(ctx context.Context, db *DB) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.version, err)
		}

		if exists {
			continue
		}

		db.logger.Info("applying migration", zap.Int("version", m.version))

		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(ctx, m.sql); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

// EnsureAdminUser creates the admin user if it doesn't exist
func EnsureAdminUser(ctx context.Context, db *DB, cfg *config.Config) error {
	if cfg.AdminPassword == "" {
		db.logger.Info("ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	var exists bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)",
		cfg.AdminEmail,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	if exists {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO users (email, password_hash, username, role)
		VALUES ($1, $2, 'admin', 'admin')
	`, cfg.AdminEmail, string(hashedPassword))
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	db.logger.Info("admin user created", zap.String("email", cfg.AdminEmail))
	return nil
}

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{1, migration001},
	{2, migration002},
	{3, migration003},
}

const migration001 = `
CREATE EXTENSION IF NOT EXISTS "pg_trgm";

CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    username VARCHAR(50) UNIQUE,
    role VARCHAR(20) DEFAULT 'user',
    allergies TEXT[] NOT NULL DEFAULT '{}',
    diets TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    last_login_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS units (
    id SERIAL PRIMARY KEY,
    name VARCHAR(50) UNIQUE NOT NULL,
    abbreviation VARCHAR(20) NOT NULL DEFAULT '',
    kind VARCHAR(20) NOT NULL DEFAULT 'count'
);

CREATE TABLE IF NOT EXISTS products (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL,
    category VARCHAR(100),
    default_unit_id INT REFERENCES units(id) ON DELETE SET NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_items (
    id SERIAL PRIMARY KEY,
    user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    product_id INT REFERENCES products(id) ON DELETE SET NULL,
    custom_name VARCHAR(200),
    quantity DECIMAL(12, 3),
    unit_id INT REFERENCES units(id) ON DELETE SET NULL,
    is_available BOOLEAN NOT NULL DEFAULT TRUE,
    expiration_date DATE,
    location VARCHAR(100),
    notes TEXT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    CONSTRAINT inventory_item_named CHECK (product_id IS NOT NULL OR custom_name IS NOT NULL),
    CONSTRAINT inventory_quantity_non_negative CHECK (quantity IS NULL OR quantity >= 0)
);

CREATE TABLE IF NOT EXISTS system_settings (
    key VARCHAR(100) PRIMARY KEY,
    value TEXT NOT NULL DEFAULT '',
    value_type VARCHAR(20) NOT NULL DEFAULT 'string',
    category VARCHAR(50) NOT NULL DEFAULT 'general',
    description TEXT NOT NULL DEFAULT '',
    is_sensitive BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS daily_usage (
    user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    usage_date DATE NOT NULL,
    receipt_scans INT NOT NULL DEFAULT 0,
    substitutions INT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT NOW(),
    PRIMARY KEY (user_id, usage_date)
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_products_name_trgm ON products USING gin(name gin_trgm_ops);
CREATE INDEX IF NOT EXISTS idx_products_name_fts ON products USING gin(to_tsvector('simple', name));
CREATE INDEX IF NOT EXISTS idx_inventory_user ON inventory_items(user_id);
CREATE INDEX IF NOT EXISTS idx_inventory_user_available ON inventory_items(user_id, is_available);
CREATE INDEX IF NOT EXISTS idx_daily_usage_date ON daily_usage(usage_date);
`

const migration002 = `
CREATE TABLE IF NOT EXISTS receipts (
    id SERIAL PRIMARY KEY,
    user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    s3_bucket VARCHAR(100) NOT NULL,
    s3_key VARCHAR(500) NOT NULL,
    original_filename VARCHAR(255),
    content_type VARCHAR(100),
    file_size_bytes BIGINT,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    ocr_text TEXT,
    error_message TEXT,
    store_name VARCHAR(255),
    receipt_date DATE,
    uploaded_at TIMESTAMP DEFAULT NOW(),
    processed_at TIMESTAMP,
    confirmed_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS receipt_items (
    id SERIAL PRIMARY KEY,
    receipt_id INT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
    raw_text TEXT NOT NULL,
    extracted_name VARCHAR(255),
    extracted_quantity DECIMAL(12, 3),
    unit_hint VARCHAR(20),
    matched_product_id INT REFERENCES products(id) ON DELETE SET NULL,
    suggested_unit_id INT REFERENCES units(id) ON DELETE SET NULL,
    match_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    inventory_item_id INT REFERENCES inventory_items(id) ON DELETE SET NULL,
    line_number INT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_receipts_user ON receipts(user_id, uploaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_receipt_items_receipt ON receipt_items(receipt_id);
`

const migration003 = `
INSERT INTO units (name, abbreviation, kind) VALUES
    ('gram', 'g', 'mass'),
    ('kilogram', 'kg', 'mass'),
    ('dekagram', 'dag', 'mass'),
    ('mililitr', 'ml', 'volume'),
    ('litr', 'l', 'volume'),
    ('łyżka', 'łyżka', 'volume'),
    ('łyżeczka', 'łyżeczka', 'volume'),
    ('szklanka', 'szkl', 'volume'),
    ('sztuka', 'szt', 'count'),
    ('opakowanie', 'opak', 'count'),
    ('szczypta', '', 'count')
ON CONFLICT (name) DO NOTHING;

INSERT INTO system_settings (key, value, value_type, category, description) VALUES
    ('daily_receipt_scans', '5', 'int', 'limits', 'Receipt scans allowed per user per day'),
    ('daily_substitutions', '10', 'int', 'limits', 'Substitution analyses allowed per user per day'),
    ('openai_api_key', '', 'encrypted', 'ai', 'API key for the OpenAI compatible backend'),
    ('openai_model', '', 'string', 'ai', 'Model name, empty uses the server default')
ON CONFLICT (key) DO NOTHING;
`
