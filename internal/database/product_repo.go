package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product already exists")
	ErrUnitNotFound    = errors.New("unit not found")
)

const productColumns = `p.id, p.name, p.category, p.default_unit_id, p.description, p.created_at, p.updated_at`

func scanProducts(rows pgx.Rows) ([]models.Product, error) {
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.DefaultUnitID, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListProducts returns a paginated list of catalog products
func (db *DB) ListProducts(ctx context.Context, params *models.ProductListParams) ([]models.Product, int, error) {
	var whereClauses []string
	var args []interface{}
	argIndex := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.name ILIKE $%d", argIndex))
		args = append(args, "%"+params.Search+"%")
		argIndex++
	}

	if params.Category != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("LOWER(p.category) = LOWER($%d)", argIndex))
		args = append(args, params.Category)
		argIndex++
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", whereClause)
	if err := db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		ORDER BY p.name ASC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argIndex, argIndex+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetProductByID retrieves a catalog product
func (db *DB) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	err := db.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.DefaultUnitID, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// CreateProduct adds a product to the catalog
func (db *DB) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	var p models.Product
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO products (name, category, default_unit_id, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, category, default_unit_id, description, created_at, updated_at
	`, strings.TrimSpace(req.Name), req.Category, req.DefaultUnitID, req.Description).Scan(
		&p.ID, &p.Name, &p.Category, &p.DefaultUnitID, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductExists
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

// UpsertProduct creates or refreshes a product by name, used by the seeder
func (db *DB) UpsertProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	var p models.Product
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO products (name, category, default_unit_id, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			category = COALESCE(EXCLUDED.category, products.category),
			default_unit_id = COALESCE(EXCLUDED.default_unit_id, products.default_unit_id),
			description = COALESCE(EXCLUDED.description, products.description),
			updated_at = NOW()
		RETURNING id, name, category, default_unit_id, description, created_at, updated_at
	`, strings.TrimSpace(req.Name), req.Category, req.DefaultUnitID, req.Description).Scan(
		&p.ID, &p.Name, &p.Category, &p.DefaultUnitID, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert product: %w", err)
	}
	return &p, nil
}

// DeleteProduct removes a product from the catalog
func (db *DB) DeleteProduct(ctx context.Context, id int) error {
	result, err := db.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SearchProductsRanked runs a full-text search over product names, best
// rank first
func (db *DB) SearchProductsRanked(ctx context.Context, query string, limit int) ([]models.Product, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p, plainto_tsquery('simple', $1) q
		WHERE to_tsvector('simple', p.name) @@ q
		ORDER BY ts_rank(to_tsvector('simple', p.name), q) DESC, p.name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return scanProducts(rows)
}

// SearchProductsContains returns products whose name contains query,
// prefix matches first
func (db *DB) SearchProductsContains(ctx context.Context, query string, limit int) ([]models.Product, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.name ILIKE $1
		ORDER BY
			CASE WHEN p.name ILIKE $2 || '%' THEN 0 ELSE 1 END,
			p.name
		LIMIT $3
	`, "%"+query+"%", query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return scanProducts(rows)
}

// GetProductDefaultUnit returns the product's default unit, nil when it has none
func (db *DB) GetProductDefaultUnit(ctx context.Context, productID int) (*models.Unit, error) {
	var u models.Unit
	err := db.Pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.abbreviation, u.kind
		FROM products p
		JOIN units u ON u.id = p.default_unit_id
		WHERE p.id = $1
	`, productID).Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default unit: %w", err)
	}
	return &u, nil
}

// ListUnits returns every known unit
func (db *DB) ListUnits(ctx context.Context) ([]models.Unit, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, abbreviation, kind
		FROM units
		ORDER BY kind, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	units := []models.Unit{}
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// GetUnitByName looks a unit up by name or abbreviation
func (db *DB) GetUnitByName(ctx context.Context, name string) (*models.Unit, error) {
	var u models.Unit
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, abbreviation, kind
		FROM units
		WHERE LOWER(name) = LOWER($1) OR (abbreviation <> '' AND LOWER(abbreviation) = LOWER($1))
		ORDER BY CASE WHEN LOWER(abbreviation) = LOWER($1) THEN 0 ELSE 1 END
		LIMIT 1
	`, strings.TrimSpace(name)).Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return &u, nil
}

// UpsertUnit creates or updates a unit by name
func (db *DB) UpsertUnit(ctx context.Context, u *models.Unit) error {
	return db.Pool.QueryRow(ctx, `
		INSERT INTO units (name, abbreviation, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET abbreviation = EXCLUDED.abbreviation, kind = EXCLUDED.kind
		RETURNING id
	`, u.Name, u.Abbreviation, u.Kind).Scan(&u.ID)
}
