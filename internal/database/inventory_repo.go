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
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrNotInventoryOwner     = errors.New("not the owner of this inventory item")
	ErrInventoryItemUnnamed  = errors.New("inventory item needs a product or a custom name")
)

// Items with a quantity are available while it is positive; staples
// without one use the stored flag.
const inventorySelect = `
	SELECT
		ii.id, ii.user_id, ii.product_id, ii.custom_name,
		ii.quantity, ii.unit_id,
		CASE WHEN ii.quantity IS NULL THEN ii.is_available ELSE ii.is_available AND ii.quantity > 0 END,
		ii.expiration_date, ii.location, ii.notes,
		ii.created_at, ii.updated_at,
		p.name, u.name, u.abbreviation,
		COALESCE(ii.expiration_date < CURRENT_DATE, false) as is_expired,
		COALESCE(ii.expiration_date >= CURRENT_DATE AND ii.expiration_date <= CURRENT_DATE + INTERVAL '7 days', false) as expires_soon
	FROM inventory_items ii
	LEFT JOIN products p ON ii.product_id = p.id
	LEFT JOIN units u ON ii.unit_id = u.id
`

const inventoryReturning = `
	RETURNING id, user_id, product_id, custom_name, quantity, unit_id, is_available,
		expiration_date, location, notes, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInventoryDetails(row rowScanner) (*models.InventoryItemWithDetails, error) {
	item := &models.InventoryItemWithDetails{}
	err := row.Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.CustomName,
		&item.Quantity, &item.UnitID, &item.IsAvailable,
		&item.ExpirationDate, &item.Location, &item.Notes,
		&item.CreatedAt, &item.UpdatedAt,
		&item.ProductName, &item.UnitName, &item.UnitAbbreviation,
		&item.IsExpired, &item.ExpiresSoon,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case item.CustomName != nil && strings.TrimSpace(*item.CustomName) != "":
		item.DisplayName = *item.CustomName
	case item.ProductName != nil:
		item.DisplayName = *item.ProductName
	default:
		item.DisplayName = "Unknown"
	}
	return item, nil
}

func scanInventoryItem(row rowScanner) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}
	err := row.Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.CustomName, &item.Quantity, &item.UnitID, &item.IsAvailable,
		&item.ExpirationDate, &item.Location, &item.Notes, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListInventoryItems returns paginated inventory for a user
func (db *DB) ListInventoryItems(ctx context.Context, params *models.InventoryListParams) ([]*models.InventoryItemWithDetails, int, error) {
	whereClauses := []string{"ii.user_id = $1"}
	args := []interface{}{params.UserID}
	argCount := 1

	if params.Location != "" {
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf("ii.location = $%d", argCount))
		args = append(args, params.Location)
	}

	if params.Search != "" {
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf("COALESCE(ii.custom_name, p.name, '') ILIKE $%d", argCount))
		args = append(args, "%"+params.Search+"%")
	}

	if params.AvailableOnly {
		whereClauses = append(whereClauses, "ii.is_available AND (ii.quantity IS NULL OR ii.quantity > 0)")
	}

	whereClause := strings.Join(whereClauses, " AND ")

	sortColumn := "ii.updated_at"
	sortOrder := "DESC"
	switch params.SortBy {
	case "name":
		sortColumn = "COALESCE(ii.custom_name, p.name)"
	case "expiration":
		sortColumn = "ii.expiration_date"
	case "quantity":
		sortColumn = "ii.quantity"
	}
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM inventory_items ii
		LEFT JOIN products p ON ii.product_id = p.id
		WHERE %s
	`, whereClause)
	if err := db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY %s %s NULLS LAST, ii.id
		LIMIT $%d OFFSET $%d
	`, inventorySelect, whereClause, sortColumn, sortOrder, argCount+1, argCount+2)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	items := []*models.InventoryItemWithDetails{}
	for rows.Next() {
		item, err := scanInventoryDetails(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}

	return items, total, rows.Err()
}

// ListInventoryForMatching returns the user's whole pantry in insertion
// order. The order is stable so ingredient matching picks the same item
// for the same pantry.
func (db *DB) ListInventoryForMatching(ctx context.Context, userID int) ([]models.InventoryItemWithDetails, error) {
	rows, err := db.Pool.Query(ctx, inventorySelect+`
		WHERE ii.user_id = $1
		ORDER BY ii.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryItemWithDetails{}
	for rows.Next() {
		item, err := scanInventoryDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// GetInventoryItemByID retrieves a single inventory item with details
func (db *DB) GetInventoryItemByID(ctx context.Context, id int, userID int) (*models.InventoryItemWithDetails, error) {
	item, err := scanInventoryDetails(db.Pool.QueryRow(ctx, inventorySelect+`WHERE ii.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}

	// Check ownership
	if item.UserID != userID {
		return nil, ErrNotInventoryOwner
	}

	return item, nil
}

// CreateInventoryItem adds a new item to user's inventory
func (db *DB) CreateInventoryItem(ctx context.Context, req *models.CreateInventoryItemRequest, userID int) (*models.InventoryItem, error) {
	if req.ProductID == nil && (req.CustomName == nil || strings.TrimSpace(*req.CustomName) == "") {
		return nil, ErrInventoryItemUnnamed
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	item, err := scanInventoryItem(db.Pool.QueryRow(ctx, `
		INSERT INTO inventory_items (
			user_id, product_id, custom_name, quantity, unit_id, is_available,
			expiration_date, location, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`+inventoryReturning,
		userID, req.ProductID, req.CustomName, req.Quantity, req.UnitID, isAvailable,
		req.ExpirationDate, req.Location, req.Notes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}

	return item, nil
}

// UpdateInventoryItem updates an inventory item
func (db *DB) UpdateInventoryItem(ctx context.Context, id int, userID int, req *models.UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	if err := db.checkInventoryOwner(ctx, id, userID); err != nil {
		return nil, err
	}

	item, err := scanInventoryItem(db.Pool.QueryRow(ctx, `
		UPDATE inventory_items
		SET
			custom_name = COALESCE($3, custom_name),
			quantity = COALESCE($4, quantity),
			unit_id = COALESCE($5, unit_id),
			is_available = COALESCE($6, is_available),
			expiration_date = COALESCE($7, expiration_date),
			location = COALESCE($8, location),
			notes = COALESCE($9, notes),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`+inventoryReturning, id, userID,
		req.CustomName, req.Quantity, req.UnitID, req.IsAvailable,
		req.ExpirationDate, req.Location, req.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}

	return item, nil
}

// DeleteInventoryItem removes an item from inventory
func (db *DB) DeleteInventoryItem(ctx context.Context, id int, userID int) error {
	result, err := db.Pool.Exec(ctx, `
		DELETE FROM inventory_items WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrInventoryItemNotFound
	}

	return nil
}

// AdjustInventoryQuantity adds or subtracts from current quantity. Staples
// without a quantity are left unchanged.
func (db *DB) AdjustInventoryQuantity(ctx context.Context, id int, userID int, adjustment float64) (*models.InventoryItem, error) {
	if err := db.checkInventoryOwner(ctx, id, userID); err != nil {
		return nil, err
	}

	item, err := scanInventoryItem(db.Pool.QueryRow(ctx, `
		UPDATE inventory_items
		SET quantity = CASE WHEN quantity IS NULL THEN NULL ELSE GREATEST(0, quantity + $3) END,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`+inventoryReturning, id, userID, adjustment))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}
		return nil, fmt.Errorf("failed to adjust inventory item: %w", err)
	}

	return item, nil
}

// GetInventoryLocations returns unique locations for a user's inventory
func (db *DB) GetInventoryLocations(ctx context.Context, userID int) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT location
		FROM inventory_items
		WHERE user_id = $1 AND location IS NOT NULL AND location != ''
		ORDER BY location
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}
	defer rows.Close()

	locations := []string{}
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	return locations, rows.Err()
}

func (db *DB) checkInventoryOwner(ctx context.Context, id, userID int) error {
	var ownerID int
	err := db.Pool.QueryRow(ctx, `SELECT user_id FROM inventory_items WHERE id = $1`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInventoryItemNotFound
		}
		return fmt.Errorf("failed to check inventory owner: %w", err)
	}
	if ownerID != userID {
		return ErrNotInventoryOwner
	}
	return nil
}
