package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

var (
	ErrReceiptNotFound     = errors.New("receipt not found")
	ErrReceiptItemNotFound = errors.New("receipt item not found")
	ErrReceiptNotReady     = errors.New("receipt is not ready for confirmation")
	ErrReceiptItemUnnamed  = errors.New("receipt item has no product or name")
	ErrNotReceiptOwner     = errors.New("not the owner of this receipt")
)

const receiptColumns = `r.id, r.user_id, r.s3_bucket, r.s3_key, r.original_filename, r.content_type, r.file_size_bytes,
	r.status, r.ocr_text, r.error_message, r.store_name, r.receipt_date,
	r.uploaded_at, r.processed_at, r.confirmed_at, r.created_at, r.updated_at`

func scanReceipt(row rowScanner, receipt *models.Receipt) error {
	return row.Scan(
		&receipt.ID, &receipt.UserID, &receipt.S3Bucket, &receipt.S3Key,
		&receipt.OriginalFilename, &receipt.ContentType, &receipt.FileSizeBytes,
		&receipt.Status, &receipt.OCRText, &receipt.ErrorMessage, &receipt.StoreName, &receipt.ReceiptDate,
		&receipt.UploadedAt, &receipt.ProcessedAt, &receipt.ConfirmedAt, &receipt.CreatedAt, &receipt.UpdatedAt,
	)
}

// CreateReceipt creates a new receipt record
func (db *DB) CreateReceipt(ctx context.Context, req *models.CreateReceiptRequest) (*models.Receipt, error) {
	receipt := &models.Receipt{}

	err := scanReceipt(db.Pool.QueryRow(ctx, `
		INSERT INTO receipts AS r (user_id, s3_bucket, s3_key, original_filename, content_type, file_size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING `+receiptColumns,
		req.UserID, req.S3Bucket, req.S3Key, req.OriginalFilename, req.ContentType, req.FileSizeBytes,
	), receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	return receipt, nil
}

// GetReceiptByID retrieves a receipt with its parsed lines
func (db *DB) GetReceiptByID(ctx context.Context, id int) (*models.ReceiptWithItems, error) {
	receipt := &models.ReceiptWithItems{}

	err := scanReceipt(db.Pool.QueryRow(ctx, `
		SELECT `+receiptColumns+`
		FROM receipts r
		WHERE r.id = $1
	`, id), &receipt.Receipt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	items, err := db.GetReceiptItems(ctx, id)
	if err != nil {
		return nil, err
	}
	receipt.Items = items

	return receipt, nil
}

// GetReceiptItems retrieves all lines of a receipt
func (db *DB) GetReceiptItems(ctx context.Context, receiptID int) ([]models.ReceiptItemWithDetails, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT ri.id, ri.receipt_id, ri.raw_text, ri.extracted_name, ri.extracted_quantity, ri.unit_hint,
		       ri.matched_product_id, ri.suggested_unit_id, ri.match_status, ri.inventory_item_id,
		       ri.line_number, ri.created_at, ri.updated_at,
		       p.name, u.abbreviation
		FROM receipt_items ri
		LEFT JOIN products p ON ri.matched_product_id = p.id
		LEFT JOIN units u ON ri.suggested_unit_id = u.id
		WHERE ri.receipt_id = $1
		ORDER BY ri.line_number ASC, ri.id ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt items: %w", err)
	}
	defer rows.Close()

	items := []models.ReceiptItemWithDetails{}
	for rows.Next() {
		item := models.ReceiptItemWithDetails{}
		err := rows.Scan(
			&item.ID, &item.ReceiptID, &item.RawText, &item.ExtractedName, &item.ExtractedQuantity, &item.UnitHint,
			&item.MatchedProductID, &item.SuggestedUnitID, &item.MatchStatus, &item.InventoryItemID,
			&item.LineNumber, &item.CreatedAt, &item.UpdatedAt,
			&item.MatchedProductName, &item.SuggestedUnitAbbrev,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// ListReceipts returns a paginated list of receipts for a user
func (db *DB) ListReceipts(ctx context.Context, params *models.ReceiptListParams) ([]*models.Receipt, int, error) {
	whereClauses := []string{"r.user_id = $1"}
	args := []interface{}{params.UserID}

	if params.Status != nil && *params.Status != "" {
		args = append(args, *params.Status)
		whereClauses = append(whereClauses, fmt.Sprintf("r.status = $%d", len(args)))
	}
	whereClause := "WHERE " + strings.Join(whereClauses, " AND ")

	var total int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM receipts r "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM receipts r
		%s
		ORDER BY r.uploaded_at DESC
		LIMIT $%d OFFSET $%d
	`, receiptColumns, whereClause, len(args)-1, len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	receipts := []*models.Receipt{}
	for rows.Next() {
		receipt := &models.Receipt{}
		if err := scanReceipt(rows, receipt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}

	return receipts, total, rows.Err()
}

// UpdateReceiptStatus updates the status and optionally OCR text
func (db *DB) UpdateReceiptStatus(ctx context.Context, id int, status models.ReceiptStatus, ocrText *string, errMsg *string) error {
	var processedAt *time.Time
	if status == models.ReceiptStatusCompleted || status == models.ReceiptStatusFailed {
		now := time.Now()
		processedAt = &now
	}

	_, err := db.Pool.Exec(ctx, `
		UPDATE receipts
		SET status = $2, ocr_text = COALESCE($3, ocr_text), error_message = $4, processed_at = $5, updated_at = NOW()
		WHERE id = $1
	`, id, status, ocrText, errMsg, processedAt)

	return err
}

// UpdateReceiptMetadata stores the header data found by the parser
func (db *DB) UpdateReceiptMetadata(ctx context.Context, id int, storeName *string, receiptDate *time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE receipts
		SET store_name = COALESCE($2, store_name), receipt_date = COALESCE($3, receipt_date), updated_at = NOW()
		WHERE id = $1
	`, id, storeName, receiptDate)

	return err
}

// CreateReceiptItem creates a parsed line of a receipt
func (db *DB) CreateReceiptItem(ctx context.Context, req *models.CreateReceiptItemRequest) (*models.ReceiptItem, error) {
	item := &models.ReceiptItem{}

	matchStatus := req.MatchStatus
	if matchStatus == "" {
		matchStatus = models.MatchStatusPending
	}

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO receipt_items (receipt_id, raw_text, extracted_name, extracted_quantity, unit_hint,
		                          matched_product_id, suggested_unit_id, match_status, line_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, receipt_id, raw_text, extracted_name, extracted_quantity, unit_hint,
		          matched_product_id, suggested_unit_id, match_status, inventory_item_id,
		          line_number, created_at, updated_at
	`, req.ReceiptID, req.RawText, req.ExtractedName, req.ExtractedQuantity, req.UnitHint,
		req.MatchedProductID, req.SuggestedUnitID, matchStatus, req.LineNumber).Scan(
		&item.ID, &item.ReceiptID, &item.RawText, &item.ExtractedName, &item.ExtractedQuantity, &item.UnitHint,
		&item.MatchedProductID, &item.SuggestedUnitID, &item.MatchStatus, &item.InventoryItemID,
		&item.LineNumber, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt item: %w", err)
	}

	return item, nil
}

// ConfirmReceipt moves the reviewed lines into the user's pantry in one
// transaction. Lines without an explicit choice fall back to the matched
// product, the suggested unit and the extracted quantity.
func (db *DB) ConfirmReceipt(ctx context.Context, receiptID int, userID int, items []models.ConfirmReceiptItemData) ([]*models.InventoryItem, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ownerID int
	var status models.ReceiptStatus
	err = tx.QueryRow(ctx, `SELECT user_id, status FROM receipts WHERE id = $1 FOR UPDATE`, receiptID).Scan(&ownerID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrNotReceiptOwner
	}
	if status != models.ReceiptStatusCompleted {
		return nil, ErrReceiptNotReady
	}

	created := []*models.InventoryItem{}
	for _, data := range items {
		if data.Skip {
			tag, err := tx.Exec(ctx, `
				UPDATE receipt_items SET match_status = 'skipped', updated_at = NOW()
				WHERE id = $1 AND receipt_id = $2
			`, data.ReceiptItemID, receiptID)
			if err != nil {
				return nil, err
			}
			if tag.RowsAffected() == 0 {
				return nil, ErrReceiptItemNotFound
			}
			continue
		}

		var extractedName *string
		var extractedQty *float64
		var matchedProduct, suggestedUnit *int
		err := tx.QueryRow(ctx, `
			SELECT extracted_name, extracted_quantity, matched_product_id, suggested_unit_id
			FROM receipt_items
			WHERE id = $1 AND receipt_id = $2
		`, data.ReceiptItemID, receiptID).Scan(&extractedName, &extractedQty, &matchedProduct, &suggestedUnit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrReceiptItemNotFound
			}
			return nil, err
		}

		productID := firstInt(data.ProductID, matchedProduct)
		customName := data.CustomName
		if productID == nil && (customName == nil || strings.TrimSpace(*customName) == "") {
			customName = extractedName
		}
		if productID == nil && (customName == nil || strings.TrimSpace(*customName) == "") {
			return nil, fmt.Errorf("line %d: %w", data.ReceiptItemID, ErrReceiptItemUnnamed)
		}
		quantity := data.Quantity
		if quantity == nil {
			quantity = extractedQty
		}
		unitID := firstInt(data.UnitID, suggestedUnit)

		inv, err := scanInventoryItem(tx.QueryRow(ctx, `
			INSERT INTO inventory_items (user_id, product_id, custom_name, quantity, unit_id, is_available)
			VALUES ($1, $2, $3, $4, $5, true)
		`+inventoryReturning, userID, productID, customName, quantity, unitID))
		if err != nil {
			return nil, fmt.Errorf("failed to add pantry item: %w", err)
		}

		matchStatus := models.MatchStatusUnmatched
		if productID != nil {
			matchStatus = models.MatchStatusMatched
		}
		_, err = tx.Exec(ctx, `
			UPDATE receipt_items
			SET inventory_item_id = $2, matched_product_id = $3, match_status = $4, updated_at = NOW()
			WHERE id = $1
		`, data.ReceiptItemID, inv.ID, productID, matchStatus)
		if err != nil {
			return nil, err
		}

		created = append(created, inv)
	}

	_, err = tx.Exec(ctx, `
		UPDATE receipts SET status = 'confirmed', confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, receiptID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// DeleteReceipt deletes a receipt and its items
func (db *DB) DeleteReceipt(ctx context.Context, id int) error {
	result, err := db.Pool.Exec(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}

	return nil
}

// ListReceiptKeysForUser returns the object keys of every receipt a user uploaded
func (db *DB) ListReceiptKeysForUser(ctx context.Context, userID int) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT s3_key FROM receipts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipt keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
