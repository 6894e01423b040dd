package models

import (
	"time"
)

// ReceiptStatus represents the processing status of a receipt
type ReceiptStatus string

const (
	ReceiptStatusPending    ReceiptStatus = "pending"
	ReceiptStatusProcessing ReceiptStatus = "processing"
	ReceiptStatusCompleted  ReceiptStatus = "completed"
	ReceiptStatusFailed     ReceiptStatus = "failed"
	ReceiptStatusConfirmed  ReceiptStatus = "confirmed"
)

// MatchStatus represents the catalog matching status of a receipt line
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusUnmatched MatchStatus = "unmatched"
	MatchStatusSkipped   MatchStatus = "skipped"
)

// Receipt represents an uploaded receipt image
type Receipt struct {
	ID               int           `json:"id"`
	UserID           int           `json:"user_id"`
	S3Bucket         string        `json:"s3_bucket"`
	S3Key            string        `json:"s3_key"`
	OriginalFilename *string       `json:"original_filename,omitempty"`
	ContentType      *string       `json:"content_type,omitempty"`
	FileSizeBytes    *int64        `json:"file_size_bytes,omitempty"`
	Status           ReceiptStatus `json:"status"`
	OCRText          *string       `json:"ocr_text,omitempty"`
	ErrorMessage     *string       `json:"error_message,omitempty"`
	StoreName        *string       `json:"store_name,omitempty"`
	ReceiptDate      *time.Time    `json:"receipt_date,omitempty"`
	UploadedAt       time.Time     `json:"uploaded_at"`
	ProcessedAt      *time.Time    `json:"processed_at,omitempty"`
	ConfirmedAt      *time.Time    `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ReceiptWithItems includes the parsed lines
type ReceiptWithItems struct {
	Receipt
	Items    []ReceiptItemWithDetails `json:"items"`
	ImageURL *string                  `json:"image_url,omitempty"`
}

// ReceiptItem represents a parsed line from a receipt
type ReceiptItem struct {
	ID                int         `json:"id"`
	ReceiptID         int         `json:"receipt_id"`
	RawText           string      `json:"raw_text"`
	ExtractedName     *string     `json:"extracted_name,omitempty"`
	ExtractedQuantity *float64    `json:"extracted_quantity,omitempty"`
	UnitHint          *string     `json:"unit_hint,omitempty"`
	MatchedProductID  *int        `json:"matched_product_id,omitempty"`
	SuggestedUnitID   *int        `json:"suggested_unit_id,omitempty"`
	MatchStatus       MatchStatus `json:"match_status"`
	InventoryItemID   *int        `json:"inventory_item_id,omitempty"`
	LineNumber        *int        `json:"line_number,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ReceiptItemWithDetails includes joined catalog names
type ReceiptItemWithDetails struct {
	ReceiptItem
	MatchedProductName  *string `json:"matched_product_name,omitempty"`
	SuggestedUnitAbbrev *string `json:"suggested_unit_abbreviation,omitempty"`
}

// CreateReceiptRequest is used when uploading a receipt
type CreateReceiptRequest struct {
	UserID           int
	S3Bucket         string
	S3Key            string
	OriginalFilename string
	ContentType      string
	FileSizeBytes    int64
}

// CreateReceiptItemRequest is used when creating parsed lines
type CreateReceiptItemRequest struct {
	ReceiptID         int
	RawText           string
	ExtractedName     *string
	ExtractedQuantity *float64
	UnitHint          *string
	MatchedProductID  *int
	SuggestedUnitID   *int
	MatchStatus       MatchStatus
	LineNumber        int
}

// ConfirmReceiptRequest moves reviewed receipt lines into the pantry
type ConfirmReceiptRequest struct {
	Items []ConfirmReceiptItemData `json:"items" validate:"required,min=1,dive"`
}

// ConfirmReceiptItemData represents a single line confirmation
type ConfirmReceiptItemData struct {
	ReceiptItemID int      `json:"receipt_item_id" validate:"required"`
	ProductID     *int     `json:"product_id,omitempty"`
	CustomName    *string  `json:"custom_name,omitempty"`
	Quantity      *float64 `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	UnitID        *int     `json:"unit_id,omitempty"`
	Skip          bool     `json:"skip,omitempty"`
}

// ReceiptListParams contains parameters for listing receipts
type ReceiptListParams struct {
	Limit  int
	Offset int
	Status *string
	UserID int
}

// ParsedItem represents a line parsed from OCR text
type ParsedItem struct {
	RawText    string
	Name       string
	Quantity   *float64
	UnitHint   *string
	Price      *float64
	LineNumber int
}

// ParsedReceipt represents the parsed result from receipt OCR
type ParsedReceipt struct {
	Items     []ParsedItem
	Date      *time.Time
	StoreName *string
}
