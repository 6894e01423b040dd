package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/middleware"
	"github.com/foxxcyber/pantry-assist/internal/models"
	"github.com/foxxcyber/pantry-assist/internal/services"
)

const (
	maxReceiptSize = 10 * 1024 * 1024
	imageURLExpiry = time.Hour
)

// ReceiptImages serves and removes stored receipt images
type ReceiptImages interface {
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// ReceiptHandler handles receipt-related endpoints
type ReceiptHandler struct {
	db       *database.DB
	images   ReceiptImages
	scanner  *services.ReceiptService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(db *database.DB, images ReceiptImages, scanner *services.ReceiptService, logger *zap.Logger) *ReceiptHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptHandler{
		db:       db,
		images:   images,
		scanner:  scanner,
		validate: newValidator(),
		logger:   logger.Named("receipts"),
	}
}

// UploadReceipt scans a receipt image into reviewable pantry lines
func (h *ReceiptHandler) UploadReceipt(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "image file is required")
	}

	contentType := file.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		return Error(c, fiber.StatusBadRequest, "invalid image type. Supported: JPEG, PNG, WebP")
	}

	if file.Size > maxReceiptSize {
		return Error(c, fiber.StatusBadRequest, "file too large. Maximum size is 10MB")
	}

	src, err := file.Open()
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}

	receipt, err := h.scanner.Scan(c.Context(), userID, services.ReceiptUpload{
		Filename:    file.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		var qe *services.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			return quotaExceeded(c, qe)
		case errors.Is(err, services.ErrOCRFailed):
			return Error(c, fiber.StatusUnprocessableEntity, "could not read text from the image")
		}
		h.logger.Error("receipt scan failed", zap.Int("user_id", userID), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to process receipt")
	}

	h.attachImageURL(c.Context(), receipt)
	return Created(c, receipt)
}

// ListReceipts returns a paginated list of user's receipts
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	limit, offset := pagination(c, 20, 100)
	params := &models.ReceiptListParams{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	}
	if status := c.Query("status"); status != "" {
		params.Status = &status
	}

	receipts, total, err := h.db.ListReceipts(c.Context(), params)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list receipts")
	}

	return SuccessWithMeta(c, receipts, total, params.Limit, params.Offset)
}

// ownedReceipt loads a receipt and checks it belongs to the caller. When
// the returned receipt is nil the error response has been written.
func (h *ReceiptHandler) ownedReceipt(c *fiber.Ctx) (*models.ReceiptWithItems, error) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return nil, Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, Error(c, fiber.StatusBadRequest, "invalid receipt ID")
	}

	receipt, err := h.db.GetReceiptByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			return nil, Error(c, fiber.StatusNotFound, "receipt not found")
		}
		return nil, Error(c, fiber.StatusInternalServerError, "failed to get receipt")
	}

	if receipt.UserID != userID {
		return nil, Error(c, fiber.StatusForbidden, "access denied")
	}
	return receipt, nil
}

// GetReceipt returns a single receipt with items
func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	receipt, err := h.ownedReceipt(c)
	if receipt == nil {
		return err
	}

	h.attachImageURL(c.Context(), receipt)
	return Success(c, receipt)
}

// ConfirmReceipt moves the reviewed lines into the pantry
func (h *ReceiptHandler) ConfirmReceipt(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid receipt ID")
	}

	var req models.ConfirmReceiptRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	created, err := h.db.ConfirmReceipt(c.Context(), id, userID, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrReceiptNotFound):
			return Error(c, fiber.StatusNotFound, "receipt not found")
		case errors.Is(err, database.ErrNotReceiptOwner):
			return Error(c, fiber.StatusForbidden, "access denied")
		case errors.Is(err, database.ErrReceiptNotReady):
			return Error(c, fiber.StatusConflict, "receipt is not ready for confirmation")
		case errors.Is(err, database.ErrReceiptItemNotFound):
			return Error(c, fiber.StatusBadRequest, "receipt item does not belong to this receipt")
		case errors.Is(err, database.ErrReceiptItemUnnamed):
			return Error(c, fiber.StatusBadRequest, "each confirmed line needs a product or a name")
		}
		h.logger.Error("failed to confirm receipt", zap.Int("receipt_id", id), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to confirm receipt")
	}

	h.logger.Info("receipt confirmed",
		zap.Int("receipt_id", id),
		zap.Int("user_id", userID),
		zap.Int("inventory_items", len(created)),
	)
	return Success(c, fiber.Map{
		"receipt_id":      id,
		"inventory_items": created,
	})
}

// DeleteReceipt deletes a receipt and its image
func (h *ReceiptHandler) DeleteReceipt(c *fiber.Ctx) error {
	receipt, err := h.ownedReceipt(c)
	if receipt == nil {
		return err
	}

	// The row goes even when the image is already gone
	if err := h.images.Delete(c.Context(), receipt.S3Key); err != nil {
		h.logger.Warn("failed to delete receipt image",
			zap.Int("receipt_id", receipt.ID),
			zap.String("key", receipt.S3Key),
			zap.Error(err),
		)
	}

	if err := h.db.DeleteReceipt(c.Context(), receipt.ID); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to delete receipt")
	}

	return Success(c, fiber.Map{"deleted": true})
}

// GetReceiptImage returns a presigned URL for the receipt image
func (h *ReceiptHandler) GetReceiptImage(c *fiber.Ctx) error {
	receipt, err := h.ownedReceipt(c)
	if receipt == nil {
		return err
	}

	url, err := h.images.GetPresignedURL(c.Context(), receipt.S3Key, imageURLExpiry)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to generate image URL")
	}

	return Success(c, fiber.Map{"url": url})
}

func (h *ReceiptHandler) attachImageURL(ctx context.Context, receipt *models.ReceiptWithItems) {
	url, err := h.images.GetPresignedURL(ctx, receipt.S3Key, imageURLExpiry)
	if err != nil {
		h.logger.Warn("failed to presign receipt image", zap.Int("receipt_id", receipt.ID), zap.Error(err))
		return
	}
	receipt.ImageURL = &url
}

// isValidImageType checks if the content type is a valid image
func isValidImageType(contentType string) bool {
	validTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/webp",
	}

	for _, t := range validTypes {
		if strings.EqualFold(contentType, t) {
			return true
		}
	}
	return false
}
