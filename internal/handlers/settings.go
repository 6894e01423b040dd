package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/config"
	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/services"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

// SettingsHandler handles settings-related API endpoints
type SettingsHandler struct {
	db            *database.DB
	logger        *zap.Logger
	validate      *validator.Validate
	encryptionKey []byte
}

// NewSettingsHandler creates a new SettingsHandler instance
func NewSettingsHandler(db *database.DB, cfg *config.Config, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{
		db:            db,
		logger:        logger.Named("settings"),
		validate:      newValidator(),
		encryptionKey: services.DeriveEncryptionKey(cfg.JWTSecret),
	}
}

// GetSettingsByCategory returns all settings for a given category
func (h *SettingsHandler) GetSettingsByCategory(c *fiber.Ctx) error {
	category := c.Params("category")
	if category == "" {
		return Error(c, fiber.StatusBadRequest, "category is required")
	}

	settings, err := h.db.GetSettingsByCategory(c.Context(), category, h.encryptionKey)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to get settings")
	}

	return Success(c, settings)
}

// GetAllSettings returns all settings grouped by category
func (h *SettingsHandler) GetAllSettings(c *fiber.Ctx) error {
	settings, err := h.db.GetAllSettings(c.Context(), h.encryptionKey)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to get settings")
	}

	return Success(c, settings)
}

// UpdateSettingsRequest is the request body for updating settings
type UpdateSettingsRequest struct {
	Settings map[string]interface{} `json:"settings" validate:"required,min=1"`
}

// UpdateSettings updates multiple settings of one category at once
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	category := c.Params("category")
	if category == "" {
		return Error(c, fiber.StatusBadRequest, "category is required")
	}
	if category == database.CategoryLimits {
		return Error(c, fiber.StatusBadRequest, "use /api/admin/limits to change usage limits")
	}

	var req UpdateSettingsRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	// Convert values to strings for storage
	settingsMap := make(map[string]string, len(req.Settings))
	for key, value := range req.Settings {
		switch v := value.(type) {
		case string:
			settingsMap[key] = v
		case float64:
			settingsMap[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			settingsMap[key] = strconv.FormatBool(v)
		default:
			settingsMap[key] = fmt.Sprintf("%v", v)
		}
	}

	if err := h.db.SetSettings(c.Context(), settingsMap, h.encryptionKey); err != nil {
		h.logger.Error("failed to update settings", zap.String("category", category), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to update settings")
	}

	h.logger.Info("settings updated", zap.String("category", category), zap.Int("count", len(settingsMap)))
	return Success(c, fiber.Map{"updated": len(settingsMap)})
}

// GetUsageLimits returns the daily limits currently in force
func (h *SettingsHandler) GetUsageLimits(c *fiber.Ctx) error {
	return Success(c, usage.ResolveLimits(c.Context(), h.db, h.logger))
}

// ResetSetting deletes a stored setting so its default applies again
func (h *SettingsHandler) ResetSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return Error(c, fiber.StatusBadRequest, "key is required")
	}

	if err := h.db.DeleteSetting(c.Context(), key); err != nil {
		h.logger.Error("failed to reset setting", zap.String("key", key), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to reset setting")
	}

	h.logger.Info("setting reset", zap.String("key", key))
	return Success(c, fiber.Map{"key": key, "reset": true})
}

// UpdateUsageLimitsRequest is the request body for changing daily limits
type UpdateUsageLimitsRequest struct {
	ReceiptScans  *int `json:"daily_receipt_scans" validate:"required,gte=0,lte=10000"`
	Substitutions *int `json:"daily_substitutions" validate:"required,gte=0,lte=10000"`
}

// UpdateUsageLimits stores new daily limits. They apply from the next request.
func (h *SettingsHandler) UpdateUsageLimits(c *fiber.Ctx) error {
	var req UpdateUsageLimitsRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	limits := usage.Limits{
		ReceiptScans:  *req.ReceiptScans,
		Substitutions: *req.Substitutions,
	}
	if err := h.db.SetUsageLimits(c.Context(), limits); err != nil {
		h.logger.Error("failed to update usage limits", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to update usage limits")
	}

	h.logger.Info("usage limits updated",
		zap.Int("daily_receipt_scans", limits.ReceiptScans),
		zap.Int("daily_substitutions", limits.Substitutions),
	)
	return Success(c, limits)
}
