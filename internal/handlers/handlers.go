package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/config"
	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/services"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

// Handler holds all handler dependencies
type Handler struct {
	db            *database.DB
	cfg           *config.Config
	logger        *zap.Logger
	validate      *validator.Validate
	catalog       *matching.CatalogResolver
	analysis      *services.AnalysisService
	ledger        *usage.Ledger
	images        ImagePurger
	encryptionKey []byte
}

// ImagePurger removes stored receipt images in bulk
type ImagePurger interface {
	DeleteMultiple(ctx context.Context, keys []string) error
}

// PurgeImagesWith makes account deletion remove the user's receipt images
func (h *Handler) PurgeImagesWith(images ImagePurger) {
	h.images = images
}

// New creates a new Handler instance
func New(db *database.DB, cfg *config.Config, logger *zap.Logger, catalog *matching.CatalogResolver, analysis *services.AnalysisService, ledger *usage.Ledger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		db:            db,
		cfg:           cfg,
		logger:        logger.Named("handlers"),
		validate:      newValidator(),
		catalog:       catalog,
		analysis:      analysis,
		ledger:        ledger,
		encryptionKey: services.DeriveEncryptionKey(cfg.JWTSecret),
	}
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns validator errors into a single client message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// parseAndValidate reads the JSON body into req and validates it. On
// failure the 400 response is already written and the returned error is
// the result of writing it.
func parseAndValidate(c *fiber.Ctx, v *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := v.Struct(req); err != nil {
		return false, Error(c, fiber.StatusBadRequest, validationMessage(err))
	}
	return true, nil
}

// ErrorHandler is a custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Default to 500
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	// Check if it's a Fiber error
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return Error(c, code, message)
}

// APIResponse is a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// Created returns a 201 response
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta returns a successful response with pagination
func SuccessWithMeta(c *fiber.Ctx, data interface{}, total, limit, offset int) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// getUserID extracts user ID from context using the middleware helper
func getUserID(c *fiber.Ctx) (int, error) {
	userID, ok := c.Locals("user_id").(int)
	if !ok || userID == 0 {
		return 0, errors.New("user not authenticated")
	}
	return userID, nil
}

// pagination reads limit and offset, clamping them to sane values
func pagination(c *fiber.Ctx, defaultLimit, maxLimit int) (int, int) {
	limit := c.QueryInt("limit", defaultLimit)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
