package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/models"
)

// ListUnits returns the canonical unit table
func (h *Handler) ListUnits(c *fiber.Ctx) error {
	units, err := h.db.ListUnits(c.Context())
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list units")
	}
	return Success(c, units)
}

// ListProducts returns a paginated list of catalog products
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	limit, offset := pagination(c, 50, 100)
	params := &models.ProductListParams{
		Limit:    limit,
		Offset:   offset,
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}

	products, total, err := h.db.ListProducts(c.Context(), params)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list products")
	}

	return SuccessWithMeta(c, products, total, params.Limit, params.Offset)
}

// GetProduct returns a single product by ID
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	product, err := h.db.GetProductByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get product")
	}

	return Success(c, product)
}

// SearchProducts runs the ranked catalog search, falling back to a
// substring search when ranking fails or finds nothing
func (h *Handler) SearchProducts(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return Error(c, fiber.StatusBadRequest, "query parameter q is required")
	}

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	products, err := h.db.SearchProductsRanked(c.Context(), query, limit)
	if err != nil {
		h.logger.Warn("ranked product search failed", zap.String("query", query), zap.Error(err))
	}
	if err != nil || len(products) == 0 {
		products, err = h.db.SearchProductsContains(c.Context(), query, limit)
		if err != nil {
			return Error(c, fiber.StatusInternalServerError, "failed to search products")
		}
	}

	return Success(c, products)
}

// MatchProduct resolves a free-text name to one catalog product and its unit
func (h *Handler) MatchProduct(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return Error(c, fiber.StatusBadRequest, "query parameter name is required")
	}

	product, err := h.catalog.MatchProduct(c.Context(), name)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to match product")
	}
	if product == nil {
		return Error(c, fiber.StatusNotFound, "no matching product")
	}

	var hint *string
	if u := strings.TrimSpace(c.Query("unit")); u != "" {
		hint = &u
	}

	unit, err := h.catalog.SuggestUnit(c.Context(), &product.ID, hint)
	if err != nil {
		h.logger.Warn("unit suggestion failed", zap.Int("product_id", product.ID), zap.Error(err))
	}

	return Success(c, models.ProductMatch{
		Product: product,
		Unit:    unit,
	})
}

// SuggestUnit picks a unit from a hint or the product default
func (h *Handler) SuggestUnit(c *fiber.Ctx) error {
	var productID *int
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return Error(c, fiber.StatusBadRequest, "invalid product id")
		}
		productID = &id
	}

	var hint *string
	if raw := strings.TrimSpace(c.Query("hint")); raw != "" {
		hint = &raw
	}

	if productID == nil && hint == nil {
		return Error(c, fiber.StatusBadRequest, "product_id or hint is required")
	}

	unit, err := h.catalog.SuggestUnit(c.Context(), productID, hint)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to suggest unit")
	}
	if unit == nil {
		return Error(c, fiber.StatusNotFound, "no unit suggestion")
	}

	return Success(c, unit)
}

// CreateProduct adds a catalog product (admin only)
func (h *Handler) CreateProduct(c *fiber.Ctx) error {
	var req models.CreateProductRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	product, err := h.db.CreateProduct(c.Context(), &req)
	if err != nil {
		if errors.Is(err, database.ErrProductExists) {
			return Error(c, fiber.StatusConflict, "product already exists")
		}
		h.logger.Error("failed to create product", zap.String("name", req.Name), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to create product")
	}

	return Created(c, product)
}

// DeleteProduct removes a catalog product (admin only)
func (h *Handler) DeleteProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	if err := h.db.DeleteProduct(c.Context(), id); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to delete product")
	}

	return Success(c, fiber.Map{"deleted": true})
}
