package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/models"
)

// inventoryError maps repository errors for a single pantry item
func inventoryError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, database.ErrInventoryItemNotFound):
		return Error(c, fiber.StatusNotFound, "inventory item not found")
	case errors.Is(err, database.ErrNotInventoryOwner):
		return Error(c, fiber.StatusForbidden, "you do not own this inventory item")
	case errors.Is(err, database.ErrInventoryItemUnnamed):
		return Error(c, fiber.StatusBadRequest, "either product_id or custom_name is required")
	}
	return Error(c, fiber.StatusInternalServerError, "failed to "+action+" inventory item")
}

// ListInventoryItems returns all inventory items for the current user
func (h *Handler) ListInventoryItems(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	limit, offset := pagination(c, 50, 100)
	params := &models.InventoryListParams{
		Limit:         limit,
		Offset:        offset,
		UserID:        userID,
		Location:      c.Query("location"),
		Search:        c.Query("search"),
		AvailableOnly: c.QueryBool("available", false),
		SortBy:        c.Query("sort_by", "updated"),
		SortOrder:     c.Query("sort_order", "desc"),
	}

	items, total, err := h.db.ListInventoryItems(c.Context(), params)
	if err != nil {
		h.logger.Error("failed to list inventory", zap.Int("user_id", userID), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list inventory items")
	}

	return SuccessWithMeta(c, items, total, params.Limit, params.Offset)
}

// GetInventoryItem returns a single inventory item
func (h *Handler) GetInventoryItem(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid inventory item id")
	}

	item, err := h.db.GetInventoryItemByID(c.Context(), id, userID)
	if err != nil {
		return inventoryError(c, err, "get")
	}

	return Success(c, item)
}

// CreateInventoryItem adds a catalog product or a custom entry to the pantry
func (h *Handler) CreateInventoryItem(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	var req models.CreateInventoryItemRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	item, err := h.db.CreateInventoryItem(c.Context(), &req, userID)
	if err != nil {
		if !errors.Is(err, database.ErrInventoryItemUnnamed) {
			h.logger.Error("failed to create inventory item", zap.Int("user_id", userID), zap.Error(err))
		}
		return inventoryError(c, err, "create")
	}

	return Created(c, item)
}

// UpdateInventoryItem updates an inventory item
func (h *Handler) UpdateInventoryItem(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid inventory item id")
	}

	var req models.UpdateInventoryItemRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	item, err := h.db.UpdateInventoryItem(c.Context(), id, userID, &req)
	if err != nil {
		return inventoryError(c, err, "update")
	}

	return Success(c, item)
}

// DeleteInventoryItem deletes an inventory item
func (h *Handler) DeleteInventoryItem(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid inventory item id")
	}

	if err := h.db.DeleteInventoryItem(c.Context(), id, userID); err != nil {
		return inventoryError(c, err, "delete")
	}

	return Success(c, fiber.Map{"deleted": true})
}

// AdjustInventoryQuantity adds to or subtracts from the stored quantity
func (h *Handler) AdjustInventoryQuantity(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid inventory item id")
	}

	var req models.AdjustInventoryQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.db.AdjustInventoryQuantity(c.Context(), id, userID, req.Adjustment)
	if err != nil {
		return inventoryError(c, err, "adjust")
	}

	return Success(c, item)
}

// GetInventoryLocations returns unique locations for a user's inventory
func (h *Handler) GetInventoryLocations(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	locations, err := h.db.GetInventoryLocations(c.Context(), userID)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to get inventory locations")
	}

	return Success(c, locations)
}
