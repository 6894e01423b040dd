package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/models"
)

// AdminListUsers returns a paginated list of all users
func (h *Handler) AdminListUsers(c *fiber.Ctx) error {
	limit, offset := pagination(c, 20, 100)

	users, total, err := h.db.ListUsers(c.Context(), limit, offset)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list users")
	}

	return SuccessWithMeta(c, users, total, limit, offset)
}

// AdminGetUser returns a user with today's usage
func (h *Handler) AdminGetUser(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	user, err := h.db.GetUserByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Error(c, fiber.StatusNotFound, "user not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get user")
	}

	return Success(c, fiber.Map{
		"user":  user,
		"usage": h.analysis.Usage(c.Context(), id),
	})
}

// AdminUpdateUser updates a user with admin privileges
func (h *Handler) AdminUpdateUser(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req models.AdminUpdateUserRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, err := h.db.AdminUpdateUser(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Error(c, fiber.StatusNotFound, "user not found")
		}
		if errors.Is(err, database.ErrUsernameExists) {
			return Error(c, fiber.StatusConflict, "username already taken")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to update user")
	}

	return Success(c, user)
}

// AdminDeleteUser deletes a user together with their pantry and receipts
func (h *Handler) AdminDeleteUser(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if current, _ := getUserID(c); current == id {
		return Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	// Keys are collected first, the rows go with the user
	var keys []string
	if h.images != nil {
		keys, err = h.db.ListReceiptKeysForUser(c.Context(), id)
		if err != nil {
			h.logger.Warn("failed to list receipt images", zap.Int("user_id", id), zap.Error(err))
		}
	}

	if err := h.db.DeleteUser(c.Context(), id); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Error(c, fiber.StatusNotFound, "user not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to delete user")
	}

	if len(keys) > 0 {
		if err := h.images.DeleteMultiple(c.Context(), keys); err != nil {
			h.logger.Warn("failed to delete receipt images", zap.Int("user_id", id), zap.Error(err))
		}
	}

	h.logger.Info("user deleted", zap.Int("user_id", id), zap.Int("receipt_images", len(keys)))
	return Success(c, fiber.Map{"deleted": true})
}

// AdminGetStats returns system-wide statistics for the current usage day
func (h *Handler) AdminGetStats(c *fiber.Ctx) error {
	stats, err := h.db.GetAdminStats(c.Context(), h.ledger.Today())
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to get stats")
	}

	return Success(c, stats)
}
