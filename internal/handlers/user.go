package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/models"
)

// GetProfile returns the dietary profile of the current user
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	profile, err := h.db.GetProfile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Error(c, fiber.StatusNotFound, "user not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get profile")
	}

	return Success(c, profile)
}

// UpdateProfile updates the username, allergies and diets of the current user
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	var req models.UpdateProfileRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, err := h.db.UpdateProfile(c.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Error(c, fiber.StatusNotFound, "user not found")
		}
		if errors.Is(err, database.ErrUsernameExists) {
			return Error(c, fiber.StatusConflict, "username already taken")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to update profile")
	}

	return Success(c, user.Profile())
}

// ChangePassword replaces the current user's password after checking the old one
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	var req models.ChangePasswordRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, err := h.db.GetUserByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Error(c, fiber.StatusNotFound, "user not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return Error(c, fiber.StatusUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to process password")
	}

	if err := h.db.UpdateUserPassword(c.Context(), userID, string(hash)); err != nil {
		h.logger.Error("failed to update password", zap.Int("user_id", userID), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to update password")
	}

	h.logger.Info("password changed", zap.Int("user_id", userID))
	return Success(c, fiber.Map{"changed": true})
}

// GetRestrictionOptions lists the allergens and diets with built-in keyword tables
func (h *Handler) GetRestrictionOptions(c *fiber.Ctx) error {
	return Success(c, fiber.Map{
		"allergies": matching.KnownAllergens(),
		"diets":     matching.KnownDiets(),
	})
}
