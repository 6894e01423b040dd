package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/services"
)

// quotaExceeded writes the 429 response for an exhausted daily limit
func quotaExceeded(c *fiber.Ctx, qe *services.QuotaExceededError) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(APIResponse{
		Success: false,
		Error:   qe.Error(),
		Data: fiber.Map{
			"kind":      qe.Kind,
			"used":      qe.Status.Used,
			"limit":     qe.Status.Limit,
			"remaining": qe.Status.Remaining,
		},
	})
}

// AnalyzeSubstitutions checks a recipe against the user's pantry and profile
func (h *Handler) AnalyzeSubstitutions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	var req services.AnalysisRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	result, err := h.analysis.Analyze(c.Context(), userID, &req)
	if err != nil {
		var qe *services.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			return quotaExceeded(c, qe)
		case errors.Is(err, services.ErrNoIngredients),
			errors.Is(err, services.ErrExtractionDisabled),
			errors.Is(err, services.ErrNoRecipeIngredients):
			return Error(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error("substitution analysis failed", zap.Int("user_id", userID), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to analyze recipe")
	}

	return Success(c, result)
}

// GetUsage returns today's usage and limits for the current user
func (h *Handler) GetUsage(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, err.Error())
	}

	return Success(c, h.analysis.Usage(c.Context(), userID))
}
