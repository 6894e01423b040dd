package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foxxcyber/pantry-assist/internal/services"
)

// ParseRecipeRequest is the request body for previewing recipe parsing
type ParseRecipeRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
}

var ingredientParser = services.NewIngredientListParser()

// ParseRecipe turns a pasted ingredient list into structured ingredients
// without running an analysis, so it does not count against any limit.
// POST /api/recipes/parse
func (h *Handler) ParseRecipe(c *fiber.Ctx) error {
	var req ParseRecipeRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	ingredients, err := ingredientParser.Extract(c.Context(), req.Content)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "failed to parse recipe")
	}
	if len(ingredients) == 0 {
		return Error(c, fiber.StatusBadRequest, "no ingredients found in recipe")
	}

	return Success(c, fiber.Map{
		"ingredients": ingredients,
		"total":       len(ingredients),
	})
}
