package matching

import (
	"context"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

// Report is the engine output for one recipe.
type Report struct {
	Ingredients []IngredientAnalysis `json:"ingredients"`
	Warnings    []Warning            `json:"warnings"`
}

// Analyzer runs the resolver and the warning generator over one recipe.
type Analyzer struct {
	resolver *Resolver
}

func NewAnalyzer(resolver *Resolver) *Analyzer {
	if resolver == nil {
		resolver = NewResolver(nil, nil)
	}
	return &Analyzer{resolver: resolver}
}

// Analyze resolves ingredients against the projected inventory and attaches
// allergy notes from the profile. A nil profile means no restrictions.
func (a *Analyzer) Analyze(ctx context.Context, ingredients []RecipeIngredient, inventory []InventoryItemForMatching, profile *models.Profile) *Report {
	var allergies, diets []string
	if profile != nil {
		allergies = profile.Allergies
		diets = profile.Diets
	}

	analyses := a.resolver.ResolveAll(ctx, ingredients, inventory)
	for i := range analyses {
		analyses[i].AllergyWarning = AllergyWarningFor(analyses[i].IngredientName, allergies)
	}

	return &Report{
		Ingredients: analyses,
		Warnings:    GenerateWarnings(ingredients, allergies, diets),
	}
}
