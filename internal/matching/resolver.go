package matching

import (
	"context"
)

// Resolver classifies recipe ingredients against a pantry snapshot.
type Resolver struct {
	matcher   Matcher
	suggester Suggester
}

// NewResolver creates a Resolver. Nil arguments fall back to a FuzzyMatcher
// with DefaultMatchThreshold and a StaticSuggester.
func NewResolver(matcher Matcher, suggester Suggester) *Resolver {
	if matcher == nil {
		matcher = NewFuzzyMatcher(DefaultMatchThreshold)
	}
	if suggester == nil {
		suggester = NewStaticSuggester()
	}
	return &Resolver{matcher: matcher, suggester: suggester}
}

// Resolve analyzes every ingredient and returns the results keyed by
// ingredient name. When two ingredients share a name the later one wins;
// use ResolveAll to keep every entry.
func (r *Resolver) Resolve(ctx context.Context, ingredients []RecipeIngredient, inventory []InventoryItemForMatching) map[string]IngredientAnalysis {
	results := make(map[string]IngredientAnalysis, len(ingredients))
	for _, a := range r.ResolveAll(ctx, ingredients, inventory) {
		results[a.IngredientName] = a
	}
	return results
}

// ResolveAll analyzes every ingredient and returns the results in input
// order.
func (r *Resolver) ResolveAll(ctx context.Context, ingredients []RecipeIngredient, inventory []InventoryItemForMatching) []IngredientAnalysis {
	available := availableItems(inventory)

	results := make([]IngredientAnalysis, 0, len(ingredients))
	for _, ing := range ingredients {
		results = append(results, r.resolveOne(ctx, ing, available, inventory))
	}
	return results
}

func (r *Resolver) resolveOne(ctx context.Context, ing RecipeIngredient, available, inventory []InventoryItemForMatching) IngredientAnalysis {
	analysis := IngredientAnalysis{
		IngredientName: ing.Name,
		Status:         StatusMissing,
	}

	match := r.findMatch(ing.Name, available)
	if match != nil {
		analysis.MatchedItem = refOf(match)
		analysis.Status = StatusAvailable
		// Units are not converted; quantities are compared as given
		if ing.Quantity != nil && match.Quantity != nil && *match.Quantity < *ing.Quantity {
			analysis.Status = StatusPartial
		}
	}

	if analysis.Status != StatusAvailable {
		sub := r.suggester.Suggest(ctx, ing.Name, inventory, analysis.MatchedItem)
		analysis.Substitution = &sub
	}

	return analysis
}

// findMatch returns the first exact (case-folded) name match, otherwise the
// first item the matcher accepts in inventory order. This is a stable
// first-sufficient-match rule, not a best-score search.
func (r *Resolver) findMatch(name string, available []InventoryItemForMatching) *InventoryItemForMatching {
	normalized := Normalize(name)
	if normalized == "" {
		return nil
	}

	var first *InventoryItemForMatching
	for i := range available {
		item := &available[i]
		if Normalize(item.Name) == normalized {
			return item
		}
		if first == nil && r.matcher.Matches(name, item.Name) {
			first = item
		}
	}
	return first
}

func availableItems(inventory []InventoryItemForMatching) []InventoryItemForMatching {
	out := make([]InventoryItemForMatching, 0, len(inventory))
	for _, item := range inventory {
		if item.IsAvailable {
			out = append(out, item)
		}
	}
	return out
}
