package matching

import (
	"context"
	"fmt"
	"strings"
)

// maxFallbackNames caps how many pantry items the generic suggestion lists.
const maxFallbackNames = 3

// Suggester proposes a substitution for an ingredient the pantry does not
// fully cover. matched is the partially matching item, if any.
type Suggester interface {
	Suggest(ctx context.Context, ingredientName string, inventory []InventoryItemForMatching, matched *ItemRef) Substitution
}

// StaticSuggester answers from the built-in substitution table.
type StaticSuggester struct{}

func NewStaticSuggester() *StaticSuggester {
	return &StaticSuggester{}
}

// Suggest implements Suggester. Available is true when the table knows a
// substitute or the pantry has at least one other available item.
func (s *StaticSuggester) Suggest(_ context.Context, ingredientName string, inventory []InventoryItemForMatching, matched *ItemRef) Substitution {
	name := Normalize(ingredientName)
	candidates := substituteCandidates(name, inventory, matched)
	rule := findRule(name)

	var sub Substitution
	if rule != nil {
		sub.Suggestion = rule.Suggestion
		sub.SubstituteItem = pickByKeywords(candidates, rule.Alternatives)
	} else {
		sub.Suggestion = fallbackSuggestion(ingredientName, candidates)
	}

	if sub.SubstituteItem == nil && len(candidates) > 0 {
		sub.SubstituteItem = refOf(&candidates[0])
	}
	sub.Available = rule != nil || len(candidates) > 0

	return sub
}

// RuleFor returns the key of the substitution rule that applies to name, or
// "" when none does.
func RuleFor(name string) string {
	if rule := findRule(Normalize(name)); rule != nil {
		return rule.Key
	}
	return ""
}

func findRule(normalized string) *substitutionRule {
	if normalized == "" {
		return nil
	}
	for i := range substitutionRules {
		rule := &substitutionRules[i]
		if containsAny(normalized, rule.Excludes) {
			continue
		}
		if containsAny(normalized, rule.Triggers) {
			return rule
		}
	}
	return nil
}

// substituteCandidates lists available items that are neither the
// ingredient itself nor the already matched item.
func substituteCandidates(normalized string, inventory []InventoryItemForMatching, matched *ItemRef) []InventoryItemForMatching {
	out := make([]InventoryItemForMatching, 0, len(inventory))
	for _, item := range inventory {
		if !item.IsAvailable {
			continue
		}
		if matched != nil && item.ID == matched.ID {
			continue
		}
		if Normalize(item.Name) == normalized {
			continue
		}
		out = append(out, item)
	}
	return out
}

func pickByKeywords(candidates []InventoryItemForMatching, keywords []string) *ItemRef {
	for i := range candidates {
		if containsAny(Normalize(candidates[i].Name), keywords) {
			return refOf(&candidates[i])
		}
	}
	return nil
}

func fallbackSuggestion(ingredientName string, candidates []InventoryItemForMatching) string {
	if len(candidates) == 0 {
		return fmt.Sprintf("No substitute for %s: there are no other available items in your pantry.", ingredientName)
	}

	names := make([]string, 0, maxFallbackNames)
	for _, item := range candidates {
		if len(names) == maxFallbackNames {
			break
		}
		names = append(names, item.Name)
	}
	return fmt.Sprintf("No standard substitute for %s. You could try one of: %s.", ingredientName, strings.Join(names, ", "))
}

// containsAny reports whether name contains any keyword. Keywords with a
// leading space only match at a word start.
func containsAny(name string, keywords []string) bool {
	padded := " " + name
	for _, kw := range keywords {
		if strings.HasPrefix(kw, " ") {
			if strings.Contains(padded, kw) {
				return true
			}
			continue
		}
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
