package matching

import (
	"fmt"
	"strings"
)

// GenerateWarnings cross-references ingredient names with the declared
// allergies and diets. Every (ingredient, restriction) pair that matches
// yields exactly one warning; results follow ingredient order with allergy
// warnings before diet warnings. Duplicates are not collapsed.
func GenerateWarnings(ingredients []RecipeIngredient, allergies, diets []string) []Warning {
	warnings := make([]Warning, 0)
	if len(ingredients) == 0 || (len(allergies) == 0 && len(diets) == 0) {
		return warnings
	}

	for _, ing := range ingredients {
		warnings = append(warnings, allergyWarnings(ing.Name, allergies)...)
		warnings = append(warnings, dietWarnings(ing.Name, diets)...)
	}
	return warnings
}

// AllergyWarningFor returns the combined allergy message for one
// ingredient, or nil when no declared allergy applies.
func AllergyWarningFor(ingredientName string, allergies []string) *string {
	found := allergyWarnings(ingredientName, allergies)
	if len(found) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(found))
	for _, w := range found {
		msgs = append(msgs, w.Message)
	}
	joined := strings.Join(msgs, "; ")
	return &joined
}

func allergyWarnings(ingredientName string, allergies []string) []Warning {
	name := Normalize(ingredientName)
	if name == "" {
		return nil
	}

	var out []Warning
	for _, allergy := range allergies {
		keyword := Normalize(allergy)
		if keyword == "" {
			continue
		}
		if !allergyMatches(name, keyword) {
			continue
		}
		out = append(out, Warning{
			Type:        WarningAllergy,
			Message:     fmt.Sprintf("%s contains %s, which is listed in your allergies", ingredientName, allergy),
			Ingredient:  ingredientName,
			Restriction: allergy,
		})
	}
	return out
}

func dietWarnings(ingredientName string, diets []string) []Warning {
	name := Normalize(ingredientName)
	if name == "" {
		return nil
	}

	var out []Warning
	for _, diet := range diets {
		rule := findDiet(Normalize(diet))
		if rule == nil || !rule.forbids(name) {
			continue
		}
		out = append(out, Warning{
			Type:        WarningDiet,
			Message:     fmt.Sprintf("%s is not suitable for a %s diet", ingredientName, diet),
			Ingredient:  ingredientName,
			Restriction: diet,
		})
	}
	return out
}

// allergyMatches reports whether a normalized ingredient name hits the
// declared keyword. Known allergens match their whole group, and the group's
// excludes cancel the literal keyword too so "mleko" stays clear of
// "mleko sojowe". Unknown keywords match literally.
func allergyMatches(name, keyword string) bool {
	group := findAllergen(keyword)
	if group == nil {
		return strings.Contains(name, keyword)
	}
	if containsAny(name, group.Keywords.Excludes) {
		return false
	}
	return strings.Contains(name, keyword) || containsAny(name, group.Keywords.Triggers)
}

func findAllergen(keyword string) *allergenGroup {
	for i := range allergenGroups {
		group := &allergenGroups[i]
		if keyword == group.Key {
			return group
		}
		for _, alias := range group.Aliases {
			if keyword == alias {
				return group
			}
		}
	}
	return nil
}

func (r *dietRule) forbids(name string) bool {
	for _, set := range r.Forbidden {
		if set.matches(name) {
			return true
		}
	}
	return false
}

func findDiet(keyword string) *dietRule {
	if keyword == "" {
		return nil
	}
	for i := range dietRules {
		rule := &dietRules[i]
		if keyword == rule.Key {
			return rule
		}
		for _, alias := range rule.Aliases {
			if keyword == alias {
				return rule
			}
		}
	}
	return nil
}

// KnownAllergens lists the canonical allergen keys.
func KnownAllergens() []string {
	out := make([]string, 0, len(allergenGroups))
	for _, g := range allergenGroups {
		out = append(out, g.Key)
	}
	return out
}

// KnownDiets lists the canonical diet keys.
func KnownDiets() []string {
	out := make([]string, 0, len(dietRules))
	for _, r := range dietRules {
		out = append(out, r.Key)
	}
	return out
}
