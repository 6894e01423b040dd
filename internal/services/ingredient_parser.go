package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/foxxcyber/pantry-assist/internal/matching"
)

// IngredientListParser reads a pasted ingredient list line by line. It is
// the recipe text extractor when no language model is configured.
type IngredientListParser struct {
	bulletPattern   *regexp.Regexp
	rangePattern    *regexp.Regexp
	mixedPattern    *regexp.Regexp
	fractionPattern *regexp.Regexp
	quantityPattern *regexp.Regexp
	unitPattern     *regexp.Regexp
	parenPattern    *regexp.Regexp
	spacePattern    *regexp.Regexp
}

var unicodeFractions = map[rune]float64{
	'¼': 0.25,
	'½': 0.5,
	'¾': 0.75,
	'⅓': 1.0 / 3,
	'⅔': 2.0 / 3,
	'⅕': 0.2,
	'⅛': 0.125,
	'⅜': 0.375,
	'⅝': 0.625,
	'⅞': 0.875,
}

// recipeUnits maps spellings to the labels stored in the unit table
var recipeUnits = map[string]string{
	"g":           "g",
	"gram":        "g",
	"gramy":       "g",
	"gramów":      "g",
	"grams":       "g",
	"kg":          "kg",
	"dag":         "dag",
	"dkg":         "dag",
	"ml":          "ml",
	"l":           "l",
	"litr":        "l",
	"litry":       "l",
	"łyżka":       "łyżka",
	"łyżki":       "łyżka",
	"łyżek":       "łyżka",
	"łyżeczka":    "łyżeczka",
	"łyżeczki":    "łyżeczka",
	"łyżeczek":    "łyżeczka",
	"szklanka":    "szkl",
	"szklanki":    "szkl",
	"szklanek":    "szkl",
	"szkl":        "szkl",
	"szt":         "szt",
	"sztuki":      "szt",
	"sztuk":       "szt",
	"opak":        "opak",
	"opakowanie":  "opak",
	"szczypta":    "szczypta",
	"szczypty":    "szczypta",
	"tbsp":        "tbsp",
	"tablespoon":  "tbsp",
	"tablespoons": "tbsp",
	"tsp":         "tsp",
	"teaspoon":    "tsp",
	"teaspoons":   "tsp",
	"cup":         "cup",
	"cups":        "cup",
	"oz":          "oz",
	"ounces":      "oz",
	"lb":          "lb",
	"lbs":         "lb",
	"pinch":       "pinch",
	"clove":       "clove",
	"cloves":      "clove",
	"ząbek":       "ząbek",
	"ząbki":       "ząbek",
	"ząbków":      "ząbek",
}

func NewIngredientListParser() *IngredientListParser {
	units := make([]string, 0, len(recipeUnits))
	for u := range recipeUnits {
		units = append(units, regexp.QuoteMeta(u))
	}
	// Longest first so "łyżeczka" wins over "łyżka" prefixes and "kg" over "g"
	sortByLengthDesc(units)

	return &IngredientListParser{
		bulletPattern:   regexp.MustCompile(`^\s*(?:[-*•]\s*(?:\[[ xX]?\]\s*)?|\d+[.)]\s+)`),
		rangePattern:    regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*[-–]\s*(\d+(?:[.,]\d+)?)\s*`),
		mixedPattern:    regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)\s*`),
		fractionPattern: regexp.MustCompile(`^(\d+)/(\d+)\s*`),
		quantityPattern: regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*`),
		unitPattern:     regexp.MustCompile(`(?i)^(` + strings.Join(units, "|") + `)\.?(?:\s+|$)`),
		parenPattern:    regexp.MustCompile(`\([^)]*\)`),
		spacePattern:    regexp.MustCompile(`\s+`),
	}
}

func sortByLengthDesc(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && len([]rune(s[j])) > len([]rune(s[j-1])); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// Extract implements IngredientExtractor. Lines that leave no name are skipped.
func (p *IngredientListParser) Extract(_ context.Context, text string) ([]matching.RecipeIngredient, error) {
	var out []matching.RecipeIngredient
	for _, line := range strings.Split(text, "\n") {
		if ing, ok := p.ParseLine(line); ok {
			out = append(out, ing)
		}
	}
	return out, nil
}

// ParseLine parses "2 szklanki mąki pszennej (przesianej)" style lines
func (p *IngredientListParser) ParseLine(line string) (matching.RecipeIngredient, bool) {
	s := strings.TrimSpace(line)
	if loc := p.bulletPattern.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	if strings.HasSuffix(s, ":") {
		// Section headers like "Ciasto:"
		return matching.RecipeIngredient{}, false
	}

	var ing matching.RecipeIngredient

	s, qty := p.extractQuantity(s)
	if qty > 0 {
		ing.Quantity = &qty
	}

	if m := p.unitPattern.FindStringSubmatch(s); m != nil {
		unit := recipeUnits[strings.ToLower(m[1])]
		ing.Unit = &unit
		s = s[len(m[0]):]
	}

	s = p.parenPattern.ReplaceAllString(s, "")
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(strings.TrimSpace(p.spacePattern.ReplaceAllString(s, " ")), ".;:-_")

	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return matching.RecipeIngredient{}, false
	}
	ing.Name = s
	return ing, true
}

// extractQuantity reads a leading amount. Ranges use their midpoint.
func (p *IngredientListParser) extractQuantity(s string) (string, float64) {
	if m := p.rangePattern.FindStringSubmatch(s); m != nil {
		low, _ := parseAmount(m[1])
		high, _ := parseAmount(m[2])
		return s[len(m[0]):], (low + high) / 2
	}

	if m := p.mixedPattern.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den != 0 {
			return s[len(m[0]):], whole + num/den
		}
	}

	if m := p.fractionPattern.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den != 0 {
			return s[len(m[0]):], num / den
		}
	}

	var whole float64
	if m := p.quantityPattern.FindStringSubmatch(s); m != nil {
		whole, _ = parseAmount(m[1])
		s = s[len(m[0]):]
	}

	runes := []rune(s)
	if len(runes) > 0 {
		if frac, ok := unicodeFractions[runes[0]]; ok {
			return strings.TrimSpace(string(runes[1:])), whole + frac
		}
	}

	return s, whole
}
