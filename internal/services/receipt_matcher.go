package services

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

// ProductResolver finds catalog products and units for free text.
// *matching.CatalogResolver implements it.
type ProductResolver interface {
	MatchProduct(ctx context.Context, name string) (*models.Product, error)
	SuggestUnit(ctx context.Context, productID *int, hint *string) (*models.Unit, error)
}

// ReceiptLineMatcher links parsed receipt lines to catalog products
type ReceiptLineMatcher struct {
	resolver ProductResolver
	logger   *zap.Logger
}

// NewReceiptLineMatcher creates a new receipt line matcher
func NewReceiptLineMatcher(resolver ProductResolver, logger *zap.Logger) *ReceiptLineMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptLineMatcher{
		resolver: resolver,
		logger:   logger.Named("receipt_matcher"),
	}
}

// receiptAbbreviations expands shorthand printed by till systems
var receiptAbbreviations = map[string]string{
	"ban":   "banany",
	"chl":   "chleb",
	"fil":   "filet",
	"jog":   "jogurt",
	"kurcz": "kurczak",
	"marg":  "margaryna",
	"masl":  "masło",
	"maslo": "masło",
	"mlek":  "mleko",
	"mak":   "makaron",
	"pom":   "pomidory",
	"smiet": "śmietana",
	"twar":  "twaróg",
	"ziem":  "ziemniaki",
	"zytni": "żytni",
	"chkn":  "chicken",
	"brst":  "breast",
	"bnls":  "boneless",
	"org":   "organic",
	"whl":   "whole",
	"frsh":  "fresh",
	"frzn":  "frozen",
	"flr":   "flour",
	"mlk":   "milk",
	"chse":  "cheese",
	"brd":   "bread",
	"jce":   "juice",
	"veg":   "vegetable",
}

// MatchLines resolves every parsed line. Lookup failures leave the line
// unmatched rather than failing the receipt.
func (m *ReceiptLineMatcher) MatchLines(ctx context.Context, receiptID int, items []models.ParsedItem) []models.CreateReceiptItemRequest {
	out := make([]models.CreateReceiptItemRequest, 0, len(items))

	for _, item := range items {
		name := item.Name
		req := models.CreateReceiptItemRequest{
			ReceiptID:         receiptID,
			RawText:           item.RawText,
			ExtractedName:     &name,
			ExtractedQuantity: item.Quantity,
			UnitHint:          item.UnitHint,
			MatchStatus:       models.MatchStatusUnmatched,
			LineNumber:        item.LineNumber,
		}

		query := NormalizeReceiptName(item.Name)
		product, err := m.resolver.MatchProduct(ctx, query)
		if err != nil {
			m.logger.Warn("product match failed", zap.String("name", item.Name), zap.Error(err))
		} else if product != nil {
			id := product.ID
			req.MatchedProductID = &id
			req.MatchStatus = models.MatchStatusMatched
		}

		unit, err := m.resolver.SuggestUnit(ctx, req.MatchedProductID, item.UnitHint)
		if err != nil {
			m.logger.Warn("unit suggestion failed", zap.String("name", item.Name), zap.Error(err))
		} else if unit != nil {
			id := unit.ID
			req.SuggestedUnitID = &id
		}

		out = append(out, req)
	}

	return out
}

// NormalizeReceiptName lowercases a till line name, expands known
// abbreviations word by word and drops tokens without letters such as
// fat percentages or size codes.
func NormalizeReceiptName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	words := make([]string, 0, len(fields))

	for _, f := range fields {
		f = strings.Trim(f, ".,;:*#@")
		if f == "" || !strings.ContainsFunc(f, unicode.IsLetter) {
			continue
		}
		if full, ok := receiptAbbreviations[f]; ok {
			f = full
		}
		words = append(words, f)
	}

	return strings.Join(words, " ")
}
