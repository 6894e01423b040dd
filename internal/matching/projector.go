package matching

import (
	"strconv"
	"strings"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

// Project flattens a pantry row into the shape the resolver works on.
// A custom name wins over the linked product's name.
func Project(item *models.InventoryItemWithDetails) InventoryItemForMatching {
	if item == nil {
		return InventoryItemForMatching{Name: UnknownItemName}
	}

	out := InventoryItemForMatching{
		ID:          strconv.Itoa(item.ID),
		Name:        displayName(item.CustomName, item.ProductName),
		IsAvailable: item.IsAvailable,
	}

	if item.Quantity != nil {
		q := *item.Quantity
		out.Quantity = &q
		// Abbreviation is used as stored, empty string included
		if item.UnitAbbreviation != nil {
			u := *item.UnitAbbreviation
			out.Unit = &u
		}
	}

	return out
}

// ProjectAll projects every row, preserving order.
func ProjectAll(items []models.InventoryItemWithDetails) []InventoryItemForMatching {
	out := make([]InventoryItemForMatching, 0, len(items))
	for i := range items {
		out = append(out, Project(&items[i]))
	}
	return out
}

func displayName(customName, productName *string) string {
	if customName != nil && strings.TrimSpace(*customName) != "" {
		return *customName
	}
	if productName != nil && strings.TrimSpace(*productName) != "" {
		return *productName
	}
	return UnknownItemName
}
