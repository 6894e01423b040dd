package services

import (
	"context"
	"errors"
	"strings"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

// memCatalog is a substring-search catalog for matcher tests
type memCatalog struct {
	products     []models.Product
	units        []models.Unit
	defaultUnits map[int]int
}

func newMemCatalog() *memCatalog {
	g, ml, szt, kg, l := 1, 2, 3, 4, 5
	return &memCatalog{
		products: []models.Product{
			{ID: 10, Name: "mleko", DefaultUnitID: &l},
			{ID: 11, Name: "banany"},
			{ID: 12, Name: "jajka", DefaultUnitID: &szt},
			{ID: 13, Name: "masło"},
		},
		units: []models.Unit{
			{ID: g, Name: "gram", Abbreviation: "g", Kind: "mass"},
			{ID: ml, Name: "mililitr", Abbreviation: "ml", Kind: "volume"},
			{ID: szt, Name: "sztuka", Abbreviation: "szt", Kind: "count"},
			{ID: kg, Name: "kilogram", Abbreviation: "kg", Kind: "mass"},
			{ID: l, Name: "litr", Abbreviation: "l", Kind: "volume"},
		},
		defaultUnits: map[int]int{10: l, 12: szt},
	}
}

func (c *memCatalog) SearchProductsRanked(_ context.Context, query string, limit int) ([]models.Product, error) {
	return nil, errors.New("full text search unavailable")
}

func (c *memCatalog) SearchProductsContains(_ context.Context, query string, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range c.products {
		if strings.Contains(query, p.Name) || strings.Contains(p.Name, query) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (c *memCatalog) GetProductDefaultUnit(_ context.Context, productID int) (*models.Unit, error) {
	unitID, ok := c.defaultUnits[productID]
	if !ok {
		return nil, nil
	}
	for i := range c.units {
		if c.units[i].ID == unitID {
			return &c.units[i], nil
		}
	}
	return nil, nil
}

func (c *memCatalog) ListUnits(_ context.Context) ([]models.Unit, error) {
	return c.units, nil
}
