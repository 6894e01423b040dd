package matching

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

// Catalog is the product/unit lookup the CatalogResolver needs.
type Catalog interface {
	// SearchProductsRanked runs a ranked full-text search, best hit first.
	SearchProductsRanked(ctx context.Context, query string, limit int) ([]models.Product, error)
	// SearchProductsContains returns products whose name contains query.
	SearchProductsContains(ctx context.Context, query string, limit int) ([]models.Product, error)
	// GetProductDefaultUnit returns nil when the product has no default unit.
	GetProductDefaultUnit(ctx context.Context, productID int) (*models.Unit, error)
	ListUnits(ctx context.Context) ([]models.Unit, error)
}

// CatalogResolver maps free-text names to catalog products and units.
type CatalogResolver struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewCatalogResolver(catalog Catalog, logger *zap.Logger) *CatalogResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogResolver{
		catalog: catalog,
		logger:  logger.Named("catalog"),
	}
}

// MatchProduct returns the best catalog entry for name, or nil when nothing
// matches. A failed ranked search falls through to the contains search.
func (r *CatalogResolver) MatchProduct(ctx context.Context, name string) (*models.Product, error) {
	query := strings.TrimSpace(name)
	if query == "" {
		return nil, nil
	}

	ranked, err := r.catalog.SearchProductsRanked(ctx, query, 1)
	if err != nil {
		r.logger.Warn("ranked product search failed", zap.String("query", query), zap.Error(err))
	} else if len(ranked) > 0 {
		return &ranked[0], nil
	}

	contains, err := r.catalog.SearchProductsContains(ctx, query, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	if len(contains) == 0 {
		return nil, nil
	}
	return &contains[0], nil
}

// SuggestUnit picks a unit for an item: the product's default unit first,
// then the hint matched against the unit table by abbreviation or name.
// It returns nil rather than guessing.
func (r *CatalogResolver) SuggestUnit(ctx context.Context, productID *int, hint *string) (*models.Unit, error) {
	if productID != nil {
		unit, err := r.catalog.GetProductDefaultUnit(ctx, *productID)
		if err != nil {
			r.logger.Warn("failed to load default unit", zap.Int("product_id", *productID), zap.Error(err))
		} else if unit != nil {
			return unit, nil
		}
	}

	if hint == nil {
		return nil, nil
	}
	wanted := normalizeUnit(*hint)
	if wanted == "" {
		return nil, nil
	}

	units, err := r.catalog.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return matchUnit(wanted, units), nil
}

// matchUnit prefers an abbreviation match over a name match.
func matchUnit(wanted string, units []models.Unit) *models.Unit {
	for i := range units {
		if normalizeUnit(units[i].Abbreviation) == wanted {
			return &units[i]
		}
	}
	for i := range units {
		if normalizeUnit(units[i].Name) == wanted {
			return &units[i]
		}
	}
	return nil
}

func normalizeUnit(s string) string {
	return strings.TrimSuffix(Normalize(s), ".")
}
