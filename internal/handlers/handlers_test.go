package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/config"
	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/models"
	"github.com/foxxcyber/pantry-assist/internal/services"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

const testUserID = 42

type staticLimits usage.Limits

func (l staticLimits) GetUsageLimits(context.Context) (usage.Limits, error) {
	return usage.Limits(l), nil
}

type fakePantry struct {
	profile   *models.Profile
	inventory []models.InventoryItemWithDetails
}

func (f *fakePantry) GetProfile(_ context.Context, userID int) (*models.Profile, error) {
	return f.profile, nil
}

func (f *fakePantry) ListInventoryForMatching(_ context.Context, userID int) ([]models.InventoryItemWithDetails, error) {
	return f.inventory, nil
}

func ptr[T any](v T) *T { return &v }

func newLedger(t *testing.T) *usage.Ledger {
	t.Helper()
	store, err := usage.NewInMemoryBadgerStore(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return usage.NewLedger(store)
}

func newTestHandler(t *testing.T, limits usage.Limits, pantry *fakePantry) *Handler {
	t.Helper()
	ledger := newLedger(t)
	analysis := services.NewAnalysisService(services.AnalysisServiceConfig{
		Store:     pantry,
		Limits:    staticLimits(limits),
		Ledger:    ledger,
		Analyzer:  matching.NewAnalyzer(nil),
		Extractor: services.NewIngredientListParser(),
	})
	return New(nil, &config.Config{JWTSecret: "test-secret"}, zap.NewNop(), nil, analysis, ledger)
}

// withUser stands in for AuthRequired
func withUser(id int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		return c.Next()
	}
}

func newApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/analyze", withUser(testUserID), h.AnalyzeSubstitutions)
	app.Post("/analyze-anon", h.AnalyzeSubstitutions)
	app.Get("/usage", withUser(testUserID), h.GetUsage)
	app.Post("/recipes/parse", h.ParseRecipe)
	app.Get("/restrictions", h.GetRestrictionOptions)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// decodeData re-decodes the untyped Data field into out
func decodeData(t *testing.T, data interface{}, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	status, body := doJSON(t, app, http.MethodGet, "/teapot", nil)
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.False(t, body.Success)
	assert.Equal(t, "short and stout", body.Error)

	status, body = doJSON(t, app, http.MethodGet, "/boom", nil)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Internal Server Error", body.Error)
}

func TestValidationMessage(t *testing.T) {
	v := newValidator()

	err := v.Struct(&services.AnalysisRequest{
		Ingredients: []matching.RecipeIngredient{{Name: ""}},
	})
	require.Error(t, err)
	assert.Equal(t, "ingredients[0].name: failed required", validationMessage(err))

	err = v.Struct(&models.RegisterRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	msg := validationMessage(err)
	assert.Contains(t, msg, "email: failed email")
	assert.Contains(t, msg, "password: failed min=8")

	assert.Equal(t, "invalid request", validationMessage(assert.AnError))
}

func TestPagination(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		limit, offset := pagination(c, 20, 100)
		return c.JSON(fiber.Map{"limit": limit, "offset": offset})
	})

	tests := []struct {
		query         string
		limit, offset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=0", 20, 0},
		{"?limit=1000", 20, 0},
		{"?offset=-3", 20, 0},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		require.NoError(t, err)

		var got struct{ Limit, Offset int }
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		resp.Body.Close()

		assert.Equal(t, tt.limit, got.Limit, tt.query)
		assert.Equal(t, tt.offset, got.Offset, tt.query)
	}
}
