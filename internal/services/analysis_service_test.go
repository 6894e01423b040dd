package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/metrics"
	"github.com/foxxcyber/pantry-assist/internal/models"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

type countingStore struct {
	mu     sync.Mutex
	counts map[string]usage.Counts
	incErr error
}

func newCountingStore() *countingStore {
	return &countingStore{counts: make(map[string]usage.Counts)}
}

func (s *countingStore) GetDailyUsage(_ context.Context, userID int, day string) (usage.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[fmt.Sprintf("%d/%s", userID, day)], nil
}

func (s *countingStore) IncrementDailyUsage(_ context.Context, userID int, day string, kind usage.Kind) (usage.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incErr != nil {
		return usage.Counts{}, s.incErr
	}
	key := fmt.Sprintf("%d/%s", userID, day)
	c := s.counts[key]
	switch kind {
	case usage.KindReceiptScans:
		c.ReceiptScans++
	case usage.KindSubstitutions:
		c.Substitutions++
	}
	s.counts[key] = c
	return c, nil
}

type staticLimits usage.Limits

func (l staticLimits) GetUsageLimits(context.Context) (usage.Limits, error) {
	return usage.Limits(l), nil
}

type fakeAnalysisStore struct {
	profile   *models.Profile
	inventory []models.InventoryItemWithDetails
	err       error
}

func (f *fakeAnalysisStore) GetProfile(_ context.Context, userID int) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeAnalysisStore) ListInventoryForMatching(_ context.Context, userID int) ([]models.InventoryItemWithDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.inventory, nil
}

type fakeExtractor struct {
	ingredients []matching.RecipeIngredient
	calls       int
}

func (f *fakeExtractor) Extract(context.Context, string) ([]matching.RecipeIngredient, error) {
	f.calls++
	return f.ingredients, nil
}

func ptr[T any](v T) *T { return &v }

func pantryRow(id int, name string, qty *float64, unit string) models.InventoryItemWithDetails {
	row := models.InventoryItemWithDetails{
		InventoryItem: models.InventoryItem{ID: id, UserID: 1, CustomName: ptr(name), Quantity: qty, IsAvailable: true},
	}
	if unit != "" {
		row.UnitAbbreviation = ptr(unit)
	}
	return row
}

type analysisFixture struct {
	service *AnalysisService
	store   *countingStore
	data    *fakeAnalysisStore
	metrics *metrics.Metrics
}

func newAnalysisFixture(limit int) *analysisFixture {
	store := newCountingStore()
	data := &fakeAnalysisStore{
		profile: &models.Profile{UserID: 1, Allergies: []string{"gluten"}, Diets: []string{}},
		inventory: []models.InventoryItemWithDetails{
			pantryRow(1, "Cukier", ptr(500.0), "g"),
			pantryRow(2, "Masło", ptr(200.0), "g"),
		},
	}
	m := metrics.New()
	clock := func() time.Time { return time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC) }

	svc := NewAnalysisService(AnalysisServiceConfig{
		Store:   data,
		Limits:  staticLimits{ReceiptScans: 5, Substitutions: limit},
		Ledger:  usage.NewLedger(store, usage.WithClock(clock)),
		Metrics: m,
	})
	return &analysisFixture{service: svc, store: store, data: data, metrics: m}
}

func counterValue(t *testing.T, m *metrics.Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetValue() == label {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestAnalysisService_Analyze(t *testing.T) {
	f := newAnalysisFixture(10)

	result, err := f.service.Analyze(context.Background(), 1, &AnalysisRequest{
		Ingredients: []matching.RecipeIngredient{
			{Name: "Cukier", Quantity: ptr(200.0), Unit: ptr("g")},
			{Name: "Mąka pszenna", Quantity: ptr(300.0), Unit: ptr("g")},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Ingredients, 2)
	assert.Equal(t, matching.StatusAvailable, result.Ingredients[0].Status)
	require.NotNil(t, result.Ingredients[0].MatchedItem)
	assert.Equal(t, "1", result.Ingredients[0].MatchedItem.ID)
	assert.Equal(t, matching.StatusMissing, result.Ingredients[1].Status)
	assert.NotNil(t, result.Ingredients[1].Substitution)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, matching.WarningAllergy, result.Warnings[0].Type)

	assert.Equal(t, "2024-05-12", result.Usage.Date)
	assert.Equal(t, usage.Counter{Used: 1, Limit: 10, Remaining: 9}, result.Usage.Substitutions)

	assert.Equal(t, 1.0, counterValue(t, f.metrics, "pantry_analysis_requests_total", "ok"))
	assert.Equal(t, 1.0, counterValue(t, f.metrics, "pantry_analysis_ingredients_total", "missing"))
}

func TestAnalysisService_QuotaExceeded(t *testing.T) {
	f := newAnalysisFixture(2)
	req := &AnalysisRequest{Ingredients: []matching.RecipeIngredient{{Name: "Cukier"}}}

	for i := 0; i < 2; i++ {
		_, err := f.service.Analyze(context.Background(), 1, req)
		require.NoError(t, err)
	}

	_, err := f.service.Analyze(context.Background(), 1, req)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, usage.KindSubstitutions, quotaErr.Kind)
	assert.False(t, quotaErr.Status.Allowed)
	assert.Equal(t, 0, quotaErr.Status.Remaining)

	snap := f.service.Usage(context.Background(), 1)
	assert.Equal(t, 2, snap.Substitutions.Used)
	assert.Equal(t, 1.0, counterValue(t, f.metrics, "pantry_usage_quota_rejections_total", "substitutions"))
}

func TestAnalysisService_RecordFailureSurfaces(t *testing.T) {
	f := newAnalysisFixture(10)
	f.store.incErr = errors.New("connection reset")

	_, err := f.service.Analyze(context.Background(), 1, &AnalysisRequest{
		Ingredients: []matching.RecipeIngredient{{Name: "Cukier"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsageNotRecorded)
	assert.Equal(t, 1.0, counterValue(t, f.metrics, "pantry_usage_record_failures_total", "substitutions"))
}

func TestAnalysisService_LoadFailureDoesNotCount(t *testing.T) {
	f := newAnalysisFixture(10)
	f.data.err = errors.New("db down")

	_, err := f.service.Analyze(context.Background(), 1, &AnalysisRequest{
		Ingredients: []matching.RecipeIngredient{{Name: "Cukier"}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, f.service.Usage(context.Background(), 1).Substitutions.Used)
}

func TestAnalysisService_RecipeText(t *testing.T) {
	f := newAnalysisFixture(10)
	extractor := &fakeExtractor{ingredients: []matching.RecipeIngredient{{Name: "masło", Quantity: ptr(250.0)}}}
	f.service.extractor = extractor

	result, err := f.service.Analyze(context.Background(), 1, &AnalysisRequest{RecipeText: "Kruche ciasto: 250 g masła"})
	require.NoError(t, err)
	assert.Equal(t, 1, extractor.calls)
	require.Len(t, result.Ingredients, 1)
	assert.Equal(t, matching.StatusPartial, result.Ingredients[0].Status)
}

func TestAnalysisService_InvalidInput(t *testing.T) {
	f := newAnalysisFixture(10)

	_, err := f.service.Analyze(context.Background(), 1, &AnalysisRequest{})
	assert.ErrorIs(t, err, ErrNoIngredients)

	_, err = f.service.Analyze(context.Background(), 1, &AnalysisRequest{RecipeText: "some text"})
	assert.ErrorIs(t, err, ErrExtractionDisabled)

	assert.Equal(t, 0, f.service.Usage(context.Background(), 1).Substitutions.Used)
}

func TestAnalysisService_ConcurrentRequestsAllCounted(t *testing.T) {
	f := newAnalysisFixture(1000)
	req := &AnalysisRequest{Ingredients: []matching.RecipeIngredient{{Name: "Cukier"}}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Analyze(context.Background(), 1, req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, f.service.Usage(context.Background(), 1).Substitutions.Used)
}
