package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/metrics"
	"github.com/foxxcyber/pantry-assist/internal/models"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

var (
	ErrNoIngredients       = errors.New("no ingredients to analyze")
	ErrExtractionDisabled  = errors.New("recipe text extraction is not configured")
	ErrUsageNotRecorded    = errors.New("failed to record usage")
	ErrNoRecipeIngredients = errors.New("no ingredients found in recipe text")
)

// QuotaExceededError is returned when the daily limit for an operation is used up
type QuotaExceededError struct {
	Kind   usage.Kind
	Status usage.LimitStatus
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s limit reached (%d/%d)", e.Kind, e.Status.Used, e.Status.Limit)
}

// AnalysisStore supplies the user's profile and pantry
type AnalysisStore interface {
	GetProfile(ctx context.Context, userID int) (*models.Profile, error)
	ListInventoryForMatching(ctx context.Context, userID int) ([]models.InventoryItemWithDetails, error)
}

// IngredientExtractor turns recipe text into ingredients
type IngredientExtractor interface {
	Extract(ctx context.Context, text string) ([]matching.RecipeIngredient, error)
}

// AnalysisRequest holds either structured ingredients or raw recipe text
type AnalysisRequest struct {
	Ingredients []matching.RecipeIngredient `json:"ingredients,omitempty" validate:"omitempty,max=100,dive"`
	RecipeText  string                      `json:"recipe_text,omitempty" validate:"omitempty,max=20000"`
}

// AnalysisResult is the response of a substitution analysis
type AnalysisResult struct {
	Ingredients []matching.IngredientAnalysis `json:"ingredients"`
	Warnings    []matching.Warning            `json:"warnings"`
	Usage       usage.Snapshot                `json:"usage"`
}

// AnalysisService runs metered recipe analyses
type AnalysisService struct {
	store     AnalysisStore
	limits    usage.LimitsSource
	ledger    *usage.Ledger
	analyzer  *matching.Analyzer
	extractor IngredientExtractor
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// AnalysisServiceConfig groups the service collaborators. Extractor and Metrics are optional.
type AnalysisServiceConfig struct {
	Store     AnalysisStore
	Limits    usage.LimitsSource
	Ledger    *usage.Ledger
	Analyzer  *matching.Analyzer
	Extractor IngredientExtractor
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

func NewAnalysisService(cfg AnalysisServiceConfig) *AnalysisService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = matching.NewAnalyzer(nil)
	}
	return &AnalysisService{
		store:     cfg.Store,
		limits:    cfg.Limits,
		ledger:    cfg.Ledger,
		analyzer:  analyzer,
		extractor: cfg.Extractor,
		metrics:   cfg.Metrics,
		logger:    logger.Named("analysis"),
	}
}

// Analyze checks the substitution quota, analyzes the recipe against the
// user's pantry and profile, then counts the request. Usage is recorded
// only after a successful analysis.
func (s *AnalysisService) Analyze(ctx context.Context, userID int, req *AnalysisRequest) (*AnalysisResult, error) {
	limits := usage.ResolveLimits(ctx, s.limits, s.logger)

	status := s.ledger.CheckLimit(ctx, userID, usage.KindSubstitutions, limits)
	if !status.Allowed {
		s.metrics.QuotaRejected(string(usage.KindSubstitutions))
		s.metrics.AnalysisCompleted("rejected")
		return nil, &QuotaExceededError{Kind: usage.KindSubstitutions, Status: status}
	}

	ingredients, err := s.ingredients(ctx, req)
	if err != nil {
		s.metrics.AnalysisCompleted("invalid")
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		s.metrics.AnalysisCompleted("error")
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	rows, err := s.store.ListInventoryForMatching(ctx, userID)
	if err != nil {
		s.metrics.AnalysisCompleted("error")
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	report := s.analyzer.Analyze(ctx, ingredients, matching.ProjectAll(rows), profile)

	if err := s.ledger.RecordUsage(ctx, userID, usage.KindSubstitutions); err != nil {
		s.metrics.UsageRecordFailed(string(usage.KindSubstitutions))
		s.metrics.AnalysisCompleted("error")
		s.logger.Error("analysis finished but usage was not recorded", zap.Int("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUsageNotRecorded, err)
	}

	for _, a := range report.Ingredients {
		s.metrics.IngredientStatus(string(a.Status))
	}
	s.metrics.AnalysisCompleted("ok")

	s.logger.Info("recipe analyzed",
		zap.Int("user_id", userID),
		zap.Int("ingredients", len(report.Ingredients)),
		zap.Int("warnings", len(report.Warnings)),
	)

	return &AnalysisResult{
		Ingredients: report.Ingredients,
		Warnings:    report.Warnings,
		Usage:       s.ledger.GetUsageSnapshot(ctx, userID, limits),
	}, nil
}

// Usage returns today's usage snapshot for the user
func (s *AnalysisService) Usage(ctx context.Context, userID int) usage.Snapshot {
	return s.ledger.GetUsageSnapshot(ctx, userID, usage.ResolveLimits(ctx, s.limits, s.logger))
}

func (s *AnalysisService) ingredients(ctx context.Context, req *AnalysisRequest) ([]matching.RecipeIngredient, error) {
	if len(req.Ingredients) > 0 {
		return req.Ingredients, nil
	}
	if req.RecipeText == "" {
		return nil, ErrNoIngredients
	}
	if s.extractor == nil {
		return nil, ErrExtractionDisabled
	}

	extracted, err := s.extractor.Extract(ctx, req.RecipeText)
	if err != nil {
		return nil, fmt.Errorf("failed to extract ingredients: %w", err)
	}
	if len(extracted) == 0 {
		return nil, ErrNoRecipeIngredients
	}
	return extracted, nil
}
