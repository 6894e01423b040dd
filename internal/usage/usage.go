// Package usage tracks per-user daily counts of metered operations and
// compares them against configured limits.
package usage

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Kind identifies a metered operation.
type Kind string

const (
	KindReceiptScans  Kind = "receipt_scans"
	KindSubstitutions Kind = "substitutions"
)

// DayLayout is the format of the calendar-day key.
const DayLayout = "2006-01-02"

var (
	ErrUnknownKind = errors.New("unknown usage kind")
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	return k == KindReceiptScans || k == KindSubstitutions
}

// Counts are the raw per-day counters for one user.
type Counts struct {
	ReceiptScans  int `json:"receipt_scans"`
	Substitutions int `json:"substitutions"`
}

// Get returns the counter for kind, 0 for unknown kinds.
func (c Counts) Get(kind Kind) int {
	switch kind {
	case KindReceiptScans:
		return c.ReceiptScans
	case KindSubstitutions:
		return c.Substitutions
	}
	return 0
}

// Limits are the configured daily maximums.
type Limits struct {
	ReceiptScans  int `json:"daily_receipt_scans"`
	Substitutions int `json:"daily_substitutions"`
}

// DefaultLimits apply when the configured limits cannot be read.
var DefaultLimits = Limits{
	ReceiptScans:  5,
	Substitutions: 10,
}

// For returns the limit for kind, 0 for unknown kinds.
func (l Limits) For(kind Kind) int {
	switch kind {
	case KindReceiptScans:
		return l.ReceiptScans
	case KindSubstitutions:
		return l.Substitutions
	}
	return 0
}

// Counter is the display view of one metered operation.
type Counter struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

func newCounter(used, limit int) Counter {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Counter{Used: used, Limit: limit, Remaining: remaining}
}

// LimitStatus is the result of CheckLimit.
type LimitStatus struct {
	Allowed   bool `json:"allowed"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

// Snapshot is today's usage for one user.
type Snapshot struct {
	Date          string  `json:"date"`
	ReceiptScans  Counter `json:"receipt_scans"`
	Substitutions Counter `json:"substitutions"`
}

// Store persists daily counters. IncrementDailyUsage must be a single
// atomic increment at the storage layer: concurrent callers for the same
// user and day must never lose an update.
type Store interface {
	// GetDailyUsage returns zero counts when no record exists.
	GetDailyUsage(ctx context.Context, userID int, day string) (Counts, error)
	IncrementDailyUsage(ctx context.Context, userID int, day string, kind Kind) (Counts, error)
}

// LimitsSource supplies the configured limits. It is read on every request
// so operators can change limits without a restart.
type LimitsSource interface {
	GetUsageLimits(ctx context.Context) (Limits, error)
}

// ResolveLimits reads limits from src, falling back to DefaultLimits when
// the lookup fails and per field when a value is negative.
func ResolveLimits(ctx context.Context, src LimitsSource, logger *zap.Logger) Limits {
	if logger == nil {
		logger = zap.NewNop()
	}
	if src == nil {
		return DefaultLimits
	}

	limits, err := src.GetUsageLimits(ctx)
	if err != nil {
		logger.Warn("failed to load usage limits, using defaults", zap.Error(err))
		return DefaultLimits
	}

	if limits.ReceiptScans < 0 {
		logger.Warn("invalid receipt scan limit, using default", zap.Int("value", limits.ReceiptScans))
		limits.ReceiptScans = DefaultLimits.ReceiptScans
	}
	if limits.Substitutions < 0 {
		logger.Warn("invalid substitution limit, using default", zap.Int("value", limits.Substitutions))
		limits.Substitutions = DefaultLimits.Substitutions
	}
	return limits
}
