package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Ledger reads and increments daily usage through a Store. The day key is
// derived from the clock on every call, so a new day starts from zero
// without any reset step.
type Ledger struct {
	store    Store
	now      func() time.Time
	location *time.Location
	logger   *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLocation sets the time zone calendar days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		now:      time.Now,
		location: time.UTC,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("usage")
	return l
}

// Today returns the current day key.
func (l *Ledger) Today() string {
	return l.DayKey(l.now())
}

// DayKey returns the day key t falls on in the ledger's location.
func (l *Ledger) DayKey(t time.Time) string {
	return t.In(l.location).Format(DayLayout)
}

// RetentionCutoff returns the oldest day key kept by a retention window.
// Rows for earlier days may be pruned.
func (l *Ledger) RetentionCutoff(retention time.Duration) string {
	return l.DayKey(l.now().Add(-retention))
}

// usage reads today's counts, treating a failed read as no usage.
func (l *Ledger) usage(ctx context.Context, userID int, day string) Counts {
	counts, err := l.store.GetDailyUsage(ctx, userID, day)
	if err != nil {
		l.logger.Warn("failed to read daily usage, assuming none",
			zap.Int("user_id", userID),
			zap.String("day", day),
			zap.Error(err),
		)
		return Counts{}
	}
	return counts
}

// CheckLimit reports whether userID may perform another kind operation
// today. It has no side effects.
func (l *Ledger) CheckLimit(ctx context.Context, userID int, kind Kind, limits Limits) LimitStatus {
	counter := newCounter(l.usage(ctx, userID, l.Today()).Get(kind), limits.For(kind))
	return LimitStatus{
		Allowed:   counter.Used < counter.Limit,
		Used:      counter.Used,
		Limit:     counter.Limit,
		Remaining: counter.Remaining,
	}
}

// RecordUsage increments today's counter for kind. Call it only after the
// metered operation succeeded. It does not enforce the limit; callers check
// first with CheckLimit. Storage failures are returned.
func (l *Ledger) RecordUsage(ctx context.Context, userID int, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	day := l.Today()
	counts, err := l.store.IncrementDailyUsage(ctx, userID, day, kind)
	if err != nil {
		return fmt.Errorf("failed to record %s usage: %w", kind, err)
	}

	l.logger.Debug("usage recorded",
		zap.Int("user_id", userID),
		zap.String("day", day),
		zap.String("kind", string(kind)),
		zap.Int("used", counts.Get(kind)),
	)
	return nil
}

// GetUsageSnapshot returns today's counters for both operation kinds.
func (l *Ledger) GetUsageSnapshot(ctx context.Context, userID int, limits Limits) Snapshot {
	day := l.Today()
	counts := l.usage(ctx, userID, day)
	return Snapshot{
		Date:          day,
		ReceiptScans:  newCounter(counts.ReceiptScans, limits.ReceiptScans),
		Substitutions: newCounter(counts.Substitutions, limits.Substitutions),
	}
}
