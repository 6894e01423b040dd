package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	counts map[string]Counts
	getErr error
	incErr error
	reads  int
}

func newMemStore() *memStore {
	return &memStore{counts: make(map[string]Counts)}
}

func (m *memStore) key(userID int, day string) string {
	return fmt.Sprintf("%d/%s", userID, day)
}

func (m *memStore) GetDailyUsage(_ context.Context, userID int, day string) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.getErr != nil {
		return Counts{}, m.getErr
	}
	return m.counts[m.key(userID, day)], nil
}

func (m *memStore) IncrementDailyUsage(_ context.Context, userID int, day string, kind Kind) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return Counts{}, m.incErr
	}
	c := m.counts[m.key(userID, day)]
	switch kind {
	case KindReceiptScans:
		c.ReceiptScans++
	case KindSubstitutions:
		c.Substitutions++
	}
	m.counts[m.key(userID, day)] = c
	return c, nil
}

func (m *memStore) set(userID int, day string, c Counts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[m.key(userID, day)] = c
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestLedger_CheckLimit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store, WithClock(fixedClock(testNow)))
	limits := Limits{ReceiptScans: 5, Substitutions: 10}

	t.Run("no record means zero usage", func(t *testing.T) {
		got := ledger.CheckLimit(ctx, 1, KindReceiptScans, limits)
		assert.Equal(t, LimitStatus{Allowed: true, Used: 0, Limit: 5, Remaining: 5}, got)
	})

	t.Run("limit reached", func(t *testing.T) {
		store.set(2, "2024-03-10", Counts{ReceiptScans: 5, Substitutions: 3})

		got := ledger.CheckLimit(ctx, 2, KindReceiptScans, limits)
		assert.False(t, got.Allowed)
		assert.Equal(t, 5, got.Used)
		assert.Equal(t, 0, got.Remaining)

		subs := ledger.CheckLimit(ctx, 2, KindSubstitutions, limits)
		assert.True(t, subs.Allowed)
		assert.Equal(t, 7, subs.Remaining)
	})

	t.Run("over the limit never goes negative", func(t *testing.T) {
		store.set(3, "2024-03-10", Counts{ReceiptScans: 9})
		got := ledger.CheckLimit(ctx, 3, KindReceiptScans, limits)
		assert.False(t, got.Allowed)
		assert.Equal(t, 0, got.Remaining)
	})

	t.Run("idempotent", func(t *testing.T) {
		store.set(4, "2024-03-10", Counts{Substitutions: 4})
		first := ledger.CheckLimit(ctx, 4, KindSubstitutions, limits)
		second := ledger.CheckLimit(ctx, 4, KindSubstitutions, limits)
		assert.Equal(t, first, second)
	})

	t.Run("zero limit blocks everything", func(t *testing.T) {
		got := ledger.CheckLimit(ctx, 5, KindReceiptScans, Limits{})
		assert.False(t, got.Allowed)
		assert.Equal(t, 0, got.Remaining)
	})
}

func TestLedger_CheckLimitReadFailure(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection reset")
	ledger := NewLedger(store, WithClock(fixedClock(testNow)))

	got := ledger.CheckLimit(context.Background(), 1, KindSubstitutions, DefaultLimits)
	assert.Equal(t, LimitStatus{Allowed: true, Used: 0, Limit: 10, Remaining: 10}, got)
}

func TestLedger_RecordUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("increments today's counter", func(t *testing.T) {
		store := newMemStore()
		ledger := NewLedger(store, WithClock(fixedClock(testNow)))

		require.NoError(t, ledger.RecordUsage(ctx, 1, KindReceiptScans))
		require.NoError(t, ledger.RecordUsage(ctx, 1, KindReceiptScans))
		require.NoError(t, ledger.RecordUsage(ctx, 1, KindSubstitutions))

		snap := ledger.GetUsageSnapshot(ctx, 1, DefaultLimits)
		assert.Equal(t, Snapshot{
			Date:          "2024-03-10",
			ReceiptScans:  Counter{Used: 2, Limit: 5, Remaining: 3},
			Substitutions: Counter{Used: 1, Limit: 10, Remaining: 9},
		}, snap)
	})

	t.Run("unknown kind", func(t *testing.T) {
		ledger := NewLedger(newMemStore())
		err := ledger.RecordUsage(ctx, 1, Kind("uploads"))
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		store := newMemStore()
		store.incErr = errors.New("disk full")
		ledger := NewLedger(store)

		err := ledger.RecordUsage(ctx, 1, KindSubstitutions)
		require.Error(t, err)
		assert.ErrorIs(t, err, store.incErr)
	})
}

func TestLedger_DayRollover(t *testing.T) {
	ctx := context.Background()
	now := testNow
	store := newMemStore()
	ledger := NewLedger(store, WithClock(func() time.Time { return now }))

	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.RecordUsage(ctx, 1, KindReceiptScans))
	}
	assert.False(t, ledger.CheckLimit(ctx, 1, KindReceiptScans, DefaultLimits).Allowed)

	now = now.Add(24 * time.Hour)
	got := ledger.CheckLimit(ctx, 1, KindReceiptScans, DefaultLimits)
	assert.True(t, got.Allowed)
	assert.Equal(t, 0, got.Used)
	assert.Equal(t, "2024-03-11", ledger.Today())
}

func TestLedger_Location(t *testing.T) {
	late := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)

	utc := NewLedger(newMemStore(), WithClock(fixedClock(late)))
	assert.Equal(t, "2024-03-10", utc.Today())

	cet := NewLedger(newMemStore(), WithClock(fixedClock(late)), WithLocation(time.FixedZone("CET", 3600)))
	assert.Equal(t, "2024-03-11", cet.Today())
}

func TestLedger_RetentionCutoffUsesLocation(t *testing.T) {
	late := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	retention := 7 * 24 * time.Hour

	utc := NewLedger(newMemStore(), WithClock(fixedClock(late)))
	assert.Equal(t, "2024-03-03", utc.RetentionCutoff(retention))

	// CET is already on the 11th, so the cutoff moves with it
	cet := NewLedger(newMemStore(), WithClock(fixedClock(late)), WithLocation(time.FixedZone("CET", 3600)))
	assert.Equal(t, "2024-03-04", cet.RetentionCutoff(retention))
	assert.Equal(t, cet.Today(), cet.DayKey(late))

	west := NewLedger(newMemStore(), WithClock(fixedClock(time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC))),
		WithLocation(time.FixedZone("EST", -5*3600)))
	assert.Equal(t, "2024-03-09", west.Today())
	assert.Equal(t, "2024-03-02", west.RetentionCutoff(retention))
}

type limitsFunc func(ctx context.Context) (Limits, error)

func (f limitsFunc) GetUsageLimits(ctx context.Context) (Limits, error) { return f(ctx) }

func TestResolveLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("configured values", func(t *testing.T) {
		src := limitsFunc(func(context.Context) (Limits, error) {
			return Limits{ReceiptScans: 20, Substitutions: 0}, nil
		})
		assert.Equal(t, Limits{ReceiptScans: 20, Substitutions: 0}, ResolveLimits(ctx, src, nil))
	})

	t.Run("lookup failure uses defaults", func(t *testing.T) {
		src := limitsFunc(func(context.Context) (Limits, error) {
			return Limits{}, errors.New("settings table missing")
		})
		assert.Equal(t, DefaultLimits, ResolveLimits(ctx, src, nil))
	})

	t.Run("negative values fall back per field", func(t *testing.T) {
		src := limitsFunc(func(context.Context) (Limits, error) {
			return Limits{ReceiptScans: -1, Substitutions: 3}, nil
		})
		assert.Equal(t, Limits{ReceiptScans: 5, Substitutions: 3}, ResolveLimits(ctx, src, nil))
	})

	t.Run("no source", func(t *testing.T) {
		assert.Equal(t, DefaultLimits, ResolveLimits(ctx, nil, nil))
	})

	t.Run("re-read on every call", func(t *testing.T) {
		calls := 0
		src := limitsFunc(func(context.Context) (Limits, error) {
			calls++
			return Limits{ReceiptScans: calls, Substitutions: calls}, nil
		})
		assert.Equal(t, 1, ResolveLimits(ctx, src, nil).ReceiptScans)
		assert.Equal(t, 2, ResolveLimits(ctx, src, nil).ReceiptScans)
	})
}
