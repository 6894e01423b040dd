package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type closingStore interface {
	Store
	Close() error
}

// StoreSuite holds the behaviour every Store backend shares. Each backend
// runs it with its own open func.
type StoreSuite struct {
	suite.Suite
	open  func(t *testing.T) closingStore
	store closingStore
}

func (s *StoreSuite) SetupTest() {
	s.store = s.open(s.T())
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) TestMissingRecordIsZero() {
	counts, err := s.store.GetDailyUsage(context.Background(), 1, "2024-03-10")
	s.Require().NoError(err)
	s.Equal(Counts{}, counts)
}

func (s *StoreSuite) TestIncrementReturnsBothCounters() {
	ctx := context.Background()

	_, err := s.store.IncrementDailyUsage(ctx, 1, "2024-03-10", KindSubstitutions)
	s.Require().NoError(err)
	counts, err := s.store.IncrementDailyUsage(ctx, 1, "2024-03-10", KindReceiptScans)
	s.Require().NoError(err)
	s.Equal(Counts{ReceiptScans: 1, Substitutions: 1}, counts)

	read, err := s.store.GetDailyUsage(ctx, 1, "2024-03-10")
	s.Require().NoError(err)
	s.Equal(counts, read)
}

func (s *StoreSuite) TestKeysAreIsolated() {
	ctx := context.Background()

	_, err := s.store.IncrementDailyUsage(ctx, 1, "2024-03-10", KindReceiptScans)
	s.Require().NoError(err)

	other, err := s.store.GetDailyUsage(ctx, 2, "2024-03-10")
	s.Require().NoError(err)
	s.Equal(Counts{}, other)

	tomorrow, err := s.store.GetDailyUsage(ctx, 1, "2024-03-11")
	s.Require().NoError(err)
	s.Equal(Counts{}, tomorrow)
}

func (s *StoreSuite) TestUnknownKind() {
	_, err := s.store.IncrementDailyUsage(context.Background(), 1, "2024-03-10", Kind("bogus"))
	s.ErrorIs(err, ErrUnknownKind)
}

func (s *StoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.store.IncrementDailyUsage(ctx, 1, "2024-03-10", KindReceiptScans)
	s.ErrorIs(err, context.Canceled)
}

// Concurrent RecordUsage calls for the same user and day must all land.
func (s *StoreSuite) TestConcurrentRecordUsage() {
	const n = 50

	ledger := NewLedger(s.store, WithClock(fixedClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- ledger.RecordUsage(ctx, 7, KindSubstitutions)
		}()
		go func() {
			defer wg.Done()
			errs <- ledger.RecordUsage(ctx, 7, KindReceiptScans)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	snap := ledger.GetUsageSnapshot(ctx, 7, Limits{ReceiptScans: 100, Substitutions: 100})
	s.Equal(n, snap.Substitutions.Used)
	s.Equal(n, snap.ReceiptScans.Used)
	s.Equal("2024-03-10", snap.Date)
}
