package usage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMiniRedisStore(t *testing.T, retention time.Duration, logger *zap.Logger) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, retention, logger), mr
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) closingStore {
		store, _ := newMiniRedisStore(t, 0, nil)
		return store
	}})
}

func TestRedisStore_Retention(t *testing.T) {
	store, mr := newMiniRedisStore(t, 48*time.Hour, nil)
	defer store.Close()
	ctx := context.Background()

	_, err := store.IncrementDailyUsage(ctx, 1, "2024-03-10", KindReceiptScans)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, mr.TTL(redisKey(1, "2024-03-10")))

	mr.FastForward(49 * time.Hour)

	counts, err := store.GetDailyUsage(ctx, 1, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestRedisStore_CorruptFieldDoesNotFailCommittedIncrement(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store, mr := newMiniRedisStore(t, 0, zap.New(core))
	defer store.Close()
	ctx := context.Background()

	key := redisKey(3, "2024-03-10")
	mr.HSet(key, string(KindSubstitutions), "garbage")

	counts, err := store.IncrementDailyUsage(ctx, 3, "2024-03-10", KindReceiptScans)
	require.NoError(t, err)
	assert.Equal(t, Counts{ReceiptScans: 1}, counts)
	assert.Equal(t, "1", mr.HGet(key, string(KindReceiptScans)))

	read, err := store.GetDailyUsage(ctx, 3, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, counts, read)

	assert.Equal(t, 2, logs.FilterMessage("corrupt usage hash").Len())
}

func TestCountsFromHash(t *testing.T) {
	counts, err := countsFromHash(map[string]string{
		string(KindReceiptScans):  "4",
		string(KindSubstitutions): "x",
		"unrelated":               "9",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), string(KindSubstitutions))
	assert.Equal(t, Counts{ReceiptScans: 4}, counts)

	counts, err = countsFromHash(map[string]string{string(KindSubstitutions): "2"})
	require.NoError(t, err)
	assert.Equal(t, Counts{Substitutions: 2}, counts)
}
