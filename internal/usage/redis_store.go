package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps one hash per (day, user) with a field per kind. HINCRBY
// is atomic on the server, so concurrent increments from any number of
// processes are never lost.
type RedisStore struct {
	client    redis.UniversalClient
	retention time.Duration
	logger    *zap.Logger
}

// NewRedisStore wraps client. Day hashes expire after retention; zero keeps
// them forever.
func NewRedisStore(client redis.UniversalClient, retention time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, retention: retention, logger: logger.Named("redis")}
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func redisKey(userID int, day string) string {
	return fmt.Sprintf("usage:%s:%d", day, userID)
}

func (s *RedisStore) GetDailyUsage(ctx context.Context, userID int, day string) (Counts, error) {
	fields, err := s.client.HGetAll(ctx, redisKey(userID, day)).Result()
	if err != nil {
		return Counts{}, fmt.Errorf("failed to read usage: %w", err)
	}
	return s.decode(userID, day, fields), nil
}

func (s *RedisStore) IncrementDailyUsage(ctx context.Context, userID int, day string, kind Kind) (Counts, error) {
	if !kind.Valid() {
		return Counts{}, ErrUnknownKind
	}

	key := redisKey(userID, day)
	var all *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, string(kind), 1)
		if s.retention > 0 {
			pipe.Expire(ctx, key, s.retention)
		}
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("failed to increment usage: %w", err)
	}
	// The increment is committed at this point, so a field that fails to
	// decode must not turn it into an error the caller would retry
	return s.decode(userID, day, all.Val()), nil
}

// decode returns the counters that parse and logs the ones that don't. A
// corrupt field reads as zero.
func (s *RedisStore) decode(userID int, day string, fields map[string]string) Counts {
	counts, err := countsFromHash(fields)
	if err != nil {
		s.logger.Warn("corrupt usage hash",
			zap.Int("user_id", userID),
			zap.String("day", day),
			zap.Error(err),
		)
	}
	return counts
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// countsFromHash decodes every known field it can. Fields that fail to parse
// are skipped and reported together in the error.
func countsFromHash(fields map[string]string) (Counts, error) {
	var counts Counts
	var errs []error
	for field, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("corrupt usage field %s: %w", field, err))
			continue
		}
		switch Kind(field) {
		case KindReceiptScans:
			counts.ReceiptScans = n
		case KindSubstitutions:
			counts.Substitutions = n
		}
	}
	return counts, errors.Join(errs...)
}
