package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/pantry-assist/internal/usage"
)

// GetDailyUsage returns the user's counters for day, zero when no row exists
func (db *DB) GetDailyUsage(ctx context.Context, userID int, day string) (usage.Counts, error) {
	var counts usage.Counts
	err := db.Pool.QueryRow(ctx, `
		SELECT receipt_scans, substitutions
		FROM daily_usage
		WHERE user_id = $1 AND usage_date = $2::date
	`, userID, day).Scan(&counts.ReceiptScans, &counts.Substitutions)
	if errors.Is(err, pgx.ErrNoRows) {
		return usage.Counts{}, nil
	}
	if err != nil {
		return usage.Counts{}, fmt.Errorf("failed to get daily usage: %w", err)
	}
	return counts, nil
}

// IncrementDailyUsage bumps one counter with a single upsert, so concurrent
// increments for the same user and day are serialized by the row lock.
func (db *DB) IncrementDailyUsage(ctx context.Context, userID int, day string, kind usage.Kind) (usage.Counts, error) {
	var query string
	switch kind {
	case usage.KindReceiptScans:
		query = `
			INSERT INTO daily_usage (user_id, usage_date, receipt_scans)
			VALUES ($1, $2::date, 1)
			ON CONFLICT (user_id, usage_date) DO UPDATE SET
				receipt_scans = daily_usage.receipt_scans + 1,
				updated_at = NOW()
			RETURNING receipt_scans, substitutions
		`
	case usage.KindSubstitutions:
		query = `
			INSERT INTO daily_usage (user_id, usage_date, substitutions)
			VALUES ($1, $2::date, 1)
			ON CONFLICT (user_id, usage_date) DO UPDATE SET
				substitutions = daily_usage.substitutions + 1,
				updated_at = NOW()
			RETURNING receipt_scans, substitutions
		`
	default:
		return usage.Counts{}, usage.ErrUnknownKind
	}

	var counts usage.Counts
	if err := db.Pool.QueryRow(ctx, query, userID, day).Scan(&counts.ReceiptScans, &counts.Substitutions); err != nil {
		return usage.Counts{}, fmt.Errorf("failed to increment daily usage: %w", err)
	}
	return counts, nil
}

// PruneDailyUsage deletes rows older than the given day
func (db *DB) PruneDailyUsage(ctx context.Context, before string) (int64, error) {
	result, err := db.Pool.Exec(ctx, `DELETE FROM daily_usage WHERE usage_date < $1::date`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune daily usage: %w", err)
	}
	return result.RowsAffected(), nil
}
