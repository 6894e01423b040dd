package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const userColumns = `id, email, password_hash, username, role, allergies, diets, created_at, updated_at, last_login_at`

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Username,
		&user.Role,
		&user.Allergies,
		&user.Diets,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	if user.Allergies == nil {
		user.Allergies = []string{}
	}
	if user.Diets == nil {
		user.Diets = []string{}
	}
	return user, nil
}

// uniqueViolation maps unique constraint errors to sentinel errors
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrEmailExists
	case "users_username_key":
		return ErrUsernameExists
	}
	return nil
}

// CreateUser creates a new user in the database
func (db *DB) CreateUser(ctx context.Context, email, passwordHash string, username *string) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, username, role)
		VALUES ($1, $2, $3, 'user')
		RETURNING `+userColumns,
		strings.ToLower(strings.TrimSpace(email)), passwordHash, username,
	))
	if err != nil {
		if mapped := uniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (db *DB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetProfile returns the dietary profile of a user
func (db *DB) GetProfile(ctx context.Context, userID int) (*models.Profile, error) {
	profile := &models.Profile{UserID: userID}
	err := db.Pool.QueryRow(ctx, `
		SELECT allergies, diets FROM users WHERE id = $1
	`, userID).Scan(&profile.Allergies, &profile.Diets)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile.Allergies == nil {
		profile.Allergies = []string{}
	}
	if profile.Diets == nil {
		profile.Diets = []string{}
	}
	return profile, nil
}

// UpdateProfile updates the username and dietary restrictions. Nil slices
// leave the stored lists unchanged, empty slices clear them.
func (db *DB) UpdateProfile(ctx context.Context, id int, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `
		UPDATE users
		SET username = COALESCE($2, username),
		    allergies = COALESCE($3, allergies),
		    diets = COALESCE($4, diets),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, req.Username, cleanList(req.Allergies), cleanList(req.Diets),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if mapped := uniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// cleanList trims entries and drops blanks and duplicates, keeping order
func cleanList(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// UpdateUserLastLogin updates the user's last login timestamp
func (db *DB) UpdateUserLastLogin(ctx context.Context, id int) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE users SET last_login_at = NOW() WHERE id = $1
	`, id)
	return err
}

// UpdateUserPassword updates a user's password
func (db *DB) UpdateUserPassword(ctx context.Context, id int, newPasswordHash string) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, newPasswordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AdminUpdateUser updates a user with admin privileges
func (db *DB) AdminUpdateUser(ctx context.Context, id int, req *models.AdminUpdateUserRequest) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `
		UPDATE users
		SET username = COALESCE($2, username),
		    role = COALESCE($3, role),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, req.Username, req.Role,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if mapped := uniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// DeleteUser removes a user and, by cascade, their pantry and receipts
func (db *DB) DeleteUser(ctx context.Context, id int) error {
	result, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListUsers returns a paginated list of users
func (db *DB) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, total, rows.Err()
}

// GetAdminStats retrieves system-wide statistics for the given usage day
func (db *DB) GetAdminStats(ctx context.Context, day string) (*models.AdminStats, error) {
	stats := &models.AdminStats{}

	err := db.Pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT COUNT(*) FROM users), 0),
			COALESCE((SELECT COUNT(*) FROM users WHERE last_login_at > NOW() - INTERVAL '24 hours'), 0),
			COALESCE((SELECT COUNT(*) FROM products), 0),
			COALESCE((SELECT COUNT(*) FROM inventory_items), 0),
			COALESCE((SELECT SUM(receipt_scans) FROM daily_usage WHERE usage_date = $1::date), 0),
			COALESCE((SELECT SUM(substitutions) FROM daily_usage WHERE usage_date = $1::date), 0)
	`, day).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers24h,
		&stats.TotalProducts,
		&stats.TotalInventoryItems,
		&stats.ReceiptsToday,
		&stats.SubstitutionsToday,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin stats: %w", err)
	}

	return stats, nil
}
