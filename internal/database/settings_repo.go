package database

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/pantry-assist/internal/usage"
)

// SystemSetting represents a configuration setting stored in the database
type SystemSetting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	ValueType   string    `json:"value_type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	IsSensitive bool      `json:"is_sensitive"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var ErrSettingNotFound = errors.New("setting not found")

// Setting keys read by the service
const (
	SettingDailyReceiptScans  = "daily_receipt_scans"
	SettingDailySubstitutions = "daily_substitutions"
	SettingOpenAIAPIKey       = "openai_api_key"
	SettingOpenAIModel        = "openai_model"

	CategoryLimits = "limits"
	CategoryAI     = "ai"
)

const maskedValue = "••••••••"

// encrypt encrypts a string value
func encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts an encrypted string value
func decrypt(ciphertext string, key []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := string(data[:nonceSize]), string(data[nonceSize:])
	plaintext, err := gcm.Open(nil, []byte(nonce), []byte(ciphertext), nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// GetSetting retrieves a single setting by key
func (db *DB) GetSetting(ctx context.Context, key string, encryptionKey []byte) (*SystemSetting, error) {
	var s SystemSetting
	err := db.Pool.QueryRow(ctx, `
		SELECT key, value, value_type, category, description, is_sensitive, created_at, updated_at
		FROM system_settings
		WHERE key = $1
	`, key).Scan(&s.Key, &s.Value, &s.ValueType, &s.Category, &s.Description, &s.IsSensitive, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	// Decrypt if encrypted
	if s.ValueType == "encrypted" && s.Value != "" && encryptionKey != nil {
		decrypted, err := decrypt(s.Value, encryptionKey)
		if err == nil {
			s.Value = decrypted
		}
		// If decryption fails, return empty (might be unencrypted old value)
	}

	return &s, nil
}

// GetSettingString retrieves a setting as a string
func (db *DB) GetSettingString(ctx context.Context, key string, defaultValue string, encryptionKey []byte) string {
	setting, err := db.GetSetting(ctx, key, encryptionKey)
	if err != nil {
		return defaultValue
	}
	if setting.Value == "" {
		return defaultValue
	}
	return setting.Value
}

// GetSettingsByCategory retrieves all settings in a category
func (db *DB) GetSettingsByCategory(ctx context.Context, category string, encryptionKey []byte) ([]SystemSetting, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT key, value, value_type, category, description, is_sensitive, created_at, updated_at
		FROM system_settings
		WHERE category = $1
		ORDER BY key
	`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings by category: %w", err)
	}
	defer rows.Close()

	var settings []SystemSetting
	for rows.Next() {
		var s SystemSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.ValueType, &s.Category, &s.Description, &s.IsSensitive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}

		// Decrypt if encrypted
		if s.ValueType == "encrypted" && s.Value != "" && encryptionKey != nil {
			decrypted, err := decrypt(s.Value, encryptionKey)
			if err == nil {
				s.Value = decrypted
			}
		}

		// Mask sensitive values for output (show only if explicitly requested)
		if s.IsSensitive && s.Value != "" {
			s.Value = maskedValue
		}

		settings = append(settings, s)
	}

	return settings, nil
}

// GetAllSettings retrieves all settings
func (db *DB) GetAllSettings(ctx context.Context, encryptionKey []byte) (map[string][]SystemSetting, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT key, value, value_type, category, description, is_sensitive, created_at, updated_at
		FROM system_settings
		ORDER BY category, key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all settings: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]SystemSetting)
	for rows.Next() {
		var s SystemSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.ValueType, &s.Category, &s.Description, &s.IsSensitive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}

		// Mask sensitive values
		if s.IsSensitive && s.Value != "" {
			s.Value = maskedValue
		}

		result[s.Category] = append(result[s.Category], s)
	}

	return result, nil
}

// SetSetting updates or creates a setting
func (db *DB) SetSetting(ctx context.Context, key, value string, encryptionKey []byte) error {
	// First, get the existing setting to check if it should be encrypted
	var valueType string
	err := db.Pool.QueryRow(ctx, `SELECT value_type FROM system_settings WHERE key = $1`, key).Scan(&valueType)
	if err != nil {
		// Setting doesn't exist, just insert without encryption
		_, err = db.Pool.Exec(ctx, `
			INSERT INTO system_settings (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
		`, key, value)
		return err
	}

	// Encrypt if needed
	finalValue := value
	if valueType == "encrypted" && value != "" && value != maskedValue && encryptionKey != nil {
		encrypted, err := encrypt(value, encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt value: %w", err)
		}
		finalValue = encrypted
	}

	// Don't update if masked value is submitted
	if value == maskedValue {
		return nil
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE system_settings SET value = $2, updated_at = NOW() WHERE key = $1
	`, key, finalValue)

	return err
}

// SetSettings updates multiple settings at once
func (db *DB) SetSettings(ctx context.Context, settings map[string]string, encryptionKey []byte) error {
	for key, value := range settings {
		if err := db.SetSetting(ctx, key, value, encryptionKey); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// SetSettingWithMeta creates or updates a setting with full metadata
func (db *DB) SetSettingWithMeta(ctx context.Context, setting SystemSetting, encryptionKey []byte) error {
	// Encrypt if needed
	finalValue := setting.Value
	if setting.ValueType == "encrypted" && setting.Value != "" && encryptionKey != nil {
		encrypted, err := encrypt(setting.Value, encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt value: %w", err)
		}
		finalValue = encrypted
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO system_settings (key, value, value_type, category, description, is_sensitive)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			value = $2,
			value_type = $3,
			category = $4,
			description = $5,
			is_sensitive = $6,
			updated_at = NOW()
	`, setting.Key, finalValue, setting.ValueType, setting.Category, setting.Description, setting.IsSensitive)

	return err
}

// DeleteSetting removes a setting
func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM system_settings WHERE key = $1`, key)
	return err
}

// GetUsageLimits reads the daily limits from the limits category. Missing
// keys keep their default; a stored value that is not an integer is an error.
func (db *DB) GetUsageLimits(ctx context.Context) (usage.Limits, error) {
	limits := usage.DefaultLimits

	rows, err := db.Pool.Query(ctx, `
		SELECT key, value
		FROM system_settings
		WHERE category = $1
	`, CategoryLimits)
	if err != nil {
		return limits, fmt.Errorf("failed to get usage limits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return limits, fmt.Errorf("failed to scan usage limit: %w", err)
		}

		var target *int
		switch key {
		case SettingDailyReceiptScans:
			target = &limits.ReceiptScans
		case SettingDailySubstitutions:
			target = &limits.Substitutions
		default:
			continue
		}

		n, err := strconv.Atoi(value)
		if err != nil {
			return usage.DefaultLimits, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		*target = n
	}

	if err := rows.Err(); err != nil {
		return limits, fmt.Errorf("failed to read usage limits: %w", err)
	}
	return limits, nil
}

// SetUsageLimits stores both daily limits
func (db *DB) SetUsageLimits(ctx context.Context, limits usage.Limits) error {
	entries := []SystemSetting{
		{
			Key:         SettingDailyReceiptScans,
			Value:       strconv.Itoa(limits.ReceiptScans),
			ValueType:   "int",
			Category:    CategoryLimits,
			Description: "Receipt scans allowed per user per day",
		},
		{
			Key:         SettingDailySubstitutions,
			Value:       strconv.Itoa(limits.Substitutions),
			ValueType:   "int",
			Category:    CategoryLimits,
			Description: "Substitution analyses allowed per user per day",
		},
	}

	for _, e := range entries {
		if err := db.SetSettingWithMeta(ctx, e, nil); err != nil {
			return fmt.Errorf("failed to set %s: %w", e.Key, err)
		}
	}
	return nil
}

// AIConfig holds LLM settings stored in the database
type AIConfig struct {
	APIKey string
	Model  string
}

// GetAIConfig returns database overrides for the LLM backend. Empty fields
// mean the environment configuration applies.
func (db *DB) GetAIConfig(ctx context.Context, encryptionKey []byte) *AIConfig {
	return &AIConfig{
		APIKey: db.GetSettingString(ctx, SettingOpenAIAPIKey, "", encryptionKey),
		Model:  db.GetSettingString(ctx, SettingOpenAIModel, "", encryptionKey),
	}
}
