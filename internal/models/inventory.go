package models

import (
	"time"
)

// InventoryItem represents an entry in a user's pantry
type InventoryItem struct {
	ID     int `json:"id"`
	UserID int `json:"user_id"`

	// Reference to catalog product (optional)
	ProductID *int `json:"product_id,omitempty"`

	// Free-text name, used when ProductID is nil
	CustomName *string `json:"custom_name,omitempty"`

	// Quantity is nil for staples tracked only by availability
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitID      *int     `json:"unit_id,omitempty"`
	IsAvailable bool     `json:"is_available"`

	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Location       *string    `json:"location,omitempty"`
	Notes          *string    `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryItemWithDetails includes joined product and unit data
type InventoryItemWithDetails struct {
	InventoryItem

	// From joined products table (when ProductID is not null)
	ProductName *string `json:"product_name,omitempty"`

	// From joined units table
	UnitName         *string `json:"unit_name,omitempty"`
	UnitAbbreviation *string `json:"unit_abbreviation,omitempty"`

	DisplayName string `json:"display_name"`

	IsExpired   bool `json:"is_expired"`
	ExpiresSoon bool `json:"expires_soon"` // Within 7 days
}

// IsStaple reports whether the item is tracked without a quantity
func (i *InventoryItem) IsStaple() bool {
	return i.Quantity == nil
}

// CreateInventoryItemRequest is the request body for adding inventory items
type CreateInventoryItemRequest struct {
	// Option 1: reference a catalog product
	ProductID *int `json:"product_id,omitempty"`

	// Option 2: free-text pantry entry
	CustomName *string `json:"custom_name,omitempty" validate:"omitempty,min=1,max=200"`

	Quantity       *float64   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	UnitID         *int       `json:"unit_id,omitempty"`
	IsAvailable    *bool      `json:"is_available,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Location       *string    `json:"location,omitempty" validate:"omitempty,max=100"`
	Notes          *string    `json:"notes,omitempty"`
}

// UpdateInventoryItemRequest is the request body for updating inventory items
type UpdateInventoryItemRequest struct {
	CustomName     *string    `json:"custom_name,omitempty" validate:"omitempty,min=1,max=200"`
	Quantity       *float64   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	UnitID         *int       `json:"unit_id,omitempty"`
	IsAvailable    *bool      `json:"is_available,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Location       *string    `json:"location,omitempty" validate:"omitempty,max=100"`
	Notes          *string    `json:"notes,omitempty"`
}

// InventoryListParams contains parameters for listing inventory
type InventoryListParams struct {
	Limit         int
	Offset        int
	UserID        int
	Location      string
	Search        string
	AvailableOnly bool
	SortBy        string // "name", "expiration", "quantity", "updated"
	SortOrder     string // "asc" or "desc"
}

// AdjustInventoryQuantityRequest for adjusting item quantity
type AdjustInventoryQuantityRequest struct {
	Adjustment float64 `json:"adjustment"`
}
