package models

import (
	"time"
)

// Product is a canonical catalog entry that pantry items can link to
type Product struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Category      *string   `json:"category,omitempty"`
	DefaultUnitID *int      `json:"default_unit_id,omitempty"`
	Description   *string   `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Unit is an entry of the canonical measurement unit table
type Unit struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Kind         string `json:"kind"` // "mass", "volume", "count"
}

// CreateProductRequest is the request body for creating a catalog product
type CreateProductRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=200"`
	Category      *string `json:"category,omitempty"`
	DefaultUnitID *int    `json:"default_unit_id,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// ProductListParams contains parameters for listing products
type ProductListParams struct {
	Limit    int
	Offset   int
	Search   string
	Category string
}

// ProductMatch is returned by the catalog match endpoint
type ProductMatch struct {
	Product *Product `json:"product"`
	Unit    *Unit    `json:"unit,omitempty"`
}
