package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Username     *string    `json:"username,omitempty"`
	Role         Role       `json:"role"`
	Allergies    []string   `json:"allergies"`
	Diets        []string   `json:"diets"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// IsAdmin checks if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile is the dietary profile consumed by the warning generator
type Profile struct {
	UserID    int      `json:"user_id"`
	Allergies []string `json:"allergies"`
	Diets     []string `json:"diets"`
}

// Profile returns the user's dietary profile
func (u *User) Profile() *Profile {
	return &Profile{
		UserID:    u.ID,
		Allergies: u.Allergies,
		Diets:     u.Diets,
	}
}

// RegisterRequest is the request body for user registration
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
}

// LoginRequest is the request body for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned after successful login/register
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UpdateProfileRequest is the request body for updating the dietary profile
type UpdateProfileRequest struct {
	Username  *string  `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
	Allergies []string `json:"allergies,omitempty" validate:"omitempty,dive,min=1,max=50"`
	Diets     []string `json:"diets,omitempty" validate:"omitempty,dive,min=1,max=50"`
}

// ChangePasswordRequest is the request body for changing the current user's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// AdminUpdateUserRequest is the request body for admin user updates
type AdminUpdateUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// AdminStats contains system-wide statistics for the admin dashboard
type AdminStats struct {
	TotalUsers          int `json:"total_users"`
	ActiveUsers24h      int `json:"active_users_24h"`
	TotalProducts       int `json:"total_products"`
	TotalInventoryItems int `json:"total_inventory_items"`
	ReceiptsToday       int `json:"receipts_today"`
	SubstitutionsToday  int `json:"substitutions_today"`
}
