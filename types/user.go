package types

import "time"

// Authentication types derived from how an account was created.
const (
	AuthTypePassword = "password"
	AuthTypeOAuth    = "oauth"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. Unique across all users.
	Email string `json:"email" db:"email"`

	// Username is the unique login name chosen by the user.
	// Nil for accounts that never picked one (e.g. OAuth sign-ups).
	Username *string `json:"username" db:"username"`

	// FullName is the user's display or full name. Nil when unset.
	FullName *string `json:"full_name" db:"full_name"`

	// HashedPassword stores the hashed representation of the user's password.
	// Nil for OAuth-only accounts. This field is never exposed in API responses.
	HashedPassword *string `json:"-" db:"hashed_password"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role" db:"role"`

	// IsActive reports whether the account is enabled. Deactivated accounts
	// still exist but are excluded from active counts.
	IsActive bool `json:"is_active" db:"is_active"`

	// IsVerified tracks whether the user completed email verification.
	IsVerified bool `json:"is_verified" db:"is_verified"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AuthType reports how the account authenticates: "password" when a password
// hash is stored, "oauth" otherwise.
func (u User) AuthType() string {
	if u.HashedPassword == nil {
		return AuthTypeOAuth
	}
	return AuthTypePassword
}

// UserStats holds aggregate counts over the user directory. A user can be
// counted in several categories at once.
type UserStats struct {
	TotalUsers    int `json:"total_users"`
	ActiveUsers   int `json:"active_users"`
	VerifiedUsers int `json:"verified_users"`
	AdminUsers    int `json:"admin_users"`
}
