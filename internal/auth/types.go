package auth

import "time"

// Roles recognized by the authorization gate.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account represents a person who can authenticate against the service.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	FullName     string     `json:"full_name,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Session binds an opaque bearer token to an account for a bounded time.
// A session is valid iff its expiry is in the future and the owning account
// still exists and is active.
type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the result of a successful token validation. It is what
// protected endpoints receive; it never carries credential material.
type Identity struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FullName  string `json:"full_name,omitempty"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// AccountUpdate describes a partial account mutation. Nil fields are left
// unchanged.
type AccountUpdate struct {
	Email    *string
	FullName *string
	Role     *string
	Active   *bool
}
