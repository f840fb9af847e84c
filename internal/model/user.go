package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role is the authorization level of a user. Roles are ordered: a higher role
// satisfies every requirement a lower one does.
type Role int

const (
	RoleUser Role = iota
	RoleManager
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUser:    "user",
	RoleManager: "manager",
	RoleAdmin:   "admin",
}

// ParseRole maps a role name to its Role. Names are case-sensitive.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return RoleUser, fmt.Errorf("unknown role %q", name)
}

// String returns the wire name of the role.
func (r Role) String() string {
	return roleNames[r]
}

// AtLeast reports whether the role satisfies the given requirement.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

// MarshalJSON encodes the role as its string name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role from its string name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User represents an account in the system. The password hash never leaves
// the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserRequest is the DTO for provisioning a user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,role"`
}

// UpdateUserRequest is the DTO for partially updating a user.
// Nil fields are left untouched; the username cannot be changed.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role" validate:"omitempty,role"`
}

// LoginRequest is the DTO for exchanging credentials for a token.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
