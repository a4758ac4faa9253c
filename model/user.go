package model

import "time"

// Role is the closed set of roles a user can hold. Anything outside this
// set is rejected at the API boundary.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
