// file: model/token.go

package model

import "time"

// RefreshToken holds the data for a refresh token in the database.
// Only the SHA-256 hash of the token is stored; the raw value exists solely
// in the cookie handed to the client. Rows are never deleted: a revoked
// record and its ReplacedBy pointer are what make replay detectable.
type RefreshToken struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	TokenHash   string     `json:"-"` // The hash is not exposed in JSON responses.
	CreatedAt   time.Time  `json:"created_at"`
	CreatedByIP string     `json:"created_by_ip"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP string     `json:"revoked_by_ip,omitempty"`
	ReplacedBy  string     `json:"-"` // Hash of the successor token, set on rotation.
}

// IsRevoked reports whether the token has been explicitly revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the token has passed its expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be used.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
