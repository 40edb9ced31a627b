package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a persisted, revocable credential. A token is usable
// only while IsActive is true and ExpiresAt is in the future.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type RefreshTokenRepository interface {
	// Rotate deactivates the user's currently active tokens and inserts
	// the new one in a single transaction.
	Rotate(token *RefreshToken) error
	// GetActive returns the row matching the exact token string if it is
	// active and unexpired, nil otherwise.
	GetActive(token string) (*RefreshToken, error)
	Deactivate(token string) error
	DeactivateAll(userID string) error
	DeleteExpired() error
}
