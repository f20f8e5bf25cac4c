package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated actor. Sessions replace the ambient
// logged-in-users map the conversational layer used to keep: they live in the
// record store keyed by token hash, and expiry is checked explicitly by the
// caller on every authentication.
type Session struct {
	SessionID uuid.UUID `json:"sessionId"`
	TokenHash string    `json:"tokenHash"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired reports whether the session expired as of now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store defines persistence for sessions.
type Store interface {
	Create(ctx context.Context, session *Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
