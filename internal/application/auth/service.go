// Package auth issues and validates session tokens. Only the sha256 hash of
// a token is stored; the raw token exists client-side only.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gemdesk/gemdesk/internal/domain/account"
	domainSession "github.com/gemdesk/gemdesk/internal/domain/session"
)

// Accounts is the slice of the account service auth needs.
type Accounts interface {
	Get(ctx context.Context, username string) (*account.Account, error)
}

// Service handles authentication.
type Service struct {
	accounts   Accounts
	sessions   domainSession.Store
	sessionTTL time.Duration
	logger     zerolog.Logger
}

// NewService creates an auth service.
func NewService(accounts Accounts, sessions domainSession.Store, sessionTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		accounts:   accounts,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger.With().Str("service", "auth").Logger(),
	}
}

// LoginResult contains the login response.
type LoginResult struct {
	Account *account.Account
	Session *domainSession.Session
	Token   string
}

// Login verifies credentials and creates a session. Pending accounts are
// refused until an admin approves them.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = account.NormalizeUsername(username)
	a, err := s.accounts.Get(ctx, username)
	if err != nil {
		if err == account.ErrNotFound {
			return nil, fmt.Errorf("invalid username or password")
		}
		return nil, err
	}
	if !account.VerifyPassword(a.PasswordHash, password) {
		return nil, fmt.Errorf("invalid username or password")
	}
	if !a.IsApproved() {
		return nil, account.ErrNotApproved
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &domainSession.Session{
		SessionID: uuid.New(),
		TokenHash: hashToken(token),
		Username:  a.Username,
		Role:      string(a.Role),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", a.Username).Str("role", string(a.Role)).Msg("login")
	return &LoginResult{Account: a, Session: sess, Token: token}, nil
}

// Authenticate validates a session token and returns the account.
func (s *Service) Authenticate(ctx context.Context, token string) (*account.Account, *domainSession.Session, error) {
	if token == "" {
		return nil, nil, fmt.Errorf("missing token")
	}
	tokenHash := hashToken(token)
	sess, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("session not found")
	}
	if sess.IsExpired(time.Now().UTC()) {
		_ = s.sessions.DeleteByTokenHash(ctx, tokenHash)
		return nil, nil, fmt.Errorf("session expired")
	}
	a, err := s.accounts.Get(ctx, sess.Username)
	if err != nil {
		return nil, nil, err
	}
	if !a.IsApproved() {
		return nil, nil, account.ErrNotApproved
	}
	return a, sess, nil
}

// Logout deletes a session token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByTokenHash(ctx, hashToken(token))
}

// PurgeExpired removes expired sessions. Run periodically.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, time.Now().UTC())
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
