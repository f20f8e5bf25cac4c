// Package account manages registration and the admin approval gate. New
// supplier and client accounts start PENDING and cannot sign in until an
// admin approves them; a rejected registration is deleted outright.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gemdesk/gemdesk/internal/domain/account"
	"github.com/gemdesk/gemdesk/internal/store"
)

// record is the persisted shape. The domain struct hides the password hash
// from JSON, so persistence carries it explicitly.
type record struct {
	Username     string          `json:"username"`
	PasswordHash string          `json:"passwordHash"`
	Role         account.Role    `json:"role"`
	Status       account.Status  `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	ApprovedAt   *time.Time      `json:"approvedAt,omitempty"`
}

func toRecord(a *account.Account) record {
	return record{
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		Status:       a.Status,
		CreatedAt:    a.CreatedAt,
		ApprovedAt:   a.ApprovedAt,
	}
}

func (r record) toAccount() *account.Account {
	return &account.Account{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		ApprovedAt:   r.ApprovedAt,
	}
}

// Service manages accounts in the record store.
type Service struct {
	store  store.RecordStore
	logger zerolog.Logger

	// mu serializes the register existence check against the write.
	mu sync.Mutex
}

// NewService creates the account service.
func NewService(recordStore store.RecordStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  recordStore,
		logger: logger.With().Str("service", "account").Logger(),
	}
}

// Register creates a PENDING account awaiting admin approval.
func (s *Service) Register(ctx context.Context, username, password string, role account.Role) (*account.Account, error) {
	username = account.NormalizeUsername(username)
	if err := account.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := account.ValidateRole(role); err != nil {
		return nil, err
	}
	if err := account.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := account.HashPassword(password)
	if err != nil {
		return nil, err
	}

	a := &account.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       account.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(ctx, username); err == nil {
		return nil, account.ErrAlreadyExists
	} else if !store.IsNotFound(err) {
		return nil, err
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Str("role", string(role)).Msg("account registered")
	return a, nil
}

// Approve lets a pending account in. Approving an approved account is a no-op.
func (s *Service) Approve(ctx context.Context, username string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.load(ctx, username)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	if a.IsApproved() {
		return a, nil
	}
	now := time.Now().UTC()
	a.Status = account.StatusApproved
	a.ApprovedAt = &now
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", a.Username).Msg("account approved")
	return a, nil
}

// Reject removes a pending registration. The username becomes free again.
func (s *Service) Reject(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.load(ctx, username)
	if err != nil {
		if store.IsNotFound(err) {
			return account.ErrNotFound
		}
		return err
	}
	if a.IsApproved() {
		return fmt.Errorf("account %s is already approved", a.Username)
	}
	if err := s.store.Delete(ctx, store.AccountKey(a.Username)); err != nil {
		return err
	}

	s.logger.Info().Str("username", a.Username).Msg("registration rejected")
	return nil
}

// Get retrieves one account.
func (s *Service) Get(ctx context.Context, username string) (*account.Account, error) {
	a, err := s.load(ctx, username)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// List returns all accounts sorted by username.
func (s *Service) List(ctx context.Context) ([]*account.Account, error) {
	keys, err := s.store.List(ctx, store.AccountPrefix)
	if err != nil {
		return nil, err
	}
	accounts := make([]*account.Account, 0, len(keys))
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			s.logger.Error().Str("key", key).Err(err).Msg("skipping corrupt account record")
			continue
		}
		accounts = append(accounts, r.toAccount())
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Username < accounts[j].Username
	})
	return accounts, nil
}

// ListPending returns registrations awaiting approval.
func (s *Service) ListPending(ctx context.Context) ([]*account.Account, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*account.Account, 0, len(all))
	for _, a := range all {
		if !a.IsApproved() {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

// EnsureAdmin creates an approved admin account if the username is free.
// Used at startup so a fresh deployment has a way in.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	username = account.NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(ctx, username); err == nil {
		return nil
	} else if !store.IsNotFound(err) {
		return err
	}

	hash, err := account.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	a := &account.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         account.RoleAdmin,
		Status:       account.StatusApproved,
		CreatedAt:    now,
		ApprovedAt:   &now,
	}
	if err := s.save(ctx, a); err != nil {
		return err
	}

	s.logger.Info().Str("username", username).Msg("bootstrap admin created")
	return nil
}

func (s *Service) load(ctx context.Context, username string) (*account.Account, error) {
	data, err := s.store.Get(ctx, store.AccountKey(username))
	if err != nil {
		return nil, err
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("account %s: %w: %v", username, store.ErrCorrupt, err)
	}
	return r.toAccount(), nil
}

func (s *Service) save(ctx context.Context, a *account.Account) error {
	data, err := json.Marshal(toRecord(a))
	if err != nil {
		return err
	}
	return s.store.Put(ctx, store.AccountKey(a.Username), data)
}
