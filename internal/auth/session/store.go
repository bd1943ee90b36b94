// Package session owns the in-process session records. Tokens are encrypted
// before a record enters the store and decrypted on the way out, so plaintext
// credentials never sit in memory longer than a single request.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brizzai/auth-relay/internal/auth/models"
	"github.com/brizzai/auth-relay/internal/auth/vault"
	"github.com/brizzai/auth-relay/internal/logger"
	"go.uber.org/zap"
)

// ErrNotFound is returned for absent sessions. Undecryptable sessions are
// reported the same way: a record the process can no longer read is as good
// as gone, and must not crash the request that found it.
var ErrNotFound = errors.New("session: not found")

// Store maps provider user ids to encrypted session records. At most one
// live session exists per user id; writers replace the whole record, so
// readers never observe a half-written session.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	vault    *vault.Vault
	now      func() time.Time
}

// NewStore creates an empty store backed by the given vault.
func NewStore(v *vault.Vault) *Store {
	return &Store{
		sessions: make(map[string]models.Session),
		vault:    v,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Upsert writes the session for profile.ID, overwriting any prior record.
// CreatedAt survives overwrites; UpdatedAt and ExpiresAt are recomputed.
func (s *Store) Upsert(profile *models.UserProfile, bundle *models.TokenBundle) error {
	encAccess, err := s.vault.Encrypt(bundle.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	var encRefresh string
	if bundle.RefreshToken != "" {
		encRefresh, err = s.vault.Encrypt(bundle.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := now
	if prev, ok := s.sessions[profile.ID]; ok {
		createdAt = prev.CreatedAt
	}

	s.sessions[profile.ID] = models.Session{
		UserID:       profile.ID,
		Email:        profile.Email,
		Name:         profile.Name,
		Picture:      profile.Picture,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		ExpiresAt:    now.Add(time.Duration(bundle.ExpiresIn) * time.Second),
		Scopes:       bundle.Scopes,
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
	return nil
}

// Get returns a copy of the session with tokens decrypted.
func (s *Store) Get(userID string) (*models.Session, error) {
	s.mu.RLock()
	record, ok := s.sessions[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	accessToken, err := s.vault.Decrypt(record.AccessToken)
	if err != nil {
		logger.Warn("session unreadable, treating as absent",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var refreshToken string
	if record.RefreshToken != "" {
		refreshToken, err = s.vault.Decrypt(record.RefreshToken)
		if err != nil {
			logger.Warn("session unreadable, treating as absent",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}

	record.AccessToken = accessToken
	record.RefreshToken = refreshToken
	return &record, nil
}

// Delete removes the session if present. Deleting an absent session is not
// an error.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
