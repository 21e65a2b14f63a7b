package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brightroot/academy/internal/client/client"
	"github.com/golang-jwt/jwt/v5"
)

// Storage keys of the persisted session.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var sessionKeys = []string{KeyToken, KeyRefreshToken, KeyUser}

var (
	errNoSession = errors.New("no persisted session")
	errCorrupted = errors.New("persisted session is corrupted")
)

type persisted struct {
	access   string
	refresh  string
	identity *Identity
}

// load reads the persisted session. It returns errNoSession when nothing is
// stored and an error wrapping errCorrupted for partial or undecodable
// entries.
func (s *Store) load(ctx context.Context) (*persisted, error) {
	token, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.storage.Get(ctx, KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}

	switch {
	case len(token) == 0 && len(user) == 0 && len(refresh) == 0:
		return nil, errNoSession
	case len(token) == 0:
		return nil, fmt.Errorf("%w: access token missing", errCorrupted)
	case len(user) == 0:
		return nil, fmt.Errorf("%w: user missing", errCorrupted)
	}

	var identity Identity
	if err := json.Unmarshal(user, &identity); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupted, err)
	}
	if !identity.valid() {
		return nil, fmt.Errorf("%w: user has no id or email", errCorrupted)
	}

	return &persisted{access: string(token), refresh: string(refresh), identity: &identity}, nil
}

// save writes tokens and identity in one atomic step. An empty refresh token
// overwrites any refresh token left by a previous session.
func (s *Store) save(ctx context.Context, tokens client.Tokens, identity *Identity) error {
	user, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return s.storage.SetMany(ctx, map[string][]byte{
		KeyToken:        []byte(tokens.Access),
		KeyRefreshToken: []byte(tokens.Refresh),
		KeyUser:         user,
	})
}

// saveTokens replaces both tokens and leaves the stored identity alone.
func (s *Store) saveTokens(ctx context.Context, tokens client.Tokens) error {
	return s.storage.SetMany(ctx, map[string][]byte{
		KeyToken:        []byte(tokens.Access),
		KeyRefreshToken: []byte(tokens.Refresh),
	})
}

func (s *Store) saveIdentity(ctx context.Context, identity *Identity) error {
	user, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return s.storage.Set(ctx, KeyUser, user)
}

// purge removes every session key. Failures are logged; the caller carries on
// as logged out.
func (s *Store) purge(ctx context.Context) {
	if err := s.storage.Delete(ctx, sessionKeys...); err != nil {
		s.logger.Error(ctx, "failed to purge persisted session", "error", err)
	}
}

// purgeIfStored removes the persisted session unless storage has moved on to
// an access token other than access. An empty access purges regardless.
func (s *Store) purgeIfStored(ctx context.Context, access string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if access != "" && s.storedToken(ctx) != access {
		s.logger.Debug(ctx, "session replaced, not purging it")
		return
	}
	s.purge(ctx)
}

// storedToken returns the persisted access token, or "" when it cannot be
// read.
func (s *Store) storedToken(ctx context.Context) string {
	token, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		s.logger.Error(ctx, "failed to read persisted token", "error", err)
		return ""
	}
	return string(token)
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired; the backend decides.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
