// Package session owns the bearer token kept in the local store.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/kv"
	"go.uber.org/zap"
)

// Session reads and writes the token and clears cached state on logout.
type Session struct {
	store  kv.Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a session over the given store.
func New(store kv.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{store: store, logger: logger, now: time.Now}
}

// Login stores the token and optional user id.
func (s *Session) Login(ctx context.Context, token, userID string) error {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return core.WrapError(core.ErrUnauthenticated, errors.New("empty token"))
	}
	if err := s.store.Set(ctx, kv.KeyToken, []byte(token)); err != nil {
		return err
	}
	if userID != "" {
		if err := s.store.Set(ctx, kv.KeyUserID, []byte(userID)); err != nil {
			return err
		}
	}
	s.logger.Info("session stored", zap.Bool("jwt", isJWT(token)))
	return nil
}

// Token returns the stored token, or "" when none is stored.
func (s *Session) Token(ctx context.Context) (string, error) {
	return kv.GetString(ctx, s.store, kv.KeyToken)
}

// UserID returns the stored user id, or "".
func (s *Session) UserID(ctx context.Context) (string, error) {
	return kv.GetString(ctx, s.store, kv.KeyUserID)
}

// Valid reports whether a usable token is stored. JWTs must not be expired;
// opaque tokens are accepted as-is since only the backend can check them.
func (s *Session) Valid(ctx context.Context) bool {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return false
	}
	exp, ok := expiry(token)
	if !ok {
		return true
	}
	return s.now().Before(exp)
}

// Require returns the token or core.ErrUnauthenticated.
func (s *Session) Require(ctx context.Context) (string, error) {
	if !s.Valid(ctx) {
		return "", core.ErrUnauthenticated
	}
	return s.Token(ctx)
}

// Logout removes the token, user id and cached signals.
func (s *Session) Logout(ctx context.Context) error {
	for _, key := range []string{kv.KeyToken, kv.KeyUserID, kv.KeyTradingSignals} {
		if err := s.store.Remove(ctx, key); err != nil {
			return err
		}
	}
	s.logger.Info("session cleared")
	return nil
}

func isJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// expiry reads the exp claim without verifying the signature.
func expiry(token string) (time.Time, bool) {
	if !isJWT(token) {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
