// Package kv is the client-local key-value store holding the session token,
// cached signals and saved preferences.
package kv

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/newthinker/signaldesk/internal/core"
)

// Fixed keys of the persisted client state.
const (
	KeyToken              = "token"
	KeyTradingSignals     = "tradingSignals"
	KeyTradingPreferences = "tradingPreferences"
	KeyFormData           = "formData"
	KeyUserID             = "userId"
)

// Store is a flat key-value store. Get returns core.ErrNotFound for missing keys.
// Writes are last-writer-wins; no locking is done across processes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// GetJSON decodes the value under key into v. A value that does not decode is
// reported as core.ErrCacheCorrupt.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.WrapError(core.ErrCacheCorrupt, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key, replacing any previous value.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return s.Set(ctx, key, data)
}

// GetString returns the value under key as a string, or "" when absent.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
