package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	fs, err := blob.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemory(),
		"blob":   NewBlob(fs),
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, KeyToken)
			assert.True(t, errors.Is(err, core.ErrNotFound))

			require.NoError(t, s.Set(ctx, KeyToken, []byte("abc")))
			got, err := s.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.Equal(t, "abc", string(got))

			require.NoError(t, s.Set(ctx, KeyToken, []byte("def")))
			got, _ = s.Get(ctx, KeyToken)
			assert.Equal(t, "def", string(got))

			require.NoError(t, s.Remove(ctx, KeyToken))
			_, err = s.Get(ctx, KeyToken)
			assert.True(t, errors.Is(err, core.ErrNotFound))

			assert.NoError(t, s.Remove(ctx, KeyToken), "removing a missing key is not an error")
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	in := core.SignalResponse{
		NonExecuted: []core.Signal{{ID: "a", Symbol: "TCS", Indicators: []string{}, Patterns: []string{}}},
		Executed:    []core.Signal{},
	}
	require.NoError(t, SetJSON(ctx, s, KeyTradingSignals, in))

	var out core.SignalResponse
	require.NoError(t, GetJSON(ctx, s, KeyTradingSignals, &out))
	assert.Equal(t, in, out)
}

func TestGetJSON_Corrupt(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, KeyTradingSignals, []byte("{not json")))

	var out core.SignalResponse
	err := GetJSON(ctx, s, KeyTradingSignals, &out)
	assert.True(t, errors.Is(err, core.ErrCacheCorrupt))
}

func TestGetString(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	v, err := GetString(ctx, s, KeyUserID)
	require.NoError(t, err)
	assert.Empty(t, v)

	s.Set(ctx, KeyUserID, []byte("42"))
	v, _ = GetString(ctx, s, KeyUserID)
	assert.Equal(t, "42", v)
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	buf := []byte("abc")
	s.Set(ctx, "k", buf)
	buf[0] = 'x'

	got, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, s.Len())
}

func TestRedis_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	assert.Equal(t, "signaldesk:token", NewRedisClient(client, "signaldesk").key(KeyToken))
	assert.Equal(t, "token", NewRedisClient(client, "").key(KeyToken))
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url", "")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, config.StorageConfig{Type: "localfs", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Blob{}, s)

	_, err = Open(ctx, config.StorageConfig{Type: "floppy"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
