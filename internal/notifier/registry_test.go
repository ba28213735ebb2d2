package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	name       string
	sendCalled int
	batchSizes []int
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(ctx context.Context, signal core.Signal) error {
	m.sendCalled++
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func (m *mockNotifier) SendBatch(ctx context.Context, signals []core.Signal) error {
	m.batchSizes = append(m.batchSizes, len(signals))
	if m.shouldFail {
		return errors.New("batch send failed")
	}
	return nil
}

func TestRegistry_RegisterGet(t *testing.T) {
	r := NewRegistry()
	mock := &mockNotifier{name: "test"}

	require.NoError(t, r.Register(mock))
	assert.Error(t, r.Register(mock), "duplicate registration")

	n, err := r.Get("test")
	require.NoError(t, err)
	assert.Equal(t, "test", n.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "webhook"})
	r.Register(&mockNotifier{name: "email"})

	assert.Equal(t, []string{"email", "webhook"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", shouldFail: true}
	r.Register(ok)
	r.Register(bad)

	results := r.NotifyAll(context.Background(), core.Signal{Symbol: "TCS"})

	assert.Len(t, results, 2)
	assert.NoError(t, results["ok"])
	assert.True(t, errors.Is(results["bad"], core.ErrNotifierFailed))
	assert.Equal(t, 1, ok.sendCalled)
	assert.Equal(t, 1, bad.sendCalled)
}

func TestRegistry_NotifyAllBatch(t *testing.T) {
	r := NewRegistry()
	mock := &mockNotifier{name: "test"}
	r.Register(mock)

	r.NotifyAllBatch(context.Background(), []core.Signal{{Symbol: "A"}, {Symbol: "B"}})
	r.NotifyAllBatch(context.Background(), nil)

	assert.Equal(t, []int{2}, mock.batchSizes, "empty batches are not sent")
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry
	assert.Empty(t, r.NotifyAllBatch(context.Background(), []core.Signal{{}}))
	assert.Zero(t, r.Len())
}
