package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", 25, "", "", "a@b.c", []string{"d@e.f"})
	assert.Error(t, err)
	_, err = New("smtp.local", 25, "", "", "a@b.c", nil)
	assert.Error(t, err)

	e, err := New("smtp.local", 0, "", "", "a@b.c", []string{"d@e.f"})
	require.NoError(t, err)
	assert.Equal(t, 587, e.port)
}

type captured struct {
	addr string
	auth smtp.Auth
	to   []string
	msg  string
}

func newCapturing(t *testing.T, user string) (*Email, *captured) {
	e, err := New("smtp.local", 2525, user, "pw", "desk@local", []string{"me@local"})
	require.NoError(t, err)
	c := &captured{}
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.auth, c.to, c.msg = addr, a, to, string(msg)
		return nil
	}
	return e, c
}

func TestEmail_Send(t *testing.T) {
	e, c := newCapturing(t, "")
	sig := core.Signal{Symbol: "TCS", Action: core.ActionBuy, Module: core.ModuleEquity, Entry: 100, Target: 110, StopLoss: 95, Confidence: 88}

	require.NoError(t, e.Send(context.Background(), sig))

	assert.Equal(t, "smtp.local:2525", c.addr)
	assert.Nil(t, c.auth)
	assert.Equal(t, []string{"me@local"}, c.to)
	assert.Contains(t, c.msg, "Subject: Signal: BUY TCS\r\n")
	assert.Contains(t, c.msg, "Content-Type: text/plain")
	assert.Contains(t, c.msg, sig.Summary())
	assert.Contains(t, c.msg, "Confidence: 88%")
}

func TestEmail_SendBatch(t *testing.T) {
	e, c := newCapturing(t, "user")

	require.NoError(t, e.SendBatch(context.Background(), nil))
	assert.Empty(t, c.msg)

	require.NoError(t, e.SendBatch(context.Background(), []core.Signal{
		{Symbol: "TCS", Action: core.ActionBuy},
		{Symbol: "M&M", Action: core.ActionSell},
	}))
	assert.NotNil(t, c.auth)
	assert.Contains(t, c.msg, "Subject: Signal digest: 2 new signals")
	assert.Contains(t, c.msg, "Content-Type: text/html")
	assert.Contains(t, c.msg, "M&amp;M")
	assert.Equal(t, 2, strings.Count(c.msg, "<div"))
}

func TestEmail_SendError(t *testing.T) {
	e, _ := newCapturing(t, "")
	e.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }

	err := e.Send(context.Background(), core.Signal{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421 busy")
}

func TestEmail_CancelledContext(t *testing.T) {
	e, c := newCapturing(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.Send(ctx, core.Signal{}), context.Canceled)
	assert.Empty(t, c.msg)
}
