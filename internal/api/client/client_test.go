package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeTokens struct{ store kv.Store }

func (s storeTokens) Token(ctx context.Context) (string, error) {
	return kv.GetString(ctx, s.store, kv.KeyToken)
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, kv.Store) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := kv.NewMemory()
	c, err := New(srv.URL, 5*time.Second, storeTokens{store})
	require.NoError(t, err)
	return c, store
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("localhost", 0, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestBearerToken_ReadOnEveryRequest(t *testing.T) {
	var seen []string
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})
	ctx := context.Background()

	_, err := c.AvailableSignals(ctx, nil)
	require.NoError(t, err)

	store.Set(ctx, kv.KeyToken, []byte("tok-1"))
	c.AvailableSignals(ctx, nil)
	store.Set(ctx, kv.KeyToken, []byte("tok-2"))
	c.AvailableSignals(ctx, nil)

	assert.Equal(t, []string{"", "Bearer tok-1", "Bearer tok-2"}, seen)
}

func TestAvailableSignals_Query(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signals/available", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"id":"1"}]`))
	})

	q := url.Values{"nifty": {"scalp"}}
	raw, err := c.AvailableSignals(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "nifty=scalp", gotQuery)
	assert.Len(t, raw.NonExecuted, 1)
	assert.Empty(t, raw.Executed)
}

func TestRawSignals_Shapes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		nonExecuted int
		executed    int
	}{
		{"bare array", `[{"id":"1"},{"id":"2"}]`, 2, 0},
		{"processor merge", `{"executed_signals":[{"id":"1"}],"non_executed_signals":[{"id":"2"},{"id":"3"}],"ai_enabled":true}`, 2, 1},
		{"processor result", `{"executed":[],"non_executed":[{"id":"2"}]}`, 1, 0},
		{"wrapped list", `{"signals":[{"id":"4"}]}`, 1, 0},
		{"null", `null`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw RawSignals
			require.NoError(t, json.Unmarshal([]byte(tt.body), &raw))
			assert.Len(t, raw.NonExecuted, tt.nonExecuted)
			assert.Len(t, raw.Executed, tt.executed)
			assert.NotNil(t, raw.NonExecuted)
			assert.NotNil(t, raw.Executed)
			assert.Len(t, raw.All(), tt.nonExecuted+tt.executed)
		})
	}
}

func TestAvailableSignals_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"processor crashed"}`))
		})
		_, err := c.AvailableSignals(context.Background(), nil)
		assert.True(t, errors.Is(err, core.ErrAPIRequest))
		assert.Contains(t, err.Error(), "status 500")
		assert.Contains(t, err.Error(), "processor crashed")
	})

	t.Run("unauthorized", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := c.AvailableSignals(context.Background(), nil)
		assert.True(t, errors.Is(err, core.ErrUnauthenticated))
	})

	t.Run("bad body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		})
		_, err := c.AvailableSignals(context.Background(), nil)
		assert.True(t, errors.Is(err, core.ErrAPIDecode))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		c, err := New(addr, time.Second, nil)
		require.NoError(t, err)
		_, err = c.MarketData(context.Background())
		assert.True(t, errors.Is(err, core.ErrAPIRequest))
	})
}

func TestExecuteSignal(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/signal/execute/abc-123", r.URL.Path)

		var body ExecuteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ExecuteRequest{ID: "abc-123", Quantity: 50, Price: 101.5, UserID: "7"}, body)

		w.Write([]byte(`{"order_id":"ORD-abc-123","status":"success","message":"Trade executed successfully","executed_at":"2025-03-03T10:00:00"}`))
	})

	res, err := c.ExecuteSignal(context.Background(), ExecuteRequest{ID: "abc-123", Quantity: 50, Price: 101.5, UserID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-abc-123", res.OrderID)
	assert.Equal(t, "success", res.Status)
}

func TestExecuteSignal_MissingOrderID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	})
	res, err := c.ExecuteSignal(context.Background(), ExecuteRequest{ID: "abcdefghijk", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "ORD-abcdefgh", res.OrderID)
}

func TestExecuteSignal_Rejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"rejected","message":"margin"}`))
	})
	_, err := c.ExecuteSignal(context.Background(), ExecuteRequest{ID: "x", Quantity: 1})
	assert.True(t, errors.Is(err, core.ErrAPIRequest))
}

func TestExecuteSignal_Invalid(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.ExecuteSignal(context.Background(), ExecuteRequest{ID: "x", Quantity: 0})
	assert.True(t, errors.Is(err, core.ErrInvalidOrder))
	_, err = c.ExecuteSignal(context.Background(), ExecuteRequest{Quantity: 1})
	assert.True(t, errors.Is(err, core.ErrInvalidOrder))
}

func TestMarketData(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/data", r.URL.Path)
		w.Write([]byte(`{
			"nifty":{"price":23412.65,"change":142.5,"changePercent":0.61},
			"banknifty":{"price":48723.9,"change":-104.8,"changePercent":-0.21},
			"marketStatus":"open","marketOpenTime":"09:15:00","marketCloseTime":"15:30:00",
			"serverTime":"2025-03-03T11:15:00.123456"}`))
	})

	md, err := c.MarketData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 23412.65, md.Nifty.Price)
	assert.Equal(t, -0.21, md.BankNifty.ChangePercent)
	assert.True(t, md.IsOpen())
	assert.Equal(t, 2*time.Hour, md.Elapsed().Truncate(time.Minute))
}

func TestSignalsByClass(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signals/intraday", r.URL.Path)
		w.Write([]byte(`[{"id":"i1"}]`))
	})

	raw, err := c.SignalsByClass(context.Background(), core.ModuleIntraday)
	require.NoError(t, err)
	assert.Len(t, raw.NonExecuted, 1)

	_, err = c.SignalsByClass(context.Background(), core.Module("crypto"))
	assert.Error(t, err)
}

func TestRefreshAnalysis(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Signals []map[string]any `json:"signals"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Signals, 1)
		assert.Equal(t, "s1", body.Signals[0]["id"])
		w.Write([]byte(`[{"id":"s1","confidence":0.93}]`))
	})

	raw, err := c.RefreshAnalysis(context.Background(), []core.Signal{{ID: "s1"}})
	require.NoError(t, err)
	require.Len(t, raw.NonExecuted, 1)
}

func TestUploadReport(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload-pdf", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "q3.pdf", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.4", string(data))
		w.Write([]byte(`{"status":"success","analysis":{"gpt_response":"Revenue up 12%"}}`))
	})

	res, err := c.UploadReport(context.Background(), "/tmp/q3.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Revenue up 12%", res.Summary())
}

func TestUploadReport_RejectsNonPDF(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.UploadReport(context.Background(), "notes.txt", strings.NewReader("x"))
	assert.True(t, errors.Is(err, core.ErrInvalidReport))
}

func TestUploadReport_AnalysisError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"could not read pdf"}`))
	})
	_, err := c.UploadReport(context.Background(), "a.PDF", strings.NewReader("x"))
	assert.True(t, errors.Is(err, core.ErrAPIRequest))
	assert.Contains(t, err.Error(), "could not read pdf")
}
