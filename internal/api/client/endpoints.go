package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/newthinker/signaldesk/internal/adapter"
	"github.com/newthinker/signaldesk/internal/core"
)

// RawSignals is a signal list as returned by the backend, before
// normalization. A bare array response lands in NonExecuted; records there
// may still carry executed=true.
type RawSignals struct {
	NonExecuted []adapter.Record
	Executed    []adapter.Record
}

// UnmarshalJSON accepts a bare array, {executed_signals, non_executed_signals}
// or {executed, non_executed}.
func (r *RawSignals) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		r.Executed = []adapter.Record{}
		return json.Unmarshal(data, &r.NonExecuted)
	}

	var obj struct {
		ExecutedSignals    []adapter.Record `json:"executed_signals"`
		NonExecutedSignals []adapter.Record `json:"non_executed_signals"`
		Executed           []adapter.Record `json:"executed"`
		NonExecuted        []adapter.Record `json:"non_executed"`
		Signals            []adapter.Record `json:"signals"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.NonExecuted = append(append(obj.NonExecutedSignals, obj.NonExecuted...), obj.Signals...)
	r.Executed = append(obj.ExecutedSignals, obj.Executed...)
	if r.NonExecuted == nil {
		r.NonExecuted = []adapter.Record{}
	}
	if r.Executed == nil {
		r.Executed = []adapter.Record{}
	}
	return nil
}

// All returns both collections, non-executed first.
func (r RawSignals) All() []adapter.Record {
	out := make([]adapter.Record, 0, len(r.NonExecuted)+len(r.Executed))
	out = append(out, r.NonExecuted...)
	return append(out, r.Executed...)
}

// AvailableSignals fetches current candidate signals for the given query
// (see prefs.TradingPreferences.Query).
func (c *Client) AvailableSignals(ctx context.Context, q url.Values) (RawSignals, error) {
	var out RawSignals
	err := c.getJSON(ctx, "/signals/available", q, &out)
	return out, err
}

// SignalsByClass fetches the per-module signal list.
func (c *Client) SignalsByClass(ctx context.Context, m core.Module) (RawSignals, error) {
	switch m {
	case core.ModuleEquity, core.ModuleOptions, core.ModuleIntraday:
	default:
		return RawSignals{}, core.WrapError(core.ErrAPIRequest, fmt.Errorf("unknown signal class %q", m))
	}
	var out RawSignals
	err := c.getJSON(ctx, "/signals/"+string(m), nil, &out)
	return out, err
}

// ExecuteRequest is the body of an execute call.
type ExecuteRequest struct {
	ID       string  `json:"id"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
	UserID   string  `json:"user_id,omitempty"`
}

// ExecuteSignal asks the backend to place the order for a signal.
func (c *Client) ExecuteSignal(ctx context.Context, req ExecuteRequest) (core.ExecutionResult, error) {
	if req.ID == "" {
		return core.ExecutionResult{}, core.WrapError(core.ErrInvalidOrder, fmt.Errorf("signal id is required"))
	}
	if req.Quantity < 1 {
		return core.ExecutionResult{}, core.WrapError(core.ErrInvalidOrder, fmt.Errorf("quantity must be positive, got %d", req.Quantity))
	}

	var out core.ExecutionResult
	if err := c.postJSON(ctx, "/signal/execute/"+url.PathEscape(req.ID), req, &out); err != nil {
		return core.ExecutionResult{}, err
	}
	if s := strings.ToLower(out.Status); s != "" && s != "success" && s != "ok" && s != "executed" {
		return out, core.WrapError(core.ErrAPIRequest, fmt.Errorf("execution %s: %s", out.Status, out.Message))
	}
	out.OrderID = adapter.OrderIDFallback(req.ID, out.OrderID)
	return out, nil
}

// MarketData fetches the current index snapshot.
func (c *Client) MarketData(ctx context.Context) (core.MarketData, error) {
	var out core.MarketData
	err := c.getJSON(ctx, "/market/data", nil, &out)
	return out, err
}

// RefreshAnalysis asks the backend to re-score the given signals.
func (c *Client) RefreshAnalysis(ctx context.Context, signals []core.Signal) (RawSignals, error) {
	body := struct {
		Signals []core.Signal `json:"signals"`
	}{Signals: signals}
	if body.Signals == nil {
		body.Signals = []core.Signal{}
	}

	var out RawSignals
	err := c.postJSON(ctx, "/signals/refresh-analysis", body, &out)
	return out, err
}

// CheckReportName rejects files without a .pdf extension.
func CheckReportName(filename string) error {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return core.WrapError(core.ErrInvalidReport, fmt.Errorf("%q is not a .pdf file", filename))
	}
	return nil
}

// UploadReport submits a PDF report for AI analysis. Only .pdf files are sent.
func (c *Client) UploadReport(ctx context.Context, filename string, r io.Reader) (core.ReportAnalysis, error) {
	if err := CheckReportName(filename); err != nil {
		return core.ReportAnalysis{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return core.ReportAnalysis{}, core.WrapError(core.ErrAPIRequest, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return core.ReportAnalysis{}, core.WrapError(core.ErrAPIRequest, fmt.Errorf("reading report: %w", err))
	}
	if err := mw.Close(); err != nil {
		return core.ReportAnalysis{}, core.WrapError(core.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload-pdf", nil), &buf)
	if err != nil {
		return core.ReportAnalysis{}, core.WrapError(core.ErrAPIRequest, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return core.ReportAnalysis{}, err
	}
	var out core.ReportAnalysis
	if err := decode(body, &out); err != nil {
		return core.ReportAnalysis{}, err
	}
	if out.Error != "" {
		return out, core.WrapError(core.ErrAPIRequest, fmt.Errorf("analysis failed: %s", out.Error))
	}
	return out, nil
}
