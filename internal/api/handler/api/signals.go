package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/signaldesk/internal/api/response"
	"github.com/newthinker/signaldesk/internal/core"
)

// SignalsHandler handles signal-related API requests.
type SignalsHandler struct {
	desk      Desk
	explainer Explainer
}

// NewSignalsHandler creates a new signals handler. explainer may be nil.
func NewSignalsHandler(desk Desk, explainer Explainer) *SignalsHandler {
	return &SignalsHandler{desk: desk, explainer: explainer}
}

// List returns the held signals. The optional module query parameter keeps
// only signals of that module. With source=backend the module's list is read
// from the backend's per-class endpoint instead of held state.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	module := core.Module(strings.ToLower(q.Get("module")))

	if q.Get("source") == "backend" {
		if !knownModule(module) {
			response.Fail(w, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("source=backend needs module options, intraday or equity, got %q", module)))
			return
		}
		resp, err := h.desk.FetchModule(r.Context(), module)
		if err != nil {
			response.Fail(w, err)
			return
		}
		response.JSON(w, http.StatusOK, resp)
		return
	}

	resp := h.desk.Signals()
	if module != "" {
		resp.NonExecuted = filterModule(resp.NonExecuted, module)
		resp.Executed = filterModule(resp.Executed, module)
	}
	response.JSON(w, http.StatusOK, resp)
}

func knownModule(m core.Module) bool {
	switch m {
	case core.ModuleOptions, core.ModuleIntraday, core.ModuleEquity:
		return true
	}
	return false
}

// Reanalyze has the backend re-score the held non-executed signals.
func (h *SignalsHandler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	updated, err := h.desk.Reanalyze(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"updated": updated, "signals": h.desk.Signals()})
}

func filterModule(signals []core.Signal, m core.Module) []core.Signal {
	out := []core.Signal{}
	for _, s := range signals {
		if s.Module == m {
			out = append(out, s)
		}
	}
	return out
}

// Get returns one held signal.
func (h *SignalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sig, ok := h.desk.Signals().Find(chi.URLParam(r, "id"))
	if !ok {
		response.Fail(w, core.ErrSignalNotFound)
		return
	}
	response.JSON(w, http.StatusOK, sig)
}

// Modules returns held signals grouped by dashboard module, with disabled
// modules empty.
func (h *SignalsHandler) Modules(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.desk.Modules())
}

// ExecuteRequest is the optional body of an execute call.
type ExecuteRequest struct {
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// Execute places the order for a held signal.
func (h *SignalsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(w, core.WrapError(core.ErrInvalidOrder, err))
		return
	}
	if req.Quantity < 0 || req.Price < 0 {
		response.Fail(w, core.WrapError(core.ErrInvalidOrder, fmt.Errorf("quantity and price must not be negative")))
		return
	}

	sig, err := h.desk.Execute(r.Context(), chi.URLParam(r, "id"), req.Quantity, req.Price)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sig)
}

// Explain asks the configured model about a held signal.
func (h *SignalsHandler) Explain(w http.ResponseWriter, r *http.Request) {
	if h.explainer == nil {
		response.Fail(w, core.WrapError(core.ErrConfigMissing, errors.New("llm.provider is not set")))
		return
	}
	sig, ok := h.desk.Signals().Find(chi.URLParam(r, "id"))
	if !ok {
		response.Fail(w, core.ErrSignalNotFound)
		return
	}

	var market *core.MarketData
	if md, ok := h.desk.Market(); ok {
		market = &md
	}
	out, err := h.explainer.Explain(r.Context(), sig, market)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, out)
}

// Refresh runs a poll cycle now. A refresh requested while a cycle is in
// flight is dropped and reported with 202.
func (h *SignalsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ran, err := h.desk.Refresh(r.Context())
	if errors.Is(err, core.ErrUnauthenticated) {
		response.Fail(w, err)
		return
	}
	status := h.desk.Status()
	if !ran {
		response.JSON(w, http.StatusAccepted, map[string]any{"refreshed": false, "status": status})
		return
	}
	body := map[string]any{"refreshed": true, "status": status}
	if err != nil {
		body["error"] = err.Error()
	}
	response.JSON(w, http.StatusOK, body)
}
