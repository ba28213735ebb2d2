package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/newthinker/signaldesk/internal/api/response"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/prefs"
)

const maxFormSize = 1 << 20

// PreferencesHandler reads and edits trading preferences.
type PreferencesHandler struct {
	desk Desk
}

// NewPreferencesHandler creates a new preferences handler.
func NewPreferencesHandler(desk Desk) *PreferencesHandler {
	return &PreferencesHandler{desk: desk}
}

// Get returns the active preferences.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.desk.Preferences())
}

// Put replaces the preferences. Empty lists fall back to their defaults; the
// body as submitted is kept as the form state.
func (h *PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFormSize))
	if err != nil {
		response.Fail(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	var tp prefs.TradingPreferences
	if err := json.Unmarshal(raw, &tp); err != nil {
		response.Fail(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	if err := h.desk.SetPreferences(r.Context(), tp); err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.desk.SaveForm(r.Context(), raw); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.desk.Preferences())
}

// Form returns the last submitted preferences form.
func (h *PreferencesHandler) Form(w http.ResponseWriter, r *http.Request) {
	raw, err := h.desk.Form(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, raw)
}

// ToggleRequest flips one value of a list field, or a module's enabled flag
// when Field is empty.
type ToggleRequest struct {
	Field   prefs.Field `json:"field,omitempty"`
	Value   string      `json:"value,omitempty"`
	Module  core.Module `json:"module,omitempty"`
	Enabled *bool       `json:"enabled,omitempty"`
}

// Toggle applies a ToggleRequest. Removing the last value of a list is
// ignored.
func (h *PreferencesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	tp := h.desk.Preferences()
	changed := true
	var err error
	switch {
	case req.Field != "":
		changed, err = tp.Toggle(req.Field, req.Value)
	case req.Module != "" && req.Enabled != nil:
		err = tp.SetEnabled(req.Module, *req.Enabled)
	default:
		err = core.WrapError(core.ErrConfigInvalid, errors.New("field or module+enabled is required"))
	}
	if err != nil {
		response.Fail(w, err)
		return
	}

	if changed {
		if err := h.desk.SetPreferences(r.Context(), tp); err != nil {
			response.Fail(w, err)
			return
		}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"changed":     changed,
		"preferences": h.desk.Preferences(),
	})
}
