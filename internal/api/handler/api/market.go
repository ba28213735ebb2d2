package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/newthinker/signaldesk/internal/api/response"
	"github.com/newthinker/signaldesk/internal/core"
)

// MarketHandler serves the market snapshot, poller status and activity log.
type MarketHandler struct {
	desk Desk
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(desk Desk) *MarketHandler {
	return &MarketHandler{desk: desk}
}

// MarketView is the market snapshot plus session progress.
type MarketView struct {
	core.MarketData
	ElapsedSeconds   int64 `json:"elapsedSeconds"`
	RemainingSeconds int64 `json:"remainingSeconds"`
}

// Market returns the latest snapshot, or 503 before the first successful fetch.
func (h *MarketHandler) Market(w http.ResponseWriter, r *http.Request) {
	md, ok := h.desk.Market()
	if !ok {
		response.Error(w, http.StatusServiceUnavailable,
			core.WrapError(core.ErrNotFound, errors.New("no market snapshot yet")))
		return
	}
	response.JSON(w, http.StatusOK, MarketView{
		MarketData:       md,
		ElapsedSeconds:   int64(md.Elapsed().Seconds()),
		RemainingSeconds: int64(md.Remaining().Seconds()),
	})
}

// Status returns the poller status.
func (h *MarketHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.desk.Status())
}

// Logs returns activity entries, newest first. limit caps the count.
func (h *MarketHandler) Logs(w http.ResponseWriter, r *http.Request) {
	entries := h.desk.Logs()
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(entries) {
			entries = entries[:n]
		}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}
