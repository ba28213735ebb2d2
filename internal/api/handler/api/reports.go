package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/signaldesk/internal/api/client"
	"github.com/newthinker/signaldesk/internal/api/job"
	"github.com/newthinker/signaldesk/internal/api/response"
	"github.com/newthinker/signaldesk/internal/core"
)

const maxReportSize = 20 << 20

// Uploader forwards a report to the backend for analysis.
type Uploader interface {
	UploadReport(ctx context.Context, filename string, r io.Reader) (core.ReportAnalysis, error)
}

// ReportsHandler accepts report uploads and tracks their analysis as jobs.
type ReportsHandler struct {
	uploader Uploader
	jobs     *job.Store
	ctx      context.Context
}

// NewReportsHandler creates a reports handler. Uploads run under ctx, so
// cancelling it aborts analyses still in flight.
func NewReportsHandler(ctx context.Context, uploader Uploader, jobs *job.Store) *ReportsHandler {
	return &ReportsHandler{uploader: uploader, jobs: jobs, ctx: ctx}
}

// Upload reads the multipart "file" part and starts an analysis job.
func (h *ReportsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReportSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidReport, err))
		return
	}
	defer file.Close()
	if err := client.CheckReportName(header.Filename); err != nil {
		response.Fail(w, err)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidReport, err))
		return
	}

	name := header.Filename
	j := h.jobs.Run(h.ctx, "report", func(ctx context.Context) (any, error) {
		return h.uploader.UploadReport(ctx, name, &buf)
	})
	w.Header().Set("Location", "/api/v1/reports/"+j.ID)
	response.JSON(w, http.StatusAccepted, j)
}

// Get returns one report job.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// List returns recent report jobs, newest first.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.jobs.List())
}
