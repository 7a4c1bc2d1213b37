package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/WessleyAI/wessley-inspect/engine/dashboard"
	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/export"
	"github.com/WessleyAI/wessley-inspect/engine/query"
	"github.com/WessleyAI/wessley-inspect/engine/source"
	"github.com/WessleyAI/wessley-inspect/pkg/mid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (a *app) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/v1/options", a.handleOptions)
	mux.HandleFunc("GET /api/v1/vehicles", a.handleVehicles)
	mux.HandleFunc("GET /api/v1/vehicles/{id}", a.handleVehicle)
	mux.HandleFunc("GET /api/v1/vehicles/{id}/history", a.handleHistory)
	mux.HandleFunc("GET /api/v1/stats", a.handleStats)
	mux.HandleFunc("GET /api/v1/status", a.handleStatus)
	mux.HandleFunc("POST /api/v1/refresh", a.handleRefresh)
	mux.HandleFunc("POST /api/v1/exports", a.handleStartExport)
	mux.HandleFunc("GET /api/v1/exports", a.handleListExports)
	mux.HandleFunc("GET /api/v1/exports/{id}", a.handleExport)
	mux.HandleFunc("GET /api/v1/exports/{id}/file", a.handleExportFile)
	mux.Handle("GET /metrics", a.registry.Handler())

	return mid.Chain(mux,
		mid.Recover(a.logger),
		mid.RequestID(),
		mid.Logger(a.logger),
		mid.CORS(a.cfg.CORSOrigin),
		mid.OTel(a.cfg.ServiceName),
	)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidParam):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStale), errors.Is(err, export.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNoData), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *app) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		return
	}
	body := errorBody{Error: err.Error(), Retryable: domain.IsRetryable(err)}
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", mid.RequestIDFrom(r.Context()))
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}

// sourceParams reads area, frequency, type and days from the query string
// over the loaded dataset's parameters, or the configured defaults.
func (a *app) sourceParams(r *http.Request) (source.Params, error) {
	base := a.cfg.Defaults
	if s := a.dash.Snapshot(); s != nil {
		base = s.Params
	}
	q := r.URL.Query()
	return source.ParseParams(q.Get("area"), q.Get("frequency"), q.Get("type"), q.Get("days"), base)
}

// ensure makes the dataset for the request's source parameters current.
func (a *app) ensure(r *http.Request) (*dashboard.Snapshot, error) {
	p, err := a.sourceParams(r)
	if err != nil {
		return nil, err
	}
	return a.dash.Ensure(r.Context(), p)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// OptionsResponse lists every selectable value for the dashboard controls.
type OptionsResponse struct {
	Areas       []source.Option       `json:"areas"`
	Frequencies []source.Option       `json:"frequencies"`
	Days        []int                 `json:"days"`
	Statuses    []domain.StatusFilter `json:"statuses"`
	PageSizes   []int                 `json:"pageSizes"`
	Defaults    source.Params         `json:"defaults"`
}

func (a *app) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OptionsResponse{
		Areas:       source.Areas,
		Frequencies: source.Frequencies,
		Days:        source.DayRanges,
		Statuses:    domain.StatusFilters,
		PageSizes:   query.PageSizes,
		Defaults:    a.cfg.Defaults,
	})
}

// VehiclesResponse is one listing page with the dataset it came from.
type VehiclesResponse struct {
	query.Result
	Params source.Params `json:"params"`
}

func (a *app) handleVehicles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := query.ParseParams(q.Get("status"), q.Get("q"), q.Get("page"), q.Get("page_size"), q.Get("prev_page_size"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	snap, err := a.ensure(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.dash.QueryAt(snap, p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VehiclesResponse{Result: res, Params: snap.Params})
}

func (a *app) handleVehicle(w http.ResponseWriter, r *http.Request) {
	snap, err := a.ensure(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	d, err := a.dash.DetailAt(snap, r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *app) handleHistory(w http.ResponseWriter, r *http.Request) {
	snap, err := a.ensure(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	h, err := a.dash.HistoryAt(snap, r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (a *app) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := a.ensure(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	st, err := a.dash.StatsAt(snap)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// StatusResponse reports the refresh lifecycle and the upstream breaker.
type StatusResponse struct {
	dashboard.State
	Breaker string `json:"breaker,omitempty"`
}

func (a *app) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{State: a.dash.Status()}
	if a.breakerState != nil {
		resp.Breaker = a.breakerState()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *app) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var p source.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	base := a.cfg.Defaults
	if s := a.dash.Snapshot(); s != nil {
		base = s.Params
	}
	p = p.Normalized().Merge(base)
	if _, err := a.dash.Refresh(r.Context(), p); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.handleStatus(w, r)
}

func (a *app) handleStartExport(w http.ResponseWriter, r *http.Request) {
	snap, err := a.ensure(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	job := a.jobs.Start(snap.ExportSource(a.dash.Locale()))
	w.Header().Set("Location", "/api/v1/exports/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (a *app) handleListExports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.jobs.List())
}

func (a *app) handleExport(w http.ResponseWriter, r *http.Request) {
	job, err := a.jobs.Get(r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *app) handleExportFile(w http.ResponseWriter, r *http.Request) {
	job, data, err := a.jobs.File(r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+job.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
