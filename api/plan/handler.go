// Package plan exposes the planning runs over HTTP.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/kilianp07/prodplan/config"
	"github.com/kilianp07/prodplan/core/logger"
	"github.com/kilianp07/prodplan/core/planner"
	"github.com/kilianp07/prodplan/core/runlog"
	"github.com/kilianp07/prodplan/core/simulation"
	"github.com/kilianp07/prodplan/pkg/export"
)

// maxBodyBytes bounds the size of a plan request document.
const maxBodyBytes = 1 << 20

// Handler serves the planning API:
//
//	POST /api/plan            run a plan, ?async=true returns the run id at once
//	GET  /api/plan/runs       query the run history
//	GET  /api/plan/runs/{id}  fetch the outcome of an asynchronous run
//
// Requests must include an Authorization header with "Bearer <token>" when
// token is non-empty.
type Handler struct {
	runner   *planner.Runner
	history  runlog.Store
	defaults config.PlanConfig
	token    string
	log      logger.Logger
}

// NewHandler returns a handler planning with runner. Request bodies are
// decoded over defaults so a client may send only the fields it changes.
func NewHandler(runner *planner.Runner, history runlog.Store, defaults config.PlanConfig, token string, log logger.Logger) *Handler {
	if history == nil {
		history = runlog.NopStore{}
	}
	return &Handler{runner: runner, history: history, defaults: defaults, token: token, log: logger.OrNop(log)}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/plan", h.authorize(h.createPlan))
	mux.Handle("GET /api/plan/runs", h.authorize(h.listRuns))
	mux.Handle("GET /api/plan/runs/{id}", h.authorize(h.getRun))
}

func (h *Handler) authorize(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" && r.Header.Get("Authorization") != "Bearer "+h.token {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := h.decodePlan(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := cfg.Request()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if !async {
		res, err := h.runner.Run(r.Context(), req)
		if errors.Is(err, planner.ErrRunnerClosed) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.writeResult(w, format, res, err)
		return
	}
	// The run outlives the request.
	id, err := h.runner.Start(context.WithoutCancel(r.Context()), req)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id, "status": "running"})
}

func (h *Handler) decodePlan(r *http.Request) (config.PlanConfig, error) {
	cfg := h.defaults
	cfg.Sources = slices.Clone(cfg.Sources)
	cfg.Models = slices.Clone(cfg.Models)
	cfg.Calendar.Weekends = slices.Clone(cfg.Calendar.Weekends)
	cfg.Calendar.Holidays = slices.Clone(cfg.Calendar.Holidays)
	cfg.Calendar.ExtraWorkingDays = slices.Clone(cfg.Calendar.ExtraWorkingDays)

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config.PlanConfig{}, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return config.PlanConfig{}, err
	}
	return cfg, nil
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	st, ok := h.runner.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, planner.ErrUnknownRun.Error())
		return
	}
	if !st.Done {
		writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id, "status": "running"})
		return
	}
	h.writeResult(w, format, st.Result, st.Err)
}

// writeResult maps the run outcome onto a status code. A demand conflict
// still carries the partial result in the requested format.
func (h *Handler) writeResult(w http.ResponseWriter, format string, res *planner.Result, err error) {
	var (
		verr     *planner.ValidationError
		conflict *simulation.DemandConflictError
	)
	code := http.StatusOK
	switch {
	case err == nil:
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.As(err, &conflict) && res != nil:
		code = http.StatusConflict
		w.Header().Set("X-Plan-Error", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusRequestTimeout, err.Error())
		return
	default:
		h.log.Errorf("plan failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.WriteHeader(code)
	if err := export.Write(w, format, res); err != nil {
		h.log.Warnf("write plan response: %v", err)
	}
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	q := runlog.Query{Status: r.URL.Query().Get("status")}
	if s := r.URL.Query().Get("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.Start = t
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.End = t
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		q.Limit = n
	}
	records, err := h.history.Query(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
