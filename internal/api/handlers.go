package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"buzzrunner/internal/runner"
	"buzzrunner/pkg/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	runMgr *runner.Manager
	log    zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(runMgr *runner.Manager, log zerolog.Logger) *Handler {
	return &Handler{runMgr: runMgr, log: log}
}

// RunBot handles POST /api/run-bot. It keeps the original synchronous
// contract: the response is the finished run's result.
func (h *Handler) RunBot(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRunRequest(w, r)
	if !ok {
		return
	}

	run, err := h.runMgr.Start(*req)
	if err != nil {
		writeJSON(w, http.StatusTooManyRequests, models.RunResult{Success: false, Message: err.Error()})
		return
	}

	// The run keeps going even if the caller disconnects; it stays
	// reachable through the runs API.
	result, err := h.runMgr.Await(r.Context(), run.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("run_id", run.ID).Msg("caller left before run finished")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateRun handles POST /api/runs (async variant of RunBot).
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRunRequest(w, r)
	if !ok {
		return
	}

	run, err := h.runMgr.Start(*req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

// ListRuns handles GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runMgr.List())
}

// GetRun handles GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runMgr.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// CancelRun handles DELETE /api/runs/{id}
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	if err := h.runMgr.Cancel(mux.Vars(r)["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "Server is running",
		"endpoints": map[string]string{
			"run_bot": "/api/run-bot",
			"runs":    "/api/runs",
			"health":  "/api/health",
		},
	})
}

// decodeRunRequest parses and validates the shared run payload. The
// required-field check happens here, before the core is ever invoked.
func (h *Handler) decodeRunRequest(w http.ResponseWriter, r *http.Request) (*models.RunRequest, bool) {
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.RunResult{Success: false, Message: "invalid request body: " + err.Error()})
		return nil, false
	}
	if req.ClientID == "" {
		req.ClientID = callerID(r)
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.RunResult{Success: false, Message: err.Error()})
		return nil, false
	}
	return &req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
