package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

// Syncer is the orchestrator as seen by the control surface.
type Syncer interface {
	Trigger(ctx context.Context) (*models.PassResult, error)
	Status() models.SyncStatus
}

type SyncHandler struct {
	syncer Syncer
	now    func() time.Time
}

func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{
		syncer: syncer,
		now:    time.Now,
	}
}

func (h *SyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.index).Methods("GET")
	r.HandleFunc("/health", h.health).Methods("GET")
	r.HandleFunc("/api/sync-status", h.syncStatus).Methods("GET")
	r.HandleFunc("/api/sync", h.triggerSync).Methods("POST")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, data interface{}, message ...string) {
	resp := APIResponse{
		Status: "success",
		Data:   data,
	}
	if len(message) > 0 {
		resp.Message = message[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// index godoc
// @Summary Service index
// @Description Lists the control surface endpoints
// @Tags Service
// @Produce json
// @Success 200 {object} IndexResponse
// @Router / [get]
func (h *SyncHandler) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, IndexResponse{
		Service: "gitsync",
		Status:  "running",
		Endpoints: map[string]string{
			"health":      "GET /health",
			"sync_status": "GET /api/sync-status",
			"sync":        "POST /api/sync",
			"metrics":     "GET /metrics",
		},
	})
}

// health godoc
// @Summary Liveness probe
// @Description Always healthy while the process serves requests
// @Tags Service
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *SyncHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: h.now().UTC()})
}

// syncStatus godoc
// @Summary Sync status
// @Description Current orchestrator state, last result and run counter
// @Tags Sync
// @Produce json
// @Success 200 {object} models.SyncStatus
// @Router /api/sync-status [get]
func (h *SyncHandler) syncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.syncer.Status())
}

func rejection(err error) (conflict, message string) {
	switch {
	case errors.HasReference(err, errors.RefSyncRunning):
		return "Sync already in progress", "Wait for the running pass to finish and try again"
	case errors.HasReference(err, errors.RefSyncBackoff):
		return "Sync is backing off after an error", "Wait for the backoff period to end and try again"
	}
	return "", ""
}

// triggerSync godoc
// @Summary Trigger a sync pass
// @Description Runs one pass immediately and returns its result. Rejected while a pass is running or the worker is backing off after an error.
// @Tags Sync
// @Produce json
// @Success 200 {object} models.PassResult
// @Failure 409 {object} APIResponse "Sync already in progress or backing off"
// @Failure 500 {object} errors.HTTPErrorResponse "Sync pass failed"
// @Router /api/sync [post]
func (h *SyncHandler) triggerSync(w http.ResponseWriter, r *http.Request) {
	// * The pass outlives a client that hangs up
	result, err := h.syncer.Trigger(context.WithoutCancel(r.Context()))

	if conflict, message := rejection(err); conflict != "" {
		logger.Info("Manual sync rejected: %s", conflict)
		writeJSON(w, http.StatusConflict, APIResponse{
			Status:  "error",
			Error:   conflict,
			Message: message,
			Data: ConflictData{
				LastRunTime: h.syncer.Status().LastRunTime,
				Timestamp:   h.now().UTC(),
			},
		})
		return
	}
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	writeSuccess(w, result, "Sync completed")
}
