// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all HTTP handlers for the workshop API.
type Handler struct {
	svc *service.Services
	db  Pinger
	log *zap.Logger
}

// New constructs a Handler. db may be nil when the store has nothing to
// ping.
func New(svc *service.Services, db Pinger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, db: db, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondErr maps service errors onto status codes.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, model.ErrAlreadyEnrolled),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrWorkshopClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrCapacityInvariant):
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// caller returns the authenticated caller. Routes are always mounted behind
// auth.Middleware, so a missing caller is answered with 401.
func caller(w http.ResponseWriter, r *http.Request) (model.Caller, bool) {
	c, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
	}
	return c, ok
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.Invalid(key, "must be an integer")
	}
	return n, nil
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Error("health check: database ping failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "database": "disconnected"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
