package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// sessionResult acknowledges a status change and echoes the session.
type sessionResult struct {
	OK      bool           `json:"ok"`
	Session *model.Session `json:"session"`
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.svc.Sessions.Create(r.Context(), c, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// ListSessions handles GET /sessions?from=&to=
// Returns the sessions the caller may see.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.svc.Sessions.ListForCaller(r.Context(), c, q.Get("from"), q.Get("to"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if list == nil {
		list = []model.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSession handles GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	s, err := h.svc.Sessions.Get(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSession handles PUT /sessions/{id}
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.UpdateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.svc.Sessions.Update(r.Context(), c, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// RescheduleSession handles POST /sessions/{id}/reschedule
func (h *Handler) RescheduleSession(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.svc.Sessions.Reschedule(r.Context(), c, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// CompleteSession handles POST /sessions/{id}/complete
// The body must carry {"confirm": true}.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.CompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.svc.Sessions.Complete(r.Context(), c, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResult{OK: true, Session: s})
}

// CancelSession handles POST /sessions/{id}/cancel
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.CancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.svc.Sessions.Cancel(r.Context(), c, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResult{OK: true, Session: s})
}

// DeleteSession handles DELETE /sessions/{id}
// Completed sessions cannot be deleted.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Sessions.Delete(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.OKResponse{OK: true})
}

// ─── Attendance ───────────────────────────────────────────────────────────────

// TakeAttendance handles POST /sessions/{id}/attendance
func (h *Handler) TakeAttendance(w http.ResponseWriter, r *http.Request) {
	h.recordAttendance(w, r, false)
}

// UpdateAttendance handles PUT /sessions/{id}/attendance
// Only the listed users are overwritten.
func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	h.recordAttendance(w, r, true)
}

func (h *Handler) recordAttendance(w http.ResponseWriter, r *http.Request, update bool) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.AttendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	if update {
		err = h.svc.Attendance.Update(r.Context(), c, id, req)
	} else {
		err = h.svc.Attendance.Take(r.Context(), c, id, req)
	}
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.OKResponse{OK: true})
}

// SessionAttendance handles GET /sessions/{id}/attendance
func (h *Handler) SessionAttendance(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Attendance.SessionAttendance(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
