package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Schedule handles GET /schedule?from=&to=
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.Schedule.Schedule(r.Context(), c, q.Get("from"), q.Get("to"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Calendar handles GET /schedule/calendar?view=&date=&tz=
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.Schedule.Calendar(r.Context(), c, q.Get("view"), q.Get("date"), q.Get("tz"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Reports ──────────────────────────────────────────────────────────────────

// WorkshopReport handles GET /workshops/{id}/report?top=
func (h *Handler) WorkshopReport(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	top, err := queryInt(r, "top")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	res, err := h.svc.Reports.WorkshopReport(r.Context(), c, chi.URLParam(r, "id"), top)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AttendanceOverview handles GET /reports/attendance
func (h *Handler) AttendanceOverview(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Reports.Overview(r.Context(), c)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UserAttendance handles GET /workshops/{id}/users/{userID}/attendance
func (h *Handler) UserAttendance(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Reports.UserHistory(r.Context(), c, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
