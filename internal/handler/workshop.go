package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// CreateWorkshop handles POST /workshops
func (h *Handler) CreateWorkshop(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.CreateWorkshopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ws, err := h.svc.Workshops.Create(r.Context(), c, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

// ListWorkshops handles GET /workshops
// Optional filters: ?status= and ?professional_id=.
func (h *Handler) ListWorkshops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.Workshops.List(r.Context(), model.WorkshopFilter{
		Status:         model.WorkshopStatus(q.Get("status")),
		ProfessionalID: q.Get("professional_id"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if list == nil {
		list = []model.Workshop{}
	}
	writeJSON(w, http.StatusOK, list)
}

// MyWorkshops handles GET /workshops/mine
func (h *Handler) MyWorkshops(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Workshops.Mine(r.Context(), c)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if list == nil {
		list = []model.Workshop{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetWorkshop handles GET /workshops/{id}
func (h *Handler) GetWorkshop(w http.ResponseWriter, r *http.Request) {
	ws, err := h.svc.Workshops.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// UpdateWorkshop handles PUT /workshops/{id}
func (h *Handler) UpdateWorkshop(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.UpdateWorkshopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Workshops.Update(r.Context(), c, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteWorkshop handles DELETE /workshops/{id}
func (h *Handler) DeleteWorkshop(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Workshops.Delete(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.OKResponse{OK: true})
}

// ListStudents handles GET /workshops/{id}/students
// Seat holders and the waitlist are returned separately.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Enrollments.Students(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListUnenrollments handles GET /workshops/{id}/unenrollments
func (h *Handler) ListUnenrollments(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Enrollments.Unenrollments(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if list == nil {
		list = []model.Unenrollment{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListWorkshopSessions handles GET /workshops/{id}/sessions
func (h *Handler) ListWorkshopSessions(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Sessions.ListByWorkshop(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if list == nil {
		list = []model.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}
