package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// Enroll handles POST /enrollments
// The user gets a seat when one is free and a waitlist place otherwise.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.EnrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Enrollments.Enroll(r.Context(), c, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Unenroll handles DELETE /enrollments/{id}
// The body carries the mandatory reason.
func (h *Handler) Unenroll(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req model.UnenrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Enrollments.Unenroll(r.Context(), c, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UserEnrollments handles GET /users/{id}/enrollments
func (h *Handler) UserEnrollments(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Enrollments.UserEnrollments(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
