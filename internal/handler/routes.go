package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// Router builds the complete HTTP surface. Everything under /api/v1 needs a
// verified bearer token; mutations are further limited by role.
func Router(h *Handler, v *auth.Verifier, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(CORS)

	r.Get("/health", h.HealthCheck)

	staff := auth.RequireRole(model.RoleAdministrator, model.RoleCoordinator)
	managers := auth.RequireRole(model.RoleAdministrator, model.RoleCoordinator, model.RoleProfessional)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(v.Middleware)

		r.Route("/workshops", func(r chi.Router) {
			r.Get("/", h.ListWorkshops)
			r.Get("/mine", h.MyWorkshops)
			r.With(staff).Post("/", h.CreateWorkshop)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetWorkshop)
				r.Get("/sessions", h.ListWorkshopSessions)
				r.Get("/users/{userID}/attendance", h.UserAttendance)
				r.With(staff).Put("/", h.UpdateWorkshop)
				r.With(staff).Delete("/", h.DeleteWorkshop)
				r.With(managers).Get("/students", h.ListStudents)
				r.With(managers).Get("/unenrollments", h.ListUnenrollments)
				r.With(managers).Get("/report", h.WorkshopReport)
			})
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Use(managers)
			r.Post("/", h.Enroll)
			r.Delete("/{id}", h.Unenroll)
		})

		r.Get("/users/{id}/enrollments", h.UserEnrollments)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Get("/{id}", h.GetSession)

			r.Group(func(r chi.Router) {
				r.Use(managers)
				r.Post("/", h.CreateSession)
				r.Put("/{id}", h.UpdateSession)
				r.Delete("/{id}", h.DeleteSession)
				r.Post("/{id}/reschedule", h.RescheduleSession)
				r.Post("/{id}/complete", h.CompleteSession)
				r.Post("/{id}/cancel", h.CancelSession)
				r.Post("/{id}/attendance", h.TakeAttendance)
				r.Put("/{id}/attendance", h.UpdateAttendance)
				r.Get("/{id}/attendance", h.SessionAttendance)
			})
		})

		r.Get("/schedule", h.Schedule)
		r.Get("/schedule/calendar", h.Calendar)
		r.With(managers).Get("/reports/attendance", h.AttendanceOverview)
	})

	return r
}
