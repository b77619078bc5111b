// internal/app/features/registration/routes.go
package registration

import (
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts student registration (e.g., at "/register").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeForm)
		pr.Post("/", h.Submit)
		pr.Post("/dismiss", h.Dismiss)
	})

	return r
}
