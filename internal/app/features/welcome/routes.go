// internal/app/features/welcome/routes.go
package welcome

import (
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the welcome page (e.g., at "/welcome").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeWelcome)
		pr.Get("/attendance", h.ServeAttendance)
	})

	return r
}
