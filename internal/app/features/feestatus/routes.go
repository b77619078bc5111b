// internal/app/features/feestatus/routes.go
package feestatus

import (
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the fee status pages (e.g., at "/fees").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeFees)
		pr.Get("/rows", h.ServeRows)
		pr.Post("/{roll}/status", h.UpdateStatus)
		pr.Get("/export.xlsx", h.ServeExportXLSX)
		pr.Get("/export.pdf", h.ServeExportPDF)
	})

	return r
}
