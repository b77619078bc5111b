// internal/app/features/feestatus/templates.go
package feestatus

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "feestatus",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
