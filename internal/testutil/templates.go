package testutil

import (
	"testing"

	"github.com/dalemusser/studentportal/internal/app/resources"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// BootTemplates compiles the shared layout and every registered feature set
// and installs the engine used by templates.Render. A feature's set is
// registered when its package is imported, so tests of that feature can
// assert on real HTML.
func BootTemplates(t *testing.T) {
	t.Helper()
	resources.LoadSharedTemplates()
	eng := templates.New(false)
	if err := eng.Boot(zap.NewNop()); err != nil {
		t.Fatalf("boot templates: %v", err)
	}
	templates.UseEngine(eng, zap.NewNop())
}
