// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// Navigation tabs shown in the header.
const (
	NavWelcome  = "welcome"
	NavFees     = "fees"
	NavRegister = "register"
	NavAudit    = "audit"
)

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
//	data := feePageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Fee Status", viewdata.NavFees),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	UserEmail  string
	UserName   string

	// Page context
	Title       string
	ActiveNav   string
	BackURL     string
	CurrentPath string

	CSRFToken string

	// One-shot message carried across a redirect.
	Flash string
}

// NewBaseVM creates a populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, activeNav string) BaseVM {
	vm := BaseVM{
		SiteName:    models.DefaultSiteName,
		Title:       title,
		ActiveNav:   activeNav,
		BackURL:     httpnav.ResolveBackURL(r, "/"),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.UserEmail = u.Email
		vm.UserName = u.Name
	}
	return vm
}

// DisplayName is the name shown in the header.
func (vm BaseVM) DisplayName() string {
	if vm.UserName != "" {
		return vm.UserName
	}
	return vm.UserEmail
}
