// internal/app/features/welcome/handler.go
package welcome

import (
	"net/http"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	attendancestore "github.com/dalemusser/studentportal/internal/app/store/attendance"
	feestore "github.com/dalemusser/studentportal/internal/app/store/fees"
	studentstore "github.com/dalemusser/studentportal/internal/app/store/students"
	userstore "github.com/dalemusser/studentportal/internal/app/store/users"
	"github.com/dalemusser/studentportal/internal/app/system/reqgen"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/app/system/viewdata"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type Handler struct {
	Students   *studentstore.Store
	Users      *userstore.Store
	Fees       *feestore.Store
	Attendance *attendancestore.Store
	Gens       *reqgen.Coordinator

	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(
	students *studentstore.Store,
	users *userstore.Store,
	fees *feestore.Store,
	attendance *attendancestore.Store,
	gens *reqgen.Coordinator,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Students:   students,
		Users:      users,
		Fees:       fees,
		Attendance: attendance,
		Gens:       gens,
		Log:        logger,
		ErrLog:     errLog,
	}
}

type classButton struct {
	models.ClassSheet
	Selected bool
}

type pageData struct {
	viewdata.BaseVM

	Counts  models.DashboardCounts
	Classes []classButton

	// Selector state for the chart area. When Loading, the page asks for
	// SelectedClass as soon as it is shown.
	State         State
	SelectedClass string
}

// ServeWelcome renders the counters and the class selector.
// GET /welcome
func (h *Handler) ServeWelcome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.API(), h.Log, "welcome counters")
	defer cancel()

	data := pageData{
		BaseVM: viewdata.NewBaseVM(r, "Welcome", viewdata.NavWelcome),
		Counts: h.loadCounts(ctx),
		State:  NoClassSelected,
	}

	if c, ok := models.LookupClassSheet(query.Get(r, "class")); ok {
		data.State = Loading
		data.SelectedClass = c.Name
	}
	for _, c := range models.ClassSheets {
		data.Classes = append(data.Classes, classButton{ClassSheet: c, Selected: c.Name == data.SelectedClass})
	}

	templates.Render(w, r, "welcome_page", data)
}
