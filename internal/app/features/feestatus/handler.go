// internal/app/features/feestatus/handler.go
package feestatus

import (
	"net/http"
	"net/url"
	"time"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	feestore "github.com/dalemusser/studentportal/internal/app/store/fees"
	studentstore "github.com/dalemusser/studentportal/internal/app/store/students"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/metrics"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/app/system/viewdata"
	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// NoticeDuration is how long the "status updated" notice stays on screen.
const NoticeDuration = 2000 * time.Millisecond

type Handler struct {
	Students *studentstore.Store
	Fees     *feestore.Store
	State    viewstate.Store
	Sessions *auth.SessionManager
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics

	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(
	students *studentstore.Store,
	fees *feestore.Store,
	state viewstate.Store,
	sessions *auth.SessionManager,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Students: students,
		Fees:     fees,
		State:    state,
		Sessions: sessions,
		Audit:    audit,
		Metrics:  m,
		Log:      logger,
		ErrLog:   errLog,
	}
}

type notice struct {
	Message    string
	DurationMS int64
}

type rowVM struct {
	RollNumber string
	FirstName  string
	LastName   string
	Status     models.FeeStatus
	Color      string
	StatusURL  string
}

// rosterData is the roster partial: filtered rows plus an optional notice.
// The export links live in the partial so a filter swap rebuilds them.
type rosterData struct {
	Filter     string
	Rows       []rowVM
	Total      int
	Statuses   []models.FeeStatus
	Notice     *notice
	CSRF       string
	ExportXLSX string
	ExportPDF  string

	// missing is set when no snapshot was available to build the rows.
	missing bool
}

type pageData struct {
	viewdata.BaseVM
	Roster rosterData
}

func toRows(students []models.Student) []rowVM {
	rows := make([]rowVM, 0, len(students))
	for _, s := range students {
		st := s.DisplayStatus()
		rows = append(rows, rowVM{
			RollNumber: s.RollNumber.String(),
			FirstName:  s.FirstName,
			LastName:   s.LastName,
			Status:     st,
			Color:      st.Color(),
			StatusURL:  "/fees/" + url.PathEscape(s.RollNumber.String()) + "/status",
		})
	}
	return rows
}

func newRosterData(r *http.Request, snapshot []models.Student, filter string) rosterData {
	return rosterData{
		Filter:     filter,
		Rows:       toRows(models.FilterByRoll(snapshot, filter)),
		Total:      len(snapshot),
		Statuses:   models.FeeStatuses,
		CSRF:       csrf.Token(r),
		ExportXLSX: exportURL("/fees/export.xlsx", filter),
		ExportPDF:  exportURL("/fees/export.pdf", filter),
	}
}

// rollFilter is the roll filter exactly as typed; surrounding spaces are
// part of the substring.
func rollFilter(r *http.Request) string {
	return r.URL.Query().Get("roll")
}

// exportURL carries the current roll filter to an export endpoint.
func exportURL(path, filter string) string {
	if filter == "" {
		return path
	}
	return path + "?" + url.Values{"roll": {filter}}.Encode()
}

// ServeFees fetches the roster once, keeps it as the viewer's snapshot and
// renders it with the optional roll filter.
// GET /fees
func (h *Handler) ServeFees(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.API(), h.Log, "fees roster")
	defer cancel()

	snapshot, err := h.refreshRoster(ctx, u.UID)
	if err != nil {
		h.Log.Warn("roster unavailable", zap.String("endpoint", "/allstudents"), zap.Error(err))
	}

	filter := rollFilter(r)
	data := pageData{
		BaseVM: viewdata.NewBaseVM(r, "Fee Status", viewdata.NavFees),
		Roster: newRosterData(r, snapshot, filter),
	}
	if h.Sessions != nil {
		data.Flash = h.Sessions.PopFlash(w, r)
	}

	templates.Render(w, r, "fees_page", data)
}

// ServeRows re-renders the roster for a new filter from the saved snapshot.
// GET /fees/rows?roll=10
func (h *Handler) ServeRows(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.API(), h.Log, "fees rows")
	defer cancel()

	snapshot := h.snapshotOrRefetch(ctx, u.UID)
	templates.RenderSnippet(w, "fees_roster", newRosterData(r, snapshot, rollFilter(r)))
}
