// internal/app/features/welcome/attendance.go
package welcome

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// State is the class attendance selector's state.
type State int

const (
	NoClassSelected State = iota
	Loading
	Populated
)

func (s State) String() string {
	switch s {
	case NoClassSelected:
		return "no-class-selected"
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	default:
		return "unknown"
	}
}

type attendanceView struct {
	State  State
	Class  models.ClassSheet
	Series []models.AttendanceEntry
	Chart  chart
}

// ServeAttendance answers a class button press with the chart partial.
// A response for a selection that has since been replaced is dropped.
// GET /welcome/attendance?class=Class3
func (h *Handler) ServeAttendance(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	name := query.Get(r, "class")
	class, ok := models.LookupClassSheet(name)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "unknown class sheet", fmt.Errorf("class %q", name), "Unknown class.", "/welcome")
		return
	}

	view, current := h.resolveAttendance(r.Context(), u.UID, class)
	if !current {
		w.Header().Set("HX-Reswap", "none")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	templates.RenderSnippet(w, "welcome_attendance_chart", view)
}

// resolveAttendance fetches the series for class under a fresh request
// generation. The second result is false when a newer selection by the
// same viewer has superseded this one.
func (h *Handler) resolveAttendance(ctx context.Context, uid string, class models.ClassSheet) (attendanceView, bool) {
	view := attendanceView{State: Populated, Class: class}

	fctx, ticket, err := h.Gens.Begin(ctx, viewstate.AttendanceKey(uid))
	if err != nil {
		// Without a generation the result cannot be ordered; show it anyway.
		h.Log.Warn("attendance generation unavailable", zap.Error(err))
		fctx = ctx
	} else {
		defer h.Gens.Finish(ticket)
	}

	fctx, cancel := timeouts.WithTimeout(fctx, timeouts.API(), h.Log, "attendance tracker")
	defer cancel()

	series, ferr := h.Attendance.Tracker(fctx, class.Name)

	if err == nil && !h.Gens.Current(ctx, ticket) {
		h.Log.Debug("attendance result superseded",
			zap.String("class", class.Name), zap.Int64("generation", ticket.Gen))
		return view, false
	}
	if ferr != nil {
		h.Log.Warn("attendance unavailable",
			zap.String("endpoint", "/attendance/tracker"), zap.String("class", class.Name), zap.Error(ferr))
		series = nil
	}

	view.Series = series
	view.Chart = buildChart(series)
	return view, true
}
