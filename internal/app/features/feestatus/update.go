// internal/app/features/feestatus/update.go
package feestatus

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateStatus writes one student's fee status.
//
// On success the roster is fetched exactly once and re-rendered with a
// notice; the write response itself is never used as the new state. On
// failure nothing is refetched: the rows are re-rendered from the snapshot
// taken before the write and a blocking alert is raised. Without a snapshot
// the table on screen is left untouched.
//
// POST /fees/{roll}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/fees")
		return
	}

	roll := models.RollNumber(chi.URLParam(r, "roll"))
	raw := r.PostFormValue("feeStatus")
	status, ok := models.ParseFeeStatus(raw)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "invalid fee status", fmt.Errorf("feeStatus %q", raw), "Choose Paid, Unpaid or Partially Paid.", "/fees")
		return
	}
	filter := r.PostFormValue("filter")
	htmx := r.Header.Get("HX-Request") == "true"

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.API(), h.Log, "update fee status")
	defer cancel()

	data, err := h.applyStatus(ctx, r, u, roll, status, filter)
	if !htmx {
		msg := failureMessage(roll)
		if err == nil {
			msg = data.Notice.Message
		}
		h.redirectWithFlash(w, r, filter, msg)
		return
	}
	if err != nil {
		uierrors.TriggerAlert(w, failureMessage(roll))
		if data.missing {
			w.Header().Set("HX-Reswap", "none")
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	templates.RenderSnippet(w, "fees_roster", data)
}

// applyStatus performs the write and returns the roster to show next.
func (h *Handler) applyStatus(ctx context.Context, r *http.Request, u *auth.SessionUser, roll models.RollNumber, status models.FeeStatus, filter string) (rosterData, error) {
	prior, found, err := h.loadSnapshot(ctx, u.UID)
	if err != nil {
		h.Log.Warn("roster snapshot unavailable", zap.Error(err))
	}

	err = h.Fees.UpdateStatus(ctx, roll, status)
	h.Audit.FeeStatusChanged(ctx, r, auditlog.Actor{UID: u.UID, Email: u.Email}, roll.String(), string(status), err)
	if err != nil {
		h.Log.Warn("fee status update failed",
			zap.String("endpoint", "/updateFeeStatus"),
			zap.String("roll", roll.String()),
			zap.Error(err))
		data := newRosterData(r, prior, filter)
		data.missing = !found
		return data, err
	}

	roster, rerr := h.refreshRoster(ctx, u.UID)
	if rerr != nil {
		h.Log.Warn("roster refetch after update failed", zap.String("endpoint", "/allstudents"), zap.Error(rerr))
		roster = prior
	}

	data := newRosterData(r, roster, filter)
	data.Notice = &notice{
		Message:    fmt.Sprintf("Fee status for roll number %s updated to %s.", roll, status.Label()),
		DurationMS: NoticeDuration.Milliseconds(),
	}
	return data, nil
}

func failureMessage(roll models.RollNumber) string {
	return fmt.Sprintf("Failed to update fee status for roll number %s.", roll)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, filter, msg string) {
	if h.Sessions != nil {
		h.Sessions.AddFlash(w, r, msg)
	}
	dest := "/fees"
	if filter != "" {
		dest += "?" + url.Values{"roll": {filter}}.Encode()
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}
