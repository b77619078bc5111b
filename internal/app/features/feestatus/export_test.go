package feestatus

import (
	"context"
	"net/http"

	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/domain/models"
)

// AppliedStatus is what the roster partial would show after an update.
type AppliedStatus struct {
	Rows       map[string]models.FeeStatus
	Notice     string
	DurationMS int64
}

func (h *Handler) ApplyStatus(ctx context.Context, r *http.Request, u *auth.SessionUser, roll models.RollNumber, status models.FeeStatus, filter string) (AppliedStatus, error) {
	data, err := h.applyStatus(ctx, r, u, roll, status, filter)
	out := AppliedStatus{Rows: make(map[string]models.FeeStatus)}
	for _, row := range data.Rows {
		out.Rows[row.RollNumber] = row.Status
	}
	if data.Notice != nil {
		out.Notice = data.Notice.Message
		out.DurationMS = data.Notice.DurationMS
	}
	return out, err
}

var (
	BuildWorkbook = buildWorkbook
	BuildPDF      = buildPDF
)
