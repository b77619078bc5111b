package welcome

import (
	"context"

	"github.com/dalemusser/studentportal/internal/domain/models"
)

// Test hooks for unexported helpers.

func (h *Handler) LoadCounts(ctx context.Context) models.DashboardCounts {
	return h.loadCounts(ctx)
}

// ResolveAttendance returns the series, whether it was empty, and whether
// the result was still current.
func (h *Handler) ResolveAttendance(ctx context.Context, uid string, class models.ClassSheet) ([]models.AttendanceEntry, bool, bool) {
	v, ok := h.resolveAttendance(ctx, uid, class)
	return v.Series, v.Chart.Empty, ok
}

type Bar = bar

func BuildChart(series []models.AttendanceEntry) (bars []Bar, empty bool, baseY float64) {
	c := buildChart(series)
	return c.Bars, c.Empty, c.BaseY
}
