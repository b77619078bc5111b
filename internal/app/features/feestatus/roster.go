// internal/app/features/feestatus/roster.go
package feestatus

import (
	"context"
	"fmt"

	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"go.uber.org/zap"
)

// refreshRoster fetches the roster and replaces the viewer's snapshot.
// On failure the old snapshot is left alone and an empty roster returned.
func (h *Handler) refreshRoster(ctx context.Context, uid string) ([]models.Student, error) {
	roster, err := h.Students.List(ctx)
	if err != nil {
		return []models.Student{}, err
	}
	if err := h.State.Save(ctx, viewstate.RosterKey(uid), roster); err != nil {
		h.Log.Warn("roster snapshot not saved", zap.Error(err))
	}
	return roster, nil
}

// loadSnapshot returns the viewer's saved roster.
func (h *Handler) loadSnapshot(ctx context.Context, uid string) ([]models.Student, bool, error) {
	var roster []models.Student
	found, err := h.State.Load(ctx, viewstate.RosterKey(uid), &roster)
	h.Metrics.RecordViewStateLookup("roster", found && err == nil)
	if err != nil {
		return nil, false, fmt.Errorf("load roster snapshot: %w", err)
	}
	return roster, found, nil
}

// snapshotOrRefetch returns the saved snapshot, fetching the roster once
// when it has expired.
func (h *Handler) snapshotOrRefetch(ctx context.Context, uid string) []models.Student {
	roster, found, err := h.loadSnapshot(ctx, uid)
	if err != nil {
		h.Log.Warn("roster snapshot unavailable", zap.Error(err))
	}
	if found {
		return roster
	}
	roster, err = h.refreshRoster(ctx, uid)
	if err != nil {
		h.Log.Warn("roster unavailable", zap.String("endpoint", "/allstudents"), zap.Error(err))
	}
	return roster
}
