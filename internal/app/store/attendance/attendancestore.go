// internal/app/store/attendance/attendancestore.go
package attendance

import (
	"context"
	"fmt"

	"github.com/dalemusser/studentportal/internal/app/system/portalapi"
	"github.com/dalemusser/studentportal/internal/domain/models"
)

// Store reads class attendance sheets from the school backend.
type Store struct {
	api *portalapi.Client
}

func New(api *portalapi.Client) *Store {
	return &Store{api: api}
}

type trackerRequest struct {
	ClassSheet string `json:"classSheet"`
}

type trackerResponse struct {
	Tracker []models.AttendanceEntry `json:"tracker"`
}

// Tracker returns the attendance series for one class
// (POST /attendance/tracker), in the order the backend sent it.
func (s *Store) Tracker(ctx context.Context, classSheet string) ([]models.AttendanceEntry, error) {
	var out trackerResponse
	if err := s.api.Post(ctx, "attendance", "/attendance/tracker", trackerRequest{ClassSheet: classSheet}, &out); err != nil {
		return nil, fmt.Errorf("attendance for %s: %w", classSheet, err)
	}
	if out.Tracker == nil {
		out.Tracker = []models.AttendanceEntry{}
	}
	return out.Tracker, nil
}
