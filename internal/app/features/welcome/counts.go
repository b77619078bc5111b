// internal/app/features/welcome/counts.go
package welcome

import (
	"context"
	"sync"

	"github.com/dalemusser/studentportal/internal/domain/models"
	"go.uber.org/zap"
)

// loadCounts fetches the three counters concurrently. Each fetch writes its
// own field; a failed fetch is logged and leaves that counter at zero.
func (h *Handler) loadCounts(ctx context.Context) models.DashboardCounts {
	var (
		out models.DashboardCounts
		wg  sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		n, err := h.Students.Count(ctx)
		if err != nil {
			h.Log.Warn("student count unavailable", zap.String("endpoint", "/studentcount"), zap.Error(err))
			return
		}
		out.Students = n
	}()
	go func() {
		defer wg.Done()
		n, err := h.Users.Count(ctx)
		if err != nil {
			h.Log.Warn("user count unavailable", zap.String("endpoint", "/getUsers"), zap.Error(err))
			return
		}
		out.Users = n
	}()
	go func() {
		defer wg.Done()
		t, err := h.Fees.Counts(ctx)
		if err != nil {
			h.Log.Warn("fee status counts unavailable", zap.String("endpoint", "/feestatuscount"), zap.Error(err))
			return
		}
		out.Payments = t
	}()
	wg.Wait()

	return out
}
