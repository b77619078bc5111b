package auditlog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/studentportal/internal/app/features/auditlog"
	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/testutil"
	"go.uber.org/zap"
)

type fakeEvents struct {
	events []audit.Event
	err    error

	last  audit.QueryFilter
	calls int
}

func (f *fakeEvents) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	f.calls++
	f.last = filter
	return f.events, f.err
}

func (f *fakeEvents) CountByFilter(context.Context, audit.QueryFilter) (int64, error) {
	return int64(len(f.events)), f.err
}

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest("GET", "/audit?category=admin&event_type=fee_status_changed&start_date=2026-03-01&end_date=2026-03-02&page=3", nil)
	filter, page := auditlog.ParseFilter(req)

	if page != 3 {
		t.Errorf("page: got %d, want 3", page)
	}
	if filter.Category != audit.CategoryAdmin || filter.EventType != audit.EventFeeStatusChanged {
		t.Errorf("filter: got %q/%q", filter.Category, filter.EventType)
	}
	if filter.Offset != 100 || filter.Limit != 50 {
		t.Errorf("offset/limit: got %d/%d, want 100/50", filter.Offset, filter.Limit)
	}
	if filter.StartTime == nil || !filter.StartTime.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start: got %v", filter.StartTime)
	}
	if filter.EndTime == nil || !filter.EndTime.Before(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) ||
		filter.EndTime.Before(time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end should be the last instant of 2026-03-02, got %v", filter.EndTime)
	}
}

func TestParseFilter_IgnoresUnknownValues(t *testing.T) {
	req := httptest.NewRequest("GET", "/audit?category=security&event_type=logout&start_date=yesterday&page=-2", nil)
	filter, page := auditlog.ParseFilter(req)

	if page != 1 {
		t.Errorf("page: got %d, want 1", page)
	}
	if filter.Category != "" {
		t.Errorf("unknown category should be dropped, got %q", filter.Category)
	}
	if filter.EventType != audit.EventLogout {
		t.Errorf("event type valid across all categories should be kept, got %q", filter.EventType)
	}
	if filter.StartTime != nil {
		t.Error("malformed start date should be ignored")
	}
}

func TestParseFilter_EventTypeOutsideCategory(t *testing.T) {
	req := httptest.NewRequest("GET", "/audit?category=auth&event_type=roster_exported", nil)
	filter, _ := auditlog.ParseFilter(req)
	if filter.EventType != "" {
		t.Errorf("admin event under auth category should be dropped, got %q", filter.EventType)
	}
}

func TestPages(t *testing.T) {
	tests := []struct {
		page                int
		total               int64
		totalPages, prev, n int
		hasPrev, hasNext    bool
	}{
		{1, 0, 1, 1, 1, false, false},
		{1, 50, 1, 1, 1, false, false},
		{1, 51, 2, 1, 2, false, true},
		{2, 120, 3, 1, 3, true, true},
		{3, 120, 3, 2, 3, true, false},
	}
	for _, tt := range tests {
		totalPages, prev, next, hasPrev, hasNext := auditlog.Pages(tt.page, tt.total)
		if totalPages != tt.totalPages || prev != tt.prev || next != tt.n || hasPrev != tt.hasPrev || hasNext != tt.hasNext {
			t.Errorf("page %d of %d: got (%d,%d,%d,%v,%v)", tt.page, tt.total, totalPages, prev, next, hasPrev, hasNext)
		}
	}
}

func TestServeList_QueriesStore(t *testing.T) {
	events := &fakeEvents{events: []audit.Event{{EventType: audit.EventLogout, ActorEmail: "staff@example.edu", Success: true}}}
	h := auditlog.NewHandler(events, uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())

	req := testutil.NewAuthenticatedRequest("GET", "/audit?category=auth", testutil.StaffUser())
	testutil.RenderSafely(func() { h.ServeList(httptest.NewRecorder(), req) })

	if events.calls != 1 {
		t.Fatalf("Query calls: got %d, want 1", events.calls)
	}
	if events.last.Category != audit.CategoryAuth {
		t.Errorf("category: got %q", events.last.Category)
	}
}

func TestServeList_StoreError(t *testing.T) {
	events := &fakeEvents{err: errors.New("mongo down")}
	h := auditlog.NewHandler(events, uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())

	req := testutil.NewAuthenticatedRequest("GET", "/audit", testutil.StaffUser())
	rec := httptest.NewRecorder()
	testutil.RenderSafely(func() { h.ServeList(rec, req) })

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestRoutes_RequireSignIn(t *testing.T) {
	events := &fakeEvents{}
	h := auditlog.NewHandler(events, uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
	sm := testutil.NewSessionManager(t, testutil.NewFakeVerifier())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "text/html")
	auditlog.Routes(h, sm).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if events.calls != 0 {
		t.Error("store must not be queried without a session")
	}
}
