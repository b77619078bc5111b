package welcome_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	"github.com/dalemusser/studentportal/internal/app/features/welcome"
	attendancestore "github.com/dalemusser/studentportal/internal/app/store/attendance"
	feestore "github.com/dalemusser/studentportal/internal/app/store/fees"
	studentstore "github.com/dalemusser/studentportal/internal/app/store/students"
	userstore "github.com/dalemusser/studentportal/internal/app/store/users"
	"github.com/dalemusser/studentportal/internal/app/system/portalapi"
	"github.com/dalemusser/studentportal/internal/app/system/reqgen"
	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/dalemusser/studentportal/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, b *testutil.Backend) *welcome.Handler {
	t.Helper()
	api := portalapi.New(b.URL, 5*time.Second, nil, zap.NewNop())
	mem := viewstate.NewMemory(time.Minute)
	t.Cleanup(mem.Close)
	return welcome.NewHandler(
		studentstore.New(api),
		userstore.New(api),
		feestore.New(api),
		attendancestore.New(api),
		reqgen.New(mem),
		uierrors.NewErrorLogger(zap.NewNop()),
		zap.NewNop(),
	)
}

func stubCounters(b *testutil.Backend) {
	b.JSON("GET", "/studentcount", http.StatusOK, map[string]int{"studentCount": 42})
	b.JSON("GET", "/getUsers", http.StatusOK, []map[string]string{{"name": "a"}, {"name": "b"}, {"name": "c"}})
	b.JSON("GET", "/feestatuscount", http.StatusOK, map[string]int{"paid": 20, "unpaid": 15, "partiallyPaid": 7})
}

func TestLoadCounts_AllSucceed(t *testing.T) {
	b := testutil.NewBackend(t)
	stubCounters(b)
	h := newTestHandler(t, b)

	got := h.LoadCounts(context.Background())

	want := models.DashboardCounts{
		Students: 42,
		Users:    3,
		Payments: models.PaymentTally{Paid: 20, Unpaid: 15, PartiallyPaid: 7},
	}
	if got != want {
		t.Errorf("LoadCounts = %+v, want %+v", got, want)
	}
	if b.TotalHits() != 3 {
		t.Errorf("expected exactly 3 backend calls, got %d", b.TotalHits())
	}
}

func TestLoadCounts_FailureIsIsolated(t *testing.T) {
	b := testutil.NewBackend(t)
	stubCounters(b)
	b.Fail("GET", "/getUsers", http.StatusInternalServerError)
	h := newTestHandler(t, b)

	got := h.LoadCounts(context.Background())

	if got.Users != 0 {
		t.Errorf("Users: got %d, want 0 after failure", got.Users)
	}
	if got.Students != 42 {
		t.Errorf("Students: got %d, want 42", got.Students)
	}
	if got.Payments.Paid != 20 || got.Payments.PartiallyPaid != 7 {
		t.Errorf("Payments not populated: %+v", got.Payments)
	}
}

func TestLoadCounts_MissingTallyFieldsAreZero(t *testing.T) {
	b := testutil.NewBackend(t)
	stubCounters(b)
	b.JSON("GET", "/feestatuscount", http.StatusOK, map[string]int{"paid": 4})
	h := newTestHandler(t, b)

	got := h.LoadCounts(context.Background())
	if got.Payments != (models.PaymentTally{Paid: 4}) {
		t.Errorf("Payments: got %+v", got.Payments)
	}
}

func TestServeAttendance_UnknownClass(t *testing.T) {
	b := testutil.NewBackend(t)
	h := newTestHandler(t, b)

	req := testutil.NewAuthenticatedRequest("GET", "/welcome/attendance?class=Class11", testutil.StaffUser())
	req = testutil.NewHTMXRequest(req, "chart-area")
	rec := httptest.NewRecorder()

	h.ServeAttendance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if b.TotalHits() != 0 {
		t.Errorf("unknown class must not reach the backend, got %d calls", b.TotalHits())
	}
}

func TestServeAttendance_LatestSelectionWins(t *testing.T) {
	b := testutil.NewBackend(t)

	class3Started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	b.Handle("POST", "/attendance/tracker", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ClassSheet string `json:"classSheet"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body.ClassSheet == "Class3" {
			close(class3Started)
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tracker": []models.AttendanceEntry{{StudentName: body.ClassSheet + "-kid", AttendancePercentage: 90}},
		})
	})

	h := newTestHandler(t, b)
	user := testutil.StaffUser()

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		req := testutil.NewAuthenticatedRequest("GET", "/welcome/attendance?class=Class3", user)
		testutil.RenderSafely(func() { h.ServeAttendance(first, testutil.NewHTMXRequest(req, "chart-area")) })
	}()

	select {
	case <-class3Started:
	case <-time.After(5 * time.Second):
		t.Fatal("Class3 request never reached the backend")
	}

	series, _, current := h.ResolveAttendance(context.Background(), user.UID, models.ClassSheets[6])
	if !current {
		t.Fatal("latest selection (Class7) should be current")
	}
	if len(series) != 1 || series[0].StudentName != "Class7-kid" {
		t.Errorf("Class7 series: got %+v", series)
	}

	wg.Wait()

	if first.Code != http.StatusNoContent {
		t.Errorf("superseded Class3 response: got status %d, want %d", first.Code, http.StatusNoContent)
	}
	if first.Header().Get("HX-Reswap") != "none" {
		t.Error("superseded response should not swap the chart")
	}
}

func TestResolveAttendance_FailureShowsNoData(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Fail("POST", "/attendance/tracker", http.StatusInternalServerError)
	h := newTestHandler(t, b)

	class, _ := models.LookupClassSheet("Class2")
	series, empty, current := h.ResolveAttendance(context.Background(), "uid-1", class)

	if !current {
		t.Error("only selection should be current")
	}
	if len(series) != 0 || !empty {
		t.Errorf("failed fetch should leave the chart empty, got %d entries", len(series))
	}
}

func TestRoutes_RequireSignedIn(t *testing.T) {
	b := testutil.NewBackend(t)
	stubCounters(b)
	h := newTestHandler(t, b)
	sm := testutil.NewSessionManager(t, testutil.NewFakeVerifier())
	router := welcome.Routes(h, sm)

	for _, path := range []string{"/", "/attendance?class=Class1"} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Errorf("%s: status got %d, want %d", path, rec.Code, http.StatusSeeOther)
		}
	}
	if b.TotalHits() != 0 {
		t.Errorf("guarded pages must not fetch without a session, got %d calls", b.TotalHits())
	}
}
