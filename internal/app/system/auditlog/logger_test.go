package auditlog_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *memSink) Log(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func newLogger(cfg auditlog.Config) (*auditlog.Logger, *memSink, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	sink := &memSink{}
	return auditlog.New(sink, zap.New(core), cfg), sink, logs
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(context.Background(), audit.Event{EventType: "test"})
	logger.LoginSuccess(context.Background(), req, auditlog.Actor{UID: "u"}, "password")
	logger.Logout(context.Background(), req, auditlog.Actor{UID: "u"})
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		dest     string
		wantDB   int
		wantLogs int
	}{
		{auditlog.DestAll, 1, 1},
		{auditlog.DestDB, 1, 0},
		{auditlog.DestLog, 0, 1},
		{auditlog.DestOff, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.dest, func(t *testing.T) {
			l, sink, logs := newLogger(auditlog.Config{Auth: tc.dest, Admin: auditlog.DestOff})
			l.LoginSuccess(context.Background(), httptest.NewRequest("POST", "/login", nil),
				auditlog.Actor{UID: "uid-1", Email: "staff@test.com"}, "password")

			if len(sink.events) != tc.wantDB {
				t.Errorf("db events: got %d, want %d", len(sink.events), tc.wantDB)
			}
			if logs.Len() != tc.wantLogs {
				t.Errorf("zap entries: got %d, want %d", logs.Len(), tc.wantLogs)
			}
		})
	}
}

func TestLogger_NilSinkFallsBackToZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.DestAll, Admin: auditlog.DestDB})

	req := httptest.NewRequest("POST", "/fees/10/status", nil)
	l.FeeStatusChanged(context.Background(), req, auditlog.Actor{UID: "u"}, "10", "PAID", nil)
	l.Logout(context.Background(), req, auditlog.Actor{UID: "u"})

	if logs.Len() != 1 {
		t.Errorf("expected only the auth event on zap, got %d entries", logs.Len())
	}
}

func TestLogger_FeeStatusChangedFailure(t *testing.T) {
	l, sink, _ := newLogger(auditlog.Config{Auth: auditlog.DestOff, Admin: auditlog.DestDB})
	req := httptest.NewRequest("POST", "/fees/10/status", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	l.FeeStatusChanged(context.Background(), req, auditlog.Actor{UID: "u", Email: "s@t.c"}, "10", "PAID", errors.New("status 500"))

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	e := sink.events[0]
	if e.Success || e.FailureReason != "status 500" {
		t.Errorf("failure not recorded: %+v", e)
	}
	if e.IP != "203.0.113.7" || e.Details["roll_number"] != "10" || e.Details["fee_status"] != "PAID" {
		t.Errorf("unexpected event fields: %+v", e)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (auditlog.Config{Auth: "all", Admin: "off"}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := (auditlog.Config{Auth: "everything", Admin: "off"}).Validate(); err == nil {
		t.Error("invalid destination accepted")
	}
}

func TestLogger_MongoSink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DestDB, Admin: auditlog.DestDB})
	l.RosterExported(ctx, httptest.NewRequest("GET", "/fees/export.xlsx", nil), auditlog.Actor{UID: "uid-x"}, "xlsx", 5)

	events, err := store.GetByActor(ctx, "uid-x", 10)
	if err != nil {
		t.Fatalf("GetByActor failed: %v", err)
	}
	if len(events) != 1 || events[0].Details["format"] != "xlsx" {
		t.Errorf("unexpected events %+v", events)
	}
}
