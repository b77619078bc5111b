// internal/domain/models/student.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RollNumber is a student's roll number as the portal backend reports it.
// The backend is not consistent about the JSON type, so both numbers and
// strings are accepted.
type RollNumber string

// UnmarshalJSON accepts `123`, `"123"` and `null`.
func (r *RollNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RollNumber(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("roll number: %w", err)
	}
	*r = RollNumber(n.String())
	return nil
}

func (r RollNumber) String() string { return string(r) }

// Student is one row of the roster returned by GET /allstudents.
type Student struct {
	RollNumber RollNumber `json:"rollNumber"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	FeeStatus  FeeStatus  `json:"feeStatus"`
}

// DisplayStatus is the status shown in the roster. Students the backend
// has no status for are shown as unpaid.
func (s Student) DisplayStatus() FeeStatus {
	if s.FeeStatus == "" {
		return FeeUnpaid
	}
	return s.FeeStatus
}

// DashboardCounts are the three welcome-page counters.
type DashboardCounts struct {
	Students int
	Users    int
	Payments PaymentTally
}

// FilterByRoll returns the students whose roll number contains q, as typed.
// An empty q returns the roster unchanged.
func FilterByRoll(roster []Student, q string) []Student {
	if q == "" {
		return roster
	}
	out := make([]Student, 0, len(roster))
	for _, s := range roster {
		if strings.Contains(s.RollNumber.String(), q) {
			out = append(out, s)
		}
	}
	return out
}
