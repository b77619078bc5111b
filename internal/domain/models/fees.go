// internal/domain/models/fees.go
package models

import "strings"

// FeeStatus is the payment state the backend keeps for a student.
type FeeStatus string

const (
	FeePaid          FeeStatus = "PAID"
	FeeUnpaid        FeeStatus = "UNPAID"
	FeePartiallyPaid FeeStatus = "PARTIALLY PAID"
)

// FeeStatuses lists the selectable statuses in display order.
var FeeStatuses = []FeeStatus{FeePaid, FeeUnpaid, FeePartiallyPaid}

// ParseFeeStatus maps a submitted value onto one of the known statuses.
func ParseFeeStatus(s string) (FeeStatus, bool) {
	v := FeeStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, fs := range FeeStatuses {
		if v == fs {
			return fs, true
		}
	}
	return "", false
}

// Label is the human-readable form used in menus.
func (s FeeStatus) Label() string {
	switch s {
	case FeePaid:
		return "Paid"
	case FeeUnpaid:
		return "Unpaid"
	case FeePartiallyPaid:
		return "Partially Paid"
	default:
		return string(s)
	}
}

// Color is the text colour the roster uses for the status.
func (s FeeStatus) Color() string {
	switch s {
	case FeePaid:
		return "green"
	case FeeUnpaid:
		return "red"
	case FeePartiallyPaid:
		return "orange"
	default:
		return "black"
	}
}

// PaymentTally is the response of GET /feestatuscount.
// Fields the backend omits decode as zero.
type PaymentTally struct {
	Paid          int `json:"paid"`
	Unpaid        int `json:"unpaid"`
	PartiallyPaid int `json:"partiallyPaid"`
}

// Total is the number of students with any status.
func (t PaymentTally) Total() int {
	return t.Paid + t.Unpaid + t.PartiallyPaid
}
