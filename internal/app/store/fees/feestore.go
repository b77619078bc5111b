// internal/app/store/fees/feestore.go
package fees

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dalemusser/studentportal/internal/app/system/portalapi"
	"github.com/dalemusser/studentportal/internal/domain/models"
)

// ErrNoRollNumber is returned when an update names no student.
var ErrNoRollNumber = errors.New("fees: roll number is required")

// Store reads and updates fee payment status on the school backend.
type Store struct {
	api *portalapi.Client
}

func New(api *portalapi.Client) *Store {
	return &Store{api: api}
}

// Counts returns the payment tally (GET /feestatuscount).
func (s *Store) Counts(ctx context.Context) (models.PaymentTally, error) {
	var out models.PaymentTally
	if err := s.api.Get(ctx, "feestatuscount", "/feestatuscount", &out); err != nil {
		return models.PaymentTally{}, fmt.Errorf("fee status counts: %w", err)
	}
	return out, nil
}

type updateBody struct {
	FeeStatus models.FeeStatus `json:"feeStatus"`
}

// UpdateStatus sets one student's fee status
// (PUT /updateFeeStatus/{rollNumber}). The response body is ignored;
// callers refetch the roster to observe the change.
func (s *Store) UpdateStatus(ctx context.Context, roll models.RollNumber, status models.FeeStatus) error {
	if roll == "" {
		return ErrNoRollNumber
	}
	path := "/updateFeeStatus/" + url.PathEscape(roll.String())
	if err := s.api.Put(ctx, "updateFeeStatus", path, updateBody{FeeStatus: status}, nil); err != nil {
		return fmt.Errorf("update fee status for %s: %w", roll, err)
	}
	return nil
}
