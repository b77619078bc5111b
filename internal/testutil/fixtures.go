package testutil

import (
	"context"
	"net/http"

	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// SampleRoster returns a small roster with mixed fee statuses. Roll numbers
// 10, 110 and 210 all contain "10".
func SampleRoster() []models.Student {
	return []models.Student{
		{RollNumber: "1", FirstName: "Asha", LastName: "Rao", FeeStatus: models.FeePaid},
		{RollNumber: "10", FirstName: "Bilal", LastName: "Khan", FeeStatus: models.FeeUnpaid},
		{RollNumber: "23", FirstName: "Chen", LastName: "Li", FeeStatus: models.FeePartiallyPaid},
		{RollNumber: "110", FirstName: "Dara", LastName: "Singh", FeeStatus: ""},
		{RollNumber: "210", FirstName: "Esi", LastName: "Mensah", FeeStatus: models.FeePaid},
	}
}

// SampleRegistration returns a registration that passes validation.
func SampleRegistration() models.Registration {
	return models.Registration{
		FirstName:       "Farah",
		LastName:        "Ahmed",
		Gender:          "Female",
		DOB:             "2012-04-09",
		Address:         "12 Lake Road",
		ParentName:      "Imran Ahmed",
		ParentEmail:     "imran@example.com",
		ParentContact:   "555-0101",
		Cast:            "General",
		Region:          "North",
		YearOfAdmission: 2024,
	}
}
