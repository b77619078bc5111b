// internal/domain/models/registration.go
package models

// Admission year bounds accepted by the registration form (inclusive).
const (
	MinAdmissionYear = 1900
	MaxAdmissionYear = 2100
)

// Registration is the body of POST /register. Every field is required;
// apart from the admission year bounds no format checks are applied.
type Registration struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Gender          string `json:"gender" validate:"required"`
	DOB             string `json:"dob" validate:"required"`
	Address         string `json:"address" validate:"required"`
	ParentName      string `json:"parentName" validate:"required"`
	ParentEmail     string `json:"parentEmail" validate:"required"`
	ParentContact   string `json:"parentContact" validate:"required"`
	Cast            string `json:"cast" validate:"required"`
	Region          string `json:"region" validate:"required"`
	YearOfAdmission int    `json:"yearOfAdmission" validate:"required,min=1900,max=2100"`
}
