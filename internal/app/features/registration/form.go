// internal/app/features/registration/form.go
package registration

import (
	"errors"
	"html"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

type field struct {
	Name  string // form and JSON name
	Label string
	Type  string
	Wide  bool
}

// fields is the form layout, in display order.
var fields = []field{
	{Name: "firstName", Label: "First Name", Type: "text"},
	{Name: "lastName", Label: "Last Name", Type: "text"},
	{Name: "gender", Label: "Gender", Type: "text"},
	{Name: "dob", Label: "Date of Birth", Type: "date"},
	{Name: "address", Label: "Address", Type: "text", Wide: true},
	{Name: "parentName", Label: "Parent Name", Type: "text"},
	{Name: "parentEmail", Label: "Parent Email", Type: "email"},
	{Name: "parentContact", Label: "Parent Contact", Type: "text"},
	{Name: "cast", Label: "Cast", Type: "text"},
	{Name: "region", Label: "Region", Type: "text"},
	{Name: "yearOfAdmission", Label: "Year of Admission", Type: "number"},
}

// draft is the registration as typed, kept until the confirmation dialog
// is dismissed. Confirmed is set once the backend accepted it.
type draft struct {
	Values    map[string]string    `json:"values"`
	Confirmed *models.Registration `json:"confirmed,omitempty"`
}

// formParser sanitizes and validates submitted registrations.
type formParser struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
}

func newFormParser() *formParser {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &formParser{validate: v, policy: bluemonday.StrictPolicy()}
}

// values reads every known field from form with markup stripped. The
// sanitizer's entity escaping is undone; templates escape on output.
func (p *formParser) values(form url.Values) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(form.Get(f.Name))))
	}
	return out
}

// parse builds a Registration from sanitized values. The returned map
// holds one message per invalid field and is empty when reg is valid.
func (p *formParser) parse(vals map[string]string) (models.Registration, map[string]string) {
	errs := make(map[string]string)

	reg := models.Registration{
		FirstName:     vals["firstName"],
		LastName:      vals["lastName"],
		Gender:        vals["gender"],
		DOB:           vals["dob"],
		Address:       vals["address"],
		ParentName:    vals["parentName"],
		ParentEmail:   vals["parentEmail"],
		ParentContact: vals["parentContact"],
		Cast:          vals["cast"],
		Region:        vals["region"],
	}
	if y := vals["yearOfAdmission"]; y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			errs["yearOfAdmission"] = "Year of admission must be a whole number."
		}
		reg.YearOfAdmission = n
	}

	if err := p.validate.Struct(reg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["_form"] = "The form could not be checked."
			return reg, errs
		}
		for _, fe := range verrs {
			if _, seen := errs[fe.Field()]; seen {
				continue
			}
			errs[fe.Field()] = message(fe)
		}
	}
	return reg, errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min", "max":
		return "Year of admission must be between " +
			strconv.Itoa(models.MinAdmissionYear) + " and " + strconv.Itoa(models.MaxAdmissionYear) + "."
	default:
		return "This value is not valid."
	}
}
