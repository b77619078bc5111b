package registration

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dalemusser/studentportal/internal/app/system/auth"
)

// SubmitResult describes one submission for tests.
type SubmitResult struct {
	Outcome   string
	Values    map[string]string
	Errors    map[string]string
	Confirmed bool
}

func (h *Handler) SubmitForm(ctx context.Context, r *http.Request, u *auth.SessionUser, form url.Values) (SubmitResult, error) {
	d, errs, res, err := h.submit(ctx, r, u, form)
	names := map[outcome]string{outcomeInvalid: "invalid", outcomeFailed: "failed", outcomeRegistered: "registered"}
	return SubmitResult{
		Outcome:   names[res],
		Values:    d.Values,
		Errors:    errs,
		Confirmed: d.Confirmed != nil,
	}, err
}
