// internal/app/features/registration/handler.go
package registration

import (
	"context"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	studentstore "github.com/dalemusser/studentportal/internal/app/store/students"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/app/system/viewdata"
	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

const failedMessage = "Registration failed!"

type Handler struct {
	Students *studentstore.Store
	State    viewstate.Store
	Audit    *auditlog.Logger

	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	parser *formParser
}

func NewHandler(students *studentstore.Store, state viewstate.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Students: students,
		State:    state,
		Audit:    audit,
		Log:      logger,
		ErrLog:   errLog,
		parser:   newFormParser(),
	}
}

type fieldVM struct {
	field
	Value string
	Error string
}

// formData is the form partial. Confirmed opens the success dialog.
type formData struct {
	Fields    []fieldVM
	Confirmed *models.Registration
	Alert     string
	CSRF      string
	MinYear   int
	MaxYear   int
}

type pageData struct {
	viewdata.BaseVM
	Form formData
}

func newFormData(r *http.Request, d draft, errs map[string]string) formData {
	fd := formData{
		Confirmed: d.Confirmed,
		CSRF:      csrf.Token(r),
		MinYear:   models.MinAdmissionYear,
		MaxYear:   models.MaxAdmissionYear,
	}
	for _, f := range fields {
		fd.Fields = append(fd.Fields, fieldVM{field: f, Value: d.Values[f.Name], Error: errs[f.Name]})
	}
	if msg, ok := errs["_form"]; ok {
		fd.Alert = msg
	}
	return fd
}

// outcome of one submission.
type outcome int

const (
	outcomeInvalid outcome = iota
	outcomeFailed
	outcomeRegistered
)

// ServeForm shows the registration form, restoring a pending draft.
// GET /register
func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "registration draft")
	defer cancel()

	d := h.loadDraft(ctx, u.UID)
	templates.Render(w, r, "registration_page", pageData{
		BaseVM: viewdata.NewBaseVM(r, "Register Student", viewdata.NavRegister),
		Form:   newFormData(r, d, nil),
	})
}

// Submit validates and sends a registration.
// POST /register
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/register")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.API(), h.Log, "register student")
	defer cancel()

	d, errs, res, err := h.submit(ctx, r, u, r.PostForm)
	htmx := r.Header.Get("HX-Request") == "true"

	switch res {
	case outcomeInvalid:
		h.render(w, r, htmx, http.StatusUnprocessableEntity, newFormData(r, d, errs))
	case outcomeFailed:
		if htmx {
			// Leave the form as the user typed it.
			h.ErrLog.LogBackendError(w, r, "register student failed", err, failedMessage, "/register")
			return
		}
		h.Log.Warn("register student failed", zap.Error(err))
		fd := newFormData(r, d, nil)
		fd.Alert = failedMessage
		h.render(w, r, false, http.StatusBadGateway, fd)
	default:
		h.render(w, r, htmx, http.StatusOK, newFormData(r, d, nil))
	}
}

// Dismiss closes the confirmation dialog and clears the form.
// POST /register/dismiss
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "registration dismiss")
	defer cancel()

	if err := h.State.Delete(ctx, viewstate.RegistrationKey(u.UID)); err != nil {
		h.Log.Warn("registration draft not cleared", zap.Error(err))
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/register")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

// submit runs one registration attempt. The draft is saved whatever the
// outcome so the form stays populated; it is cleared only by Dismiss.
func (h *Handler) submit(ctx context.Context, r *http.Request, u *auth.SessionUser, form url.Values) (draft, map[string]string, outcome, error) {
	vals := h.parser.values(form)
	d := draft{Values: vals}

	reg, errs := h.parser.parse(vals)
	if len(errs) > 0 {
		h.saveDraft(ctx, u.UID, d)
		return d, errs, outcomeInvalid, nil
	}

	err := h.Students.Register(ctx, reg)
	h.Audit.StudentRegistered(ctx, r, auditlog.Actor{UID: u.UID, Email: u.Email},
		reg.FirstName+" "+reg.LastName, reg.YearOfAdmission, err)
	if err != nil {
		h.saveDraft(ctx, u.UID, d)
		return d, nil, outcomeFailed, err
	}

	d.Confirmed = &reg
	h.saveDraft(ctx, u.UID, d)
	return d, nil, outcomeRegistered, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, htmx bool, status int, fd formData) {
	if htmx {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.RenderSnippet(w, "registration_form", fd)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "registration_page", pageData{
		BaseVM: viewdata.NewBaseVM(r, "Register Student", viewdata.NavRegister),
		Form:   fd,
	})
}

func (h *Handler) loadDraft(ctx context.Context, uid string) draft {
	var d draft
	found, err := h.State.Load(ctx, viewstate.RegistrationKey(uid), &d)
	if err != nil {
		h.Log.Warn("registration draft unavailable", zap.Error(err))
	}
	if !found || d.Values == nil {
		d = draft{Values: map[string]string{}}
	}
	return d
}

func (h *Handler) saveDraft(ctx context.Context, uid string, d draft) {
	if err := h.State.Save(ctx, viewstate.RegistrationKey(uid), d); err != nil {
		h.Log.Warn("registration draft not saved", zap.Error(err))
	}
}
