package employees

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
	"github.com/odyssey-erp/company-manager/internal/auth"
	"github.com/odyssey-erp/company-manager/internal/forms"
	"github.com/odyssey-erp/company-manager/internal/listing"
	"github.com/odyssey-erp/company-manager/internal/shared"
	"github.com/odyssey-erp/company-manager/internal/view"
)

const (
	listPath = "/employees"
	viewName = "employees"
	// optionsKey holds the company select while a modal is open, so a
	// rejected submit can redraw it without another backend call.
	optionsKey = "employees:form:companies"
)

// Handler serves the employees list, its create/edit modal and deletes.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	lifecycle *auth.Lifecycle
	lists     listing.Store
	pageSize  int
	forms     *forms.Controller[*Draft]
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, lifecycle *auth.Lifecycle, lists listing.Store, pageSize int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		lifecycle: lifecycle,
		lists:     lists,
		pageSize:  pageSize,
		forms:     forms.NewController[*Draft](service),
	}
}

// MountRoutes registers employee routes. Callers gate them with auth.RequireSession.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/new", h.New)
	r.Get("/{id}", h.Show)
	r.Post("/{id}", h.Update)
	r.Get("/{id}/edit", h.Edit)
	r.Post("/{id}/delete", h.Delete)
}

type modal struct {
	Title     string
	Action    string
	Draft     *Draft
	Companies []CompanyOption
	Errors    map[string]string
	Message   string
}

type listPage struct {
	List  listing.Snapshot[Employee]
	Pager view.Pager
	Modal *modal
}

// List renders one page of employees.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Delete(optionsKey)
	}
	snap, err := h.list(r).Show(r.Context(), listing.Request{Page: page, Limit: limit})
	if err != nil {
		h.logger.Error("list employees failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if apiclient.IsUnauthorized(snap.Err) {
		h.lifecycle.Expire(w, r, h.logger)
		return
	}
	h.renderList(w, r, snap, nil, http.StatusOK)
}

// New opens the create modal with the company options.
func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.CompanyOptions(r.Context(), bearer(r))
	if err != nil {
		h.fail(w, r, err, "load company options failed")
		return
	}
	h.rememberOptions(r, options)
	h.renderModal(w, r, &modal{Title: "Add Employee", Action: listPath, Draft: &Draft{}, Companies: options}, http.StatusOK)
}

// Edit opens the edit modal. The employee and the company options load
// concurrently; either failure aborts both.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid employee ID", http.StatusBadRequest)
		return
	}
	token := bearer(r)

	var (
		employee Employee
		options  []CompanyOption
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		employee, err = h.service.Get(ctx, token, id)
		return err
	})
	g.Go(func() error {
		var err error
		options, err = h.service.CompanyOptions(ctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, err, "load employee form failed")
		return
	}

	h.rememberOptions(r, options)
	h.renderModal(w, r, &modal{Title: "Edit Employee", Action: itemPath(employee.ID), Draft: DraftFrom(employee), Companies: options}, http.StatusOK)
}

// Show renders a single employee.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid employee ID", http.StatusBadRequest)
		return
	}
	employee, err := h.service.Get(r.Context(), bearer(r), id)
	if err != nil {
		h.fail(w, r, err, "get employee failed")
		return
	}
	h.render(w, r, "pages/employee_detail.html", map[string]any{"Employee": employee}, http.StatusOK)
}

// Create submits a new employee draft.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, 0, "Add Employee", listPath, "Employee created successfully")
}

// Update submits an edited employee draft.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid employee ID", http.StatusBadRequest)
		return
	}
	h.submit(w, r, id, "Edit Employee", itemPath(id), "Employee updated successfully")
}

// Delete removes an employee and moves the list to a page that still exists.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid employee ID", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), bearer(r), id); err != nil {
		if apiclient.IsUnauthorized(err) {
			h.lifecycle.Expire(w, r, h.logger)
			return
		}
		h.logger.Error("delete employee failed", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, listPath, shared.FlashError, shared.UserSafeMessage(err))
		return
	}

	target, err := h.list(r).AfterDelete(r.Context())
	if err != nil {
		h.logger.Error("recompute employees page", slog.Any("error", err))
	}
	h.redirectWithFlash(w, r, listPath+"?page="+strconv.Itoa(target), shared.FlashSuccess, "Employee deleted successfully")
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, id int64, title, action, success string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	draft := &Draft{}
	malformed, err := h.forms.Decode(r.PostForm, draft)
	if err != nil {
		h.logger.Warn("decode employee form", slog.Any("error", err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	draft.ID = id
	if len(malformed) > 0 {
		errs := h.forms.Validate(draft)
		if errs == nil {
			errs = make(map[string]string, len(malformed))
		}
		for field, msg := range malformed {
			errs[field] = msg
		}
		h.renderModal(w, r, &modal{
			Title:     title,
			Action:    action,
			Draft:     draft,
			Companies: h.recallOptions(r),
			Errors:    errs,
			Message:   forms.InvalidMessage,
		}, http.StatusUnprocessableEntity)
		return
	}

	result := h.forms.Submit(r.Context(), bearer(r), draft)
	if result.Unauthorized {
		h.lifecycle.Expire(w, r, h.logger)
		return
	}
	if !result.Saved {
		status := http.StatusUnprocessableEntity
		if result.Err != nil {
			status = http.StatusBadRequest
			h.logger.Warn("save employee failed", slog.Any("error", result.Err), slog.Int64("id", id))
		}
		h.renderModal(w, r, &modal{
			Title:     title,
			Action:    action,
			Draft:     draft,
			Companies: h.recallOptions(r),
			Errors:    result.FieldErrors,
			Message:   result.Message,
		}, status)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Delete(optionsKey)
	}
	if err := h.list(r).AfterSave(r.Context()); err != nil {
		h.logger.Error("reset employees page", slog.Any("error", err))
	}
	h.redirectWithFlash(w, r, listPath, shared.FlashSuccess, success)
}

// fail reports a failed single-record or options load.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if apiclient.IsUnauthorized(err) {
		h.lifecycle.Expire(w, r, h.logger)
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
	text := shared.UserSafeMessage(err)
	if apiclient.IsNotFound(err) {
		text = "Employee not found"
	}
	h.redirectWithFlash(w, r, listPath, shared.FlashError, text)
}

func (h *Handler) rememberOptions(r *http.Request, options []CompanyOption) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return
	}
	raw, err := json.Marshal(options)
	if err != nil {
		h.logger.Warn("encode company options", slog.Any("error", err))
		return
	}
	sess.Set(optionsKey, string(raw))
}

func (h *Handler) recallOptions(r *http.Request) []CompanyOption {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil
	}
	raw := sess.Get(optionsKey)
	if raw == "" {
		return nil
	}
	var options []CompanyOption
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		h.logger.Warn("decode company options", slog.Any("error", err))
		return nil
	}
	return options
}

func (h *Handler) list(r *http.Request) *listing.Controller[Employee] {
	sessionID := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sessionID = sess.ID
	}
	token := bearer(r)
	fetch := func(ctx context.Context, page, limit int) ([]Employee, shared.Pagination, error) {
		env, err := h.service.List(ctx, token, page, limit)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		return env.Data, shared.NewPagination(page, limit, env.Pagination.Total), nil
	}
	return listing.New(h.lists, listing.Key(sessionID, viewName), h.pageSize, fetch, h.logger)
}

func (h *Handler) renderModal(w http.ResponseWriter, r *http.Request, m *modal, status int) {
	list := h.list(r)
	snap, err := list.Committed(r.Context())
	if err != nil {
		h.logger.Error("load employees list state", slog.Any("error", err))
	}
	if err == nil && !snap.Loaded && status == http.StatusOK {
		if snap, err = list.Show(r.Context(), listing.Request{}); err != nil {
			h.logger.Error("list employees failed", slog.Any("error", err))
		}
		if apiclient.IsUnauthorized(snap.Err) {
			h.lifecycle.Expire(w, r, h.logger)
			return
		}
	}
	h.renderList(w, r, snap, m, status)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, snap listing.Snapshot[Employee], m *modal, status int) {
	h.render(w, r, "pages/employees.html", listPage{
		List:  snap,
		Pager: view.Pager{BasePath: listPath, Pagination: snap.Pagination},
		Modal: m,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	authenticated, name := auth.Viewer(sess)
	viewData := view.TemplateData{
		Title:         "Employees",
		CSRFToken:     csrfToken,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		Authenticated: authenticated,
		UserName:      name,
		Data:          data,
	}
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func bearer(r *http.Request) string {
	if s := auth.FromContext(r.Context()); s != nil {
		return s.Token
	}
	return ""
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
