package companies

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
	"github.com/odyssey-erp/company-manager/internal/auth"
	"github.com/odyssey-erp/company-manager/internal/forms"
	"github.com/odyssey-erp/company-manager/internal/listing"
	"github.com/odyssey-erp/company-manager/internal/shared"
	"github.com/odyssey-erp/company-manager/internal/view"
)

const (
	listPath = "/companies"
	viewName = "companies"
)

// Handler serves the companies list, its create/edit modal and deletes.
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

// MountRoutes registers company routes. Callers gate them with auth.RequireSession.
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
	Title   string
	Action  string
	Draft   *Draft
	Errors  map[string]string
	Message string
}

type listPage struct {
	List  listing.Snapshot[Company]
	Pager view.Pager
	Modal *modal
}

// List renders one page of companies. A page query parameter is a
// page-change request; without it the view shows its current page.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	snap, err := h.list(r).Show(r.Context(), listing.Request{Page: page, Limit: limit})
	if err != nil {
		h.logger.Error("list companies failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if apiclient.IsUnauthorized(snap.Err) {
		h.lifecycle.Expire(w, r, h.logger)
		return
	}
	h.renderList(w, r, snap, nil, http.StatusOK)
}

// New opens the create modal over the current list.
func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	h.renderModal(w, r, &modal{Title: "Add Company", Action: listPath, Draft: &Draft{}}, http.StatusOK)
}

// Edit opens the edit modal with a draft of the stored company.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	company, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderModal(w, r, &modal{Title: "Edit Company", Action: itemPath(company.ID), Draft: DraftFrom(company)}, http.StatusOK)
}

// Show renders a single company.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	company, ok := h.load(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/company_detail.html", map[string]any{"Company": company}, http.StatusOK)
}

// Create submits a new company draft.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, 0, "Add Company", listPath, "Company created successfully")
}

// Update submits an edited company draft.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}
	h.submit(w, r, id, "Edit Company", itemPath(id), "Company updated successfully")
}

// Delete removes a company and moves the list to a page that still exists.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), bearer(r), id); err != nil {
		if apiclient.IsUnauthorized(err) {
			h.lifecycle.Expire(w, r, h.logger)
			return
		}
		h.logger.Error("delete company failed", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, listPath, shared.FlashError, shared.UserSafeMessage(err))
		return
	}

	target, err := h.list(r).AfterDelete(r.Context())
	if err != nil {
		h.logger.Error("recompute companies page", slog.Any("error", err))
	}
	h.redirectWithFlash(w, r, pageURL(target), shared.FlashSuccess, "Company deleted successfully")
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, id int64, title, action, success string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	draft := &Draft{}
	malformed, err := h.forms.Decode(r.PostForm, draft)
	if err != nil {
		h.logger.Warn("decode company form", slog.Any("error", err))
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
		h.renderModal(w, r, &modal{Title: title, Action: action, Draft: draft, Errors: errs, Message: forms.InvalidMessage}, http.StatusUnprocessableEntity)
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
			h.logger.Warn("save company failed", slog.Any("error", result.Err), slog.Int64("id", id))
		}
		h.renderModal(w, r, &modal{Title: title, Action: action, Draft: draft, Errors: result.FieldErrors, Message: result.Message}, status)
		return
	}

	if err := h.list(r).AfterSave(r.Context()); err != nil {
		h.logger.Error("reset companies page", slog.Any("error", err))
	}
	h.redirectWithFlash(w, r, listPath, shared.FlashSuccess, success)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Company, bool) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return Company{}, false
	}
	company, err := h.service.Get(r.Context(), bearer(r), id)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			h.lifecycle.Expire(w, r, h.logger)
			return Company{}, false
		}
		h.logger.Error("get company failed", slog.Any("error", err), slog.Int64("id", id))
		msg := shared.UserSafeMessage(err)
		if apiclient.IsNotFound(err) {
			msg = "Company not found"
		}
		h.redirectWithFlash(w, r, listPath, shared.FlashError, msg)
		return Company{}, false
	}
	return company, true
}

// list builds the list controller for this session's companies view.
func (h *Handler) list(r *http.Request) *listing.Controller[Company] {
	sessionID := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sessionID = sess.ID
	}
	token := bearer(r)
	fetch := func(ctx context.Context, page, limit int) ([]Company, shared.Pagination, error) {
		env, err := h.service.List(ctx, token, page, limit)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		return env.Data, shared.NewPagination(page, limit, env.Pagination.Total), nil
	}
	return listing.New(h.lists, listing.Key(sessionID, viewName), h.pageSize, fetch, h.logger)
}

// renderModal draws the modal over the committed list. Rejected submits
// never refetch; opening a modal fetches only when the view was never shown.
func (h *Handler) renderModal(w http.ResponseWriter, r *http.Request, m *modal, status int) {
	list := h.list(r)
	snap, err := list.Committed(r.Context())
	if err != nil {
		h.logger.Error("load companies list state", slog.Any("error", err))
	}
	if err == nil && !snap.Loaded && status == http.StatusOK {
		if snap, err = list.Show(r.Context(), listing.Request{}); err != nil {
			h.logger.Error("list companies failed", slog.Any("error", err))
		}
		if apiclient.IsUnauthorized(snap.Err) {
			h.lifecycle.Expire(w, r, h.logger)
			return
		}
	}
	h.renderList(w, r, snap, m, status)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, snap listing.Snapshot[Company], m *modal, status int) {
	h.render(w, r, "pages/companies.html", listPage{
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
		Title:         "Companies",
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

func pageURL(page int) string {
	return listPath + "?page=" + strconv.Itoa(page)
}
