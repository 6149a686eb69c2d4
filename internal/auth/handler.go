package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/company-manager/internal/shared"
	"github.com/odyssey-erp/company-manager/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	lifecycle *Lifecycle
	templates *view.Engine
	csrf      *shared.CSRFManager
	githubURL string
}

// NewHandler constructs a Handler. apiBaseURL is the backend root; the
// GitHub flow starts at {apiBaseURL}/auth/github.
func NewHandler(logger *slog.Logger, lifecycle *Lifecycle, templates *view.Engine, csrf *shared.CSRFManager, apiBaseURL string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		lifecycle: lifecycle,
		templates: templates,
		csrf:      csrf,
		githubURL: apiBaseURL + "/auth/github",
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(LoginPath, h.showLogin)
	r.Get("/auth/callback", h.handleCallback)
	r.Post("/logout", h.handleLogout)
}

type loginPageData struct {
	GitHubURL string
	Expired   bool
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, ok := Current(sess); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data: loginPageData{
			GitHubURL: h.githubURL,
			Expired:   r.URL.Query().Get("expired") != "",
		},
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.logger.Warn("auth callback without token")
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	identity, err := DecodeIdentity(token)
	if err != nil {
		h.logger.Warn("auth callback token decode", slog.Any("error", err))
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.lifecycle.Begin(sess, token, identity); err != nil {
		h.logger.Error("begin auth session", slog.Any("error", err))
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Signed in as " + identity.DisplayName()})
	h.logger.Info("signed in", slog.String("user", identity.ID))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.lifecycle.End(shared.SessionFromContext(r.Context()))
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
