package app

import (
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/company-manager/internal/auth"
	"github.com/odyssey-erp/company-manager/internal/companies"
	"github.com/odyssey-erp/company-manager/internal/employees"
	"github.com/odyssey-erp/company-manager/internal/observability"
	"github.com/odyssey-erp/company-manager/internal/platform/httpx"
	"github.com/odyssey-erp/company-manager/internal/shared"
	"github.com/odyssey-erp/company-manager/internal/view"
	"github.com/odyssey-erp/company-manager/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	CompaniesHandler *companies.Handler
	EmployeesHandler *employees.Handler
	Metrics          *observability.Metrics
	// HealthCheck reports whether dependencies are reachable. Nil means healthy.
	HealthCheck func(ctx context.Context) error
}

// NewRouter constructs the chi.Router with the panel's defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(params.Logger))
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.HealthCheck != nil {
			if err := params.HealthCheck(r.Context()); err != nil {
				params.Logger.Warn("health check failed", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		authenticated, name := auth.Viewer(sess)
		data := view.TemplateData{
			Title:         "Home",
			CSRFToken:     csrfToken,
			Flash:         flash,
			CurrentPath:   r.URL.Path,
			Authenticated: authenticated,
			UserName:      name,
		}
		if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
		}
	})

	params.AuthHandler.MountRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		if params.CompaniesHandler != nil {
			r.Route("/companies", params.CompaniesHandler.MountRoutes)
		}
		if params.EmployeesHandler != nil {
			r.Route("/employees", params.EmployeesHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		authenticated, name := auth.Viewer(sess)
		data := view.TemplateData{
			Title:         "Page not found",
			CurrentPath:   r.URL.Path,
			Authenticated: authenticated,
			UserName:      name,
			Data:          "The page you are looking for does not exist.",
		}
		if err := params.Templates.RenderStatus(w, http.StatusNotFound, "pages/error.html", data); err != nil {
			params.Logger.Error("render not found", slog.Any("error", err))
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

func init() {
	// Minimal container images ship without /etc/mime.types.
	if mime.TypeByExtension(".css") == "" {
		_ = mime.AddExtensionType(".css", "text/css; charset=utf-8")
	}
}
