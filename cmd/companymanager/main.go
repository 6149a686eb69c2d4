package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
	"github.com/odyssey-erp/company-manager/internal/app"
	"github.com/odyssey-erp/company-manager/internal/auth"
	"github.com/odyssey-erp/company-manager/internal/companies"
	"github.com/odyssey-erp/company-manager/internal/employees"
	"github.com/odyssey-erp/company-manager/internal/listing"
	"github.com/odyssey-erp/company-manager/internal/observability"
	"github.com/odyssey-erp/company-manager/internal/platform/cache"
	"github.com/odyssey-erp/company-manager/internal/shared"
	"github.com/odyssey-erp/company-manager/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "cm_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	lifecycle := auth.NewLifecycle(sessionManager, csrfManager)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	apiClient := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, metrics)
	lists := listing.NewRedisStore(redisClient, cfg.SessionTTL)

	authHandler := auth.NewHandler(logger, lifecycle, templates, csrfManager, cfg.APIBaseURL)
	companiesHandler := companies.NewHandler(logger, companies.NewService(apiClient), templates, csrfManager, lifecycle, lists, cfg.PageSize)
	employeesHandler := employees.NewHandler(logger, employees.NewService(apiClient), templates, csrfManager, lifecycle, lists, cfg.PageSize)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		CompaniesHandler: companiesHandler,
		EmployeesHandler: employeesHandler,
		Metrics:          metrics,
		HealthCheck:      cache.Ping(redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
