package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "gitlab.com/simigo/client/datacore/internal/adapters/http"
	"gitlab.com/simigo/client/datacore/internal/adapters/middleware"
	"gitlab.com/simigo/client/datacore/internal/application"
	"gitlab.com/simigo/client/datacore/pkg/safego"
)

func (a *App) Catalog() *application.CatalogService { return a.catalog }
func (a *App) Session() *application.SessionManager { return a.session }
func (a *App) Checkout() *application.Checkout { return a.checkout }
func (a *App) Payments() *application.PaymentService { return a.payments }

// RegisterRoutes mounts the debug endpoints on the app's mux.
func (a *App) RegisterRoutes() {
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(apphttp.HealthHandler()))
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(apphttp.ReadyHandler(a.cache, a.monitor, a.logger)))
	a.httpServeMux.Handle("GET /metrics", middleware.RequestIDMiddleware(promhttp.Handler()))
	a.httpServeMux.Handle("POST /cache/clear", middleware.RequestIDMiddleware(a.adminAuth(apphttp.ClearCacheHandler(a.cache, a.logger))))
}

// Start probes connectivity, restores the saved session and pulls remote
// cache TTLs. None of these failures stop the process.
func (a *App) Start(ctx context.Context) {
	a.monitor.CheckNow(ctx)

	if user, err := a.session.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "Session restore failed", "error", err.Error())
	} else if user != nil {
		a.logger.Info(ctx, "Session restored", "user_id", user.ID)
	}

	if a.configProvider.Get().Cache.RemoteTTL {
		if err := a.ttl.LoadRemote(ctx, a.client); err != nil {
			a.logger.Warn(ctx, "Remote cache TTLs unavailable, keeping defaults", "error", err.Error())
		}
	}
}

func (a *App) connectivityLoop(ctx context.Context) {
	interval := time.Duration(a.configProvider.Get().Connectivity.CheckIntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.monitor.CheckNow(ctx)
		}
	}
}

// Shutdown stops background work in dependency order: in-flight requests
// first, then revalidations and probes, then the HTTP listener.
func (a *App) Shutdown(ctx context.Context) {
	a.coord.CancelAll()

	done := make(chan struct{})
	go func() {
		a.catalog.WaitRevalidations()
		a.monitor.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn(context.Background(), "Timed out waiting for background refreshes")
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
	}
	a.logger.Info(context.Background(), "HTTP server shut down.")
}

// Run starts the application, serves the debug endpoints and handles graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	appCfg := a.configProvider.Get()
	a.logger.Info(ctx, "Starting application",
		"service_name", appCfg.App.ServiceName,
		"version", appCfg.App.Version,
		"environment", appCfg.App.Environment,
	)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	a.RegisterRoutes()
	a.Start(runCtx)

	safego.Execute(runCtx, a.logger, "ConnectivityLoop", func() {
		a.connectivityLoop(runCtx)
	})

	safego.Execute(runCtx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-runCtx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}
		stop()

		shutdownTimeout := 10 * time.Second
		if s := a.configProvider.Get().App.ShutdownTimeoutSeconds; s > 0 {
			shutdownTimeout = time.Duration(s) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Shutdown(shutdownCtx)
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", appCfg.Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}
