package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sealdrop/sealdrop/internal/app"
	"github.com/sealdrop/sealdrop/internal/config"
	"github.com/sealdrop/sealdrop/internal/logger"
	"github.com/sealdrop/sealdrop/internal/routes"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	app, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		panic(err)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	// Optional reconciliation sweep: sessions whose viewers vanished
	// without ending are lazily marked ended. Revocation never depends on
	// this; it exists so the owner dashboard converges.
	if cfg.SessionSweepInterval > 0 {
		go sweepSessions(app, cfg.SessionSweepInterval)
	}

	handler := routes.SetupRoutes(app)
	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "url", "http://localhost:"+cfg.Port)

	err = http.ListenAndServe(":"+cfg.Port, handler)
	if err != nil {
		slog.Error("server failed", "error", err)
		panic(err)
	}
}

func sweepSessions(app *app.App, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		app.SessionService.MarkStale(app.SessionService.StaleTimeout())
	}
}
