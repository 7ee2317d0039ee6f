package routes

import (
	"net/http"

	"github.com/sealdrop/sealdrop/internal/app"
	"github.com/sealdrop/sealdrop/internal/handler"
	"github.com/sealdrop/sealdrop/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	file := handler.NewFileHandler(app.FileService, app.SessionService, app.AuditService, app.Geo)
	session := handler.NewSessionHandler(app.SessionService, app.FileService, app.Geo)
	revoke := handler.NewRevokeHandler(app.RevocationService)
	request := handler.NewAccessRequestHandler(app.AccessRequestService, app.Geo)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()
	mux.HandleFunc("POST /auth/register", rateLimiter(auth.Register))
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// Owner file management
	mux.HandleFunc("POST /files", middleware.RequireAuth(file.Upload))
	mux.HandleFunc("GET /files", middleware.RequireAuth(file.List))
	mux.HandleFunc("GET /files/{id}", middleware.RequireAuth(file.Get))
	mux.HandleFunc("PATCH /files/{id}/settings", middleware.RequireAuth(file.UpdateSettings))
	mux.HandleFunc("GET /files/{id}/logs", middleware.RequireAuth(file.Logs))
	mux.HandleFunc("GET /files/{id}/sessions", middleware.RequireAuth(session.ListForFile))

	// Kill switches
	mux.HandleFunc("POST /files/{id}/kill", middleware.RequireAuth(revoke.Kill))
	mux.HandleFunc("POST /chain-kill", middleware.RequireAuth(revoke.ChainKill))

	// Viewer access (no account; policy decides)
	mux.HandleFunc("GET /files/{id}/content", file.Content)
	mux.HandleFunc("POST /sessions", session.Create)
	mux.HandleFunc("POST /sessions/{id}/heartbeat", session.Heartbeat)
	mux.HandleFunc("POST /sessions/{id}/end", session.End)
	mux.HandleFunc("POST /sessions/{id}/revoke", middleware.RequireAuth(session.Revoke))

	// Access requests
	mux.HandleFunc("POST /files/{id}/access-requests", request.Create)
	mux.HandleFunc("GET /files/{id}/access-requests", middleware.RequireAuth(request.ListForFile))
	mux.HandleFunc("POST /access-requests/{id}/approve", middleware.RequireAuth(request.Approve))
	mux.HandleFunc("POST /access-requests/{id}/deny", middleware.RequireAuth(request.Deny))
	mux.HandleFunc("DELETE /access-requests/{id}", middleware.RequireAuth(request.Delete))

	// Account
	mux.HandleFunc("PATCH /account/blocked-countries", middleware.RequireAuth(auth.UpdateBlockedCountries))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Auth(app.AuthService),
	)
}
