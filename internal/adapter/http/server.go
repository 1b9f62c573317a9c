// Package adapthttp implements the HTTP adapter exposing account state
// to the host monitoring platform.
package adapthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"orangemon/internal/app"
	"orangemon/internal/domain"
)

// OIDCConfig carries the optional SSO login configuration.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// Server is the driving HTTP adapter that routes requests to the
// coordinator and the portal client.
type Server struct {
	coordinator *app.Coordinator
	portal      domain.PortalAPI
	authSvc     *app.AuthService
	oidcConfig  OIDCConfig
	dueLoc      *time.Location
	log         *slog.Logger
}

// New creates a Server wired to the given collaborators. A nil authSvc
// disables authentication on the data endpoints.
func New(co *app.Coordinator, portal domain.PortalAPI, authSvc *app.AuthService, oidcConfig OIDCConfig, dueLoc *time.Location, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		coordinator: co,
		portal:      portal,
		authSvc:     authSvc,
		oidcConfig:  oidcConfig,
		dueLoc:      dueLoc,
		log:         log,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	data := http.NewServeMux()
	data.HandleFunc("GET /snapshot", s.handleSnapshot)
	data.HandleFunc("GET /summary", s.handleSummary)
	data.HandleFunc("GET /sensors", s.handleSensors)
	data.HandleFunc("POST /refresh", s.handleRefresh)
	data.HandleFunc("GET /profiles/{id}/invoices", s.handleProfileInvoices)
	data.HandleFunc("GET /profiles/{id}/transactions", s.handleProfileTransactions)

	api := http.NewServeMux()
	api.HandleFunc("GET /health", s.handleHealth)
	api.HandleFunc("GET /config", s.handleConfig)
	api.HandleFunc("POST /auth/login", s.handleLogin)
	api.HandleFunc("POST /auth/logout", s.handleLogout)
	api.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)
	api.Handle("/", s.authMiddleware(data))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return s.loggingMiddleware(withNoCache(root))
}
