package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/pkg/httpx"
	"github.com/sbilab/dataviz/pkg/jwtx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	issuer       string
	tokenTTL     time.Duration
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	UserService    *service.UserService
	OAuthService   *service.OAuthService
	AuthnService   *service.AuthnService
	DatasetService *service.DatasetService
	PlotService    *service.PlotService
}

func NewRouter(
	signer jwtx.Signer,
	issuer string,
	tokenTTL time.Duration,
	buildVersion string,
	corsOrigins []string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		issuer:       issuer,
		tokenTTL:     tokenTTL,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		corsHandler.Handler,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerDatasets()
	r.registerPlots()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			SBI Lab Data Visualization API
//	@version		0.1.0
//	@description	Backend for user accounts, CSV dataset uploads, stored plot
//	@description	definitions and on-demand chart-document generation.
//
//	@host						localhost:8000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT or Google access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Users:  r.UserService,
		OAuth:  r.OAuthService,
		Signer: r.signer,
		Issuer: r.issuer,
		TTL:    r.tokenTTL,
	}

	// Credential-bearing endpoints get the strict per-IP limit to slow
	// brute forcing and bulk signups.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Form login is additionally keyed by the submitted username so one IP
	// cannot spray a single account from behind a shared NAT unnoticed.
	r.Mux.Handle("POST /api/auth/login-form",
		httpx.Chain(http.HandlerFunc(h.HandleLoginForm),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)
	r.Mux.Handle("POST /api/auth/google",
		httpx.Chain(http.HandlerFunc(h.HandleGoogle),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	me := &MeHandler{Users: r.UserService}
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(me.HandleGet),
			AuthnMiddleware(r.AuthnService),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /api/auth/me",
		httpx.Chain(http.HandlerFunc(me.HandlePut),
			AuthnMiddleware(r.AuthnService),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerDatasets() {
	h := &DatasetsHandler{Datasets: r.DatasetService}

	secured := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			AuthnMiddleware(r.AuthnService),
			httpx.RateLimitByIP(limit),
		)
	}

	r.Mux.Handle("POST /api/data/upload", secured(h.HandleUpload, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/data/datasets", secured(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("GET /api/data/datasets/{id}", secured(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("GET /api/data/datasets/{id}/stats", secured(h.HandleStats, httpx.LenientLimit))
	r.Mux.Handle("DELETE /api/data/datasets/{id}", secured(h.HandleDelete, httpx.ModerateLimit))
}

func (r *Router) registerPlots() {
	h := &PlotsHandler{Plots: r.PlotService}

	secured := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			AuthnMiddleware(r.AuthnService),
			httpx.RateLimitByIP(limit),
		)
	}

	r.Mux.Handle("POST /api/plots", secured(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/plots", secured(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("GET /api/plots/{id}", secured(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PUT /api/plots/{id}", secured(h.HandleUpdate, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/plots/{id}", secured(h.HandleDelete, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/plots/generate", secured(h.HandleGenerate, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/plots/{id}/data", secured(h.HandleData, httpx.LenientLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
