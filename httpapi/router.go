package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options configures NewRouter.
type Options struct {
	Logger *zap.Logger
	// Metrics is mounted on GET /metrics when set.
	Metrics      http.Handler
	HealthChecks map[string]HealthCheck
}

// NewRouter wires every route onto a gorilla/mux router.
func NewRouter(svc Service, opts Options) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, logger: logger, checks: opts.HealthChecks}
	guard := Guard(svc)

	r := mux.NewRouter()
	r.Use(AccessLog(logger), RequireHeaders("/health", "/metrics"))

	u := r.PathPrefix("/user").Subrouter()
	u.HandleFunc("/generate-otp", h.generateSignupOTP).Methods(http.MethodPost)
	u.HandleFunc("/verify-otp", h.verifySignupOTP).Methods(http.MethodPost)
	u.HandleFunc("/signup", h.signup).Methods(http.MethodPost)
	u.HandleFunc("/login", h.login).Methods(http.MethodPost)
	u.Handle("/logout", guard(http.HandlerFunc(h.logout))).Methods(http.MethodPost)
	u.Handle("/me", guard(http.HandlerFunc(h.me))).Methods(http.MethodGet)

	r.HandleFunc("/reset-password/generate-otp", h.generateResetOTP).Methods(http.MethodPost)
	r.HandleFunc("/reset-password/verify-otp", h.verifyResetOTP).Methods(http.MethodPost)
	r.HandleFunc("/reset-password", h.resetPassword).Methods(http.MethodPost)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	return r
}
