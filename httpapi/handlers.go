package httpapi

import (
	"context"
	"net/http"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"go.uber.org/zap"
)

// Service is the engine surface used by the handlers. *bankAuth.Engine
// implements it.
type Service interface {
	RequestSignupOTP(ctx context.Context, identity string) (*bankAuth.MessageResponse, error)
	VerifySignupOTP(ctx context.Context, identity, code string) (*bankAuth.MessageResponse, error)
	CompleteSignup(ctx context.Context, req bankAuth.SignupRequest) (*bankAuth.MessageResponse, error)
	Login(ctx context.Context, identifier, password string) (*bankAuth.AuthResponse, error)
	Logout(ctx context.Context, token string) (*bankAuth.MessageResponse, error)
	Authenticate(ctx context.Context, token string) (*bankAuth.AuthResult, error)
	RequestResetOTP(ctx context.Context, identity string) (*bankAuth.MessageResponse, error)
	VerifyResetOTP(ctx context.Context, identity, code string) (*bankAuth.MessageResponse, error)
	ResetPassword(ctx context.Context, identity, newPassword string) (*bankAuth.MessageResponse, error)
}

type handler struct {
	svc    Service
	logger *zap.Logger
	checks map[string]HealthCheck
}

type meResponse struct {
	Subject   string    `json:"subject"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *handler) generateSignupOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if msgs := decodeValid(r, &req); msgs != nil {
		writeError(w, r, http.StatusBadRequest, msgs...)
		return
	}
	res, err := h.svc.RequestSignupOTP(r.Context(), req.EmailID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) verifySignupOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if msgs := decodeValid(r, &req); msgs != nil {
		writeError(w, r, http.StatusBadRequest, msgs...)
		return
	}
	res, err := h.svc.VerifySignupOTP(r.Context(), req.EmailID, req.OTP)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if msgs := decodeValid(r, &req); msgs != nil {
		writeError(w, r, http.StatusBadRequest, msgs...)
		return
	}
	res, err := h.svc.CompleteSignup(r.Context(), req.toEngine())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if msgs := decodeValid(r, &req); msgs != nil {
		writeError(w, r, http.StatusBadRequest, msgs...)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// logout runs behind Guard, so the header has already been checked.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r.Header.Get("Authorization"))
	res, err := h.svc.Logout(r.Context(), token)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	res, ok := AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Subject:   res.Subject,
		Roles:     res.Roles,
		ExpiresAt: res.ExpiresAt.UTC(),
	})
}

func (h *handler) generateResetOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if msgs := decodeValid(r, &req); msgs != nil {
		writeError(w, r, http.StatusBadRequest, msgs...)
		return
	}
	res, err := h.svc.RequestResetOTP(r.Context(), req.EmailID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) verifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if msgs := decodeValid(r, &req); msgs != nil {
		writeError(w, r, http.StatusBadRequest, msgs...)
		return
	}
	res, err := h.svc.VerifyResetOTP(r.Context(), req.EmailID, req.OTP)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if msgs := decodeValid(r, &req); msgs != nil {
		writeError(w, r, http.StatusBadRequest, msgs...)
		return
	}
	res, err := h.svc.ResetPassword(r.Context(), req.EmailID, req.NewPassword)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if len(h.checks) == 0 {
		writeJSON(w, http.StatusOK, healthResponse{Status: "UP"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := healthResponse{Status: "UP", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			out.Checks[name] = "DOWN"
			out.Status = "DOWN"
			status = http.StatusServiceUnavailable
			continue
		}
		out.Checks[name] = "UP"
	}
	writeJSON(w, status, out)
}
