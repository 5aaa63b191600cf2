package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"go.uber.org/zap"
)

const (
	msgMalformedBody = "Malformed request body"
	msgInternal      = "Something went wrong. Please try again later."
	msgMissingToken  = "Missing token in header"
	msgInvalidToken  = "Invalid Token"
)

// ErrorInfo is the body of every non-2xx response.
type ErrorInfo struct {
	UUID          string    `json:"uuid"`
	ErrorMessages []string  `json:"errorMessages"`
	ErrorCode     int       `json:"errorCode"`
	TimeStamp     time.Time `json:"timeStamp"`
}

// StatusFor maps an engine error kind to its HTTP status.
func StatusFor(kind bankAuth.ErrorKind) int {
	switch kind {
	case bankAuth.KindValidation, bankAuth.KindExpired, bankAuth.KindAlreadyUsed, bankAuth.KindInvalidOTP:
		return http.StatusBadRequest
	case bankAuth.KindInvalidCredentials, bankAuth.KindUnauthorized, bankAuth.KindNotVerified:
		return http.StatusUnauthorized
	case bankAuth.KindForbidden:
		return http.StatusForbidden
	case bankAuth.KindNotFound:
		return http.StatusNotFound
	case bankAuth.KindAlreadyExists, bankAuth.KindConflict:
		return http.StatusConflict
	case bankAuth.KindRateLimited, bankAuth.KindCooldownActive, bankAuth.KindLocked:
		return http.StatusTooManyRequests
	case bankAuth.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, messages ...string) {
	writeJSON(w, status, ErrorInfo{
		UUID:          TraceID(r.Context()),
		ErrorMessages: messages,
		ErrorCode:     status,
		TimeStamp:     time.Now().UTC(),
	})
}

// writeEngineError renders err with the status of its kind. Errors that did
// not come from the engine are logged and rendered as a generic 500.
func (h *handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr *bankAuth.Error
	if !errors.As(err, &engineErr) {
		h.logger.Error("unclassified error",
			zap.String("trace_id", TraceID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, msgInternal)
		return
	}

	status := StatusFor(engineErr.Kind)
	if cause := engineErr.Cause(); cause != nil && status >= http.StatusInternalServerError {
		h.logger.Warn("request failed",
			zap.String("trace_id", TraceID(r.Context())),
			zap.String("kind", engineErr.Kind.String()),
			zap.Error(cause),
		)
	}
	writeError(w, r, status, engineErr.Message)
}
