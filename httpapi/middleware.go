package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderTraceID     = "X-traceId"
	HeaderOperationID = "X-operationId"
)

type (
	traceIDContextKey     struct{}
	operationIDContextKey struct{}
	authResultContextKey  struct{}
)

// TraceID returns the request trace id set by AccessLog.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDContextKey{}).(string)
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// OperationID returns the X-operationId of the request, if any.
func OperationID(ctx context.Context) string {
	id, _ := ctx.Value(operationIDContextKey{}).(string)
	return id
}

// AuthResultFromContext returns the result stored by Guard.
func AuthResultFromContext(ctx context.Context) (*bankAuth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*bankAuth.AuthResult)
	return res, ok
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// AccessLog stores the trace and operation ids in the request context and
// logs one line per request. A trace id is generated when the header is
// absent. Bodies are never logged.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(HeaderTraceID)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			operationID := r.Header.Get(HeaderOperationID)

			ctx := context.WithValue(r.Context(), traceIDContextKey{}, traceID)
			ctx = context.WithValue(ctx, operationIDContextKey{}, operationID)

			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r.WithContext(ctx))

			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("size", lrw.size),
				zap.Duration("duration", time.Since(start)),
				zap.String("trace_id", traceID),
				zap.String("operation_id", operationID),
			)
		})
	}
}

// RequireHeaders rejects requests missing X-traceId or X-operationId with a
// 400 listing every missing header. Paths in exempt pass through.
func RequireHeaders(exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}
	required := []string{HeaderTraceID, HeaderOperationID}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			var missing []string
			for _, h := range required {
				if strings.TrimSpace(r.Header.Get(h)) == "" {
					missing = append(missing, "Missing required header '"+h+"'")
				}
			}
			if len(missing) > 0 {
				writeError(w, r, http.StatusBadRequest, missing...)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guard authenticates the bearer token through svc and stores the result in
// the request context.
func Guard(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc == nil {
				writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, r, http.StatusUnauthorized, msgMissingToken)
				return
			}

			res, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
