// Package server implements the HTTP API for feedengine: route registration,
// the middleware chain, and the per-resource handlers described in spec §6.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shelfline/feedengine/internal/auth"
	"github.com/shelfline/feedengine/internal/model"
)

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyUserID    contextKey = "user_id"
)

// RequestIDFromContext extracts the request ID stamped by requestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// UserIDFromContext extracts the session's user ID stamped by authMiddleware.
// Returns "" on public routes or when no session is present.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyUserID).(string); ok {
		return v
	}
	return ""
}

// requestIDMiddleware assigns a request ID to every request, reusing an
// inbound X-Request-ID if the caller already set one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), contextKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// securityHeadersMiddleware sets the baseline headers appropriate for a
// JSON API that also serves no third-party-embeddable content.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware converts a panicking handler into a Transient (503)
// error response instead of tearing down the whole server process.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered", "error", fmt.Sprint(rec), "request_id", RequestIDFromContext(r.Context()))
				writeAppError(w, r, model.NewTransientError("internal error", fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one structured line per request.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFromContext(r.Context()),
		}
		if tid := traceIDFromContext(r.Context()); tid != "" {
			attrs = append(attrs, "trace_id", tid)
		}
		if uid := UserIDFromContext(r.Context()); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}

		level := slog.LevelInfo
		switch {
		case wrapped.statusCode >= 500:
			level = slog.LevelError
		case wrapped.statusCode >= 400:
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "http request", attrs...)
	})
}

var (
	tracer    = otel.Tracer("feedengine/http")
	httpMeter = otel.GetMeterProvider().Meter("feedengine/http")
)

// tracingMiddleware opens an OTEL span per request and records request-count
// and duration metrics.
func tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.Path),
				attribute.String("http.request_id", RequestIDFromContext(r.Context())),
			),
		)
		defer span.End()

		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
		duration := time.Since(start)

		span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))

		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.URL.Path),
			attribute.String("http.status_code", strconv.Itoa(wrapped.statusCode)),
		}

		if counter, err := httpMeter.Int64Counter("http.server.request_count"); err == nil {
			counter.Add(ctx, 1, otelmetric.WithAttributes(attrs...))
		}
		if hist, err := httpMeter.Float64Histogram("http.server.duration", otelmetric.WithUnit("ms")); err == nil {
			hist.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(attrs...))
		}
	})
}

func traceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// publicPaths never require a session, per spec §6's "non-auth, non-public
// routes require a valid session". /auth/me is public but still wants the
// session populated into context when one happens to be present.
var publicPaths = map[string]bool{
	"/auth/signup": true,
	"/auth/login":  true,
	"/auth/me":     true,
}

// authMiddleware validates the session cookie and stamps the user ID into
// context. Unlike the teacher's Bearer-header scheme, feedengine sessions
// travel as an HttpOnly cookie (spec §6).
func authMiddleware(jwtMgr *auth.JWTManager, cookieName string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := sessionClaims(r, jwtMgr, cookieName)

		if publicPaths[r.URL.Path] {
			if err == nil {
				r = r.WithContext(context.WithValue(r.Context(), contextKeyUserID, claims.UserID))
			}
			next.ServeHTTP(w, r)
			return
		}

		if err != nil {
			writeAppError(w, r, model.NewAuthRequiredError("authentication required"))
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionClaims(r *http.Request, jwtMgr *auth.JWTManager, cookieName string) (*auth.Claims, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("server: no session cookie")
	}
	return jwtMgr.ValidateSessionToken(cookie.Value)
}

// writeJSON writes data in the standard success envelope.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.NewAPIResponse(RequestIDFromContext(r.Context()), data))
}

// writeAppError surfaces an *model.AppError using its own status/code/details.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := model.AsAppError(err)
	if !ok {
		ae = model.NewTransientError("internal error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.HTTPStatus())
	_ = json.NewEncoder(w).Encode(model.NewAPIError(RequestIDFromContext(r.Context()), ae))
}

// decodeJSON decodes a JSON body into target, rejecting unknown fields.
func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// validate is the process-wide validator instance (go-playground/validator),
// grounded on the same singleton pattern used elsewhere in the retrieved
// pack for tagged-struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct-tag validation and translates the first
// failing field into a Validation AppError; feedengine only ever needs to
// report one bad field at a time to the client.
func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return model.NewValidationError(fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag()))
		}
		return model.NewValidationError(err.Error())
	}
	return nil
}
