package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfline/feedengine/internal/auth"
	"github.com/shelfline/feedengine/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDMiddleware_GeneratesWhenAbsent(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	requestIDMiddleware(inner).ServeHTTP(rec, req)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_ReusesInboundHeader(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	requestIDMiddleware(inner).ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", seen)
}

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	recoveryMiddleware(testLogger(), inner).ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_RejectsMissingCookieOnProtectedPath(t *testing.T) {
	jwtMgr := newTestJWTManager(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	authMiddleware(jwtMgr, "feedengine_session", inner).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_AllowsPublicPathWithoutCookie(t *testing.T) {
	jwtMgr := newTestJWTManager(t)
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, UserIDFromContext(r.Context()))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	authMiddleware(jwtMgr, "feedengine_session", inner).ServeHTTP(rec, req)

	assert.True(t, called)
}

func TestAuthMiddleware_PopulatesUserIDFromValidCookie(t *testing.T) {
	jwtMgr := newTestJWTManager(t)
	token, exp, err := jwtMgr.IssueSessionToken("user-123", "a@example.com")
	require.NoError(t, err)

	var seenUserID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.AddCookie(&http.Cookie{Name: "feedengine_session", Value: token, Expires: exp})
	authMiddleware(jwtMgr, "feedengine_session", inner).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", seenUserID)
}

func TestValidateStruct_ReportsFirstFieldFailure(t *testing.T) {
	err := validateStruct(model.SignupRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	ae, ok := model.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrCodeValidation, ae.Code)
}

func TestValidateStruct_PassesValidInput(t *testing.T) {
	err := validateStruct(model.SignupRequest{Email: "a@example.com", Password: "long-enough"})
	assert.NoError(t, err)
}

func newTestJWTManager(t *testing.T) *auth.JWTManager {
	t.Helper()
	mgr, err := auth.NewJWTManager("unit-test-secret", 30*24*time.Hour)
	require.NoError(t, err)
	return mgr
}
