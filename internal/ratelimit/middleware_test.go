package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errLimiterDown = errors.New("limiter unavailable")

type fixedLimiter struct {
	allow bool
	err   error
}

func (f fixedLimiter) Allow(context.Context, string) (bool, error) { return f.allow, f.err }
func (f fixedLimiter) Close() error                                { return nil }

func TestMiddleware_NilLimiterPassesThrough(t *testing.T) {
	h := Middleware(nil, "test", IPKeyFunc)(okHandler())
	rr := doRequest(h)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_EmptyKeySkipsLimiting(t *testing.T) {
	h := Middleware(fixedLimiter{allow: false}, "test", func(*http.Request) string { return "" })(okHandler())
	rr := doRequest(h)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_DeniedReturns429(t *testing.T) {
	h := Middleware(fixedLimiter{allow: false}, "test", IPKeyFunc)(okHandler())
	rr := doRequest(h)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestMiddleware_AllowedPassesThrough(t *testing.T) {
	h := Middleware(fixedLimiter{allow: true}, "test", IPKeyFunc)(okHandler())
	rr := doRequest(h)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_LimiterErrorFailsOpen(t *testing.T) {
	h := Middleware(fixedLimiter{allow: false, err: errLimiterDown}, "test", IPKeyFunc)(okHandler())
	rr := doRequest(h)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestIPKeyFunc_StripsPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:54321"
	assert.Equal(t, "203.0.113.5", IPKeyFunc(r))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func doRequest(h http.Handler) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:1"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}
