package fetchguard

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialToServer returns a DialContext that always connects to srv regardless
// of the requested address, so tests can use a non-literal hostname (which
// exercises the resolver-based safety check) while actually talking to a
// local httptest server.
func dialToServer(srv *httptest.Server) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, srv.Listener.Addr().String())
	}
}

type publicResolver struct{}

func (publicResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}, nil
}

func clientFor(srv *httptest.Server) *Client {
	c := NewClient(NewCache(), 2*time.Second)
	c.resolver = publicResolver{}
	c.http.Transport = &http.Transport{DialContext: dialToServer(srv)}
	return c
}

func TestClient_FollowsRedirectsWithinLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "http://example.test/final", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := clientFor(srv)
	resp, err := c.Get(context.Background(), "http://example.test/start", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_FailsAfterTooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://example.test/next", http.StatusFound)
	}))
	defer srv.Close()

	c := clientFor(srv)
	_, err := c.Get(context.Background(), "http://example.test/start", nil)
	assert.Error(t, err)
}

func TestClient_RejectsUnsafeHostBeforeDialing(t *testing.T) {
	c := NewClient(NewCache(), 2*time.Second)
	c.resolver = publicResolver{}

	_, err := c.Get(context.Background(), "http://blocked.internal/x", nil)
	assert.Error(t, err)
}

func TestClient_RejectsRedirectToUnsafeHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data", http.StatusFound)
	}))
	defer srv.Close()

	c := clientFor(srv)
	_, err := c.Get(context.Background(), "http://example.test/start", nil)
	assert.Error(t, err)
}
