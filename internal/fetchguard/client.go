package fetchguard

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// MaxRedirects bounds the redirect chain a fetch will follow (spec §4.6
// "Follow at most 4 redirects (manual mode); after the limit, fail.").
const MaxRedirects = 4

// Client performs SSRF-checked HTTP GETs, re-validating every redirect
// target before following it.
type Client struct {
	cache    *Cache
	resolver Resolver
	http     *http.Client
}

// NewClient builds a Client with the given per-attempt timeout. Redirects
// are handled manually (http.ErrUseLastResponse) so each hop can be
// re-validated.
func NewClient(cache *Cache, timeout time.Duration) *Client {
	return &Client{
		cache:    cache,
		resolver: net.DefaultResolver,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// CheckURLOnly runs the scheme/credential/hostname safety checks for
// rawURL without performing a request, normalizing it in the process. Used
// by callers that need to validate and canonicalize a URL (e.g. for a
// duplicate-detection lookup) before handing it to Get.
func (c *Client) CheckURLOnly(ctx context.Context, rawURL string) (*url.URL, error) {
	return c.cache.CheckURL(ctx, c.resolver, rawURL)
}

// Get issues a GET to rawURL, following up to MaxRedirects redirects, each
// one re-validated by the SSRF guard before the request is sent.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	current := rawURL

	for hop := 0; hop <= MaxRedirects; hop++ {
		u, err := c.cache.CheckURL(ctx, c.resolver, current)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("fetchguard: build request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetchguard: request failed: %w", err)
		}

		if !isRedirect(resp.StatusCode) {
			return resp, nil
		}

		location := resp.Header.Get("Location")
		resp.Body.Close()
		if location == "" {
			return nil, fmt.Errorf("fetchguard: redirect response missing Location header")
		}

		next, err := u.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("fetchguard: invalid redirect location: %w", err)
		}
		current = next.String()
	}

	return nil, fmt.Errorf("fetchguard: exceeded %d redirects", MaxRedirects)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
