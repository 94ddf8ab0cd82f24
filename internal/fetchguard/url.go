package fetchguard

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CheckURL validates scheme and credentials, then delegates hostname
// safety to the cache. Call this before the initial request and again,
// with the redirect target, before every hop (spec §4.6).
func (c *Cache) CheckURL(ctx context.Context, resolver Resolver, rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetchguard: invalid URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("fetchguard: scheme %q is not allowed: %w", u.Scheme, ErrUnsafe)
	}
	if u.User != nil {
		return nil, fmt.Errorf("fetchguard: URL must not contain credentials: %w", ErrUnsafe)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("fetchguard: URL has no host: %w", ErrUnsafe)
	}

	if err := c.IsSafe(ctx, resolver, host); err != nil {
		return nil, err
	}
	return u, nil
}
