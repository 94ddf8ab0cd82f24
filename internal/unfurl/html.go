package unfurl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelfline/feedengine/internal/fetchguard"
)

// genericFetchTimeout and maxBodyBytes bound a generic HTML unfurl fetch
// (spec §4.5 step 3, §5).
const (
	genericFetchTimeout = 8 * time.Second
	maxBodyBytes        = 750_000
)

// fetchHTML performs the SSRF-guarded generic fetch and parses the
// resulting document, rejecting non-HTML content types.
func fetchHTML(ctx context.Context, client *fetchguard.Client, rawURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, genericFetchTimeout)
	defer cancel()

	resp, err := client.Get(ctx, rawURL, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if err != nil {
		return nil, fmt.Errorf("unfurl: generic fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unfurl: generic fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
		return nil, fmt.Errorf("unfurl: unsupported content type %q", contentType)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("unfurl: parse HTML: %w", err)
	}
	return doc, nil
}

// extractMeta pulls Open Graph, Twitter, and <title> metadata from doc,
// preferring Open Graph, then Twitter, then the plain title tag (spec §4.5
// step 4).
func extractMeta(doc *goquery.Document) (title, description, thumbnail, siteName string) {
	meta := func(selectors ...string) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).Attr("content"); ok && v != "" {
				return decodeEntities(strings.TrimSpace(v))
			}
		}
		return ""
	}

	title = meta(`meta[property="og:title"]`, `meta[name="twitter:title"]`)
	if title == "" {
		title = decodeEntities(strings.TrimSpace(doc.Find("title").First().Text()))
	}

	description = meta(`meta[property="og:description"]`, `meta[name="twitter:description"]`, `meta[name="description"]`)
	thumbnail = meta(`meta[property="og:image"]`, `meta[name="twitter:image"]`)
	siteName = meta(`meta[property="og:site_name"]`)

	return title, description, thumbnail, siteName
}
