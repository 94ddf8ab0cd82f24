// Package unfurl fetches metadata for a URL: YouTube oEmbed for YouTube
// hosts, otherwise a generic HTML fetch with Open Graph/Twitter/title
// extraction (spec §4.5).
package unfurl

import "github.com/shelfline/feedengine/internal/model"

// Result is the response body of POST /unfurl.
type Result struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Thumbnail   string            `json:"thumbnail,omitempty"`
	SiteName    string            `json:"siteName,omitempty"`
	ContentType model.ContentType `json:"contentType"`
	Fallback    bool              `json:"fallback,omitempty"`
}
