package unfurl

import (
	"strings"

	"github.com/shelfline/feedengine/internal/model"
)

// DetectContentType classifies a URL's content type by hostname (spec
// §4.5 step 5).
func DetectContentType(host string) model.ContentType {
	h := strings.ToLower(strings.TrimPrefix(host, "www."))
	switch {
	case isYouTubeHost(h):
		return model.ContentTypeYouTube
	case h == "twitter.com" || h == "x.com":
		return model.ContentTypeTweet
	case h == "instagram.com":
		return model.ContentTypeInstagram
	default:
		return model.ContentTypeArticle
	}
}

func isYouTubeHost(host string) bool {
	return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be"
}
