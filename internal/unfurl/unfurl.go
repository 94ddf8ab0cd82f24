package unfurl

import (
	"context"
	"net/url"
	"strings"

	"github.com/shelfline/feedengine/internal/fetchguard"
	"github.com/shelfline/feedengine/internal/model"
)

// Fetch unfurls rawURL: YouTube hosts prefer oEmbed, falling back to a
// generic HTML fetch on failure; everything else goes straight to the
// generic fetch (spec §4.5 steps 2-5).
func Fetch(ctx context.Context, client *fetchguard.Client, rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, err
	}
	host := strings.ToLower(u.Hostname())
	contentType := DetectContentType(host)

	if contentType == model.ContentTypeYouTube {
		if videoID := ExtractVideoID(rawURL); videoID != "" {
			result, ok, err := fetchYouTube(ctx, client, rawURL, videoID)
			if err != nil {
				return Result{}, err
			}
			if ok {
				return result, nil
			}
		}
	}

	return fetchGeneric(ctx, client, rawURL, contentType)
}

// fetchYouTube tries the oEmbed API. A safety-policy rejection propagates as
// an error; an ordinary oEmbed failure returns ok=false so the caller falls
// back to a generic fetch (spec §4.5 step 2).
func fetchYouTube(ctx context.Context, client *fetchguard.Client, rawURL, videoID string) (Result, bool, error) {
	resp, err := fetchOEmbed(ctx, client, rawURL)
	if err != nil {
		if fetchguard.IsUnsafe(err) {
			return Result{}, false, err
		}
		return Result{}, false, nil
	}

	thumbnail := resp.ThumbnailURL
	if thumbnail == "" {
		thumbnail = ThumbnailURLForVideo(videoID)
	}

	return Result{
		Title:       resp.Title,
		SiteName:    resp.AuthorName,
		Thumbnail:   thumbnail,
		ContentType: model.ContentTypeYouTube,
	}, true, nil
}

// fetchGeneric fetches and parses rawURL as HTML. A safety-policy rejection
// propagates as an error; an ordinary fetch failure (timeout, non-HTML
// content type, non-2xx status) degrades to a fallback result rather than
// failing the request (spec §7: UnsafeTarget vs ExternalFailure).
func fetchGeneric(ctx context.Context, client *fetchguard.Client, rawURL string, contentType model.ContentType) (Result, error) {
	doc, err := fetchHTML(ctx, client, rawURL)
	if err != nil {
		if fetchguard.IsUnsafe(err) {
			return Result{}, err
		}
		return Result{
			ContentType: contentType,
			Fallback:    true,
		}, nil
	}

	title, description, thumbnail, siteName := extractMeta(doc)
	return Result{
		Title:       title,
		Description: description,
		Thumbnail:   thumbnail,
		SiteName:    siteName,
		ContentType: contentType,
	}, nil
}
