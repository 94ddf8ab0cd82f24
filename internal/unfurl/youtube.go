package unfurl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"time"

	"github.com/shelfline/feedengine/internal/fetchguard"
)

// oEmbedTimeout bounds the YouTube oEmbed request (spec §4.5 step 2, §5).
const oEmbedTimeout = 5 * time.Second

// videoIDPattern matches the 11-character YouTube video ID out of any of
// the common URL shapes: watch?v=ID, youtu.be/ID, embed/ID, shorts/ID.
var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/|embed/|shorts/)([A-Za-z0-9_-]{11})`)

// ExtractVideoID returns the 11-character video ID from a YouTube URL, or
// "" if none is found.
func ExtractVideoID(rawURL string) string {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

type oEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// fetchOEmbed calls YouTube's oEmbed endpoint for videoURL, returning the
// title/author/thumbnail. fetchYouTube falls back to a generic fetch on any
// error other than a safety-policy rejection (spec §4.5 step 2).
func fetchOEmbed(ctx context.Context, client *fetchguard.Client, videoURL string) (oEmbedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, oEmbedTimeout)
	defer cancel()

	endpoint := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(videoURL)

	resp, err := client.Get(ctx, endpoint, nil)
	if err != nil {
		return oEmbedResponse{}, fmt.Errorf("unfurl: oembed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return oEmbedResponse{}, fmt.Errorf("unfurl: oembed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return oEmbedResponse{}, fmt.Errorf("unfurl: read oembed body: %w", err)
	}

	var out oEmbedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return oEmbedResponse{}, fmt.Errorf("unfurl: decode oembed body: %w", err)
	}
	return out, nil
}

// ThumbnailURLForVideo derives the standard thumbnail URL from the video
// ID pattern (spec §4.5 step 2), used when oEmbed omits thumbnail_url.
func ThumbnailURLForVideo(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}
