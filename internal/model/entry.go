package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ContentType classifies a LibraryEntry's source.
type ContentType string

const (
	ContentTypeYouTube    ContentType = "youtube"
	ContentTypeTweet      ContentType = "tweet"
	ContentTypeArticle    ContentType = "article"
	ContentTypeInstagram  ContentType = "instagram"
	ContentTypeImage      ContentType = "image"
	ContentTypeText       ContentType = "text"
	ContentTypeGeneric    ContentType = "generic"
)

// EntryStatus is the lifecycle state of a LibraryEntry.
type EntryStatus string

const (
	StatusActive   EntryStatus = "active"
	StatusArchived EntryStatus = "archived"
)

// CategoryVocabulary is the fixed set of categories the categorizer and UI
// may assign. Any category outside this set is rejected at ingest time.
var CategoryVocabulary = []string{
	"Tech", "AI", "Science", "Business", "Design",
	"Music", "Gaming", "Sports", "News", "Fun",
}

func IsValidCategory(c string) bool {
	for _, v := range CategoryVocabulary {
		if v == c {
			return true
		}
	}
	return false
}

// LibraryEntry is a single saved item in a user's library. See spec §3 for
// the full invariant list: (userId, url) unique when url is non-null,
// engagementScore clamps to [0,1], shownCount is monotonically
// non-decreasing within a user.
type LibraryEntry struct {
	ID          string      `json:"id"`
	UserID      string      `json:"-"`
	URL         *string     `json:"url,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	SiteName    string      `json:"siteName,omitempty"`
	ContentType ContentType `json:"contentType"`
	TextContent string      `json:"textContent,omitempty"`
	ImageData   string      `json:"imageData,omitempty"`
	Categories  []string    `json:"categories"`
	AISummary   string      `json:"aiSummary,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// Embedding is lazily populated and never serialized to clients (stripped
	// per spec §4.7 step 7). It is nil when absent.
	Embedding *pgvector.Vector `json:"-"`

	Status EntryStatus `json:"status"`

	AddedAt      time.Time  `json:"addedAt"`
	ArchivedAt   *time.Time `json:"archivedAt,omitempty"`
	LastShownAt  *time.Time `json:"lastShownAt,omitempty"`
	ShownCount   int        `json:"shownCount"`
	EngagementScore float64 `json:"engagementScore"`
	AvgDwellMs   float64    `json:"avgDwellMs"`
	OpenCount    int        `json:"openCount"`
	LikedAt      *time.Time `json:"likedAt,omitempty"`
}

// PrimaryCategory returns categories[0], or "" if the entry has none. Used
// only by the diversity pass (spec §4.3, GLOSSARY).
func (e LibraryEntry) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0]
}

// HasEmbedding reports whether the entry carries a usable embedding vector.
func (e LibraryEntry) HasEmbedding() bool {
	return e.Embedding != nil
}

// Clamp01 clamps v to the closed interval [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LinksCreateRequest is the body of POST /links.
type LinksCreateRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// UnfurlRequest is the body of POST /unfurl.
type UnfurlRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// LinksPatchRequest is the body of PATCH /links/{id}. All fields optional.
type LinksPatchRequest struct {
	Status        *EntryStatus `json:"status,omitempty"`
	ShownCount    *int         `json:"shownCount,omitempty"`
	IncrementShown *bool       `json:"incrementShown,omitempty"`
	Liked         *bool        `json:"liked,omitempty"`
}

// UploadRequest is the body of POST /upload.
type UploadRequest struct {
	Type        string `json:"type" validate:"required,oneof=image text"`
	Title       string `json:"title,omitempty"`
	TextContent string `json:"textContent,omitempty"`
	ImageData   string `json:"imageData,omitempty"`
}

// BulkUploadRequest is the body of PUT /upload.
type BulkUploadRequest struct {
	URLs []string `json:"urls" validate:"required,max=50,dive,url"`
}

// BulkUploadResult describes the outcome of one URL within a bulk upload.
type BulkUploadResult struct {
	URL    string `json:"url"`
	Status string `json:"status"` // "added" | "duplicate" | "error"
	Error  string `json:"error,omitempty"`
}

// BulkUploadSummary tallies a bulk upload's outcomes.
type BulkUploadSummary struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// LinksStats is the response of GET /links?stats=true.
type LinksStats struct {
	Active     int      `json:"active"`
	Archived   int      `json:"archived"`
	Total      int      `json:"total"`
	Categories []string `json:"categories"`
}
