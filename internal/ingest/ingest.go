// Package ingest is the content ingestor (spec §4.5): it turns a URL, a
// text note, or an uploaded image into one persisted LibraryEntry, running
// SSRF-safe unfurling, content-type classification, categorization, and
// embedding generation for the URL path.
package ingest

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/shelfline/feedengine/internal/categorize"
	"github.com/shelfline/feedengine/internal/fetchguard"
	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/service/embedding"
	"github.com/shelfline/feedengine/internal/storage"
	"github.com/shelfline/feedengine/internal/unfurl"
)

// Ingestor wires the content-ingestion pipeline's collaborators.
type Ingestor struct {
	db         *storage.DB
	fetcher    *fetchguard.Client
	categorize categorize.Provider
	embedder   embedding.Provider
}

// New builds an Ingestor from its collaborators.
func New(db *storage.DB, fetcher *fetchguard.Client, categorizer categorize.Provider, embedder embedding.Provider) *Ingestor {
	return &Ingestor{db: db, fetcher: fetcher, categorize: categorizer, embedder: embedder}
}

// IngestURL runs the full URL ingestion pipeline (spec §4.5 steps 1-8) and
// persists one active LibraryEntry. Returns a Conflict AppError carrying
// the existing entry when (userId, url) already exists.
func (i *Ingestor) IngestURL(ctx context.Context, userID, rawURL string) (model.LibraryEntry, error) {
	u, err := i.fetcher.CheckURLOnly(ctx, rawURL)
	if err != nil {
		if fetchguard.IsUnsafe(err) {
			return model.LibraryEntry{}, model.NewUnsafeTargetError(rawURL, err)
		}
		return model.LibraryEntry{}, model.NewValidationError("invalid URL: " + err.Error())
	}
	normalizedURL := u.String()

	if existing, err := i.db.GetEntryByURL(ctx, userID, normalizedURL); err == nil {
		return model.LibraryEntry{}, model.NewConflictError("link already saved", existing)
	} else if err != storage.ErrNotFound {
		return model.LibraryEntry{}, err
	}

	result, err := unfurl.Fetch(ctx, i.fetcher, normalizedURL)
	if err != nil {
		if fetchguard.IsUnsafe(err) {
			return model.LibraryEntry{}, model.NewUnsafeTargetError(rawURL, err)
		}
		// Ordinary unfurl failures never block ingestion (spec §7): fall back
		// to a bare entry classified by hostname alone.
		result = unfurl.Result{ContentType: unfurl.DetectContentType(strings.ToLower(u.Hostname())), Fallback: true}
	}

	categories := categorize.Categorize(ctx, i.categorize, categorizeText(result.Title, result.Description, result.SiteName))
	vec := i.embed(ctx, embedText(result.Title, result.Description, categories, result.SiteName))

	entry := model.LibraryEntry{
		UserID:      userID,
		URL:         &normalizedURL,
		Title:       result.Title,
		Description: result.Description,
		Thumbnail:   result.Thumbnail,
		SiteName:    result.SiteName,
		ContentType: result.ContentType,
		Categories:  categories,
		Embedding:   vec,
		Status:      model.StatusActive,
	}

	return i.db.CreateEntry(ctx, entry)
}

// IngestUpload persists a text note or uploaded image (spec §4.5 "For
// text/image"): url is left null, categorization runs over title/text, and
// no unfurl is attempted.
func (i *Ingestor) IngestUpload(ctx context.Context, userID string, req model.UploadRequest) (model.LibraryEntry, error) {
	var contentType model.ContentType
	switch req.Type {
	case "image":
		contentType = model.ContentTypeImage
	case "text":
		contentType = model.ContentTypeText
	default:
		return model.LibraryEntry{}, model.NewValidationError("upload type must be image or text")
	}
	if contentType == model.ContentTypeImage && req.ImageData == "" {
		return model.LibraryEntry{}, model.NewValidationError("imageData is required for image uploads")
	}
	if contentType == model.ContentTypeText && req.TextContent == "" {
		return model.LibraryEntry{}, model.NewValidationError("textContent is required for text uploads")
	}

	categories := categorize.Categorize(ctx, i.categorize, categorizeText(req.Title, req.TextContent, ""))
	vec := i.embed(ctx, embedText(req.Title, req.TextContent, categories, ""))

	entry := model.LibraryEntry{
		UserID:      userID,
		Title:       req.Title,
		TextContent: req.TextContent,
		ImageData:   req.ImageData,
		ContentType: contentType,
		Categories:  categories,
		Embedding:   vec,
		Status:      model.StatusActive,
	}
	return i.db.CreateEntry(ctx, entry)
}

// IngestBulkURLs ingests each URL independently, capturing per-URL outcome
// rather than failing the whole batch (spec §6 PUT /upload).
func (i *Ingestor) IngestBulkURLs(ctx context.Context, userID string, urls []string) ([]model.BulkUploadResult, model.BulkUploadSummary) {
	results := make([]model.BulkUploadResult, 0, len(urls))
	var summary model.BulkUploadSummary

	for _, raw := range urls {
		_, err := i.IngestURL(ctx, userID, raw)
		switch {
		case err == nil:
			results = append(results, model.BulkUploadResult{URL: raw, Status: "added"})
			summary.Added++
		case isConflict(err):
			results = append(results, model.BulkUploadResult{URL: raw, Status: "duplicate"})
			summary.Duplicates++
		default:
			results = append(results, model.BulkUploadResult{URL: raw, Status: "error", Error: err.Error()})
			summary.Errors++
		}
	}
	return results, summary
}

func isConflict(err error) bool {
	ae, ok := model.AsAppError(err)
	return ok && ae.Code == model.ErrCodeConflict
}

// embed generates an embedding, swallowing provider failures into a nil
// vector (spec §4.5 step 6: "nullable on failure").
func (i *Ingestor) embed(ctx context.Context, text string) *pgvector.Vector {
	if i.embedder == nil || text == "" {
		return nil
	}
	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil
	}
	return &vec
}

func categorizeText(title, body, siteName string) string {
	return strings.TrimSpace(strings.Join([]string{title, body, siteName}, " "))
}

func embedText(title, description string, categories []string, siteName string) string {
	parts := make([]string, 0, 4)
	if title != "" {
		parts = append(parts, title)
	}
	if description != "" {
		parts = append(parts, description)
	}
	if len(categories) > 0 {
		parts = append(parts, strings.Join(categories, " "))
	}
	if siteName != "" {
		parts = append(parts, siteName)
	}
	return strings.Join(parts, " ")
}
