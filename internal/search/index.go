// Package search provides full-text search over a user's library, layered
// on top of the core feed as a bonus browsing surface (not part of the
// ranking pipeline itself). It is an in-memory Bleve index rebuilt from
// writes as they happen; it holds no ranking opinion and never blocks an
// ingest or delete on indexing failure.
package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/shelfline/feedengine/internal/model"
)

// Index wraps an in-memory Bleve index of LibraryEntry documents, scoped
// per user at query time via a conjunction with a UserID term query.
type Index struct {
	index bleve.Index
}

// document is the indexed projection of a model.LibraryEntry.
type document struct {
	UserID      string
	Title       string
	Description string
	TextContent string
	SiteName    string
	Categories  []string
}

// Result is one search hit, carrying enough to resolve back to the full
// entry via storage.GetEntryByID.
type Result struct {
	ID    string
	Score float64
}

// New builds an empty in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = "en"

	bodyField := bleve.NewTextFieldMapping()
	bodyField.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("UserID", bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("Title", titleField)
	docMapping.AddFieldMappingsAt("Description", bodyField)
	docMapping.AddFieldMappingsAt("TextContent", bodyField)
	docMapping.AddFieldMappingsAt("SiteName", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Categories", bleve.NewKeywordFieldMapping())

	im := bleve.NewIndexMapping()
	im.AddDocumentMapping("_default", docMapping)
	return im
}

// IndexEntry adds or updates e in the index.
func (idx *Index) IndexEntry(e model.LibraryEntry) error {
	doc := document{
		UserID:      e.UserID,
		Title:       e.Title,
		Description: e.Description,
		TextContent: e.TextContent,
		SiteName:    e.SiteName,
		Categories:  e.Categories,
	}
	if err := idx.index.Index(e.ID, doc); err != nil {
		return fmt.Errorf("search: index entry %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEntry removes id from the index, no-op if absent.
func (idx *Index) DeleteEntry(id string) error {
	if err := idx.index.Delete(id); err != nil {
		return fmt.Errorf("search: delete entry %s: %w", id, err)
	}
	return nil
}

// Search runs a free-text query string (Bleve query-string syntax: quotes,
// boolean operators, fuzzy ~) scoped to userID, returning up to limit hits
// ordered by relevance score.
func (idx *Index) Search(userID, queryStr string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	textQuery := bleve.NewQueryStringQuery(queryStr)
	userQuery := bleve.NewTermQuery(userID)
	userQuery.SetField("UserID")

	conjunction := bleve.NewConjunctionQuery(textQuery, userQuery)

	req := bleve.NewSearchRequestOptions(conjunction, limit, 0, false)
	res, err := idx.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, Result{ID: hit.ID, Score: hit.Score})
	}
	return out, nil
}

// Close releases index resources.
func (idx *Index) Close() error {
	return idx.index.Close()
}
