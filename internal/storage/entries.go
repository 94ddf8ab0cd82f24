package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/shelfline/feedengine/internal/model"
)

const entryColumns = `id, user_id, url, title, description, thumbnail, site_name, content_type,
	text_content, image_data, categories, ai_summary, metadata, embedding, status,
	added_at, archived_at, last_shown_at, shown_count, engagement_score, avg_dwell_ms,
	open_count, liked_at`

func scanEntry(row pgx.Row) (model.LibraryEntry, error) {
	var e model.LibraryEntry
	err := row.Scan(
		&e.ID, &e.UserID, &e.URL, &e.Title, &e.Description, &e.Thumbnail, &e.SiteName, &e.ContentType,
		&e.TextContent, &e.ImageData, &e.Categories, &e.AISummary, &e.Metadata, &e.Embedding, &e.Status,
		&e.AddedAt, &e.ArchivedAt, &e.LastShownAt, &e.ShownCount, &e.EngagementScore, &e.AvgDwellMs,
		&e.OpenCount, &e.LikedAt,
	)
	return e, err
}

// CreateEntry inserts a new library entry. If the entry has a non-null URL
// that already exists for this user, returns a Conflict AppError carrying
// the existing entry (spec §4.5 step 7, §4.1 invariants).
func (db *DB) CreateEntry(ctx context.Context, e model.LibraryEntry) (model.LibraryEntry, error) {
	if e.ID == "" {
		e.ID = model.NewID()
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	if e.Categories == nil {
		e.Categories = []string{}
	}

	row := db.pool.QueryRow(ctx, `
		INSERT INTO library_entries (
			id, user_id, url, title, description, thumbnail, site_name, content_type,
			text_content, image_data, categories, ai_summary, metadata, embedding, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+entryColumns,
		e.ID, e.UserID, e.URL, e.Title, e.Description, e.Thumbnail, e.SiteName, e.ContentType,
		e.TextContent, e.ImageData, e.Categories, e.AISummary, e.Metadata, e.Embedding, e.Status,
	)
	created, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && e.URL != nil {
			existing, getErr := db.GetEntryByURL(ctx, e.UserID, *e.URL)
			if getErr == nil {
				return model.LibraryEntry{}, model.NewConflictError("link already saved", existing)
			}
			return model.LibraryEntry{}, model.NewConflictError("link already saved", nil)
		}
		return model.LibraryEntry{}, fmt.Errorf("storage: insert entry: %w", err)
	}
	return created, nil
}

// GetEntryByID fetches an entry scoped to userID. Returns ErrNotFound if
// the row doesn't exist or belongs to a different user (spec §7: "a 404 is
// returned if a row exists but belongs to a different user").
func (db *DB) GetEntryByID(ctx context.Context, userID, id string) (model.LibraryEntry, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM library_entries WHERE id = $1 AND user_id = $2`, id, userID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LibraryEntry{}, ErrNotFound
		}
		return model.LibraryEntry{}, fmt.Errorf("storage: get entry: %w", err)
	}
	return e, nil
}

// GetEntryByURL fetches an entry by (userID, url).
func (db *DB) GetEntryByURL(ctx context.Context, userID, url string) (model.LibraryEntry, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM library_entries WHERE user_id = $1 AND url = $2`, userID, url)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LibraryEntry{}, ErrNotFound
		}
		return model.LibraryEntry{}, fmt.Errorf("storage: get entry by url: %w", err)
	}
	return e, nil
}

// ListEntriesOpts filters ListEntries/ListCandidates.
type ListEntriesOpts struct {
	Status   model.EntryStatus // "" means any status
	Category string            // "" or "All" means any category
	Limit    int               // 0 means no limit
}

// ListEntries returns entries for userID sorted by addedAt desc, matching
// spec.md's GET /links contract.
func (db *DB) ListEntries(ctx context.Context, userID string, opts ListEntriesOpts) ([]model.LibraryEntry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + entryColumns + ` FROM library_entries WHERE user_id = $1`)
	args := []any{userID}

	if opts.Status != "" {
		args = append(args, opts.Status)
		sb.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	if opts.Category != "" && opts.Category != "All" {
		args = append(args, opts.Category)
		sb.WriteString(fmt.Sprintf(" AND $%d = ANY(categories)", len(args)))
	}
	sb.WriteString(" ORDER BY added_at DESC")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := db.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list entries: %w", err)
	}
	defer rows.Close()

	var out []model.LibraryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListCandidates returns active entries for a feed request, pre-filtered by
// category membership per spec §4.7 step 1.
func (db *DB) ListCandidates(ctx context.Context, userID, category string) ([]model.LibraryEntry, error) {
	return db.ListEntries(ctx, userID, ListEntriesOpts{Status: model.StatusActive, Category: category})
}

// Stats computes the GET /links?stats=true response.
func (db *DB) Stats(ctx context.Context, userID string) (model.LinksStats, error) {
	var stats model.LinksStats
	row := db.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'active'),
			count(*) FILTER (WHERE status = 'archived'),
			count(*)
		FROM library_entries WHERE user_id = $1`, userID)
	if err := row.Scan(&stats.Active, &stats.Archived, &stats.Total); err != nil {
		return model.LinksStats{}, fmt.Errorf("storage: stats: %w", err)
	}

	catRows, err := db.pool.Query(ctx,
		`SELECT DISTINCT unnest(categories) FROM library_entries WHERE user_id = $1`, userID)
	if err != nil {
		return model.LinksStats{}, fmt.Errorf("storage: stats categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var c string
		if err := catRows.Scan(&c); err != nil {
			return model.LinksStats{}, fmt.Errorf("storage: scan category: %w", err)
		}
		stats.Categories = append(stats.Categories, c)
	}
	return stats, catRows.Err()
}

// EntryPatch carries the optional fields of PATCH /links/{id}.
type EntryPatch struct {
	Status         *model.EntryStatus
	ShownCount     *int
	IncrementShown bool
	Liked          *bool
}

// PatchEntry applies a partial update scoped to (userID, id). Returns
// ErrNotFound if the row doesn't exist for this user.
func (db *DB) PatchEntry(ctx context.Context, userID, id string, p EntryPatch) (model.LibraryEntry, error) {
	var setClauses []string
	args := []any{}

	if p.Status != nil {
		args = append(args, *p.Status)
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", len(args)))
		if *p.Status == model.StatusArchived {
			setClauses = append(setClauses, "archived_at = now()")
		}
	}
	if p.ShownCount != nil {
		args = append(args, *p.ShownCount)
		setClauses = append(setClauses, fmt.Sprintf("shown_count = $%d", len(args)))
	}
	if p.IncrementShown {
		setClauses = append(setClauses, "shown_count = shown_count + 1")
	}
	if p.Liked != nil {
		if *p.Liked {
			setClauses = append(setClauses, "liked_at = now()")
		} else {
			setClauses = append(setClauses, "liked_at = NULL")
		}
	}

	if len(setClauses) == 0 {
		return db.GetEntryByID(ctx, userID, id)
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(
		`UPDATE library_entries SET %s WHERE id = $%d AND user_id = $%d RETURNING `+entryColumns,
		strings.Join(setClauses, ", "), len(args)-1, len(args),
	)

	row := db.pool.QueryRow(ctx, query, args...)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LibraryEntry{}, ErrNotFound
		}
		return model.LibraryEntry{}, fmt.Errorf("storage: patch entry: %w", err)
	}
	return e, nil
}

// DeleteEntry hard-deletes an entry scoped to userID.
func (db *DB) DeleteEntry(ctx context.Context, userID, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM library_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("storage: delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FetchEmbeddings loads embeddings for a bounded set of entry IDs, used to
// build SessionContext.engagedEmbeddings (spec §4.7: "most recent 48").
func (db *DB) FetchEmbeddings(ctx context.Context, userID string, ids []string) (map[string]*pgvector.Vector, error) {
	if len(ids) == 0 {
		return map[string]*pgvector.Vector{}, nil
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, embedding FROM library_entries WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*pgvector.Vector)
	for rows.Next() {
		var id string
		var v *pgvector.Vector
		if err := rows.Scan(&id, &v); err != nil {
			return nil, fmt.Errorf("storage: scan embedding: %w", err)
		}
		if v != nil {
			out[id] = v
		}
	}
	return out, rows.Err()
}
