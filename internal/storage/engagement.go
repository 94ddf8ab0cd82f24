package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shelfline/feedengine/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting the
// methods below run either standalone or inside the single transaction
// spec §5 requires per engagement-ingestion POST.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BeginTx starts a transaction for multi-step engagement ingestion.
func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: begin tx: %w", err)
	}
	return tx, nil
}

// InsertEngagementEvents inserts the server-stamped event rows (spec §4.4
// step 1) and returns them with generated IDs.
func InsertEngagementEvents(ctx context.Context, q querier, userID string, inputs []model.EngagementEventInput, now time.Time) ([]model.EngagementEvent, error) {
	hour := now.Hour()
	dow := int(now.Weekday())

	out := make([]model.EngagementEvent, 0, len(inputs))
	for _, in := range inputs {
		ev := model.EngagementEvent{
			ID:            model.NewID(),
			UserID:        userID,
			LinkID:        in.LinkID,
			EventType:     in.EventType,
			DwellTimeMs:   in.DwellTimeMs,
			SwipeVelocity: in.SwipeVelocity,
			CardIndex:     in.CardIndex,
			HourOfDay:     hour,
			DayOfWeek:     dow,
			SessionID:     in.SessionID,
			FeedRequestID: in.FeedRequestID,
			CreatedAt:     now,
		}
		_, err := q.Exec(ctx, `
			INSERT INTO engagement_events
				(id, user_id, link_id, event_type, dwell_time_ms, swipe_velocity, card_index,
				 hour_of_day, day_of_week, session_id, feed_request_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			ev.ID, ev.UserID, ev.LinkID, ev.EventType, ev.DwellTimeMs, ev.SwipeVelocity, ev.CardIndex,
			ev.HourOfDay, ev.DayOfWeek, ev.SessionID, ev.FeedRequestID, ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("storage: insert engagement event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// IncrementShownCount adds n impressions to a link's shown_count and bumps
// last_shown_at, scoped to userID (spec §4.4 step 2).
func IncrementShownCount(ctx context.Context, q querier, userID, linkID string, n int, now time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE library_entries SET shown_count = shown_count + $1, last_shown_at = $2
		WHERE id = $3 AND user_id = $4`, n, now, linkID, userID)
	if err != nil {
		return fmt.Errorf("storage: increment shown count: %w", err)
	}
	return nil
}

// IncrementOpenCount adds n opens to a link's open_count (spec §4.4 step 3).
func IncrementOpenCount(ctx context.Context, q querier, userID, linkID string, n int) error {
	_, err := q.Exec(ctx, `
		UPDATE library_entries SET open_count = open_count + $1
		WHERE id = $2 AND user_id = $3`, n, linkID, userID)
	if err != nil {
		return fmt.Errorf("storage: increment open count: %w", err)
	}
	return nil
}

// ApplyDwellUpdate performs the running-mean update to engagement_score and
// avg_dwell_ms for one dwell event, using a server-side expression over the
// row's *current* shown_count so concurrent updates don't clobber each
// other (spec §4.4 step 4, §5, §9 "Running means under concurrency").
// Callers must invoke this sequentially per linkID within a request; the
// SQL itself is safe under arbitrary interleaving across different linkIDs.
func ApplyDwellUpdate(ctx context.Context, q querier, userID, linkID string, interactionScore, dwellTimeMs float64) error {
	_, err := q.Exec(ctx, `
		UPDATE library_entries SET
			engagement_score = CASE
				WHEN shown_count <= 1 THEN $1
				ELSE (engagement_score * (shown_count - 1) + $1) / shown_count
			END,
			avg_dwell_ms = CASE
				WHEN shown_count <= 1 THEN $2
				ELSE (avg_dwell_ms * (shown_count - 1) + $2) / shown_count
			END
		WHERE id = $3 AND user_id = $4`,
		interactionScore, dwellTimeMs, linkID, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: apply dwell update: %w", err)
	}
	return nil
}

// UpsertTimePreference folds a batch of dwell contributions for one
// (userID, hourOfDay, dayType, category) into the running average (spec
// §4.4 step 5).
func UpsertTimePreference(ctx context.Context, q querier, userID string, hourOfDay int, dayType model.DayType, category string, sum float64, count int) error {
	_, err := q.Exec(ctx, `
		INSERT INTO time_preferences (user_id, hour_slot, day_type, category, avg_engagement, sample_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, hour_slot, day_type, category) DO UPDATE SET
			avg_engagement = (time_preferences.avg_engagement * time_preferences.sample_count + $5 * $6) / (time_preferences.sample_count + $6),
			sample_count = time_preferences.sample_count + $6,
			updated_at = now()`,
		userID, hourOfDay, dayType, category, sum/float64(count), count,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert time preference: %w", err)
	}
	return nil
}

// GetTimePreferences loads the preference rows for a (userID, hourSlot,
// dayType) key, used by the time-preference scoring signal (spec §4.1.4).
func (db *DB) GetTimePreferences(ctx context.Context, userID string, hourSlot int, dayType model.DayType) ([]model.TimePreference, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT user_id, hour_slot, day_type, category, avg_engagement, sample_count, updated_at
		FROM time_preferences WHERE user_id = $1 AND hour_slot = $2 AND day_type = $3`,
		userID, hourSlot, dayType,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get time preferences: %w", err)
	}
	defer rows.Close()

	var out []model.TimePreference
	for rows.Next() {
		var t model.TimePreference
		if err := rows.Scan(&t.UserID, &t.HourSlot, &t.DayType, &t.Category, &t.AvgEngagement, &t.SampleCount, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan time preference: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
