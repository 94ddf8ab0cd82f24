// Package engagement implements the synchronous engagement-ingestion
// pipeline (spec §4.4): a batch of client-submitted events is validated,
// logged, and folded into per-entry counters/running means and per-user
// time-of-day preference aggregates, all inside one transaction per POST.
package engagement

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/storage"
)

const (
	dwellMaxComponent  = 0.7
	dwellLogDenominator = 120.0 // seconds; ln(1+120) normalizes dwellComponent to [0, 0.7]
	velocityPenaltyCap  = 0.2
	velocityFloor       = 0.5

	txMaxRetries = 3
	txBaseDelay  = 20 * time.Millisecond
)

// Ingest validates inputs, stamps server-side fields, and applies the full
// 5-step algorithm atomically (spec §4.4). Returns a Validation AppError if
// no input event is valid. The running-mean update in
// applyDwellAndPreferences is the write most exposed to a concurrent
// serialization conflict (two requests for the same user racing to upsert
// the same time_preferences row), so the whole transaction runs under
// storage.WithRetry.
func Ingest(ctx context.Context, db *storage.DB, userID string, inputs []model.EngagementEventInput) (model.EngagementResponse, error) {
	valid := make([]model.EngagementEventInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Valid() {
			valid = append(valid, in)
		}
	}
	if len(valid) == 0 {
		return model.EngagementResponse{}, model.NewValidationError("no valid engagement events in request")
	}

	now := time.Now().UTC()
	dayType := model.DayTypeFor(int(now.Weekday()))

	err := storage.WithRetry(ctx, txMaxRetries, txBaseDelay, func() error {
		return runIngestTx(ctx, db, userID, valid, now, dayType)
	})
	if err != nil {
		return model.EngagementResponse{}, err
	}

	return model.EngagementResponse{OK: true, Processed: len(valid)}, nil
}

func runIngestTx(ctx context.Context, db *storage.DB, userID string, valid []model.EngagementEventInput, now time.Time, dayType model.DayType) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := storage.InsertEngagementEvents(ctx, tx, userID, valid, now); err != nil {
		return err
	}

	if err := applyCounters(ctx, tx, userID, valid, now); err != nil {
		return err
	}

	if err := applyDwellAndPreferences(ctx, tx, userID, valid, now, dayType); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("engagement: commit: %w", err)
	}
	return nil
}

// applyCounters folds impression and open counts per linkId (spec §4.4
// steps 2-3).
func applyCounters(ctx context.Context, tx pgx.Tx, userID string, events []model.EngagementEventInput, now time.Time) error {
	shown := map[string]int{}
	opened := map[string]int{}
	for _, e := range events {
		switch e.EventType {
		case model.EventImpression:
			shown[e.LinkID]++
		case model.EventOpen:
			opened[e.LinkID]++
		}
	}

	for linkID, n := range shown {
		if err := storage.IncrementShownCount(ctx, tx, userID, linkID, n, now); err != nil {
			return err
		}
	}
	for linkID, n := range opened {
		if err := storage.IncrementOpenCount(ctx, tx, userID, linkID, n); err != nil {
			return err
		}
	}
	return nil
}

// applyDwellAndPreferences applies the running-mean update for each valid
// dwell event and accumulates per-category contributions into
// time_preferences (spec §4.4 steps 4-5).
func applyDwellAndPreferences(ctx context.Context, tx pgx.Tx, userID string, events []model.EngagementEventInput, now time.Time, dayType model.DayType) error {
	type prefKey struct {
		hour int
		cat  string
	}
	contributions := map[prefKey]*struct {
		sum   float64
		count int
	}{}

	for _, e := range events {
		if e.EventType != model.EventDwell || e.DwellTimeMs == nil || *e.DwellTimeMs <= 0 {
			continue
		}

		entry, err := getEntryCategories(ctx, tx, userID, e.LinkID)
		if err != nil {
			if err == storage.ErrNotFound {
				continue
			}
			return err
		}

		interactionScore := interactionScoreFor(*e.DwellTimeMs, e.SwipeVelocity)

		if err := storage.ApplyDwellUpdate(ctx, tx, userID, e.LinkID, interactionScore, float64(*e.DwellTimeMs)); err != nil {
			return err
		}

		hour := now.Hour()
		for _, cat := range entry.Categories {
			key := prefKey{hour: hour, cat: cat}
			c := contributions[key]
			if c == nil {
				c = &struct {
					sum   float64
					count int
				}{}
				contributions[key] = c
			}
			c.sum += interactionScore
			c.count++
		}
	}

	for key, c := range contributions {
		if err := storage.UpsertTimePreference(ctx, tx, userID, key.hour, dayType, key.cat, c.sum, c.count); err != nil {
			return err
		}
	}
	return nil
}

// interactionScoreFor computes spec §4.4 step 4's interactionScore from a
// dwell duration and optional swipe velocity.
func interactionScoreFor(dwellTimeMs int, swipeVelocity *float64) float64 {
	dwellSeconds := float64(dwellTimeMs) / 1000
	dwellComponent := math.Min(dwellMaxComponent, math.Log(1+dwellSeconds)/math.Log(1+dwellLogDenominator)*dwellMaxComponent)

	var velocityPenalty float64
	if swipeVelocity != nil {
		velocityPenalty = math.Min(velocityPenaltyCap, math.Max(0, (*swipeVelocity-velocityFloor)*0.1))
	}

	return model.Clamp01(dwellComponent - velocityPenalty)
}

// getEntryCategories fetches an entry's categories within the transaction, scoped
// to userID. A thin wrapper so applyDwellAndPreferences doesn't need a
// second storage round-trip outside the tx.
func getEntryCategories(ctx context.Context, tx pgx.Tx, userID, linkID string) (model.LibraryEntry, error) {
	row := tx.QueryRow(ctx, `SELECT categories FROM library_entries WHERE id = $1 AND user_id = $2`, linkID, userID)
	var e model.LibraryEntry
	if err := row.Scan(&e.Categories); err != nil {
		if err == pgx.ErrNoRows {
			return model.LibraryEntry{}, storage.ErrNotFound
		}
		return model.LibraryEntry{}, fmt.Errorf("engagement: get entry categories: %w", err)
	}
	return e, nil
}
