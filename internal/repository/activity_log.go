package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hhaamed74/promanager-api/internal/model"
)

// InsertActivityLog stores entries, skipping any whose event ID was already
// stored so redelivered stream messages are harmless.
func (r *Repository) InsertActivityLog(ctx context.Context, entries []*model.ActivityLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO activity_log (id, event_id, actor_id, type, subject_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query,
			e.ID,
			e.EventID,
			nullableString(e.ActorID),
			e.Type,
			nullableString(e.SubjectID),
			e.Message,
			e.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert activity %d: %w", i, err)
		}
	}
	return nil
}

// ListActivityLog returns the most recent activity log entries.
func (r *Repository) ListActivityLog(ctx context.Context, limit int) ([]*model.ActivityLogEntry, error) {
	query := `
		SELECT id, event_id, COALESCE(actor_id, ''), type, COALESCE(subject_id, ''), message, created_at
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity log: %w", err)
	}
	defer rows.Close()

	entries := make([]*model.ActivityLogEntry, 0)
	for rows.Next() {
		var e model.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.ActorID, &e.Type, &e.SubjectID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log: %w", err)
	}
	return entries, nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
