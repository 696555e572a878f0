package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Keystroke/internal/domain"
)

// Recent returns up to limit entries, newest first.
func (j *SQLite) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT at_ms, kind, room_id, user_id, actor_id, detail FROM moderation_journal ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			atMS                          int64
			kind, room, user, actor, note string
		)
		if err := rows.Scan(&atMS, &kind, &room, &user, &actor, &note); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		out = append(out, Entry{
			At:      time.UnixMilli(atMS).UTC(),
			Kind:    Kind(kind),
			RoomID:  domain.RoomID(room),
			UserID:  domain.UserID(user),
			ActorID: domain.UserID(actor),
			Detail:  note,
		})
	}
	return out, rows.Err()
}
