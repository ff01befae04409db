package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/resource-hub/internal/model"
)

// EventDB is the events collection.
type EventDB struct {
	conn *sql.DB
}

func (e *EventDB) Create(ctx context.Context, event *model.Event) error {
	event.ID = xid.New().String()
	event.CreatedAt = time.Now().UTC()

	_, err := e.conn.ExecContext(ctx,
		`INSERT INTO events (id, title, type, date, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.Title, event.Type, event.Date, string(event.Status), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting event: %w", err)
	}
	return nil
}

// List returns events in insertion order.
func (e *EventDB) List(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := e.conn.QueryContext(ctx,
		`SELECT id, title, type, date, status, created_at FROM events ORDER BY rowid LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0, 16)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Type, &ev.Date, &ev.Status, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	return events, nil
}
