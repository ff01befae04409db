package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/resource-hub/internal/model"
)

// RatingDB is the ratings collection.
type RatingDB struct {
	conn *sql.DB
}

func (r *RatingDB) Create(ctx context.Context, rating *model.Rating) error {
	rating.ID = xid.New().String()
	rating.CreatedAt = time.Now().UTC()

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO ratings (id, teacher_name, subject, rating, feedback, user_email, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rating.ID,
		rating.TeacherName,
		rating.Subject,
		rating.Rating,
		rating.Feedback,
		rating.UserEmail,
		rating.Date,
		rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting rating: %w", err)
	}
	return nil
}

// List returns the newest ratings first. Dates are ISO-8601 strings, so text
// ordering is chronological; rowid breaks ties in favour of the later insert.
// An empty teacherName matches every teacher.
func (r *RatingDB) List(ctx context.Context, teacherName string, limit int) ([]model.Rating, error) {
	query := `SELECT id, teacher_name, subject, rating, feedback, user_email, date, created_at FROM ratings`
	args := []any{}
	if teacherName != "" {
		query += ` WHERE teacher_name = ?`
		args = append(args, teacherName)
	}
	query += ` ORDER BY date DESC, rowid DESC LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]model.Rating, 0, 16)
	for rows.Next() {
		var rt model.Rating
		err := rows.Scan(
			&rt.ID,
			&rt.TeacherName,
			&rt.Subject,
			&rt.Rating,
			&rt.Feedback,
			&rt.UserEmail,
			&rt.Date,
			&rt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning rating row: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating ratings: %w", err)
	}
	return ratings, nil
}
