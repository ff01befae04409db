package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
)

// ResourceDB is the resources collection.
type ResourceDB struct {
	conn *sql.DB
}

const resourceColumns = `id, title, subject, course, type, author, downloads, date, privacy,
	filename, semester, year, description, college, content_type, owner, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(s rowScanner) (*model.Resource, error) {
	var r model.Resource
	err := s.Scan(
		&r.ID, &r.Title, &r.Subject, &r.Course, &r.Type, &r.Author, &r.Downloads,
		&r.Date, &r.Privacy, &r.Filename, &r.Semester, &r.Year, &r.Description,
		&r.College, &r.ContentType, &r.Owner, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a resource and assigns its ID. A filename already linked to
// another resource yields apperror.ErrConflict.
func (d *ResourceDB) Create(ctx context.Context, res *model.Resource) error {
	res.ID = xid.New().String()
	res.CreatedAt = time.Now().UTC()

	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO resources (`+resourceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Title, res.Subject, res.Course, res.Type, res.Author, res.Downloads,
		res.Date, res.Privacy, res.Filename, res.Semester, res.Year, res.Description,
		res.College, res.ContentType, res.Owner, res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("file", derefOr(res.Filename, res.ID))
		}
		return fmt.Errorf("sqlite: creating resource: %w", err)
	}
	return nil
}

func (d *ResourceDB) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	res, err := scanResource(d.conn.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("resource", id)
		}
		return nil, fmt.Errorf("sqlite: getting resource %s: %w", id, err)
	}
	return res, nil
}

// GetByFilename finds the resource linked to a blob. The missing case is
// reported as a missing file, since that is what the caller asked for.
func (d *ResourceDB) GetByFilename(ctx context.Context, filename string) (*model.Resource, error) {
	res, err := scanResource(d.conn.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE filename = ?`, filename))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("file", filename)
		}
		return nil, fmt.Errorf("sqlite: getting resource by filename %s: %w", filename, err)
	}
	return res, nil
}

// List applies the filter as a single parameterized query.
//
// Results come back in insertion order (rowid), capped at the filter limit.
// Search is a case-insensitive substring match over title, subject, course
// and description; instr() is used instead of LIKE so '%' and '_' in the
// search text are matched literally.
func (d *ResourceDB) List(ctx context.Context, f repository.ResourceFilter) ([]model.Resource, error) {
	var (
		where []string
		args  []any
	)

	if len(f.Courses) > 0 {
		where = append(where, "course IN ("+placeholders(len(f.Courses))+")")
		args = appendStrings(args, f.Courses)
	}
	if len(f.Subjects) > 0 {
		where = append(where, "subject IN ("+placeholders(len(f.Subjects))+")")
		args = appendStrings(args, f.Subjects)
	}
	if f.Semester != nil {
		where = append(where, "semester = ?")
		args = append(args, *f.Semester)
	}
	if f.Year != nil {
		where = append(where, "year = ?")
		args = append(args, *f.Year)
	}
	if f.Privacy != nil {
		where = append(where, "privacy = ?")
		args = append(args, string(*f.Privacy))
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		where = append(where, `(instr(lower(title), ?) > 0
			OR instr(lower(COALESCE(subject, '')), ?) > 0
			OR instr(lower(course), ?) > 0
			OR instr(lower(COALESCE(description, '')), ?) > 0)`)
		args = append(args, needle, needle, needle, needle)
	}

	query := `SELECT ` + resourceColumns + ` FROM resources`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid LIMIT ?"
	limit := clampLimit(f.Limit)
	args = append(args, limit)

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing resources: %w", err)
	}
	defer rows.Close()

	resources := make([]model.Resource, 0, 16)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning resource row: %w", err)
		}
		resources = append(resources, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating resources: %w", err)
	}

	return resources, nil
}

// Update applies the non-nil fields of patch in one statement. Concurrent
// updates to the same id are last-write-wins, except downloads, which is
// merged with MAX so it can only grow.
func (d *ResourceDB) Update(ctx context.Context, id string, p repository.ResourcePatch) error {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Subject != nil {
		add("subject", *p.Subject)
	}
	if p.Course != nil {
		add("course", *p.Course)
	}
	if p.Type != nil {
		add("type", string(*p.Type))
	}
	if p.Author != nil {
		add("author", *p.Author)
	}
	if p.Downloads != nil {
		set = append(set, "downloads = MAX(downloads, ?)")
		args = append(args, *p.Downloads)
	}
	if p.Date != nil {
		add("date", *p.Date)
	}
	if p.Privacy != nil {
		add("privacy", string(*p.Privacy))
	}
	if p.Filename != nil {
		add("filename", *p.Filename)
	}
	if p.Semester != nil {
		add("semester", *p.Semester)
	}
	if p.Year != nil {
		add("year", *p.Year)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.College != nil {
		add("college", *p.College)
	}
	if p.ContentType != nil {
		add("content_type", *p.ContentType)
	}

	if len(set) == 0 {
		// Nothing to write; still report a missing id.
		_, err := d.GetByID(ctx, id)
		return err
	}

	args = append(args, id)
	result, err := d.conn.ExecContext(ctx,
		`UPDATE resources SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("file", derefOr(p.Filename, id))
		}
		return fmt.Errorf("sqlite: updating resource %s: %w", id, err)
	}

	return requireAffected(result, "resource", id)
}

// IncrementDownloads bumps the counter atomically in the store.
func (d *ResourceDB) IncrementDownloads(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx,
		`UPDATE resources SET downloads = downloads + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing downloads for %s: %w", id, err)
	}
	return requireAffected(result, "resource", id)
}

// Delete removes a resource by ID; apperror.ErrNotFound if it was not there.
func (d *ResourceDB) Delete(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting resource %s: %w", id, err)
	}
	return requireAffected(result, "resource", id)
}

func (d *ResourceDB) ReferencedFilenames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT filename FROM resources WHERE filename IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing referenced filenames: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning filename: %w", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating filenames: %w", err)
	}
	return names, nil
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(kind, id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func appendStrings(args []any, values []string) []any {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
