package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/request"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.ReqtabError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

const requestColumns = `
	id, collection_id, name, method, url, headers_json, body,
	timeout_ms, follow_redirects, created_at, updated_at, deleted_at`

// RequestFilter narrows ListRequests.
type RequestFilter struct {
	CollectionID   string // "" means all collections
	NamePrefix     string // matched case-insensitively
	IncludeDeleted bool
}

// InsertRequest stores a new request.
func InsertRequest(ctx context.Context, db *sql.DB, r *request.Record) error {
	headersJSON, err := headersToNull(r.Headers)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = db.ExecContext(ctx, query,
		r.ID, emptyToNull(r.CollectionID), r.Name, r.Method, r.URL, headersJSON, r.Body,
		r.TimeoutMs, r.FollowRedirects, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetRequest retrieves a request by its ULID.
// If includeDeleted is false, soft-deleted requests are excluded.
func GetRequest(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*request.Record, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	r, err := scanRequest(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("request", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRequests returns requests ordered by most recently updated, plus the
// total number matching the filter.
func ListRequests(ctx context.Context, db *sql.DB, f RequestFilter, limit, offset int) ([]request.Record, int, error) {
	where := []string{"1=1"}
	var args []any
	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if f.CollectionID != "" {
		where = append(where, "collection_id = ?")
		args = append(args, f.CollectionID)
	}
	if f.NamePrefix != "" {
		where = append(where, "lower(name) LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(strings.ToLower(f.NamePrefix))+"%")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + requestColumns + ` FROM requests WHERE ` + clause +
		` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []request.Record
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// UpdateRequest overwrites the editable fields of an existing request and
// sets updated_at to now. Does NOT change: id, created_at.
func UpdateRequest(ctx context.Context, db *sql.DB, r *request.Record) error {
	headersJSON, err := headersToNull(r.Headers)
	if err != nil {
		return errors.NewInternal(err)
	}
	now := time.Now().Unix()

	query := `
		UPDATE requests
		SET collection_id = ?, name = ?, method = ?, url = ?, headers_json = ?, body = ?,
			timeout_ms = ?, follow_redirects = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := db.ExecContext(ctx, query,
		emptyToNull(r.CollectionID), r.Name, r.Method, r.URL, headersJSON, r.Body,
		r.TimeoutMs, r.FollowRedirects, now,
		r.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("request", r.ID)
	}

	r.UpdatedAt = now
	return nil
}

// SoftDeleteRequest marks a request as deleted by setting deleted_at.
func SoftDeleteRequest(ctx context.Context, db *sql.DB, id string) error {
	query := `UPDATE requests SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := db.ExecContext(ctx, query, time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("request", id)
	}
	return nil
}

// InsertCollection stores a new collection. Names are unique case-insensitively.
func InsertCollection(ctx context.Context, db *sql.DB, c *request.Collection) error {
	query := `
		INSERT INTO collections (id, name, name_norm, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.Name, request.Normalize(c.Name), emptyToNull(c.Description), c.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetCollection retrieves a collection by id.
func GetCollection(ctx context.Context, db *sql.DB, id string) (*request.Collection, error) {
	query := `SELECT id, name, description, created_at FROM collections WHERE id = ?`
	c, err := scanCollection(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("collection", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ListCollections returns all collections ordered by name, each with its count
// of live requests.
func ListCollections(ctx context.Context, db *sql.DB) ([]request.Collection, map[string]int, error) {
	query := `
		SELECT c.id, c.name, c.description, c.created_at,
			(SELECT COUNT(*) FROM requests r WHERE r.collection_id = c.id AND r.deleted_at IS NULL)
		FROM collections c
		ORDER BY c.name_norm ASC, c.id ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []request.Collection
	counts := make(map[string]int)
	for rows.Next() {
		var (
			c     request.Collection
			desc  sql.NullString
			count int
		)
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &count); err != nil {
			return nil, nil, errors.NewInternal(err)
		}
		c.Description = desc.String
		out = append(out, c)
		counts[c.ID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.NewInternal(err)
	}
	return out, counts, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*request.Record, error) {
	var (
		r            request.Record
		collectionID sql.NullString
		headersJSON  sql.NullString
		body         sql.NullString
		deletedAt    sql.NullInt64
	)
	err := row.Scan(
		&r.ID, &collectionID, &r.Name, &r.Method, &r.URL, &headersJSON, &body,
		&r.TimeoutMs, &r.FollowRedirects, &r.CreatedAt, &r.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CollectionID = collectionID.String
	r.Body = body.String
	if deletedAt.Valid {
		r.DeletedAt = &deletedAt.Int64
	}
	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &r.Headers); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func scanCollection(row scanner) (*request.Collection, error) {
	var (
		c    request.Collection
		desc sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Description = desc.String
	return &c, nil
}

func headersToNull(h map[string]string) (sql.NullString, error) {
	if len(h) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func emptyToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
