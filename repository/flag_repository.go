package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blogPlatform/internal/db"
	"blogPlatform/models"
)

const flagColumns = `id, content_type, content_id, reason, source, status, flagged_by, reviewed_by, created_at, reviewed_at`

type FlagRepository struct {
	db *sql.DB
}

func NewFlagRepository(db *sql.DB) *FlagRepository {
	return &FlagRepository{db: db}
}

// Create inserts an open flag.
func (r *FlagRepository) Create(ctx context.Context, f *models.ContentFlag) (*models.ContentFlag, error) {
	if f == nil {
		return nil, errors.New("flag is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO content_flags (content_type, content_id, reason, source, status, flagged_by, created_at) VALUES (?,?,?,?,?,?,?)`,
		string(f.ContentType), f.ContentID, f.Reason, string(f.Source), string(models.FlagOpen), nullInt(f.FlaggedBy), db.FormatTime(time.Now()))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("created flag not found: id=%d", id)
	}
	return out, nil
}

func (r *FlagRepository) GetByID(ctx context.Context, id int64) (*models.ContentFlag, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	f, err := scanFlag(r.db.QueryRowContext(ctx, `SELECT `+flagColumns+` FROM content_flags WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func scanFlag(row rowScanner) (*models.ContentFlag, error) {
	var f models.ContentFlag
	var contentType, source, status, createdAt string
	var flaggedBy, reviewedBy sql.NullInt64
	var reviewedAt sql.NullString
	if err := row.Scan(&f.ID, &contentType, &f.ContentID, &f.Reason, &source, &status, &flaggedBy, &reviewedBy, &createdAt, &reviewedAt); err != nil {
		return nil, err
	}
	f.ContentType = models.TargetType(contentType)
	f.Source = models.FlagSource(source)
	f.Status = models.FlagStatus(status)
	f.FlaggedBy = int64Ptr(flaggedBy)
	f.ReviewedBy = int64Ptr(reviewedBy)
	f.CreatedAt = parseTS(createdAt)
	f.ReviewedAt = parseNullTS(reviewedAt)
	return &f, nil
}

// List returns flags newest first, optionally restricted to one status.
func (r *FlagRepository) List(ctx context.Context, status models.FlagStatus, page PageParams) ([]models.ContentFlag, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	filter := ""
	var args []any
	if status != "" {
		filter = " WHERE status = ?"
		args = append(args, string(status))
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_flags`+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := page.LimitOffset()
	rows, err := r.db.QueryContext(ctx, `SELECT `+flagColumns+` FROM content_flags`+filter+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []models.ContentFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Review closes an open flag. Returns sql.ErrNoRows if the flag is not open.
func (r *FlagRepository) Review(ctx context.Context, id int64, status models.FlagStatus, adminID int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE content_flags SET status = ?, reviewed_by = ?, reviewed_at = ? WHERE id = ? AND status = 'open'`,
		string(status), adminID, db.FormatTime(at), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// CountOpen returns the number of flags awaiting review.
func (r *FlagRepository) CountOpen(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_flags WHERE status = 'open'`).Scan(&n)
	return n, err
}
