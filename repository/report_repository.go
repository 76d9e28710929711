package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogPlatform/internal/db"
	"blogPlatform/models"
)

const reportColumns = `id, reporter_id, target_type, target_id, reason, description, status, reviewed_by, resolution_note, created_at, reviewed_at`

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a pending report.
func (r *ReportRepository) Create(ctx context.Context, rep *models.Report) (*models.Report, error) {
	if rep == nil {
		return nil, errors.New("report is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO reports (reporter_id, target_type, target_id, reason, description, status, created_at) VALUES (?,?,?,?,?,?,?)`,
		rep.ReporterID, string(rep.TargetType), rep.TargetID, rep.Reason, rep.Description, string(models.ReportPending), db.FormatTime(time.Now()))
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
		return nil, fmt.Errorf("created report not found: id=%d", id)
	}
	return out, nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rep, err := scanReport(r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rep, nil
}

func scanReport(row rowScanner) (*models.Report, error) {
	var rep models.Report
	var targetType, status, createdAt string
	var reviewedBy sql.NullInt64
	var reviewedAt sql.NullString
	if err := row.Scan(&rep.ID, &rep.ReporterID, &targetType, &rep.TargetID, &rep.Reason, &rep.Description, &status,
		&reviewedBy, &rep.ResolutionNote, &createdAt, &reviewedAt); err != nil {
		return nil, err
	}
	rep.TargetType = models.TargetType(targetType)
	rep.Status = models.ReportStatus(status)
	rep.ReviewedBy = int64Ptr(reviewedBy)
	rep.CreatedAt = parseTS(createdAt)
	rep.ReviewedAt = parseNullTS(reviewedAt)
	return &rep, nil
}

// ExistsPending reports whether reporterID already has a pending report on the target.
func (r *ReportRepository) ExistsPending(ctx context.Context, reporterID int64, targetType models.TargetType, targetID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE reporter_id = ? AND target_type = ? AND target_id = ? AND status = 'pending'`,
		reporterID, string(targetType), targetID).Scan(&n)
	return n > 0, err
}

// CountOpenForTarget counts pending and under-review reports on a target.
func (r *ReportRepository) CountOpenForTarget(ctx context.Context, targetType models.TargetType, targetID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE target_type = ? AND target_id = ? AND status IN ('pending','under_review')`,
		string(targetType), targetID).Scan(&n)
	return n, err
}

// CountByStatus returns how many reports are in the given status.
func (r *ReportRepository) CountByStatus(ctx context.Context, status models.ReportStatus) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE status = ?`, string(status)).Scan(&n)
	return n, err
}

// ReportListParams filters List. Zero values mean no filter.
type ReportListParams struct {
	ReporterID *int64
	Status     models.ReportStatus
	TargetType models.TargetType
	PageParams
}

// List returns reports newest first.
func (r *ReportRepository) List(ctx context.Context, p ReportListParams) ([]models.Report, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	var where []string
	var args []any
	if p.ReporterID != nil {
		where = append(where, "reporter_id = ?")
		args = append(args, *p.ReporterID)
	}
	if p.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(p.Status))
	}
	if p.TargetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, string(p.TargetType))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := p.LimitOffset()
	rows, err := r.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports`+filter+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []models.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Transition moves a report from one of the from statuses into to, stamping the reviewer.
// Returns sql.ErrNoRows when the report is missing or not in an allowed status.
func (r *ReportRepository) Transition(ctx context.Context, id int64, from []models.ReportStatus, to models.ReportStatus, adminID int64, note string, at time.Time) error {
	if len(from) == 0 {
		return errors.New("no source status given")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	placeholders := make([]string, len(from))
	args := []any{string(to), adminID, note, db.FormatTime(at), id}
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	res, err := r.db.ExecContext(ctx, `UPDATE reports SET status = ?, reviewed_by = ?, resolution_note = ?, reviewed_at = ?
WHERE id = ? AND status IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}
