package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"blogPlatform/internal/db"
	"blogPlatform/models"
)

// AuditRepository appends and pages admin audit records. Rows are never updated.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit record and returns its id.
func (r *AuditRepository) Append(ctx context.Context, l *models.AdminAuditLog) (int64, error) {
	if l == nil {
		return 0, errors.New("audit log is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	details := l.Details
	if details == "" {
		details = "{}"
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO admin_audit_logs (admin_id, action, target_type, target_id, details, ip_address, created_at) VALUES (?,?,?,?,?,?,?)`,
		l.AdminID, l.Action, l.TargetType, nullInt(l.TargetID), details, l.IPAddress, db.FormatTime(created))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AuditListParams represents filters and keyset pagination for List.
type AuditListParams struct {
	AdminID      *int64
	Action       string
	From         *time.Time // inclusive lower bound on created_at
	To           *time.Time // inclusive upper bound on created_at
	PageSize     int
	AfterSeconds int64 // keyset cursor: created_at unix seconds
	AfterID      int64 // keyset cursor: audit log id
}

// List returns audit records ordered by created_at desc, id desc with keyset pagination.
func (r *AuditRepository) List(ctx context.Context, p AuditListParams) ([]models.AdminAuditLog, error) {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var where []string
	var args []any
	if p.AdminID != nil {
		where = append(where, "admin_id = ?")
		args = append(args, *p.AdminID)
	}
	if p.Action != "" {
		where = append(where, "action = ?")
		args = append(args, p.Action)
	}
	if p.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, db.FormatTime(*p.From))
	}
	if p.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, db.FormatTime(*p.To))
	}
	if p.AfterSeconds > 0 && p.AfterID > 0 {
		where = append(where, "(CAST(strftime('%s', created_at) AS INTEGER) < ? OR (CAST(strftime('%s', created_at) AS INTEGER) = ? AND id < ?))")
		args = append(args, p.AfterSeconds, p.AfterSeconds, p.AfterID)
	}

	query := `SELECT id, admin_id, action, target_type, target_id, details, ip_address, created_at FROM admin_audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, p.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AdminAuditLog
	for rows.Next() {
		var l models.AdminAuditLog
		var targetID sql.NullInt64
		var createdAt string
		if err := rows.Scan(&l.ID, &l.AdminID, &l.Action, &l.TargetType, &targetID, &l.Details, &l.IPAddress, &createdAt); err != nil {
			return nil, err
		}
		l.TargetID = int64Ptr(targetID)
		l.CreatedAt = parseTS(createdAt)
		out = append(out, l)
	}
	return out, rows.Err()
}
