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

const banColumns = `b.id, b.user_id, b.reason, b.banned_by, b.created_at, b.expires_at, b.is_active, b.unbanned_at, b.unbanned_by`

type BanRepository struct {
	db *sql.DB
}

func NewBanRepository(db *sql.DB) *BanRepository {
	return &BanRepository{db: db}
}

// Create inserts an active ban.
func (r *BanRepository) Create(ctx context.Context, b *models.Ban) (*models.Ban, error) {
	if b == nil {
		return nil, errors.New("ban is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO bans (user_id, reason, banned_by, created_at, expires_at, is_active) VALUES (?,?,?,?,?,1)`,
		b.UserID, b.Reason, b.BannedBy, db.FormatTime(created), formatNullTS(b.ExpiresAt))
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
		return nil, fmt.Errorf("created ban not found: id=%d", id)
	}
	return out, nil
}

func (r *BanRepository) GetByID(ctx context.Context, id int64) (*models.Ban, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	b, err := scanBan(r.db.QueryRowContext(ctx, `SELECT `+banColumns+`, u.username FROM bans b JOIN users u ON u.id = b.user_id WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// GetActiveForUser returns the user's ban still in effect at now, if any.
// Active rows whose expiry has passed but were not yet swept are ignored.
func (r *BanRepository) GetActiveForUser(ctx context.Context, userID int64, now time.Time) (*models.Ban, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	b, err := scanBan(r.db.QueryRowContext(ctx, `SELECT `+banColumns+`, u.username FROM bans b JOIN users u ON u.id = b.user_id
WHERE b.user_id = ? AND b.is_active = 1 AND (b.expires_at IS NULL OR b.expires_at > ?)
ORDER BY b.id DESC LIMIT 1`, userID, db.FormatTime(now)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func scanBan(row rowScanner) (*models.Ban, error) {
	var b models.Ban
	var createdAt string
	var expires, unbannedAt sql.NullString
	var unbannedBy sql.NullInt64
	var active int
	if err := row.Scan(&b.ID, &b.UserID, &b.Reason, &b.BannedBy, &createdAt, &expires, &active, &unbannedAt, &unbannedBy, &b.Username); err != nil {
		return nil, err
	}
	b.CreatedAt = parseTS(createdAt)
	b.ExpiresAt = parseNullTS(expires)
	b.IsActive = active != 0
	b.UnbannedAt = parseNullTS(unbannedAt)
	b.UnbannedBy = int64Ptr(unbannedBy)
	return &b, nil
}

// Deactivate lifts an active ban. Returns sql.ErrNoRows if the ban is not active.
func (r *BanRepository) Deactivate(ctx context.Context, id, adminID int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE bans SET is_active = 0, unbanned_at = ?, unbanned_by = ? WHERE id = ? AND is_active = 1`,
		db.FormatTime(at), adminID, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// ExpireDue deactivates every active ban whose expiry is at or before now and returns how many changed.
func (r *BanRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	ts := db.FormatTime(now)
	res, err := r.db.ExecContext(ctx, `UPDATE bans SET is_active = 0, unbanned_at = expires_at WHERE is_active = 1 AND expires_at IS NOT NULL AND expires_at <= ?`, ts)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BanListParams filters List.
type BanListParams struct {
	UserID *int64
	// Active filters on the stored flag; expired-but-unswept bans still count as active.
	Active *bool
	PageParams
}

// List returns bans newest first with the banned user's name.
func (r *BanRepository) List(ctx context.Context, p BanListParams) ([]models.Ban, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	var where []string
	var args []any
	if p.UserID != nil {
		where = append(where, "b.user_id = ?")
		args = append(args, *p.UserID)
	}
	if p.Active != nil {
		where = append(where, "b.is_active = ?")
		args = append(args, boolInt(*p.Active))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bans b`+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := p.LimitOffset()
	rows, err := r.db.QueryContext(ctx, `SELECT `+banColumns+`, u.username FROM bans b JOIN users u ON u.id = b.user_id`+filter+
		` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []models.Ban
	for rows.Next() {
		b, err := scanBan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountInEffect returns how many bans suspend their user at now.
func (r *BanRepository) CountInEffect(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bans WHERE is_active = 1 AND (expires_at IS NULL OR expires_at > ?)`, db.FormatTime(now)).Scan(&n)
	return n, err
}
