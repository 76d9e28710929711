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

const adminColumns = `id, username, password_hash, role, totp_secret, totp_enabled, is_active, created_at, last_login_at`

// AdminRepository stores admin panel accounts.
type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create inserts an admin. Returns ErrDuplicate if the username is taken.
func (r *AdminRepository) Create(ctx context.Context, a *models.AdminUser) (*models.AdminUser, error) {
	if a == nil {
		return nil, errors.New("admin is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO admin_users (username, password_hash, role, is_active, created_at) VALUES (?,?,?,1,?)`,
		a.Username, a.PasswordHash, a.Role, db.FormatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
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
		return nil, fmt.Errorf("created admin not found: id=%d", id)
	}
	return out, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	return r.getOne(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id = ?`, id)
}

func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return r.getOne(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE username = ?`, username)
}

func (r *AdminRepository) getOne(ctx context.Context, query string, args ...any) (*models.AdminUser, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	a, err := scanAdmin(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanAdmin(row rowScanner) (*models.AdminUser, error) {
	var a models.AdminUser
	var totpEnabled, active int
	var createdAt string
	var lastLogin sql.NullString
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.TOTPSecret, &totpEnabled, &active, &createdAt, &lastLogin); err != nil {
		return nil, err
	}
	a.TOTPEnabled = totpEnabled != 0
	a.IsActive = active != 0
	a.CreatedAt = parseTS(createdAt)
	a.LastLoginAt = parseNullTS(lastLogin)
	return &a, nil
}

// List returns admins ordered by username.
func (r *AdminRepository) List(ctx context.Context, page PageParams) ([]models.AdminUser, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := page.LimitOffset()
	rows, err := r.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admin_users ORDER BY username ASC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []models.AdminUser
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the number of admin accounts.
func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	return n, err
}

// SetTOTP stores the admin's TOTP secret and enabled flag.
func (r *AdminRepository) SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE admin_users SET totp_secret = ?, totp_enabled = ? WHERE id = ?`, secret, boolInt(enabled), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

func (r *AdminRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE admin_users SET is_active = ? WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

func (r *AdminRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE admin_users SET last_login_at = ? WHERE id = ?`, db.FormatTime(at), id)
	return err
}
