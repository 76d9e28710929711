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

const userColumns = `id, username, email, password_hash, display_name, bio, avatar_url, role, oauth_provider, oauth_subject, is_active, created_at, updated_at, last_login_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and returns it as stored.
// Returns ErrDuplicate when the username, email or OAuth identity is taken. Role defaults to 'user'.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO users (username, email, password_hash, display_name, bio, avatar_url, role, oauth_provider, oauth_subject)
VALUES (?,?,?,?,?,?,?,?,?)`,
		u.Username, nullString(u.Email), nullString(u.PasswordHash), u.DisplayName, u.Bio, u.AvatarURL, u.Role,
		nullString(u.OAuthProvider), nullString(u.OAuthSubject))
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
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created user not found: id=%d", id)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByLogin resolves a login identifier that may be either a username or an email.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return r.GetByEmail(ctx, login)
	}
	return r.GetByUsername(ctx, login)
}

// GetByOAuth finds the account linked to an external identity.
func (r *UserRepository) GetByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE oauth_provider = ? AND oauth_subject = ?`, provider, subject)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var email, hash, provider, subject, lastLogin sql.NullString
	var createdAt, updatedAt string
	var active int
	if err := row.Scan(&u.ID, &u.Username, &email, &hash, &u.DisplayName, &u.Bio, &u.AvatarURL, &u.Role,
		&provider, &subject, &active, &createdAt, &updatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.PasswordHash = hash.String
	u.OAuthProvider = provider.String
	u.OAuthSubject = subject.String
	u.IsActive = active != 0
	u.CreatedAt = parseTS(createdAt)
	u.UpdatedAt = parseTS(updatedAt)
	u.LastLoginAt = parseNullTS(lastLogin)
	return &u, nil
}

// UserListParams filters and orders ListPage.
type UserListParams struct {
	Search string // matches username, display name or email
	Active *bool
	// Banned filters on having a ban in effect at Now.
	Banned   *bool
	Now      time.Time
	SortBy   string // username | createdAt | lastLogin
	SortDesc bool
	PageParams
}

var userSortColumns = map[string]string{
	"username":  "username COLLATE NOCASE",
	"createdat": "created_at",
	"lastlogin": "COALESCE(last_login_at, '')",
}

const activeBanExists = `EXISTS (SELECT 1 FROM bans b WHERE b.user_id = users.id AND b.is_active = 1 AND (b.expires_at IS NULL OR b.expires_at > ?))`

// ListPage returns one page of users matching the filters and the total match count.
func (r *UserRepository) ListPage(ctx context.Context, p UserListParams) ([]models.User, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var where []string
	var args []any
	if s := strings.TrimSpace(p.Search); s != "" {
		pat := likePattern(s)
		where = append(where, `(username LIKE ? ESCAPE '\' OR display_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`)
		args = append(args, pat, pat, pat)
	}
	if p.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, boolInt(*p.Active))
	}
	if p.Banned != nil {
		now := p.Now
		if now.IsZero() {
			now = time.Now()
		}
		clause := activeBanExists
		if !*p.Banned {
			clause = "NOT " + clause
		}
		where = append(where, clause)
		args = append(args, db.FormatTime(now))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := p.LimitOffset()
	query := `SELECT ` + userColumns + ` FROM users` + filter +
		orderBy(p.SortBy, p.SortDesc, userSortColumns, "createdat", "id") + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateProfile sets the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, displayName, bio, avatarURL string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET display_name = ?, bio = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		displayName, bio, avatarURL, db.FormatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, db.FormatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// LinkOAuth attaches an external identity to an existing account.
func (r *UserRepository) LinkOAuth(ctx context.Context, id int64, provider, subject string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET oauth_provider = ?, oauth_subject = ?, updated_at = ? WHERE id = ?`,
		provider, subject, db.FormatTime(time.Now()), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// SetActive activates or deactivates an account.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, boolInt(active), db.FormatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// TouchLogin records a successful sign-in.
func (r *UserRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, db.FormatTime(at), id)
	return err
}

// UsernameExists reports whether a username is taken (case-insensitive).
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// UserCounts aggregates account totals for analytics.
type UserCounts struct {
	Total    int `json:"totalUsers"`
	Active   int `json:"activeUsers"`
	NewSince int `json:"newUsers"`
}

// Counts returns totals plus the number of accounts created at or after since.
func (r *UserRepository) Counts(ctx context.Context, since time.Time) (UserCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var c UserCounts
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(is_active), 0), COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) FROM users`,
		db.FormatTime(since)).Scan(&c.Total, &c.Active, &c.NewSince)
	return c, err
}

// DailySignups counts accounts created per UTC day since the given time.
func (r *UserRepository) DailySignups(ctx context.Context, since time.Time) ([]DailyCount, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM users WHERE created_at >= ? GROUP BY day ORDER BY day`,
		db.FormatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDailyCounts(rows)
}
