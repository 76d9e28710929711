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

const friendshipColumns = `f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.updated_at, f.responded_at`

// FriendshipRepository stores one row per unordered user pair; (user_low, user_high) is unique.
type FriendshipRepository struct {
	db *sql.DB
}

func NewFriendshipRepository(db *sql.DB) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

func pairKey(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Create inserts a pending request from requester to addressee.
// Returns ErrDuplicate if any row already exists for the pair.
func (r *FriendshipRepository) Create(ctx context.Context, requesterID, addresseeID int64) (*models.Friendship, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	lo, hi := pairKey(requesterID, addresseeID)
	res, err := r.db.ExecContext(ctx, `INSERT INTO friendships (requester_id, addressee_id, user_low, user_high, status) VALUES (?,?,?,?,?)`,
		requesterID, addresseeID, lo, hi, string(models.FriendshipPending))
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
	f, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("created friendship not found: id=%d", id)
	}
	return f, nil
}

func (r *FriendshipRepository) GetByID(ctx context.Context, id int64) (*models.Friendship, error) {
	return r.getOne(ctx, `SELECT `+friendshipColumns+` FROM friendships f WHERE f.id = ?`, id)
}

// GetBetween returns the row for the pair regardless of direction.
func (r *FriendshipRepository) GetBetween(ctx context.Context, a, b int64) (*models.Friendship, error) {
	lo, hi := pairKey(a, b)
	return r.getOne(ctx, `SELECT `+friendshipColumns+` FROM friendships f WHERE f.user_low = ? AND f.user_high = ?`, lo, hi)
}

func (r *FriendshipRepository) getOne(ctx context.Context, query string, args ...any) (*models.Friendship, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	f, err := scanFriendship(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func scanFriendship(row rowScanner) (*models.Friendship, error) {
	var f models.Friendship
	var status, createdAt, updatedAt string
	var responded sql.NullString
	if err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &status, &createdAt, &updatedAt, &responded); err != nil {
		return nil, err
	}
	f.Status = models.FriendshipStatus(status)
	f.CreatedAt = parseTS(createdAt)
	f.UpdatedAt = parseTS(updatedAt)
	f.RespondedAt = parseNullTS(responded)
	return &f, nil
}

// Respond moves a pending request addressed to addresseeID into status.
// Returns sql.ErrNoRows when no such pending request exists.
func (r *FriendshipRepository) Respond(ctx context.Context, id, addresseeID int64, status models.FriendshipStatus, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ts := db.FormatTime(at)
	res, err := r.db.ExecContext(ctx, `UPDATE friendships SET status = ?, responded_at = ?, updated_at = ?
WHERE id = ? AND addressee_id = ? AND status = 'pending'`, string(status), ts, ts, id, addresseeID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// Reopen turns a rejected row back into a pending request from requesterID.
func (r *FriendshipRepository) Reopen(ctx context.Context, id, requesterID, addresseeID int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ts := db.FormatTime(at)
	res, err := r.db.ExecContext(ctx, `UPDATE friendships SET requester_id = ?, addressee_id = ?, status = 'pending', responded_at = NULL, created_at = ?, updated_at = ?
WHERE id = ? AND status = 'rejected'`, requesterID, addresseeID, ts, ts, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// Delete removes a friendship row.
func (r *FriendshipRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM friendships WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// FriendshipDirection selects which side of a pending request to list.
type FriendshipDirection int

const (
	// DirectionAny lists rows where the user is on either side.
	DirectionAny FriendshipDirection = iota
	// DirectionIncoming lists rows addressed to the user.
	DirectionIncoming
	// DirectionOutgoing lists rows the user sent.
	DirectionOutgoing
)

// ListForUser returns friendships involving userID with the other user's public fields, newest first.
func (r *FriendshipRepository) ListForUser(ctx context.Context, userID int64, status models.FriendshipStatus, dir FriendshipDirection, page PageParams) ([]models.FriendshipView, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var side string
	var args []any
	switch dir {
	case DirectionIncoming:
		side = "f.addressee_id = ?"
		args = append(args, userID)
	case DirectionOutgoing:
		side = "f.requester_id = ?"
		args = append(args, userID)
	default:
		side = "(f.requester_id = ? OR f.addressee_id = ?)"
		args = append(args, userID, userID)
	}
	filter := ` WHERE ` + side + ` AND f.status = ?`
	args = append(args, string(status))

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM friendships f`+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := page.LimitOffset()
	query := `SELECT ` + friendshipColumns + `, u.id, u.username, u.display_name
FROM friendships f
JOIN users u ON u.id = CASE WHEN f.requester_id = ? THEN f.addressee_id ELSE f.requester_id END` + filter + `
ORDER BY f.updated_at DESC, f.id DESC LIMIT ? OFFSET ?`
	qargs := append([]any{userID}, args...)
	qargs = append(qargs, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.FriendshipView
	for rows.Next() {
		var v models.FriendshipView
		var status, createdAt, updatedAt string
		var responded sql.NullString
		if err := rows.Scan(&v.ID, &v.RequesterID, &v.AddresseeID, &status, &createdAt, &updatedAt, &responded,
			&v.OtherUserID, &v.OtherUsername, &v.OtherDisplayName); err != nil {
			return nil, 0, err
		}
		v.Status = models.FriendshipStatus(status)
		v.CreatedAt = parseTS(createdAt)
		v.UpdatedAt = parseTS(updatedAt)
		v.RespondedAt = parseNullTS(responded)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountFriends returns the number of accepted friendships of userID.
func (r *FriendshipRepository) CountFriends(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM friendships WHERE (requester_id = ? OR addressee_id = ?) AND status = 'accepted'`,
		userID, userID).Scan(&n)
	return n, err
}
