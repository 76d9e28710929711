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

const commentColumns = `c.id, c.post_id, c.author_id, c.parent_id, c.content, c.is_hidden, c.created_at, c.updated_at`

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment and returns it as stored.
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	if c == nil {
		return nil, errors.New("comment is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	now := db.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `INSERT INTO comments (post_id, author_id, parent_id, content, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		c.PostID, c.AuthorID, nullInt(c.ParentID), c.Content, now, now)
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
		return nil, fmt.Errorf("created comment not found: id=%d", id)
	}
	return out, nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	c, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments c WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	var parent sql.NullInt64
	var hidden int
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &parent, &c.Content, &hidden, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.ParentID = int64Ptr(parent)
	c.IsHidden = hidden != 0
	c.CreatedAt = parseTS(createdAt)
	c.UpdatedAt = parseTS(updatedAt)
	return &c, nil
}

// UpdateContent replaces a comment's body.
func (r *CommentRepository) UpdateContent(ctx context.Context, id int64, content string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`, content, db.FormatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// SetHidden hides or reveals a comment.
func (r *CommentRepository) SetHidden(ctx context.Context, id int64, hidden bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET is_hidden = ? WHERE id = ?`, boolInt(hidden), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// Delete removes a comment; replies and likes cascade.
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// ListByPost returns one page of a post's comments oldest first, with like aggregates
// relative to viewerID (0 for anonymous). Hidden comments are skipped unless includeHidden.
func (r *CommentRepository) ListByPost(ctx context.Context, postID, viewerID int64, includeHidden bool, page PageParams) ([]models.CommentView, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	filter := ` WHERE c.post_id = ?`
	if !includeHidden {
		filter += ` AND c.is_hidden = 0`
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments c`+filter, postID).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := page.LimitOffset()
	rows, err := r.db.QueryContext(ctx, `SELECT `+commentColumns+`, u.username,
  (SELECT COUNT(*) FROM comment_likes l WHERE l.comment_id = c.id),
  EXISTS (SELECT 1 FROM comment_likes l WHERE l.comment_id = c.id AND l.user_id = ?)
FROM comments c JOIN users u ON u.id = c.author_id`+filter+`
ORDER BY c.created_at ASC, c.id ASC LIMIT ? OFFSET ?`, viewerID, postID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.CommentView
	for rows.Next() {
		var v models.CommentView
		var parent sql.NullInt64
		var hidden, liked int
		var createdAt, updatedAt string
		if err := rows.Scan(&v.ID, &v.PostID, &v.AuthorID, &parent, &v.Content, &hidden, &createdAt, &updatedAt,
			&v.AuthorUsername, &v.LikeCount, &liked); err != nil {
			return nil, 0, err
		}
		v.ParentID = int64Ptr(parent)
		v.IsHidden = hidden != 0
		v.CreatedAt = parseTS(createdAt)
		v.UpdatedAt = parseTS(updatedAt)
		v.LikedByMe = liked != 0
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AddLike records a like. Returns ErrDuplicate if the user already liked the comment.
func (r *CommentRepository) AddLike(ctx context.Context, commentID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO comment_likes (comment_id, user_id, created_at) VALUES (?,?,?)`,
		commentID, userID, db.FormatTime(time.Now()))
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// RemoveLike deletes a like. Returns sql.ErrNoRows if there was none.
func (r *CommentRepository) RemoveLike(ctx context.Context, commentID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?`, commentID, userID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// CountLikes returns how many users liked a comment.
func (r *CommentRepository) CountLikes(ctx context.Context, commentID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comment_likes WHERE comment_id = ?`, commentID).Scan(&n)
	return n, err
}

// Count returns the number of comments created at or after since, and the overall total.
func (r *CommentRepository) Count(ctx context.Context, since time.Time) (total, newSince int, err error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) FROM comments`,
		db.FormatTime(since)).Scan(&total, &newSince)
	return total, newSince, err
}

// DailyCreated counts comments created per UTC day since the given time.
func (r *CommentRepository) DailyCreated(ctx context.Context, since time.Time) ([]DailyCount, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM comments WHERE created_at >= ? GROUP BY day ORDER BY day`,
		db.FormatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDailyCounts(rows)
}
