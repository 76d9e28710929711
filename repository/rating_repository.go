package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"blogPlatform/internal/db"
	"blogPlatform/models"
)

// RatingRepository stores PostRating and SavedBlog rows; both are keyed by (post, user).
type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert sets the user's score for a post, creating or replacing it.
func (r *RatingRepository) Upsert(ctx context.Context, postID, userID int64, score int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	now := db.FormatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `INSERT INTO post_ratings (post_id, user_id, score, created_at, updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(post_id, user_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		postID, userID, score, now, now)
	return err
}

// Delete removes the user's rating. Returns sql.ErrNoRows if there was none.
func (r *RatingRepository) Delete(ctx context.Context, postID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM post_ratings WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// Get returns the user's rating for a post, or nil.
func (r *RatingRepository) Get(ctx context.Context, postID, userID int64) (*models.PostRating, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var pr models.PostRating
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, `SELECT post_id, user_id, score, created_at, updated_at FROM post_ratings WHERE post_id = ? AND user_id = ?`,
		postID, userID).Scan(&pr.PostID, &pr.UserID, &pr.Score, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	pr.CreatedAt = parseTS(createdAt)
	pr.UpdatedAt = parseTS(updatedAt)
	return &pr, nil
}

// Summary aggregates a post's ratings; Mine is filled when viewerID rated it.
func (r *RatingRepository) Summary(ctx context.Context, postID, viewerID int64) (models.RatingSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	s := models.RatingSummary{PostID: postID}
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(score), 0), COUNT(*), COALESCE(MAX(CASE WHEN user_id = ? THEN score END), 0)
FROM post_ratings WHERE post_id = ?`, viewerID, postID).Scan(&s.Average, &s.Count, &s.Mine)
	return s, err
}

// Save bookmarks a post for a user. Returns ErrDuplicate if already saved.
func (r *RatingRepository) Save(ctx context.Context, postID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO saved_blogs (post_id, user_id, created_at) VALUES (?,?,?)`, postID, userID, db.FormatTime(time.Now()))
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Unsave removes a bookmark. Returns sql.ErrNoRows if it did not exist.
func (r *RatingRepository) Unsave(ctx context.Context, postID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_blogs WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// IsSaved reports whether the user bookmarked the post.
func (r *RatingRepository) IsSaved(ctx context.Context, postID, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_blogs WHERE post_id = ? AND user_id = ?`, postID, userID).Scan(&n)
	return n > 0, err
}

// ListSaved returns the user's visible saved posts, most recently saved first.
func (r *RatingRepository) ListSaved(ctx context.Context, userID int64, page PageParams) ([]models.PostSummary, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_blogs s JOIN blog_posts p ON p.id = s.post_id WHERE s.user_id = ? AND p.is_hidden = 0`,
		userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := page.LimitOffset()
	rows, err := r.db.QueryContext(ctx, postSummarySelect+` JOIN saved_blogs s ON s.post_id = p.id
WHERE s.user_id = ? AND p.is_hidden = 0 ORDER BY s.created_at DESC, p.id DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanPostSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
