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

const postColumns = `p.id, p.author_id, p.title, p.summary, p.content, p.tags, p.view_count, p.is_hidden, p.hidden_reason, p.created_at, p.updated_at`

const postSummarySelect = `SELECT ` + postColumns + `, u.username,
  COALESCE((SELECT AVG(r.score) FROM post_ratings r WHERE r.post_id = p.id), 0) AS avg_rating,
  (SELECT COUNT(*) FROM post_ratings r WHERE r.post_id = p.id) AS rating_count,
  (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id AND c.is_hidden = 0) AS comment_count
FROM blog_posts p JOIN users u ON u.id = p.author_id`

// PostRepository is the core repository for BlogPost entities.
type PostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Create inserts a post and returns it as stored.
func (r *PostRepository) Create(ctx context.Context, p *models.BlogPost) (*models.BlogPost, error) {
	if p == nil {
		return nil, errors.New("post is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	now := db.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `INSERT INTO blog_posts (author_id, title, summary, content, content_text, tags, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		p.AuthorID, p.Title, p.Summary, p.Content, p.ContentText, joinTags(p.Tags), now, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("author %d does not exist: %w", p.AuthorID, err)
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
		return nil, fmt.Errorf("created post not found: id=%d", id)
	}
	return out, nil
}

// GetByID fetches a post by its ID.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.BlogPost, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	p, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM blog_posts p WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// GetSummary fetches a post with author name and aggregates.
func (r *PostRepository) GetSummary(ctx context.Context, id int64) (*models.PostSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	s, err := scanPostSummary(r.db.QueryRowContext(ctx, postSummarySelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanPost(row rowScanner) (*models.BlogPost, error) {
	var p models.BlogPost
	var tags, createdAt, updatedAt string
	var hidden int
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Summary, &p.Content, &tags, &p.ViewCount, &hidden, &p.HiddenReason, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Tags = splitTags(tags)
	p.IsHidden = hidden != 0
	p.CreatedAt = parseTS(createdAt)
	p.UpdatedAt = parseTS(updatedAt)
	return &p, nil
}

func scanPostSummary(row rowScanner) (*models.PostSummary, error) {
	var s models.PostSummary
	var tags, createdAt, updatedAt string
	var hidden int
	if err := row.Scan(&s.ID, &s.AuthorID, &s.Title, &s.Summary, &s.Content, &tags, &s.ViewCount, &hidden, &s.HiddenReason, &createdAt, &updatedAt,
		&s.AuthorUsername, &s.AverageRating, &s.RatingCount, &s.CommentCount); err != nil {
		return nil, err
	}
	s.Tags = splitTags(tags)
	s.IsHidden = hidden != 0
	s.CreatedAt = parseTS(createdAt)
	s.UpdatedAt = parseTS(updatedAt)
	return &s, nil
}

// Update replaces the editable fields of a post.
func (r *PostRepository) Update(ctx context.Context, p *models.BlogPost) error {
	if p == nil {
		return errors.New("post is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE blog_posts SET title = ?, summary = ?, content = ?, content_text = ?, tags = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Summary, p.Content, p.ContentText, joinTags(p.Tags), db.FormatTime(time.Now()), p.ID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// Delete removes a post; comments, likes, ratings and saves cascade.
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// IncrementViews bumps the view counter by one.
func (r *PostRepository) IncrementViews(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE blog_posts SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

// SetHidden hides or reveals a post. The reason is cleared when revealing.
func (r *PostRepository) SetHidden(ctx context.Context, id int64, hidden bool, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if !hidden {
		reason = ""
	}
	res, err := r.db.ExecContext(ctx, `UPDATE blog_posts SET is_hidden = ?, hidden_reason = ? WHERE id = ?`, boolInt(hidden), reason, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNoRows(res)
}

// PostListParams filters and orders ListPage.
type PostListParams struct {
	Search   string
	AuthorID *int64
	Tag      string
	// Hidden nil returns both visible and hidden posts.
	Hidden   *bool
	SortBy   string // createdAt | updatedAt | title | views | rating
	SortDesc bool
	PageParams
}

var postSortColumns = map[string]string{
	"createdat": "p.created_at",
	"updatedat": "p.updated_at",
	"title":     "p.title COLLATE NOCASE",
	"views":     "p.view_count",
	"rating":    "avg_rating",
}

// ListPage returns one page of post summaries and the total match count.
func (r *PostRepository) ListPage(ctx context.Context, p PostListParams) ([]models.PostSummary, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var where []string
	var args []any
	if s := strings.TrimSpace(p.Search); s != "" {
		pat := likePattern(s)
		where = append(where, `(p.title LIKE ? ESCAPE '\' OR p.summary LIKE ? ESCAPE '\' OR p.content_text LIKE ? ESCAPE '\')`)
		args = append(args, pat, pat, pat)
	}
	if p.AuthorID != nil {
		where = append(where, "p.author_id = ?")
		args = append(args, *p.AuthorID)
	}
	if t := strings.ToLower(strings.TrimSpace(p.Tag)); t != "" {
		where = append(where, `(',' || p.tags || ',') LIKE ? ESCAPE '\'`)
		args = append(args, "%,"+escapeLike(t)+",%")
	}
	if p.Hidden != nil {
		where = append(where, "p.is_hidden = ?")
		args = append(args, boolInt(*p.Hidden))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_posts p`+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := p.LimitOffset()
	query := postSummarySelect + filter + orderBy(p.SortBy, p.SortDesc, postSortColumns, "createdat", "p.id") + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
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

func scanPostSummaries(rows *sql.Rows) ([]models.PostSummary, error) {
	var out []models.PostSummary
	for rows.Next() {
		s, err := scanPostSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Top returns the highest-ranked visible posts by rating then views.
func (r *PostRepository) Top(ctx context.Context, limit int) ([]models.PostSummary, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = 10
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, postSummarySelect+` WHERE p.is_hidden = 0 ORDER BY avg_rating DESC, p.view_count DESC, p.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostSummaries(rows)
}

// PostCounts aggregates post totals for analytics.
type PostCounts struct {
	Total    int `json:"totalPosts"`
	Hidden   int `json:"hiddenPosts"`
	NewSince int `json:"newPosts"`
}

// Counts returns totals plus the number of posts created at or after since.
func (r *PostRepository) Counts(ctx context.Context, since time.Time) (PostCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var c PostCounts
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(is_hidden), 0), COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) FROM blog_posts`,
		db.FormatTime(since)).Scan(&c.Total, &c.Hidden, &c.NewSince)
	return c, err
}

// CountByAuthor returns how many posts a user has written; hidden posts are included only if asked.
func (r *PostRepository) CountByAuthor(ctx context.Context, authorID int64, includeHidden bool) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	q := `SELECT COUNT(*) FROM blog_posts WHERE author_id = ?`
	if !includeHidden {
		q += ` AND is_hidden = 0`
	}
	var n int
	err := r.db.QueryRowContext(ctx, q, authorID).Scan(&n)
	return n, err
}

// DailyCreated counts posts created per UTC day since the given time.
func (r *PostRepository) DailyCreated(ctx context.Context, since time.Time) ([]DailyCount, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM blog_posts WHERE created_at >= ? GROUP BY day ORDER BY day`,
		db.FormatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDailyCounts(rows)
}
