package blog

import (
	"context"
	"html"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
	"blogPlatform/repository"
)

const (
	defaultMaxTitleLength = 200
	maxContentLength      = 100_000
	maxSummaryLength      = 300
	derivedSummaryLength  = 200
	maxTags               = 10
	maxTagLength          = 30
)

// PostInput is the body of a create or update request.
type PostInput struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// PostDetail is a single post with the viewer's rating and bookmark state.
type PostDetail struct {
	models.PostSummary
	Rating    models.RatingSummary `json:"rating"`
	SavedByMe bool                 `json:"savedByMe"`
}

// ListPostsQuery filters ListPosts.
type ListPostsQuery struct {
	Search   string `form:"search"`
	AuthorID *int64 `form:"authorId"`
	Tag      string `form:"tag"`
	SortBy   string `form:"sortBy"`
	SortDir  string `form:"sortDir"`
	service.PageQuery
}

var postSortKeys = []string{"createdAt", "updatedAt", "title", "views", "rating"}

// ListPosts returns a page of posts. Hidden posts appear only for admins and
// for authors listing their own posts.
func (s *Service) ListPosts(ctx context.Context, v Viewer, q ListPostsQuery) (models.Page[models.PostSummary], error) {
	var hidden *bool
	if !v.Admin && (q.AuthorID == nil || *q.AuthorID != v.UserID || v.UserID == 0) {
		visibleOnly := false
		hidden = &visibleOnly
	}
	return s.listPosts(ctx, q, hidden)
}

// AdminListPosts lists posts for moderation; hidden selects hidden or visible posts, nil both.
func (s *Service) AdminListPosts(ctx context.Context, q ListPostsQuery, hidden *bool) (models.Page[models.PostSummary], error) {
	return s.listPosts(ctx, q, hidden)
}

func (s *Service) listPosts(ctx context.Context, q ListPostsQuery, hidden *bool) (models.Page[models.PostSummary], error) {
	if err := service.CheckSort(q.SortBy, postSortKeys...); err != nil {
		return models.Page[models.PostSummary]{}, err
	}
	page := q.Params()
	items, total, err := s.posts.ListPage(ctx, repository.PostListParams{
		Search:     q.Search,
		AuthorID:   q.AuthorID,
		Tag:        q.Tag,
		Hidden:     hidden,
		SortBy:     q.SortBy,
		SortDesc:   (q.SortBy == "" && q.SortDir == "") || service.SortDesc(q.SortDir),
		PageParams: page,
	})
	if err != nil {
		return models.Page[models.PostSummary]{}, apperr.Wrap(err, "list posts")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

// GetPost returns a post and counts the view.
func (s *Service) GetPost(ctx context.Context, v Viewer, id int64) (*PostDetail, error) {
	if _, err := s.loadPost(ctx, v, id); err != nil {
		return nil, err
	}
	if err := s.posts.IncrementViews(ctx, id); err != nil {
		return nil, apperr.Wrap(err, "count view")
	}
	sum, err := s.posts.GetSummary(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get post summary")
	}
	if sum == nil {
		return nil, apperr.NotFound("post not found")
	}
	rating, err := s.ratings.Summary(ctx, id, v.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "rating summary")
	}
	d := &PostDetail{PostSummary: *sum, Rating: rating}
	if v.UserID != 0 {
		if d.SavedByMe, err = s.ratings.IsSaved(ctx, id, v.UserID); err != nil {
			return nil, apperr.Wrap(err, "saved state")
		}
	}
	return d, nil
}

// CreatePost stores a new post by authorID after sanitising it.
func (s *Service) CreatePost(ctx context.Context, authorID int64, in PostInput) (*models.BlogPost, error) {
	p, err := s.preparePost(ctx, in)
	if err != nil {
		return nil, err
	}
	p.AuthorID = authorID
	created, err := s.posts.Create(ctx, p)
	if err != nil {
		return nil, apperr.Wrap(err, "create post")
	}
	s.log.Info("post created", zap.Int64("post_id", created.ID), zap.Int64("author_id", authorID))
	s.autoModerate(ctx, models.TargetPost, created.ID, created.Title+" "+created.Content)
	return created, nil
}

// UpdatePost replaces a post's content. Only the author may edit.
func (s *Service) UpdatePost(ctx context.Context, userID, id int64, in PostInput) (*models.BlogPost, error) {
	cur, err := s.loadPost(ctx, Viewer{UserID: userID}, id)
	if err != nil {
		return nil, err
	}
	if cur.AuthorID != userID {
		return nil, apperr.Forbidden("only the author can edit this post")
	}
	p, err := s.preparePost(ctx, in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.posts.Update(ctx, p); err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("post not found")
		}
		return nil, apperr.Wrap(err, "update post")
	}
	s.autoModerate(ctx, models.TargetPost, id, p.Title+" "+p.Content)
	updated, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get post %d", id)
	}
	return updated, nil
}

// DeletePost removes a post. Authors delete their own posts; admins any.
func (s *Service) DeletePost(ctx context.Context, v Viewer, id int64) error {
	p, err := s.loadPost(ctx, v, id)
	if err != nil {
		return err
	}
	if !v.Admin && p.AuthorID != v.UserID {
		return apperr.Forbidden("only the author can delete this post")
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("post not found")
		}
		return apperr.Wrap(err, "delete post")
	}
	s.log.Info("post deleted", zap.Int64("post_id", id), zap.Bool("by_admin", v.Admin))
	return nil
}

// AuthorPostCount counts an author's visible posts.
func (s *Service) AuthorPostCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.posts.CountByAuthor(ctx, userID, false)
	if err != nil {
		return 0, apperr.Wrap(err, "count posts")
	}
	return n, nil
}

func (s *Service) preparePost(ctx context.Context, in PostInput) (*models.BlogPost, error) {
	maxTitle, err := s.settings.Int(ctx, service.SettingMaxTitleLength, defaultMaxTitleLength)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(s.plain(in.Title))
	if title == "" {
		return nil, apperr.Invalid("title is required").WithDetail("fields", map[string]string{"title": "required"})
	}
	if n := utf8.RuneCountInString(title); n > maxTitle {
		return nil, apperr.Invalid("title must be at most %d characters", maxTitle)
	}
	if len(in.Content) > maxContentLength {
		return nil, apperr.Invalid("content must be at most %d bytes", maxContentLength)
	}
	content := strings.TrimSpace(s.html.Sanitize(in.Content))
	text := collapseSpace(s.plain(content))
	if text == "" {
		return nil, apperr.Invalid("content is required").WithDetail("fields", map[string]string{"content": "required"})
	}
	summary := collapseSpace(s.plain(in.Summary))
	if summary == "" {
		summary = truncate(text, derivedSummaryLength)
	}
	if utf8.RuneCountInString(summary) > maxSummaryLength {
		return nil, apperr.Invalid("summary must be at most %d characters", maxSummaryLength)
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	return &models.BlogPost{Title: title, Summary: summary, Content: content, ContentText: text, Tags: tags}, nil
}

// plain strips every tag and returns unescaped text.
func (s *Service) plain(in string) string {
	return html.UnescapeString(s.text.Sanitize(in))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

func normalizeTags(in []string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(t, ",", " ")))
		t = strings.Join(strings.Fields(t), "-")
		if t == "" || seen[t] {
			continue
		}
		if utf8.RuneCountInString(t) > maxTagLength {
			return nil, apperr.Invalid("tags must be at most %d characters", maxTagLength)
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, apperr.Invalid("at most %d tags are allowed", maxTags)
	}
	return out, nil
}
