package blog

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// autoModerate raises an auto flag when text contains a configured banned word.
// It never fails the write that triggered it.
func (s *Service) autoModerate(ctx context.Context, tt models.TargetType, id int64, text string) {
	words, err := s.settings.List(ctx, service.SettingBannedWords)
	if err != nil {
		s.log.Warn("read banned words failed", zap.Error(err))
		return
	}
	hits := matchBannedWords(s.plain(text), words)
	if len(hits) == 0 {
		return
	}
	_, err = s.flags.Create(ctx, &models.ContentFlag{
		ContentType: tt,
		ContentID:   id,
		Reason:      "banned words: " + strings.Join(hits, ", "),
		Source:      models.FlagSourceAuto,
	})
	if err != nil {
		s.log.Warn("create auto flag failed", zap.String("content_type", string(tt)), zap.Int64("content_id", id), zap.Error(err))
		return
	}
	s.log.Info("content flagged", zap.String("content_type", string(tt)), zap.Int64("content_id", id), zap.Strings("words", hits))
}

// matchBannedWords returns the banned words that occur in text as whole words, case-insensitively.
func matchBannedWords(text string, words []string) []string {
	var hits []string
	lower := strings.ToLower(text)
	for _, w := range words {
		if w == "" || !strings.Contains(lower, w) {
			continue
		}
		re, err := regexp.Compile(`(^|\W)` + regexp.QuoteMeta(w) + `($|\W)`)
		if err != nil {
			continue
		}
		if re.MatchString(lower) {
			hits = append(hits, w)
		}
	}
	return hits
}

// ContentExists reports whether the post or comment exists, hidden or not.
func (s *Service) ContentExists(ctx context.Context, tt models.TargetType, id int64) (bool, error) {
	switch tt {
	case models.TargetPost:
		p, err := s.posts.GetByID(ctx, id)
		if err != nil {
			return false, apperr.Wrap(err, "get post %d", id)
		}
		return p != nil, nil
	case models.TargetComment:
		c, err := s.comments.GetByID(ctx, id)
		if err != nil {
			return false, apperr.Wrap(err, "get comment %d", id)
		}
		return c != nil, nil
	}
	return false, apperr.Invalid("content type must be post or comment")
}

// ContentAuthor returns the author of a post or comment.
func (s *Service) ContentAuthor(ctx context.Context, tt models.TargetType, id int64) (int64, error) {
	switch tt {
	case models.TargetPost:
		p, err := s.loadPost(ctx, Viewer{Admin: true}, id)
		if err != nil {
			return 0, err
		}
		return p.AuthorID, nil
	case models.TargetComment:
		c, err := s.loadComment(ctx, id)
		if err != nil {
			return 0, err
		}
		return c.AuthorID, nil
	}
	return 0, apperr.Invalid("content type must be post or comment")
}

// HidePost hides a post from everyone but its author and admins.
func (s *Service) HidePost(ctx context.Context, id int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "hidden by moderator"
	}
	return s.setPostHidden(ctx, id, true, reason)
}

func (s *Service) UnhidePost(ctx context.Context, id int64) error {
	return s.setPostHidden(ctx, id, false, "")
}

func (s *Service) setPostHidden(ctx context.Context, id int64, hidden bool, reason string) error {
	if err := s.posts.SetHidden(ctx, id, hidden, reason); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("post not found")
		}
		return apperr.Wrap(err, "set post hidden")
	}
	s.log.Info("post visibility changed", zap.Int64("post_id", id), zap.Bool("hidden", hidden))
	return nil
}

// SetCommentHidden hides or reveals a comment.
func (s *Service) SetCommentHidden(ctx context.Context, id int64, hidden bool) error {
	if err := s.comments.SetHidden(ctx, id, hidden); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("comment not found")
		}
		return apperr.Wrap(err, "set comment hidden")
	}
	return nil
}

// HideContent hides a post or comment; used when resolving reports and flags.
func (s *Service) HideContent(ctx context.Context, tt models.TargetType, id int64, reason string) error {
	switch tt {
	case models.TargetPost:
		return s.HidePost(ctx, id, reason)
	case models.TargetComment:
		return s.SetCommentHidden(ctx, id, true)
	}
	return apperr.Invalid("only posts and comments can be hidden")
}

// AdminDeletePost removes any post.
func (s *Service) AdminDeletePost(ctx context.Context, id int64) error {
	return s.DeletePost(ctx, Viewer{Admin: true}, id)
}

// AdminDeleteComment removes any comment.
func (s *Service) AdminDeleteComment(ctx context.Context, id int64) error {
	return s.DeleteComment(ctx, Viewer{Admin: true}, id)
}

// ContentStats aggregates blog totals for the admin overview.
type ContentStats struct {
	repository.PostCounts
	TotalComments  int `json:"totalComments"`
	NewComments    int `json:"newComments"`
	PendingReports int `json:"pendingReports"`
	OpenFlags      int `json:"openFlags"`
}

// Stats returns content totals; the New* counters cover rows created at or after since.
func (s *Service) Stats(ctx context.Context, since time.Time) (ContentStats, error) {
	var st ContentStats
	var err error
	if st.PostCounts, err = s.posts.Counts(ctx, since); err != nil {
		return st, apperr.Wrap(err, "count posts")
	}
	if st.TotalComments, st.NewComments, err = s.comments.Count(ctx, since); err != nil {
		return st, apperr.Wrap(err, "count comments")
	}
	if st.PendingReports, err = s.reports.CountByStatus(ctx, models.ReportPending); err != nil {
		return st, apperr.Wrap(err, "count reports")
	}
	if st.OpenFlags, err = s.flags.CountOpen(ctx); err != nil {
		return st, apperr.Wrap(err, "count flags")
	}
	return st, nil
}

// DailyActivity returns posts and comments created per day since the given time.
func (s *Service) DailyActivity(ctx context.Context, since time.Time) (posts, comments []repository.DailyCount, err error) {
	if posts, err = s.posts.DailyCreated(ctx, since); err != nil {
		return nil, nil, apperr.Wrap(err, "daily posts")
	}
	if comments, err = s.comments.DailyCreated(ctx, since); err != nil {
		return nil, nil, apperr.Wrap(err, "daily comments")
	}
	return posts, comments, nil
}

// TopPosts returns the best-rated visible posts.
func (s *Service) TopPosts(ctx context.Context, limit int) ([]models.PostSummary, error) {
	out, err := s.posts.Top(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(err, "top posts")
	}
	if out == nil {
		out = []models.PostSummary{}
	}
	return out, nil
}

// AuthorStats summarises one user's writing for moderators.
type AuthorStats struct {
	UserID       int64 `json:"userId"`
	VisiblePosts int   `json:"visiblePosts"`
	TotalPosts   int   `json:"totalPosts"`
}

func (s *Service) AuthorStats(ctx context.Context, userID int64) (AuthorStats, error) {
	st := AuthorStats{UserID: userID}
	var err error
	if st.VisiblePosts, err = s.posts.CountByAuthor(ctx, userID, false); err != nil {
		return st, apperr.Wrap(err, "count posts")
	}
	if st.TotalPosts, err = s.posts.CountByAuthor(ctx, userID, true); err != nil {
		return st, apperr.Wrap(err, "count posts")
	}
	return st, nil
}
