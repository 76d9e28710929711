package admin

import (
	"context"
	"strings"
	"time"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service/blog"
	"blogPlatform/internal/service/users"
	"blogPlatform/models"
)

// maxBanHours caps timed bans at one year.
const maxBanHours = 24 * 365

// UserDetail is a user with moderation context.
type UserDetail struct {
	User      *models.User     `json:"user"`
	ActiveBan *models.Ban      `json:"activeBan,omitempty"`
	Posts     blog.AuthorStats `json:"posts"`
}

// ListUsers lists accounts with emails and the banned/active filters.
func (s *Service) ListUsers(ctx context.Context, q users.ListUsersQuery) (models.Page[models.User], error) {
	return s.users.ListUsers(ctx, q, true)
}

// GetUser returns one account with its active ban and writing stats.
func (s *Service) GetUser(ctx context.Context, userID int64) (*UserDetail, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	bans, err := s.users.ListBans(ctx, users.ListBansQuery{UserID: &userID, Active: boolPtr(true)})
	if err != nil {
		return nil, err
	}
	d := &UserDetail{User: u}
	now := s.now()
	for i := range bans.Items {
		if bans.Items[i].InEffect(now) {
			d.ActiveBan = &bans.Items[i]
			break
		}
	}
	if d.Posts, err = s.content.AuthorStats(ctx, userID); err != nil {
		return nil, err
	}
	return d, nil
}

// BanRequest suspends a user. DurationHours, when set, takes precedence over
// ExpiresAt; neither means a permanent ban.
type BanRequest struct {
	Reason        string     `json:"reason"`
	DurationHours *int       `json:"durationHours"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

func (s *Service) banExpiry(req BanRequest) (*time.Time, error) {
	if req.DurationHours != nil {
		h := *req.DurationHours
		if h <= 0 || h > maxBanHours {
			return nil, apperr.Invalid("durationHours must be between 1 and %d", maxBanHours)
		}
		exp := s.now().Add(time.Duration(h) * time.Hour)
		return &exp, nil
	}
	return req.ExpiresAt, nil
}

func (s *Service) BanUser(ctx context.Context, actor *models.AdminUser, userID int64, req BanRequest) (*models.Ban, error) {
	exp, err := s.banExpiry(req)
	if err != nil {
		return nil, err
	}
	b, err := s.users.Ban(ctx, users.BanInput{UserID: userID, AdminID: actor.ID, Reason: req.Reason, ExpiresAt: exp})
	if err != nil {
		return nil, err
	}
	details := map[string]any{"reason": b.Reason, "banId": b.ID}
	if b.ExpiresAt != nil {
		details["expiresAt"] = b.ExpiresAt.UTC().Format(time.RFC3339)
	}
	s.record(ctx, actor, ActionBanUser, string(models.TargetUser), userID, details)
	return b, nil
}

func (s *Service) UnbanUser(ctx context.Context, actor *models.AdminUser, userID int64) (*models.Ban, error) {
	b, err := s.users.Unban(ctx, userID, actor.ID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, ActionUnbanUser, string(models.TargetUser), userID, map[string]any{"banId": b.ID})
	return b, nil
}

func (s *Service) ListBans(ctx context.Context, q users.ListBansQuery) (models.Page[models.Ban], error) {
	return s.users.ListBans(ctx, q)
}

// SetUserActive deactivates or reactivates an account.
func (s *Service) SetUserActive(ctx context.Context, actor *models.AdminUser, userID int64, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return err
	}
	s.record(ctx, actor, ActionSetUserActive, string(models.TargetUser), userID, map[string]any{"active": active})
	return nil
}

// ListPosts lists posts for moderation. hidden nil returns every post.
func (s *Service) ListPosts(ctx context.Context, q blog.ListPostsQuery, hidden *bool) (models.Page[models.PostSummary], error) {
	return s.content.AdminListPosts(ctx, q, hidden)
}

func (s *Service) HidePost(ctx context.Context, actor *models.AdminUser, postID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if err := s.content.HidePost(ctx, postID, reason); err != nil {
		return err
	}
	s.record(ctx, actor, ActionHidePost, string(models.TargetPost), postID, map[string]any{"reason": reason})
	return nil
}

func (s *Service) UnhidePost(ctx context.Context, actor *models.AdminUser, postID int64) error {
	if err := s.content.UnhidePost(ctx, postID); err != nil {
		return err
	}
	s.record(ctx, actor, ActionUnhidePost, string(models.TargetPost), postID, nil)
	return nil
}

func (s *Service) DeletePost(ctx context.Context, actor *models.AdminUser, postID int64) error {
	if err := s.content.AdminDeletePost(ctx, postID); err != nil {
		return err
	}
	s.record(ctx, actor, ActionDeletePost, string(models.TargetPost), postID, nil)
	return nil
}

func (s *Service) SetCommentHidden(ctx context.Context, actor *models.AdminUser, commentID int64, hidden bool) error {
	if err := s.content.SetCommentHidden(ctx, commentID, hidden); err != nil {
		return err
	}
	action := ActionHideComment
	if !hidden {
		action = ActionUnhideComment
	}
	s.record(ctx, actor, action, string(models.TargetComment), commentID, nil)
	return nil
}

func (s *Service) DeleteComment(ctx context.Context, actor *models.AdminUser, commentID int64) error {
	if err := s.content.AdminDeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.record(ctx, actor, ActionDeleteComment, string(models.TargetComment), commentID, nil)
	return nil
}

func boolPtr(b bool) *bool { return &b }
