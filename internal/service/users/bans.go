package users

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// BanInput suspends a user. A nil ExpiresAt bans permanently.
type BanInput struct {
	UserID    int64
	AdminID   int64
	Reason    string
	ExpiresAt *time.Time
}

// Ban suspends a user. The user must exist and not already be banned.
func (s *Service) Ban(ctx context.Context, in BanInput) (*models.Ban, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return nil, apperr.Invalid("ban reason is required")
	}
	if len(in.Reason) > 500 {
		return nil, apperr.Invalid("ban reason must be at most 500 characters")
	}
	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, apperr.Invalid("ban expiry must be in the future")
	}
	if _, err := s.requireUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	active, err := s.ActiveBan(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.Conflict("user is already banned")
	}
	b, err := s.bans.Create(ctx, &models.Ban{
		UserID:    in.UserID,
		Reason:    in.Reason,
		BannedBy:  in.AdminID,
		CreatedAt: now,
		ExpiresAt: in.ExpiresAt,
	})
	if err != nil {
		return nil, apperr.Wrap(err, "create ban")
	}
	s.log.Info("user banned", zap.Int64("user_id", in.UserID), zap.Int64("admin_id", in.AdminID), zap.Bool("permanent", b.Permanent()))
	return b, nil
}

// Unban lifts the ban currently in effect for userID.
func (s *Service) Unban(ctx context.Context, userID, adminID int64) (*models.Ban, error) {
	active, err := s.ActiveBan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, apperr.NotFound("user has no active ban")
	}
	if err := s.bans.Deactivate(ctx, active.ID, adminID, s.now()); err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("user has no active ban")
		}
		return nil, apperr.Wrap(err, "deactivate ban")
	}
	s.log.Info("user unbanned", zap.Int64("user_id", userID), zap.Int64("admin_id", adminID))
	b, err := s.bans.GetByID(ctx, active.ID)
	if err != nil {
		return nil, apperr.Wrap(err, "get ban")
	}
	return b, nil
}

// ActiveBan returns the ban in effect for userID, or nil. Bans past their
// expiry are ignored even before the sweep deactivates them.
func (s *Service) ActiveBan(ctx context.Context, userID int64) (*models.Ban, error) {
	b, err := s.bans.GetActiveForUser(ctx, userID, s.now())
	if err != nil {
		return nil, apperr.Wrap(err, "get active ban")
	}
	return b, nil
}

// CheckCanWrite returns a Forbidden error when userID is deactivated or has a
// ban in effect. The ban reason is carried in the error details.
func (s *Service) CheckCanWrite(ctx context.Context, userID int64) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Wrap(err, "get user %d", userID)
	}
	if u == nil {
		return apperr.Unauthorized("account no longer exists")
	}
	return s.checkCanSignIn(ctx, u)
}

// ListBansQuery filters ListBans.
type ListBansQuery struct {
	UserID *int64 `form:"userId"`
	Active *bool  `form:"active"`
	service.PageQuery
}

func (s *Service) ListBans(ctx context.Context, q ListBansQuery) (models.Page[models.Ban], error) {
	page := q.Params()
	items, total, err := s.bans.List(ctx, repository.BanListParams{UserID: q.UserID, Active: q.Active, PageParams: page})
	if err != nil {
		return models.Page[models.Ban]{}, apperr.Wrap(err, "list bans")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

// ExpireBans deactivates every active ban whose expiry has passed.
func (s *Service) ExpireBans(ctx context.Context) (int64, error) {
	n, err := s.bans.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, apperr.Wrap(err, "expire bans")
	}
	if n > 0 {
		s.log.Info("expired bans", zap.Int64("count", n))
	}
	return n, nil
}

// CountActiveBans returns how many bans are in effect now.
func (s *Service) CountActiveBans(ctx context.Context) (int, error) {
	n, err := s.bans.CountInEffect(ctx, s.now())
	if err != nil {
		return 0, apperr.Wrap(err, "count bans")
	}
	return n, nil
}
