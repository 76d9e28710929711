package users

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/auth"
	"blogPlatform/internal/service"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// RegisterInput is the body of a sign-up request.
type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=32,username"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"max=64"`
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	open, err := s.settings.Bool(ctx, service.SettingRegistrationEnabled, true)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, apperr.Forbidden("registration is disabled")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Invalid("%s", err.Error())
	}
	display := in.DisplayName
	if display == "" {
		display = in.Username
	}
	u, err := s.users.Create(ctx, &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  display,
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("username or email already registered")
		}
		return nil, apperr.Wrap(err, "create user")
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return s.issue(u)
}

// LoginInput accepts a username or an email in Login.
type LoginInput struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
}

// Login checks credentials and account state, then issues a session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Login = strings.TrimSpace(in.Login)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByLogin(ctx, in.Login)
	if err != nil {
		return nil, apperr.Wrap(err, "lookup user")
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	if err := s.checkCanSignIn(ctx, u); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, apperr.Wrap(err, "touch login")
	}
	t := now.UTC().Truncate(time.Second)
	u.LastLoginAt = &t
	s.log.Info("user logged in", zap.Int64("user_id", u.ID))
	return s.issue(u)
}

// Logout revokes the token carried by p until it would have expired.
func (s *Service) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil || p.TokenID == "" || s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return apperr.Wrap(err, "revoke token")
	}
	return nil
}

// Me returns the caller's own profile including the email.
func (s *Service) Me(ctx context.Context, userID int64) (*models.UserProfile, error) {
	return s.GetProfile(ctx, userID, userID)
}

// GetProfile returns a user's profile as seen by viewerID (0 for anonymous).
// Email is only shown to the owner and deactivated users are not found.
func (s *Service) GetProfile(ctx context.Context, userID, viewerID int64) (*models.UserProfile, error) {
	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive && userID != viewerID {
		return nil, apperr.NotFound("user not found")
	}
	friends, err := s.friendships.CountFriends(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "count friends")
	}
	prof := &models.UserProfile{User: *u, FriendCount: friends}
	if s.posts != nil {
		n, err := s.posts.AuthorPostCount(ctx, userID)
		if err != nil {
			return nil, err
		}
		prof.PostCount = n
	}
	if viewerID != userID {
		prof.Email = ""
		if viewerID != 0 {
			st, err := s.FriendshipStatus(ctx, viewerID, userID)
			if err != nil {
				return nil, err
			}
			prof.FriendshipStatus = st
		}
	}
	return prof, nil
}

// UpdateProfileInput carries the editable profile fields. Nil fields are left unchanged.
type UpdateProfileInput struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=64"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,url,max=500"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
		if u.DisplayName == "" {
			u.DisplayName = u.Username
		}
	}
	if in.Bio != nil {
		u.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := s.users.UpdateProfile(ctx, userID, u.DisplayName, u.Bio, u.AvatarURL); err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Wrap(err, "update profile")
	}
	return s.requireUser(ctx, userID)
}

// ChangePasswordInput changes a password. CurrentPassword may be empty for
// OAuth-only accounts setting their first password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.HasPassword() && !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return apperr.Invalid("current password is incorrect")
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Invalid("%s", err.Error())
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperr.Wrap(err, "update password")
	}
	s.log.Info("password changed", zap.Int64("user_id", userID))
	return nil
}

// Deactivate disables the caller's account and revokes the token used for the request.
func (s *Service) Deactivate(ctx context.Context, p *auth.Principal) error {
	if p == nil {
		return apperr.Unauthorized("authentication required")
	}
	if err := s.users.SetActive(ctx, p.ID, false); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("user not found")
		}
		return apperr.Wrap(err, "deactivate user")
	}
	s.log.Info("account deactivated", zap.Int64("user_id", p.ID))
	return s.Logout(ctx, p)
}

// SetActive is the admin switch for an account's active flag.
func (s *Service) SetActive(ctx context.Context, userID int64, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("user not found")
		}
		return apperr.Wrap(err, "set user active")
	}
	return nil
}

// GetUser returns the full user row for internal callers.
func (s *Service) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.requireUser(ctx, userID)
}

// ListUsersQuery filters ListUsers. Active and Banned are admin-only filters.
type ListUsersQuery struct {
	Search   string `form:"search"`
	SortBy   string `form:"sortBy"`
	SortDir  string `form:"sortDir"`
	Active   *bool  `form:"active"`
	Banned   *bool  `form:"banned"`
	service.PageQuery
}

var userSortKeys = []string{"username", "createdAt", "lastLogin"}

// ListUsers returns one page of users. Emails are cleared unless withEmail is set.
func (s *Service) ListUsers(ctx context.Context, q ListUsersQuery, withEmail bool) (models.Page[models.User], error) {
	if err := service.CheckSort(q.SortBy, userSortKeys...); err != nil {
		return models.Page[models.User]{}, err
	}
	page := q.Params()
	items, total, err := s.users.ListPage(ctx, repository.UserListParams{
		Search:     q.Search,
		Active:     q.Active,
		Banned:     q.Banned,
		Now:        s.now(),
		SortBy:     q.SortBy,
		SortDesc:   service.SortDesc(q.SortDir),
		PageParams: page,
	})
	if err != nil {
		return models.Page[models.User]{}, apperr.Wrap(err, "list users")
	}
	if !withEmail {
		for i := range items {
			items[i].Email = ""
		}
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

// Counts exposes account totals for analytics.
func (s *Service) Counts(ctx context.Context, since time.Time) (repository.UserCounts, error) {
	c, err := s.users.Counts(ctx, since)
	if err != nil {
		return c, apperr.Wrap(err, "count users")
	}
	return c, nil
}

// DailySignups exposes per-day registrations for analytics.
func (s *Service) DailySignups(ctx context.Context, since time.Time) ([]repository.DailyCount, error) {
	d, err := s.users.DailySignups(ctx, since)
	if err != nil {
		return nil, apperr.Wrap(err, "daily signups")
	}
	return d, nil
}
