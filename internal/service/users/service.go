// Package users implements accounts, sessions, profiles, friendships and bans.
package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/auth"
	"blogPlatform/internal/service"
	"blogPlatform/internal/validation"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// PostStats is the blog service hook used for profile counters.
type PostStats interface {
	AuthorPostCount(ctx context.Context, userID int64) (int, error)
}

// Options wires a Service. OAuth and Revocations may be nil.
type Options struct {
	Users       repository.UserRepositoryI
	Friendships repository.FriendshipRepositoryI
	Bans        repository.BanRepositoryI
	Settings    repository.SettingRepositoryI
	Issuer      *auth.Issuer
	Revocations auth.RevocationStore
	OAuth       *GoogleOAuth
	Logger      *zap.Logger
}

type Service struct {
	users       repository.UserRepositoryI
	friendships repository.FriendshipRepositoryI
	bans        repository.BanRepositoryI
	settings    *service.Settings
	issuer      *auth.Issuer
	revocations auth.RevocationStore
	oauth       *GoogleOAuth
	posts       PostStats
	validate    *validation.Validator
	log         *zap.Logger
	now         func() time.Time
}

func New(o Options) *Service {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:       o.Users,
		friendships: o.Friendships,
		bans:        o.Bans,
		settings:    service.NewSettings(o.Settings),
		issuer:      o.Issuer,
		revocations: o.Revocations,
		oauth:       o.OAuth,
		validate:    validation.New(),
		log:         log,
		now:         time.Now,
	}
}

// SetPostStats installs the blog hook; without it post counts read as zero.
func (s *Service) SetPostStats(p PostStats) {
	s.posts = p
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func (s *Service) issue(u *models.User) (*Session, error) {
	tok, exp, err := s.issuer.Issue(auth.Principal{ID: u.ID, Name: u.Username, Kind: auth.KindUser, Role: u.Role})
	if err != nil {
		return nil, apperr.Wrap(err, "issue token")
	}
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

// requireUser loads a user or returns NotFound.
func (s *Service) requireUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get user %d", id)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

// checkCanSignIn rejects deactivated and banned accounts.
func (s *Service) checkCanSignIn(ctx context.Context, u *models.User) error {
	if !u.IsActive {
		return apperr.Forbidden("account is deactivated")
	}
	ban, err := s.ActiveBan(ctx, u.ID)
	if err != nil {
		return err
	}
	if ban != nil {
		return bannedError(ban)
	}
	return nil
}

func bannedError(b *models.Ban) error {
	e := apperr.Forbidden("account is banned").WithDetail("reason", b.Reason)
	if b.ExpiresAt != nil {
		e.WithDetail("expiresAt", b.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return e
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
