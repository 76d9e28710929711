// Package blog implements posts, comments, ratings, saved posts and user reports.
package blog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/auth"
	"blogPlatform/internal/service"
	"blogPlatform/internal/validation"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// Viewer identifies who is reading. The zero value is an anonymous visitor.
type Viewer struct {
	UserID int64
	Admin  bool
}

// ViewerFrom builds a Viewer from an optional principal.
func ViewerFrom(p *auth.Principal) Viewer {
	if p == nil {
		return Viewer{}
	}
	if p.Kind == auth.KindAdmin {
		return Viewer{Admin: true}
	}
	return Viewer{UserID: p.ID}
}

// Options wires a Service.
type Options struct {
	Posts    repository.PostRepositoryI
	Comments repository.CommentRepositoryI
	Ratings  repository.RatingRepositoryI
	Reports  repository.ReportRepositoryI
	Flags    repository.FlagRepositoryI
	Users    repository.UserRepositoryI
	Settings repository.SettingRepositoryI
	Logger   *zap.Logger
}

type Service struct {
	posts    repository.PostRepositoryI
	comments repository.CommentRepositoryI
	ratings  repository.RatingRepositoryI
	reports  repository.ReportRepositoryI
	flags    repository.FlagRepositoryI
	users    repository.UserRepositoryI
	settings *service.Settings
	html     *bluemonday.Policy
	text     *bluemonday.Policy
	validate *validation.Validator
	log      *zap.Logger
	now      func() time.Time
}

func New(o Options) *Service {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		posts:    o.Posts,
		comments: o.Comments,
		ratings:  o.Ratings,
		reports:  o.Reports,
		flags:    o.Flags,
		users:    o.Users,
		settings: service.NewSettings(o.Settings),
		html:     bluemonday.UGCPolicy(),
		text:     bluemonday.StrictPolicy(),
		validate: validation.New(),
		log:      log,
		now:      time.Now,
	}
}

// canSeeHidden reports whether v may read hidden content written by authorID.
func (v Viewer) canSeeHidden(authorID int64) bool {
	return v.Admin || (v.UserID != 0 && v.UserID == authorID)
}

// loadPost returns the post or NotFound when it is missing or hidden from v.
func (s *Service) loadPost(ctx context.Context, v Viewer, id int64) (*models.BlogPost, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get post %d", id)
	}
	if p == nil || (p.IsHidden && !v.canSeeHidden(p.AuthorID)) {
		return nil, apperr.NotFound("post not found")
	}
	return p, nil
}

func (s *Service) loadComment(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get comment %d", id)
	}
	if c == nil {
		return nil, apperr.NotFound("comment not found")
	}
	return c, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
