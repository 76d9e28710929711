// Package admin implements the moderation panel: admin accounts, user and
// content moderation, reports, flags, the audit log, analytics and settings.
package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/auth"
	"blogPlatform/internal/service/blog"
	"blogPlatform/internal/service/users"
	"blogPlatform/internal/validation"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// UserModerator is the part of the user service the admin panel drives.
type UserModerator interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context, q users.ListUsersQuery, withEmail bool) (models.Page[models.User], error)
	SetActive(ctx context.Context, userID int64, active bool) error
	Ban(ctx context.Context, in users.BanInput) (*models.Ban, error)
	Unban(ctx context.Context, userID, adminID int64) (*models.Ban, error)
	ListBans(ctx context.Context, q users.ListBansQuery) (models.Page[models.Ban], error)
	CountActiveBans(ctx context.Context) (int, error)
	Counts(ctx context.Context, since time.Time) (repository.UserCounts, error)
	DailySignups(ctx context.Context, since time.Time) ([]repository.DailyCount, error)
}

// ContentModerator is the part of the blog service the admin panel drives.
type ContentModerator interface {
	AdminListPosts(ctx context.Context, q blog.ListPostsQuery, hidden *bool) (models.Page[models.PostSummary], error)
	HidePost(ctx context.Context, id int64, reason string) error
	UnhidePost(ctx context.Context, id int64) error
	SetCommentHidden(ctx context.Context, id int64, hidden bool) error
	HideContent(ctx context.Context, tt models.TargetType, id int64, reason string) error
	AdminDeletePost(ctx context.Context, id int64) error
	AdminDeleteComment(ctx context.Context, id int64) error
	ContentExists(ctx context.Context, tt models.TargetType, id int64) (bool, error)
	ContentAuthor(ctx context.Context, tt models.TargetType, id int64) (int64, error)
	AuthorStats(ctx context.Context, userID int64) (blog.AuthorStats, error)
	Stats(ctx context.Context, since time.Time) (blog.ContentStats, error)
	DailyActivity(ctx context.Context, since time.Time) (posts, comments []repository.DailyCount, err error)
	TopPosts(ctx context.Context, limit int) ([]models.PostSummary, error)
}

// Options wires a Service.
type Options struct {
	Admins      repository.AdminRepositoryI
	Audit       repository.AuditRepositoryI
	Reports     repository.ReportRepositoryI
	Flags       repository.FlagRepositoryI
	Settings    repository.SettingRepositoryI
	Users       UserModerator
	Content     ContentModerator
	Issuer      *auth.Issuer
	Revocations auth.RevocationStore
	TOTPIssuer  string
	Logger      *zap.Logger
}

type Service struct {
	admins      repository.AdminRepositoryI
	audit       repository.AuditRepositoryI
	reports     repository.ReportRepositoryI
	flags       repository.FlagRepositoryI
	settings    repository.SettingRepositoryI
	users       UserModerator
	content     ContentModerator
	issuer      *auth.Issuer
	revocations auth.RevocationStore
	totpIssuer  string
	validate    *validation.Validator
	log         *zap.Logger
	now         func() time.Time
}

func New(o Options) *Service {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	issuer := o.TOTPIssuer
	if issuer == "" {
		issuer = "blogPlatform"
	}
	return &Service{
		admins:      o.Admins,
		audit:       o.Audit,
		reports:     o.Reports,
		flags:       o.Flags,
		settings:    o.Settings,
		users:       o.Users,
		content:     o.Content,
		issuer:      o.Issuer,
		revocations: o.Revocations,
		totpIssuer:  issuer,
		validate:    validation.New(),
		log:         log,
		now:         time.Now,
	}
}

// Authenticate resolves the calling admin from ctx and checks the account is active.
func (s *Service) Authenticate(ctx context.Context) (*models.AdminUser, error) {
	_, a, err := auth.RequireAdmin(ctx, s.admins)
	return a, err
}

// Admins exposes the account lookup used by auth middleware.
func (s *Service) Admins() auth.AdminLookup {
	return s.admins
}

func requireSuper(actor *models.AdminUser) error {
	if !actor.IsSuperAdmin() {
		return apperr.Forbidden("only superadmin can perform this action")
	}
	return nil
}

type clientIPKey struct{}

// WithClientIP stores the request's client address for audit records.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// record appends an audit entry. A failed append is logged, not returned: the
// action it describes has already been applied.
func (s *Service) record(ctx context.Context, actor *models.AdminUser, action string, tt string, targetID int64, details map[string]any) {
	entry := &models.AdminAuditLog{
		AdminID:    actor.ID,
		Action:     action,
		TargetType: tt,
		IPAddress:  clientIP(ctx),
		CreatedAt:  s.now(),
	}
	if targetID != 0 {
		id := targetID
		entry.TargetID = &id
	}
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err == nil {
			entry.Details = string(b)
		}
	}
	if _, err := s.audit.Append(ctx, entry); err != nil {
		s.log.Error("append audit log failed", zap.String("action", action), zap.Int64("admin_id", actor.ID), zap.Error(err))
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
