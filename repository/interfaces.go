package repository

import (
	"context"
	"time"

	"blogPlatform/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByOAuth(ctx context.Context, provider, subject string) (*models.User, error)
	ListPage(ctx context.Context, p UserListParams) ([]models.User, int, error)
	UpdateProfile(ctx context.Context, id int64, displayName, bio, avatarURL string) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	LinkOAuth(ctx context.Context, id int64, provider, subject string) error
	SetActive(ctx context.Context, id int64, active bool) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	UsernameExists(ctx context.Context, username string) (bool, error)
	Counts(ctx context.Context, since time.Time) (UserCounts, error)
	DailySignups(ctx context.Context, since time.Time) ([]DailyCount, error)
}

// FriendshipRepositoryI defines operations on Friendship entities.
type FriendshipRepositoryI interface {
	Create(ctx context.Context, requesterID, addresseeID int64) (*models.Friendship, error)
	GetByID(ctx context.Context, id int64) (*models.Friendship, error)
	GetBetween(ctx context.Context, a, b int64) (*models.Friendship, error)
	Respond(ctx context.Context, id, addresseeID int64, status models.FriendshipStatus, at time.Time) error
	Reopen(ctx context.Context, id, requesterID, addresseeID int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64, status models.FriendshipStatus, dir FriendshipDirection, page PageParams) ([]models.FriendshipView, int, error)
	CountFriends(ctx context.Context, userID int64) (int, error)
}

// BanRepositoryI defines operations on Ban entities.
type BanRepositoryI interface {
	Create(ctx context.Context, b *models.Ban) (*models.Ban, error)
	GetByID(ctx context.Context, id int64) (*models.Ban, error)
	GetActiveForUser(ctx context.Context, userID int64, now time.Time) (*models.Ban, error)
	Deactivate(ctx context.Context, id, adminID int64, at time.Time) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, p BanListParams) ([]models.Ban, int, error)
	CountInEffect(ctx context.Context, now time.Time) (int, error)
}

// PostRepositoryI defines operations on BlogPost entities.
type PostRepositoryI interface {
	Create(ctx context.Context, p *models.BlogPost) (*models.BlogPost, error)
	GetByID(ctx context.Context, id int64) (*models.BlogPost, error)
	GetSummary(ctx context.Context, id int64) (*models.PostSummary, error)
	Update(ctx context.Context, p *models.BlogPost) error
	Delete(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, id int64) error
	SetHidden(ctx context.Context, id int64, hidden bool, reason string) error
	ListPage(ctx context.Context, p PostListParams) ([]models.PostSummary, int, error)
	Top(ctx context.Context, limit int) ([]models.PostSummary, error)
	Counts(ctx context.Context, since time.Time) (PostCounts, error)
	CountByAuthor(ctx context.Context, authorID int64, includeHidden bool) (int, error)
	DailyCreated(ctx context.Context, since time.Time) ([]DailyCount, error)
}

// CommentRepositoryI defines operations on Comment and CommentLike entities.
type CommentRepositoryI interface {
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	SetHidden(ctx context.Context, id int64, hidden bool) error
	Delete(ctx context.Context, id int64) error
	ListByPost(ctx context.Context, postID, viewerID int64, includeHidden bool, page PageParams) ([]models.CommentView, int, error)
	AddLike(ctx context.Context, commentID, userID int64) error
	RemoveLike(ctx context.Context, commentID, userID int64) error
	CountLikes(ctx context.Context, commentID int64) (int, error)
	Count(ctx context.Context, since time.Time) (int, int, error)
	DailyCreated(ctx context.Context, since time.Time) ([]DailyCount, error)
}

// RatingRepositoryI defines operations on PostRating and SavedBlog entities.
type RatingRepositoryI interface {
	Upsert(ctx context.Context, postID, userID int64, score int) error
	Delete(ctx context.Context, postID, userID int64) error
	Get(ctx context.Context, postID, userID int64) (*models.PostRating, error)
	Summary(ctx context.Context, postID, viewerID int64) (models.RatingSummary, error)
	Save(ctx context.Context, postID, userID int64) error
	Unsave(ctx context.Context, postID, userID int64) error
	IsSaved(ctx context.Context, postID, userID int64) (bool, error)
	ListSaved(ctx context.Context, userID int64, page PageParams) ([]models.PostSummary, int, error)
}

// ReportRepositoryI defines operations on Report entities.
type ReportRepositoryI interface {
	Create(ctx context.Context, rep *models.Report) (*models.Report, error)
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	ExistsPending(ctx context.Context, reporterID int64, targetType models.TargetType, targetID int64) (bool, error)
	CountOpenForTarget(ctx context.Context, targetType models.TargetType, targetID int64) (int, error)
	CountByStatus(ctx context.Context, status models.ReportStatus) (int, error)
	List(ctx context.Context, p ReportListParams) ([]models.Report, int, error)
	Transition(ctx context.Context, id int64, from []models.ReportStatus, to models.ReportStatus, adminID int64, note string, at time.Time) error
}

// FlagRepositoryI defines operations on ContentFlag entities.
type FlagRepositoryI interface {
	Create(ctx context.Context, f *models.ContentFlag) (*models.ContentFlag, error)
	GetByID(ctx context.Context, id int64) (*models.ContentFlag, error)
	List(ctx context.Context, status models.FlagStatus, page PageParams) ([]models.ContentFlag, int, error)
	Review(ctx context.Context, id int64, status models.FlagStatus, adminID int64, at time.Time) error
	CountOpen(ctx context.Context) (int, error)
}

// AdminRepositoryI defines operations on AdminUser entities.
type AdminRepositoryI interface {
	Create(ctx context.Context, a *models.AdminUser) (*models.AdminUser, error)
	GetByID(ctx context.Context, id int64) (*models.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	List(ctx context.Context, page PageParams) ([]models.AdminUser, int, error)
	Count(ctx context.Context) (int, error)
	SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error
	SetActive(ctx context.Context, id int64, active bool) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

// AuditRepositoryI defines operations on AdminAuditLog entities.
type AuditRepositoryI interface {
	Append(ctx context.Context, l *models.AdminAuditLog) (int64, error)
	List(ctx context.Context, p AuditListParams) ([]models.AdminAuditLog, error)
}

// SettingRepositoryI defines operations on SystemConfiguration entities.
type SettingRepositoryI interface {
	List(ctx context.Context) ([]models.SystemConfiguration, error)
	Get(ctx context.Context, key string) (*models.SystemConfiguration, error)
	Set(ctx context.Context, key, value string, adminID *int64) error
}

var (
	_ UserRepositoryI       = (*UserRepository)(nil)
	_ FriendshipRepositoryI = (*FriendshipRepository)(nil)
	_ BanRepositoryI        = (*BanRepository)(nil)
	_ PostRepositoryI       = (*PostRepository)(nil)
	_ CommentRepositoryI    = (*CommentRepository)(nil)
	_ RatingRepositoryI     = (*RatingRepository)(nil)
	_ ReportRepositoryI     = (*ReportRepository)(nil)
	_ FlagRepositoryI       = (*FlagRepository)(nil)
	_ AdminRepositoryI      = (*AdminRepository)(nil)
	_ AuditRepositoryI      = (*AuditRepository)(nil)
	_ SettingRepositoryI    = (*SettingRepository)(nil)
)
