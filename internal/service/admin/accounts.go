package admin

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/auth"
	"blogPlatform/internal/service"
	"blogPlatform/models"
)

// Audit actions.
const (
	ActionLogin          = "admin.login"
	ActionCreateAdmin    = "admin.create"
	ActionSetAdminActive = "admin.set_active"
	ActionTOTPEnable     = "admin.totp_enable"
	ActionTOTPDisable    = "admin.totp_disable"
	ActionBanUser        = "user.ban"
	ActionUnbanUser      = "user.unban"
	ActionSetUserActive  = "user.set_active"
	ActionHidePost       = "post.hide"
	ActionUnhidePost     = "post.unhide"
	ActionDeletePost     = "post.delete"
	ActionHideComment    = "comment.hide"
	ActionUnhideComment  = "comment.unhide"
	ActionDeleteComment  = "comment.delete"
	ActionReviewReport   = "report.review"
	ActionResolveReport  = "report.resolve"
	ActionCreateFlag     = "flag.create"
	ActionReviewFlag     = "flag.review"
	ActionUpdateSetting  = "setting.update"
)

// Session is a signed-in admin.
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Admin     *models.AdminUser `json:"admin"`
}

// LoginInput signs an admin in. TOTPCode is required once two-factor is enabled.
type LoginInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totpCode"`
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	a, err := s.admins.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, apperr.Wrap(err, "lookup admin")
	}
	if a == nil || !a.IsActive || !auth.CheckPassword(a.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	if a.TOTPEnabled {
		if strings.TrimSpace(in.TOTPCode) == "" {
			return nil, apperr.Unauthorized("two-factor code required").WithDetail("totpRequired", true)
		}
		if !auth.ValidateTOTP(in.TOTPCode, a.TOTPSecret) {
			return nil, apperr.Unauthorized("invalid two-factor code")
		}
	}
	now := s.now()
	if err := s.admins.TouchLogin(ctx, a.ID, now); err != nil {
		return nil, apperr.Wrap(err, "touch admin login")
	}
	tok, exp, err := s.issuer.Issue(auth.Principal{ID: a.ID, Name: a.Username, Kind: auth.KindAdmin, Role: a.Role})
	if err != nil {
		return nil, apperr.Wrap(err, "issue token")
	}
	s.record(ctx, a, ActionLogin, "admin", a.ID, nil)
	s.log.Info("admin logged in", zap.Int64("admin_id", a.ID))
	return &Session{Token: tok, ExpiresAt: exp, Admin: a}, nil
}

// Logout revokes the admin token carried by p.
func (s *Service) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil || p.TokenID == "" || s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return apperr.Wrap(err, "revoke token")
	}
	return nil
}

// SetupTOTP generates a new secret for actor. It takes effect after EnableTOTP.
func (s *Service) SetupTOTP(ctx context.Context, actor *models.AdminUser) (*auth.TOTPKey, error) {
	if actor.TOTPEnabled {
		return nil, apperr.Conflict("two-factor authentication is already enabled")
	}
	key, err := auth.GenerateTOTP(s.totpIssuer, actor.Username)
	if err != nil {
		return nil, apperr.Wrap(err, "generate totp")
	}
	if err := s.admins.SetTOTP(ctx, actor.ID, key.Secret, false); err != nil {
		return nil, apperr.Wrap(err, "store totp secret")
	}
	return key, nil
}

// EnableTOTP turns two-factor on after the admin proves the pending secret works.
func (s *Service) EnableTOTP(ctx context.Context, actor *models.AdminUser, code string) error {
	if actor.TOTPEnabled {
		return apperr.Conflict("two-factor authentication is already enabled")
	}
	if actor.TOTPSecret == "" {
		return apperr.Invalid("call setup before enabling two-factor authentication")
	}
	if !auth.ValidateTOTP(code, actor.TOTPSecret) {
		return apperr.Invalid("invalid two-factor code")
	}
	if err := s.admins.SetTOTP(ctx, actor.ID, actor.TOTPSecret, true); err != nil {
		return apperr.Wrap(err, "enable totp")
	}
	s.record(ctx, actor, ActionTOTPEnable, "admin", actor.ID, nil)
	return nil
}

// DisableTOTP turns two-factor off; a current code is required.
func (s *Service) DisableTOTP(ctx context.Context, actor *models.AdminUser, code string) error {
	if !actor.TOTPEnabled {
		return apperr.Conflict("two-factor authentication is not enabled")
	}
	if !auth.ValidateTOTP(code, actor.TOTPSecret) {
		return apperr.Invalid("invalid two-factor code")
	}
	if err := s.admins.SetTOTP(ctx, actor.ID, "", false); err != nil {
		return apperr.Wrap(err, "disable totp")
	}
	s.record(ctx, actor, ActionTOTPDisable, "admin", actor.ID, nil)
	return nil
}

// CreateAdminInput is the body of CreateAdmin.
type CreateAdminInput struct {
	Username string `json:"username" validate:"required,min=3,max=32,username"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=superadmin moderator"`
}

// CreateAdmin adds an admin account. Superadmin only.
func (s *Service) CreateAdmin(ctx context.Context, actor *models.AdminUser, in CreateAdminInput) (*models.AdminUser, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	a, err := s.createAdmin(ctx, in)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, ActionCreateAdmin, "admin", a.ID, map[string]any{"username": a.Username, "role": a.Role})
	return a, nil
}

func (s *Service) createAdmin(ctx context.Context, in CreateAdminInput) (*models.AdminUser, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Invalid("%s", err.Error())
	}
	a, err := s.admins.Create(ctx, &models.AdminUser{Username: in.Username, PasswordHash: hash, Role: in.Role})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("admin username already exists")
		}
		return nil, apperr.Wrap(err, "create admin")
	}
	s.log.Info("admin created", zap.Int64("admin_id", a.ID), zap.String("role", a.Role))
	return a, nil
}

func (s *Service) ListAdmins(ctx context.Context, q service.PageQuery) (models.Page[models.AdminUser], error) {
	page := q.Params()
	items, total, err := s.admins.List(ctx, page)
	if err != nil {
		return models.Page[models.AdminUser]{}, apperr.Wrap(err, "list admins")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

// SetAdminActive enables or disables another admin. Superadmin only.
func (s *Service) SetAdminActive(ctx context.Context, actor *models.AdminUser, id int64, active bool) error {
	if err := requireSuper(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return apperr.Invalid("you cannot change your own active state")
	}
	if err := s.admins.SetActive(ctx, id, active); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("admin not found")
		}
		return apperr.Wrap(err, "set admin active")
	}
	s.record(ctx, actor, ActionSetAdminActive, "admin", id, map[string]any{"active": active})
	return nil
}

// Bootstrap creates the first superadmin when no admin exists yet.
// It reports whether an account was created.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, apperr.Wrap(err, "count admins")
	}
	if n > 0 {
		return false, nil
	}
	a, err := s.createAdmin(ctx, CreateAdminInput{Username: username, Password: password, Role: models.AdminRoleSuperAdmin})
	if err != nil {
		return false, err
	}
	s.log.Info("bootstrap superadmin created", zap.String("username", a.Username))
	return true, nil
}
