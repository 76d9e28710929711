package users

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/config"
	"blogPlatform/internal/service"
	"blogPlatform/models"
)

// ProviderGoogle is the oauth_provider value stored for Google accounts.
const ProviderGoogle = "google"

// OAuthIdentity is the subset of the OpenID userinfo document the service reads.
type OAuthIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleOAuth performs the authorization-code flow against Google.
type GoogleOAuth struct {
	conf        *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewGoogleOAuth returns nil when the client is not configured.
func NewGoogleOAuth(c config.OAuthConfig, client *http.Client) *GoogleOAuth {
	if !c.Enabled() {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleOAuth{
		conf: &oauth2.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  c.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   c.GoogleAuthURL,
				TokenURL:  c.GoogleTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: c.GoogleUserInfoURL,
		client:      client,
	}
}

// AuthCodeURL is where the browser is sent to consent.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Identity exchanges code for a token and reads the user's OpenID profile.
func (g *GoogleOAuth) Identity(ctx context.Context, code string) (*OAuthIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}
	var id OAuthIdentity
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&id); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("userinfo without subject")
	}
	return &id, nil
}

// BeginOAuth returns the consent URL and the state the caller must keep for CompleteOAuth.
func (s *Service) BeginOAuth() (url, state string, err error) {
	if s.oauth == nil {
		return "", "", apperr.NotFound("oauth login is not configured")
	}
	state = uuid.NewString()
	return s.oauth.AuthCodeURL(state), state, nil
}

// CompleteOAuth finishes a Google sign-in. expectedState is the value stored
// when the flow began. Unknown identities are linked to an account with the
// same verified email, or a new account is created.
func (s *Service) CompleteOAuth(ctx context.Context, code, state, expectedState string) (*Session, error) {
	if s.oauth == nil {
		return nil, apperr.NotFound("oauth login is not configured")
	}
	if state == "" || state != expectedState {
		return nil, apperr.Unauthorized("invalid oauth state")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperr.Invalid("authorization code is required")
	}
	id, err := s.oauth.Identity(ctx, code)
	if err != nil {
		s.log.Warn("oauth exchange failed", zap.Error(err))
		return nil, apperr.Unauthorized("oauth sign-in failed")
	}
	u, err := s.resolveOAuthUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCanSignIn(ctx, u); err != nil {
		return nil, err
	}
	if err := s.users.TouchLogin(ctx, u.ID, s.now()); err != nil {
		return nil, apperr.Wrap(err, "touch login")
	}
	return s.issue(u)
}

func (s *Service) resolveOAuthUser(ctx context.Context, id *OAuthIdentity) (*models.User, error) {
	u, err := s.users.GetByOAuth(ctx, ProviderGoogle, id.Subject)
	if err != nil {
		return nil, apperr.Wrap(err, "lookup oauth user")
	}
	if u != nil {
		return u, nil
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email != "" && id.EmailVerified {
		u, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, apperr.Wrap(err, "lookup user by email")
		}
		if u != nil {
			if u.OAuthSubject != "" {
				return nil, apperr.Conflict("account is linked to another oauth identity")
			}
			if err := s.users.LinkOAuth(ctx, u.ID, ProviderGoogle, id.Subject); err != nil {
				if isDuplicate(err) {
					return nil, apperr.Conflict("oauth identity already linked")
				}
				return nil, apperr.Wrap(err, "link oauth")
			}
			s.log.Info("oauth identity linked", zap.Int64("user_id", u.ID))
			return s.requireUser(ctx, u.ID)
		}
	} else {
		email = ""
	}

	open, err := s.settings.Bool(ctx, service.SettingRegistrationEnabled, true)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, apperr.Forbidden("registration is disabled")
	}
	username, err := s.uniqueUsername(ctx, usernameBase(email, id.Name))
	if err != nil {
		return nil, err
	}
	display := strings.TrimSpace(id.Name)
	if display == "" {
		display = username
	}
	u, err = s.users.Create(ctx, &models.User{
		Username:      username,
		Email:         email,
		DisplayName:   display,
		AvatarURL:     id.Picture,
		OAuthProvider: ProviderGoogle,
		OAuthSubject:  id.Subject,
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("account already exists")
		}
		return nil, apperr.Wrap(err, "create oauth user")
	}
	s.log.Info("user registered via oauth", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

const maxUsernameBase = 24

// usernameBase derives a candidate username from an email local part or a name.
func usernameBase(email, name string) string {
	src := name
	if at := strings.IndexByte(email, '@'); at > 0 {
		src = email[:at]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(src) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ' || r == '+':
			b.WriteByte('_')
		}
		if b.Len() >= maxUsernameBase {
			break
		}
	}
	base := strings.Trim(b.String(), "_")
	if len(base) < 3 {
		base = "user" + base
	}
	return base
}

func (s *Service) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; i < 100; i++ {
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", apperr.Wrap(err, "check username")
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
	return base + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6], nil
}
