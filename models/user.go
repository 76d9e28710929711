package models

import "time"

// RoleUser is the only role end users carry; admins live in their own table.
const RoleUser = "user"

// User represents an end-user account.
// It maps to the `users` table in SQLite.
type User struct {
	ID            int64      `db:"id" json:"id"`
	Username      string     `db:"username" json:"username"`
	Email         string     `db:"email" json:"email,omitempty"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	DisplayName   string     `db:"display_name" json:"displayName"`
	Bio           string     `db:"bio" json:"bio"`
	AvatarURL     string     `db:"avatar_url" json:"avatarUrl"`
	Role          string     `db:"role" json:"role"`
	OAuthProvider string     `db:"oauth_provider" json:"oauthProvider,omitempty"`
	OAuthSubject  string     `db:"oauth_subject" json:"-"`
	IsActive      bool       `db:"is_active" json:"isActive"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserProfile is the public projection of a user with relationship counts.
type UserProfile struct {
	User
	FriendCount int `json:"friendCount"`
	PostCount   int `json:"postCount"`
	// FriendshipStatus is relative to the viewer; empty when anonymous or self.
	FriendshipStatus string `json:"friendshipStatus,omitempty"`
}
