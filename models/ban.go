package models

import "time"

// Ban suspends a user's access. A nil ExpiresAt is permanent.
type Ban struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"userId"`
	Reason     string     `db:"reason" json:"reason"`
	BannedBy   int64      `db:"banned_by" json:"bannedBy"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	IsActive   bool       `db:"is_active" json:"isActive"`
	UnbannedAt *time.Time `db:"unbanned_at" json:"unbannedAt,omitempty"`
	UnbannedBy *int64     `db:"unbanned_by" json:"unbannedBy,omitempty"`
	// Username is filled by listing queries.
	Username string `json:"username,omitempty"`
}

// InEffect reports whether the ban still suspends the user at now.
func (b *Ban) InEffect(now time.Time) bool {
	if b == nil || !b.IsActive {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// Permanent reports whether the ban has no expiry.
func (b *Ban) Permanent() bool {
	return b.ExpiresAt == nil
}
