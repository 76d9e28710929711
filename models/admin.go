package models

import "time"

// Admin roles. Superadmins manage other admins and system configuration.
const (
	AdminRoleSuperAdmin = "superadmin"
	AdminRoleModerator  = "moderator"
)

// AdminUser is an operator of the admin panel. Admins are separate from end users.
type AdminUser struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	TOTPSecret   string     `db:"totp_secret" json:"-"`
	TOTPEnabled  bool       `db:"totp_enabled" json:"totpEnabled"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
}

// IsSuperAdmin reports whether the admin holds the superadmin role.
func (a *AdminUser) IsSuperAdmin() bool {
	return a != nil && a.Role == AdminRoleSuperAdmin
}

// AdminAuditLog records one mutating admin action.
type AdminAuditLog struct {
	ID         int64     `db:"id" json:"id"`
	AdminID    int64     `db:"admin_id" json:"adminId"`
	Action     string    `db:"action" json:"action"`
	TargetType string    `db:"target_type" json:"targetType,omitempty"`
	TargetID   *int64    `db:"target_id" json:"targetId,omitempty"`
	Details    string    `db:"details" json:"details"`
	IPAddress  string    `db:"ip_address" json:"ipAddress,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// SystemConfiguration is a runtime-tunable key/value setting.
type SystemConfiguration struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description string    `db:"description" json:"description"`
	UpdatedBy   *int64    `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
