package models

import "time"

// FlagSource tells whether a flag was raised by the keyword filter or by an admin.
type FlagSource string

const (
	FlagSourceAuto  FlagSource = "auto"
	FlagSourceAdmin FlagSource = "admin"
)

// FlagStatus is the review state of a content flag.
type FlagStatus string

const (
	FlagOpen      FlagStatus = "open"
	FlagReviewed  FlagStatus = "reviewed"
	FlagDismissed FlagStatus = "dismissed"
)

// ContentFlag marks a post or comment for moderator attention.
type ContentFlag struct {
	ID          int64      `db:"id" json:"id"`
	ContentType TargetType `db:"content_type" json:"contentType"`
	ContentID   int64      `db:"content_id" json:"contentId"`
	Reason      string     `db:"reason" json:"reason"`
	Source      FlagSource `db:"source" json:"source"`
	Status      FlagStatus `db:"status" json:"status"`
	FlaggedBy   *int64     `db:"flagged_by" json:"flaggedBy,omitempty"`
	ReviewedBy  *int64     `db:"reviewed_by" json:"reviewedBy,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`
}
