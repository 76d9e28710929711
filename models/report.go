package models

import "time"

// TargetType names what a report or flag points at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
	TargetUser    TargetType = "user"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetPost, TargetComment, TargetUser:
		return true
	}
	return false
}

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportPending     ReportStatus = "pending"
	ReportUnderReview ReportStatus = "under_review"
	ReportResolved    ReportStatus = "resolved"
	ReportDismissed   ReportStatus = "dismissed"
)

// Open reports whether the report still awaits a decision.
func (s ReportStatus) Open() bool {
	return s == ReportPending || s == ReportUnderReview
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportUnderReview, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

// Report is a user's complaint about a post, comment or another user.
type Report struct {
	ID             int64        `db:"id" json:"id"`
	ReporterID     int64        `db:"reporter_id" json:"reporterId"`
	TargetType     TargetType   `db:"target_type" json:"targetType"`
	TargetID       int64        `db:"target_id" json:"targetId"`
	Reason         string       `db:"reason" json:"reason"`
	Description    string       `db:"description" json:"description"`
	Status         ReportStatus `db:"status" json:"status"`
	ReviewedBy     *int64       `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ResolutionNote string       `db:"resolution_note" json:"resolutionNote,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	ReviewedAt     *time.Time   `db:"reviewed_at" json:"reviewedAt,omitempty"`
}
