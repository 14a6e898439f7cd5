package models

import (
	"time"

	"gorm.io/gorm"
)

// ReportReason represents the reason for a report
type ReportReason string

const (
	ReportReasonSpam          ReportReason = "spam"
	ReportReasonHarassment    ReportReason = "harassment"
	ReportReasonInappropriate ReportReason = "inappropriate"
	ReportReasonMisinfo       ReportReason = "misinformation"
	ReportReasonCopyright     ReportReason = "copyright"
	ReportReasonOther         ReportReason = "other"
)

// ReportStatus represents the lifecycle state of a report
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// ReportAction represents what a moderator did when resolving a report
type ReportAction string

const (
	ReportActionDismiss ReportAction = "dismiss"
	ReportActionWarn    ReportAction = "warn"
	ReportActionBan     ReportAction = "ban"
	ReportActionDelete  ReportAction = "delete"
)

// Valid reports whether the action is one of the known values
func (a ReportAction) Valid() bool {
	switch a {
	case ReportActionDismiss, ReportActionWarn, ReportActionBan, ReportActionDelete:
		return true
	}
	return false
}

// Report represents a user-submitted complaint against a user, post or
// comment. Exactly one of the three target references is set.
type Report struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReporterID string `gorm:"not null;index" json:"reporter_id"`
	Reporter   User   `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`

	ReportedUserID    *string  `gorm:"type:uuid;index" json:"reported_user_id,omitempty"`
	ReportedUser      *User    `gorm:"foreignKey:ReportedUserID" json:"reported_user,omitempty"`
	ReportedPostID    *string  `gorm:"type:uuid;index" json:"reported_post_id,omitempty"`
	ReportedPost      *Post    `gorm:"foreignKey:ReportedPostID" json:"-"`
	ReportedCommentID *string  `gorm:"type:uuid;index" json:"reported_comment_id,omitempty"`
	ReportedComment   *Comment `gorm:"foreignKey:ReportedCommentID" json:"-"`

	Reason      ReportReason `gorm:"type:varchar(30);not null" json:"reason"`
	Description string       `gorm:"type:text" json:"description"`
	Status      ReportStatus `gorm:"type:varchar(20);default:pending;index" json:"status"`

	ModeratorID *string    `gorm:"type:uuid;index" json:"moderator_id,omitempty"`
	Moderator   *User      `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`
	ActionTaken string     `gorm:"type:varchar(30)" json:"action_taken"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`

	// GORM fields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModerationEvent is the append-only audit record of a moderator action.
// Distinct from Report: a report is a user complaint, an event is what a
// moderator actually did (post approval, rejection, ban, role change…).
type ModerationEvent struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ModeratorID string `gorm:"not null;index" json:"moderator_id"`
	Moderator   User   `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`

	Action string `gorm:"type:varchar(30);not null" json:"action"`
	Reason string `gorm:"type:text" json:"reason"`

	TargetUserID    *string `gorm:"type:uuid;index" json:"target_user_id,omitempty"`
	TargetPostID    *string `gorm:"type:uuid;index" json:"target_post_id,omitempty"`
	TargetCommentID *string `gorm:"type:uuid;index" json:"target_comment_id,omitempty"`
	ReportID        *string `gorm:"type:uuid;index" json:"report_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Moderation event actions
const (
	ModerationActionApprovePost = "approve_post"
	ModerationActionRejectPost  = "reject_post"
	ModerationActionDismiss     = "dismiss_report"
	ModerationActionWarn        = "warn_user"
	ModerationActionBan         = "ban_user"
	ModerationActionUnban       = "unban_user"
	ModerationActionDelete      = "delete_content"
	ModerationActionChangeRole  = "change_role"
)

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	return nil
}

func (e *ModerationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}
