package models

import (
	"time"

	"gorm.io/gorm"
)

// Like represents a like on exactly one of a post or a comment.
// Uniqueness per (user, target) is enforced by partial unique indexes.
type Like struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	PostID    *string  `gorm:"type:uuid;index" json:"post_id,omitempty"`
	Post      *Post    `gorm:"foreignKey:PostID" json:"-"`
	CommentID *string  `gorm:"type:uuid;index" json:"comment_id,omitempty"`
	Comment   *Comment `gorm:"foreignKey:CommentID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Follow represents a directed follower edge. Self-follows are rejected
// at the handler layer; the pair is unique at the store layer.
type Follow struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	FollowerID  string `gorm:"not null;index" json:"follower_id"`
	Follower    User   `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	FollowingID string `gorm:"not null;index" json:"following_id"`
	Following   User   `gorm:"foreignKey:FollowingID" json:"following,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Bookmark represents a user saving a post, unique per (user, post)
type Bookmark struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`
	PostID string `gorm:"not null;index" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"post,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// JSONMap is an arbitrary JSON object payload
type JSONMap map[string]interface{}

// Notification represents an in-app notification addressed to one user
type Notification struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Type    string  `gorm:"type:varchar(50);not null" json:"type"`
	Title   string  `gorm:"not null" json:"title"`
	Message string  `gorm:"type:text" json:"message"`
	Data    JSONMap `gorm:"type:jsonb;serializer:json" json:"data,omitempty"`

	IsRead bool `gorm:"default:false;index" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

// Notification type tags
const (
	NotificationTypeModeration = "moderation"
	NotificationTypeReport     = "report"
	NotificationTypeWarning    = "warning"
	NotificationTypeFollow     = "follow"
	NotificationTypeComment    = "comment"
	NotificationTypeMention    = "mention"
	NotificationTypeLike       = "like"
)

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
