package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the enumerated permission level of a user account
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// CanModerate reports whether the role may approve/reject posts and resolve reports
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// CanAdministrate reports whether the role may manage users, roles and taxonomy
func (r Role) CanAdministrate() bool {
	return r == RoleAdmin
}

// User represents a Devlog account
type User struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`

	PasswordHash string `gorm:"type:text;not null" json:"-"`

	// Profile data
	FullName  string `json:"full_name"`
	Bio       string `gorm:"type:text" json:"bio"`
	AvatarURL string `json:"avatar_url"`
	Website   string `json:"website"`
	Location  string `json:"location"`

	// Permissions and standing
	Role       Role `gorm:"type:varchar(20);default:user;not null" json:"role"`
	IsVerified bool `gorm:"default:false" json:"is_verified"`
	IsBanned   bool `gorm:"default:false" json:"is_banned"`
	Reputation int  `gorm:"default:0" json:"reputation"`

	// Denormalized counts
	FollowerCount  int `gorm:"default:0" json:"follower_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`
	PostCount      int `gorm:"default:0" json:"post_count"`

	LastActiveAt *time.Time `json:"last_active_at"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuthSession is the server-side record of an issued bearer token.
// Revocation is checked by token identifier (jti), never the token itself.
type AuthSession struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TokenID string `gorm:"uniqueIndex;not null" json:"token_id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"-"`

	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`

	UserAgent string `json:"user_agent"`
	ClientIP  string `json:"client_ip"`

	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the session can still authenticate requests
func (s *AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (s *AuthSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
