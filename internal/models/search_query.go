package models

import (
	"time"

	"gorm.io/gorm"
)

// SearchQuery is a logged search, later back-filled with its result count.
// Feeds the suggestion and trending-search features.
type SearchQuery struct {
	ID     string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID *string `gorm:"type:uuid;index" json:"user_id"` // Nullable for anonymous searches
	User   *User   `gorm:"foreignKey:UserID" json:"-"`

	Query       string `gorm:"type:text;not null" json:"query"`
	SearchType  string `gorm:"type:varchar(20);not null" json:"search_type"` // "all", "posts", "users", "tags", "comments"
	ResultCount int    `gorm:"default:0" json:"result_count"`

	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent"`

	CreatedAt time.Time `json:"created_at"`
}

func (q *SearchQuery) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = generateUUID()
	}
	return nil
}
