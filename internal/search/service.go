// Package search implements full-text and fielded search across posts,
// users, tags and comments, plus suggestions and trending queries.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/devlog-app/backend/internal/cache"
	"github.com/devlog-app/backend/internal/errors"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// MinQueryLength is the shortest accepted search query
	MinQueryLength = 2

	// MaxSuggestions caps the suggestion list
	MaxSuggestions = 10

	// trendingCacheTTL is how long trending search results stay cached
	trendingCacheTTL = 5 * time.Minute
)

// Valid search types
const (
	TypeAll      = "all"
	TypePosts    = "posts"
	TypeUsers    = "users"
	TypeTags     = "tags"
	TypeComments = "comments"
)

// Service executes searches against Postgres and records query history
type Service struct {
	db *gorm.DB
}

// NewService creates a search service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// PostResult is a post search hit with its relevance rank
type PostResult struct {
	models.Post
	Rank float64 `json:"rank"`
}

// CommentResult is a comment hit joined with its post slug for linking
type CommentResult struct {
	models.Comment
	PostSlug  string `json:"post_slug"`
	PostTitle string `json:"post_title"`
}

// Results bundles hits across all entity types
type Results struct {
	Query    string           `json:"query"`
	Posts    []PostResult     `json:"posts,omitempty"`
	Users    []models.User    `json:"users,omitempty"`
	Tags     []models.Tag     `json:"tags,omitempty"`
	Comments []CommentResult  `json:"comments,omitempty"`
	Total    int              `json:"total"`
}

// RequestMeta carries request attribution for query logging
type RequestMeta struct {
	UserID    string
	ClientIP  string
	UserAgent string
}

// ValidateQuery rejects queries that are too short to search on.
// Rejected queries are not logged to search history.
func ValidateQuery(query string) *errors.APIError {
	if len(strings.TrimSpace(query)) < MinQueryLength {
		return errors.ValidationError("q", fmt.Sprintf("query must be at least %d characters", MinQueryLength))
	}
	return nil
}

// Search runs a search of the given type and logs it to search history.
// The history row is back-filled with the total result count.
func (s *Service) Search(query, searchType string, limit, offset int, meta RequestMeta) (*Results, *errors.APIError) {
	query = strings.TrimSpace(query)
	if apiErr := ValidateQuery(query); apiErr != nil {
		return nil, apiErr
	}

	results := &Results{Query: query}

	switch searchType {
	case TypePosts:
		results.Posts = s.searchPosts(query, limit, offset)
	case TypeUsers:
		results.Users = s.searchUsers(query, limit, offset)
	case TypeTags:
		results.Tags = s.searchTags(query, limit, offset)
	case TypeComments:
		results.Comments = s.searchComments(query, limit, offset)
	case TypeAll, "":
		searchType = TypeAll
		results.Posts = s.searchPosts(query, limit, 0)
		results.Users = s.searchUsers(query, limit, 0)
		results.Tags = s.searchTags(query, limit, 0)
		results.Comments = s.searchComments(query, limit, 0)
	default:
		return nil, errors.ValidationError("type", "unknown search type")
	}

	results.Total = len(results.Posts) + len(results.Users) + len(results.Tags) + len(results.Comments)

	s.logQuery(query, searchType, results.Total, meta)

	return results, nil
}

// searchPosts runs Postgres full-text search over published posts,
// ranked by relevance then trending score
func (s *Service) searchPosts(query string, limit, offset int) []PostResult {
	var hits []PostResult

	tsvector := "to_tsvector('english', title || ' ' || coalesce(excerpt,'') || ' ' || content)"

	err := s.db.Model(&models.Post{}).
		Select(fmt.Sprintf("posts.*, ts_rank(%s, plainto_tsquery('english', ?)) AS rank", tsvector), query).
		Where("status = ?", models.PostStatusPublished).
		Where(fmt.Sprintf("%s @@ plainto_tsquery('english', ?)", tsvector), query).
		Order("rank DESC, trending_score DESC").
		Limit(limit).Offset(offset).
		Preload("Author").
		Preload("Tags").
		Find(&hits).Error
	if err != nil {
		logger.Log.Error("post search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return hits
}

// searchUsers matches username and full name, excluding banned accounts
func (s *Service) searchUsers(query string, limit, offset int) []models.User {
	var users []models.User

	pattern := "%" + query + "%"
	err := s.db.
		Where("is_banned = ?", false).
		Where("username ILIKE ? OR full_name ILIKE ?", pattern, pattern).
		Order("follower_count DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		logger.Log.Error("user search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return users
}

// searchTags matches tag names by substring
func (s *Service) searchTags(query string, limit, offset int) []models.Tag {
	var tags []models.Tag

	err := s.db.
		Where("name ILIKE ?", "%"+query+"%").
		Order("post_count DESC").
		Limit(limit).Offset(offset).
		Find(&tags).Error
	if err != nil {
		logger.Log.Error("tag search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return tags
}

// searchComments runs full-text search over comments on published posts
func (s *Service) searchComments(query string, limit, offset int) []CommentResult {
	var hits []CommentResult

	err := s.db.Model(&models.Comment{}).
		Select("comments.*, posts.slug AS post_slug, posts.title AS post_title").
		Joins("JOIN posts ON posts.id = comments.post_id AND posts.status = ? AND posts.deleted_at IS NULL", models.PostStatusPublished).
		Where("to_tsvector('english', comments.content) @@ plainto_tsquery('english', ?)", query).
		Order("comments.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&hits).Error
	if err != nil {
		logger.Log.Error("comment search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return hits
}

// logQuery records the search in history with its result count.
// Failures are logged and swallowed, history must never break search.
func (s *Service) logQuery(query, searchType string, resultCount int, meta RequestMeta) {
	record := models.SearchQuery{
		Query:       query,
		SearchType:  searchType,
		ResultCount: resultCount,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
	}
	if meta.UserID != "" {
		record.UserID = &meta.UserID
	}

	if err := s.db.Create(&record).Error; err != nil {
		logger.Log.Warn("failed to log search query", zap.String("query", query), zap.Error(err))
	}
}

// Suggestions returns up to MaxSuggestions post titles and tag names.
// Prefix matches are preferred; substring matches fill the remainder.
func (s *Service) Suggestions(prefix string) []string {
	prefix = strings.TrimSpace(prefix)
	if len(prefix) < MinQueryLength {
		return []string{}
	}

	suggestions := make([]string, 0, MaxSuggestions)
	seen := make(map[string]struct{})

	collect := func(values []string) {
		for _, v := range values {
			if len(suggestions) >= MaxSuggestions {
				return
			}
			key := strings.ToLower(v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			suggestions = append(suggestions, v)
		}
	}

	collect(s.titleMatches(prefix+"%", MaxSuggestions))
	collect(s.tagMatches(prefix+"%", MaxSuggestions))

	if len(suggestions) < MaxSuggestions {
		collect(s.titleMatches("%"+prefix+"%", MaxSuggestions))
		collect(s.tagMatches("%"+prefix+"%", MaxSuggestions))
	}

	return suggestions
}

func (s *Service) titleMatches(pattern string, limit int) []string {
	var titles []string
	err := s.db.Model(&models.Post{}).
		Where("status = ?", models.PostStatusPublished).
		Where("title ILIKE ?", pattern).
		Order("trending_score DESC").
		Limit(limit).
		Pluck("title", &titles).Error
	if err != nil {
		logger.Log.Warn("title suggestion lookup failed", zap.Error(err))
	}
	return titles
}

func (s *Service) tagMatches(pattern string, limit int) []string {
	var names []string
	err := s.db.Model(&models.Tag{}).
		Where("name ILIKE ?", pattern).
		Order("post_count DESC").
		Limit(limit).
		Pluck("name", &names).Error
	if err != nil {
		logger.Log.Warn("tag suggestion lookup failed", zap.Error(err))
	}
	return names
}

// TrendingSearch is an aggregated popular query
type TrendingSearch struct {
	Query          string  `json:"query"`
	SearchCount    int     `json:"search_count"`
	AvgResultCount float64 `json:"avg_result_count"`
}

// TrendingSearches returns the most frequent queries over a period
// ("day", "week" or "month"). Results are cached in Redis for 5 minutes.
func (s *Service) TrendingSearches(period string, limit int) ([]TrendingSearch, *errors.APIError) {
	var since time.Time
	now := time.Now().UTC()
	switch period {
	case "day", "":
		period = "day"
		since = now.AddDate(0, 0, -1)
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	default:
		return nil, errors.ValidationError("period", "period must be day, week or month")
	}

	cacheKey := fmt.Sprintf("trending_searches:%s:%d", period, limit)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if rc := cache.GetRedisClient(); rc != nil {
		if cached, err := rc.Get(ctx, cacheKey); err == nil {
			var trending []TrendingSearch
			if err := json.Unmarshal([]byte(cached), &trending); err == nil {
				return trending, nil
			}
		}
	}

	var trending []TrendingSearch
	err := s.db.Model(&models.SearchQuery{}).
		Select("query, COUNT(*) AS search_count, AVG(result_count) AS avg_result_count").
		Where("created_at >= ?", since).
		Group("query").
		Order("search_count DESC, avg_result_count DESC").
		Limit(limit).
		Find(&trending).Error
	if err != nil {
		logger.Log.Error("trending search aggregation failed", zap.Error(err))
		return nil, errors.InternalError("failed to load trending searches")
	}

	if rc := cache.GetRedisClient(); rc != nil {
		if data, err := json.Marshal(trending); err == nil {
			if err := rc.SetEx(ctx, cacheKey, data, trendingCacheTTL); err != nil {
				logger.Log.Warn("failed to cache trending searches", zap.Error(err))
			}
		}
	}

	return trending, nil
}
