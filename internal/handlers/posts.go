package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/trending"
	"github.com/devlog-app/backend/internal/util"
	"github.com/devlog-app/backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatePostRequest is the payload for creating a post
type CreatePostRequest struct {
	Title         string   `json:"title" binding:"required"`
	Content       string   `json:"content" binding:"required"`
	Excerpt       string   `json:"excerpt"`
	CoverImageURL string   `json:"cover_image_url"`
	CategoryID    *string  `json:"category_id"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status"`
}

// UpdatePostRequest is the payload for updating a post
type UpdatePostRequest struct {
	Title         *string  `json:"title"`
	Content       *string  `json:"content"`
	Excerpt       *string  `json:"excerpt"`
	CoverImageURL *string  `json:"cover_image_url"`
	CategoryID    *string  `json:"category_id"`
	Tags          []string `json:"tags"`
	Status        *string  `json:"status"`
}

// resolveSlug derives a unique slug from the title, suffixing -2, -3…
// on collision. Excludes the given post id so updates keep their slug.
func resolveSlug(tx *gorm.DB, title, excludePostID string) string {
	base := util.Slugify(title)
	slug := base
	for i := 2; ; i++ {
		var count int64
		q := tx.Model(&models.Post{}).Unscoped().Where("slug = ?", slug)
		if excludePostID != "" {
			q = q.Where("id <> ?", excludePostID)
		}
		q.Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// recomputeTrending recalculates and persists the post's trending score
// from its current counters
func recomputeTrending(tx *gorm.DB, post *models.Post) {
	post.TrendingScore = trending.Score(post.LikeCount, post.CommentCount, post.ViewCount, post.CreatedAt, time.Now().UTC())
	tx.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("trending_score", post.TrendingScore)
}

// attachTags replaces the post's tag set with the named tags, creating
// missing ones and keeping every tag's post_count in step
func attachTags(tx *gorm.DB, post *models.Post, names []string) error {
	seen := make(map[string]struct{})
	newTags := make([]models.Tag, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(strings.ToLower(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		var tag models.Tag
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			tag = models.Tag{Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		}
		newTags = append(newTags, tag)
	}

	var oldTags []models.Tag
	if err := tx.Model(post).Association("Tags").Find(&oldTags); err != nil {
		return err
	}

	if err := tx.Model(post).Association("Tags").Replace(newTags); err != nil {
		return err
	}

	// Adjust denormalized counts for tags entering and leaving the set
	oldSet := make(map[string]struct{}, len(oldTags))
	for _, t := range oldTags {
		oldSet[t.ID] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newTags))
	for _, t := range newTags {
		newSet[t.ID] = struct{}{}
	}

	for _, t := range newTags {
		if _, was := oldSet[t.ID]; !was {
			tx.Model(&models.Tag{}).Where("id = ?", t.ID).
				UpdateColumn("post_count", gorm.Expr("post_count + 1"))
		}
	}
	for _, t := range oldTags {
		if _, still := newSet[t.ID]; !still {
			tx.Model(&models.Tag{}).Where("id = ? AND post_count > 0", t.ID).
				UpdateColumn("post_count", gorm.Expr("post_count - 1"))
		}
	}

	post.Tags = newTags
	return nil
}

// CreatePost handles POST /api/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "title and content are required")
		return
	}

	status := models.PostStatus(req.Status)
	if req.Status == "" {
		status = models.PostStatusDraft
	}
	// Authors may only create drafts, submit for review, or publish.
	// Rejected is reachable through moderation alone.
	if status != models.PostStatusDraft && status != models.PostStatusPending && status != models.PostStatusPublished {
		util.RespondValidationError(c, "status", "status must be draft, pending or published")
		return
	}

	if req.CategoryID != nil && *req.CategoryID != "" {
		var category models.Category
		if err := database.DB.Where("id = ?", *req.CategoryID).First(&category).Error; err != nil {
			util.RespondNotFound(c, "category")
			return
		}
	} else {
		req.CategoryID = nil
	}

	excerpt := strings.TrimSpace(req.Excerpt)
	if excerpt == "" {
		excerpt = util.MakeExcerpt(req.Content, 200)
	}

	post := models.Post{
		AuthorID:      user.ID,
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       excerpt,
		CoverImageURL: req.CoverImageURL,
		CategoryID:    req.CategoryID,
		Status:        status,
	}
	if status == models.PostStatusPublished {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		post.Slug = resolveSlug(tx, req.Title, "")
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if err := attachTags(tx, &post, req.Tags); err != nil {
			return err
		}
		tx.Model(&models.User{}).Where("id = ?", user.ID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1"))
		recomputeTrending(tx, &post)
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			util.RespondConflict(c, "post slug")
			return
		}
		logger.ErrorWithFields("failed to create post", err)
		util.RespondInternalError(c, "failed to create post")
		return
	}

	if post.Status == models.PostStatusPublished {
		h.announcePost(&post, user)
	}

	logger.Log.Info("post created",
		logger.WithPostID(post.ID),
		logger.WithUserID(user.ID),
		zap.String("status", string(post.Status)),
	)

	c.JSON(http.StatusCreated, post)
}

// announcePost pushes a new_post event to the author's followers
func (h *Handlers) announcePost(post *models.Post, author *models.User) {
	if h.WS == nil {
		return
	}

	var followerIDs []string
	database.DB.Model(&models.Follow{}).
		Where("following_id = ?", author.ID).
		Pluck("follower_id", &followerIDs)

	if len(followerIDs) == 0 {
		return
	}

	h.WS.NotifyNewPost(followerIDs, &websocket.NewPostPayload{
		PostID:    post.ID,
		AuthorID:  author.ID,
		Username:  author.Username,
		Title:     post.Title,
		Slug:      post.Slug,
		Excerpt:   post.Excerpt,
		AvatarURL: author.AvatarURL,
	})
}

// canSeePost reports whether the requester may view a non-published post
func canSeePost(post *models.Post, viewer *models.User) bool {
	if post.Status == models.PostStatusPublished {
		return true
	}
	if viewer == nil {
		return false
	}
	return viewer.ID == post.AuthorID || viewer.Role.CanModerate()
}

// GetPost handles GET /api/posts/:slug. Fetching a published post counts
// a view and refreshes the trending score.
func (h *Handlers) GetPost(c *gin.Context) {
	slug := c.Param("slug")

	var post models.Post
	err := database.DB.
		Preload("Author").
		Preload("Tags").
		Preload("Category").
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var viewer *models.User
	if u, exists := c.Get("user"); exists {
		viewer, _ = u.(*models.User)
	}

	if !canSeePost(&post, viewer) {
		util.RespondNotFound(c, "post")
		return
	}

	if post.Status == models.PostStatusPublished {
		post.ViewCount++
		database.DB.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		recomputeTrending(database.DB, &post)
	}

	c.JSON(http.StatusOK, post)
}

// ListPosts handles GET /api/posts with filtering, sorting and pagination
func (h *Handlers) ListPosts(c *gin.Context) {
	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	var viewer *models.User
	if u, exists := c.Get("user"); exists {
		viewer, _ = u.(*models.User)
	}

	query := database.DB.Model(&models.Post{}).
		Preload("Author").
		Preload("Tags").
		Preload("Category")

	// Status filtering defaults to published; other statuses are visible
	// to moderators, or to authors filtering their own posts
	status := c.Query("status")
	authorName := c.Query("author")
	if status != "" && viewer != nil {
		ownFilter := authorName != "" && strings.EqualFold(authorName, viewer.Username)
		if viewer.Role.CanModerate() || ownFilter {
			query = query.Where("posts.status = ?", status)
		} else {
			query = query.Where("posts.status = ?", models.PostStatusPublished)
		}
	} else {
		query = query.Where("posts.status = ?", models.PostStatusPublished)
	}

	if authorName != "" {
		query = query.Joins("JOIN users ON users.id = posts.author_id").
			Where("LOWER(users.username) = LOWER(?)", authorName)
	}

	if categorySlug := c.Query("category"); categorySlug != "" {
		query = query.Joins("JOIN categories ON categories.id = posts.category_id").
			Where("categories.slug = ?", categorySlug)
	}

	if tagName := c.Query("tag"); tagName != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", strings.ToLower(tagName))
	}

	switch c.DefaultQuery("sort", "latest") {
	case "trending":
		query = query.Order("posts.is_pinned DESC, posts.trending_score DESC")
	case "popular":
		query = query.Order("posts.is_pinned DESC, posts.like_count DESC, posts.view_count DESC")
	default:
		query = query.Order("posts.is_pinned DESC, posts.published_at DESC NULLS LAST, posts.created_at DESC")
	}

	var total int64
	query.Count(&total)

	var posts []models.Post
	if err := query.Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		logger.ErrorWithFields("failed to list posts", err)
		util.RespondInternalError(c, "failed to list posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// UpdatePost handles PUT /api/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	if post.AuthorID != user.ID && !user.Role.CanAdministrate() {
		util.RespondForbidden(c, "you can only edit your own posts")
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	if req.Status != nil {
		status := models.PostStatus(*req.Status)
		if status != models.PostStatusDraft && status != models.PostStatusPending && status != models.PostStatusPublished {
			util.RespondValidationError(c, "status", "status must be draft, pending or published")
			return
		}
	}

	wasPublished := post.Status == models.PostStatusPublished

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if req.Title != nil && *req.Title != post.Title {
			post.Title = *req.Title
			post.Slug = resolveSlug(tx, post.Title, post.ID)
		}
		if req.Content != nil {
			post.Content = *req.Content
		}
		if req.Excerpt != nil {
			post.Excerpt = *req.Excerpt
		} else if req.Content != nil && post.Excerpt == "" {
			post.Excerpt = util.MakeExcerpt(post.Content, 200)
		}
		if req.CoverImageURL != nil {
			post.CoverImageURL = *req.CoverImageURL
		}
		if req.CategoryID != nil {
			if *req.CategoryID == "" {
				post.CategoryID = nil
			} else {
				var category models.Category
				if err := tx.Where("id = ?", *req.CategoryID).First(&category).Error; err != nil {
					return err
				}
				post.CategoryID = req.CategoryID
			}
		}
		if req.Status != nil {
			post.Status = models.PostStatus(*req.Status)
			if post.Status == models.PostStatusPublished && post.PublishedAt == nil {
				now := time.Now().UTC()
				post.PublishedAt = &now
			}
		}

		if err := tx.Save(&post).Error; err != nil {
			return err
		}
		if req.Tags != nil {
			if err := attachTags(tx, &post, req.Tags); err != nil {
				return err
			}
		}
		recomputeTrending(tx, &post)
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondNotFound(c, "category")
			return
		}
		if database.IsUniqueViolation(err) {
			util.RespondConflict(c, "post slug")
			return
		}
		logger.ErrorWithFields("failed to update post", err)
		util.RespondInternalError(c, "failed to update post")
		return
	}

	if !wasPublished && post.Status == models.PostStatusPublished {
		h.announcePost(&post, user)
	}

	c.JSON(http.StatusOK, post)
}

// deletePostCascade removes a post and everything hanging off it:
// comments and their likes, post likes, bookmarks, tag counts.
// Shared by the author delete handler and report resolution.
func deletePostCascade(tx *gorm.DB, post *models.Post) error {
	var commentIDs []string
	if err := tx.Model(&models.Comment{}).Where("post_id = ?", post.ID).
		Pluck("id", &commentIDs).Error; err != nil {
		return err
	}

	if len(commentIDs) > 0 {
		if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", post.ID).Delete(&models.Bookmark{}).Error; err != nil {
		return err
	}

	var tags []models.Tag
	if err := tx.Model(post).Association("Tags").Find(&tags); err != nil {
		return err
	}
	for _, tag := range tags {
		tx.Model(&models.Tag{}).Where("id = ? AND post_count > 0", tag.ID).
			UpdateColumn("post_count", gorm.Expr("post_count - 1"))
	}
	if err := tx.Model(post).Association("Tags").Clear(); err != nil {
		return err
	}

	tx.Model(&models.User{}).Where("id = ? AND post_count > 0", post.AuthorID).
		UpdateColumn("post_count", gorm.Expr("post_count - 1"))

	return tx.Unscoped().Delete(post).Error
}

// DeletePost handles DELETE /api/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	if post.AuthorID != user.ID && !user.Role.CanAdministrate() {
		util.RespondForbidden(c, "you can only delete your own posts")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		return deletePostCascade(tx, &post)
	})
	if err != nil {
		logger.ErrorWithFields("failed to delete post", err)
		util.RespondInternalError(c, "failed to delete post")
		return
	}

	logger.Log.Info("post deleted",
		logger.WithPostID(post.ID),
		logger.WithUserID(user.ID),
	)

	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

// LikePost handles POST /api/posts/:id/like as a toggle: liking twice
// returns the counter to where it started
func (h *Handlers) LikePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.Where("id = ? AND status = ?", c.Param("id"), models.PostStatusPublished).
		First(&post).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var liked bool
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&existing).Error
		if err == nil {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).Where("id = ? AND like_count > 0", post.ID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return err
			}
			post.LikeCount--
			liked = false
		} else if err == gorm.ErrRecordNotFound {
			like := models.Like{UserID: user.ID, PostID: &post.ID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
				return err
			}
			post.LikeCount++
			liked = true
		} else {
			return err
		}
		recomputeTrending(tx, &post)
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			// Concurrent double-like lost the race; treat as already liked
			c.JSON(http.StatusOK, gin.H{"liked": true, "like_count": post.LikeCount})
			return
		}
		logger.ErrorWithFields("failed to toggle like", err)
		util.RespondInternalError(c, "failed to toggle like")
		return
	}

	if h.WS != nil {
		h.WS.BroadcastLikeCount(post.ID, &websocket.LikeCountPayload{
			PostID:    post.ID,
			LikeCount: post.LikeCount,
		})
	}

	if liked && post.AuthorID != user.ID {
		h.notify(post.AuthorID, models.NotificationTypeLike, "New like",
			fmt.Sprintf("%s liked your post \"%s\"", user.Username, post.Title),
			models.JSONMap{"post_id": post.ID, "user_id": user.ID})
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": post.LikeCount})
}

// BookmarkPost handles POST /api/posts/:id/bookmark as a toggle
func (h *Handlers) BookmarkPost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.Where("id = ? AND status = ?", c.Param("id"), models.PostStatusPublished).
		First(&post).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var existing models.Bookmark
	err := database.DB.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&existing).Error
	if err == nil {
		if err := database.DB.Delete(&existing).Error; err != nil {
			util.RespondInternalError(c, "failed to remove bookmark")
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookmarked": false})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondInternalError(c, "failed to toggle bookmark")
		return
	}

	bookmark := models.Bookmark{UserID: user.ID, PostID: post.ID}
	if err := database.DB.Create(&bookmark).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusOK, gin.H{"bookmarked": true})
			return
		}
		util.RespondInternalError(c, "failed to add bookmark")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookmarked": true})
}

// ListBookmarks handles GET /api/posts/bookmarks
func (h *Handlers) ListBookmarks(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	var bookmarks []models.Bookmark
	err := database.DB.
		Preload("Post").
		Preload("Post.Author").
		Preload("Post.Tags").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&bookmarks).Error
	if err != nil {
		util.RespondInternalError(c, "failed to list bookmarks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookmarks": bookmarks,
		"page":      page,
		"limit":     limit,
	})
}

// SharePost handles POST /api/posts/:id/share
func (h *Handlers) SharePost(c *gin.Context) {
	var post models.Post
	if err := database.DB.Where("id = ? AND status = ?", c.Param("id"), models.PostStatusPublished).
		First(&post).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	post.ShareCount++
	database.DB.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("share_count", gorm.Expr("share_count + 1"))
	recomputeTrending(database.DB, &post)

	c.JSON(http.StatusOK, gin.H{"share_count": post.ShareCount})
}

// Feed handles GET /api/posts/feed: published posts from followed authors
func (h *Handlers) Feed(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	var posts []models.Post
	err := database.DB.
		Preload("Author").
		Preload("Tags").
		Joins("JOIN follows ON follows.following_id = posts.author_id").
		Where("follows.follower_id = ?", user.ID).
		Where("posts.status = ?", models.PostStatusPublished).
		Order("posts.published_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		logger.ErrorWithFields("failed to build feed", err)
		util.RespondInternalError(c, "failed to build feed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"page":  page,
		"limit": limit,
	})
}
