package handlers

import (
	"fmt"
	"net/http"
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

// CreateCommentRequest is the payload for creating a comment
type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parent_id"`
}

// UpdateCommentRequest is the payload for editing a comment
type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CommentWithReplies is a top-level comment with its reply preview
type CommentWithReplies struct {
	models.Comment
	ReplyCount int64 `json:"reply_count"`
}

// CreateComment handles POST /api/posts/:id/comments. The comment row
// and the post counter move in one transaction.
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "content is required")
		return
	}

	var post models.Post
	if err := database.DB.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.Status != models.PostStatusPublished {
		util.RespondValidationError(c, "post_id", "comments are only allowed on published posts")
		return
	}

	if req.ParentID != nil && *req.ParentID != "" {
		var parent models.Comment
		if err := database.DB.Where("id = ?", *req.ParentID).First(&parent).Error; err != nil {
			util.RespondNotFound(c, "parent comment")
			return
		}
		// A reply always lives on the same post as its parent
		if parent.PostID != post.ID {
			util.RespondValidationError(c, "parent_id", "parent comment belongs to a different post")
			return
		}
	} else {
		req.ParentID = nil
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: user.ID,
		Content:  req.Content,
		ParentID: req.ParentID,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return err
		}
		post.CommentCount++
		recomputeTrending(tx, &post)
		return nil
	})
	if err != nil {
		logger.ErrorWithFields("failed to create comment", err)
		util.RespondInternalError(c, "failed to create comment")
		return
	}

	comment.Author = *user

	if h.WS != nil {
		parentID := ""
		if comment.ParentID != nil {
			parentID = *comment.ParentID
		}
		h.WS.BroadcastComment(websocket.MessageTypeNewComment, &websocket.CommentPayload{
			CommentID: comment.ID,
			PostID:    comment.PostID,
			AuthorID:  comment.AuthorID,
			Username:  user.Username,
			ParentID:  parentID,
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt.UnixMilli(),
		})
	}

	if post.AuthorID != user.ID {
		h.notify(post.AuthorID, models.NotificationTypeComment, "New comment",
			fmt.Sprintf("%s commented on your post \"%s\"", user.Username, post.Title),
			models.JSONMap{"post_id": post.ID, "comment_id": comment.ID})
	}

	for _, username := range util.ExtractMentions(req.Content) {
		var mentioned models.User
		if err := database.DB.Where("username = ? AND is_banned = ?", username, false).
			First(&mentioned).Error; err != nil {
			continue
		}
		// The commenter and the post author already know about this comment
		if mentioned.ID == user.ID || mentioned.ID == post.AuthorID {
			continue
		}
		h.notify(mentioned.ID, models.NotificationTypeMention, "You were mentioned",
			fmt.Sprintf("%s mentioned you in a comment on \"%s\"", user.Username, post.Title),
			models.JSONMap{"post_id": post.ID, "comment_id": comment.ID})
	}

	c.JSON(http.StatusCreated, comment)
}

// ListComments handles GET /api/posts/:slug/comments: top-level
// comments with reply counts and an oldest-first preview of up to 3
// replies. Read routes address posts by slug, mutations by id.
func (h *Handlers) ListComments(c *gin.Context) {
	var post models.Post
	if err := database.DB.Where("slug = ?", c.Param("slug")).First(&post).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	query := database.DB.Model(&models.Comment{}).
		Preload("Author").
		Where("post_id = ? AND parent_id IS NULL", post.ID)

	switch c.DefaultQuery("sort", "newest") {
	case "oldest":
		query = query.Order("created_at ASC")
	case "popular":
		query = query.Order("like_count DESC, created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var total int64
	query.Count(&total)

	var comments []models.Comment
	if err := query.Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		util.RespondInternalError(c, "failed to list comments")
		return
	}

	result := make([]CommentWithReplies, 0, len(comments))
	for i := range comments {
		item := CommentWithReplies{Comment: comments[i]}

		database.DB.Model(&models.Comment{}).
			Where("parent_id = ?", comments[i].ID).
			Count(&item.ReplyCount)

		if item.ReplyCount > 0 {
			database.DB.
				Preload("Author").
				Where("parent_id = ?", comments[i].ID).
				Order("created_at ASC").
				Limit(3).
				Find(&item.Replies)
		}

		result = append(result, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": result,
		"page":     page,
		"limit":    limit,
		"total":    total,
	})
}

// ListReplies handles GET /api/comments/:id/replies, oldest first
func (h *Handlers) ListReplies(c *gin.Context) {
	var parent models.Comment
	if err := database.DB.Where("id = ?", c.Param("id")).First(&parent).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	var replies []models.Comment
	err := database.DB.
		Preload("Author").
		Where("parent_id = ?", parent.ID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&replies).Error
	if err != nil {
		util.RespondInternalError(c, "failed to list replies")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"replies": replies,
		"page":    page,
		"limit":   limit,
	})
}

// UpdateComment handles PUT /api/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.Where("id = ?", c.Param("id")).First(&comment).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	if comment.AuthorID != user.ID && !user.Role.CanAdministrate() {
		util.RespondForbidden(c, "you can only edit your own comments")
		return
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "content is required")
		return
	}

	now := time.Now().UTC()
	comment.Content = req.Content
	comment.IsEdited = true
	comment.EditedAt = &now

	if err := database.DB.Save(&comment).Error; err != nil {
		logger.ErrorWithFields("failed to update comment", err)
		util.RespondInternalError(c, "failed to update comment")
		return
	}

	if h.WS != nil {
		h.WS.BroadcastComment(websocket.MessageTypeCommentUpdated, &websocket.CommentPayload{
			CommentID: comment.ID,
			PostID:    comment.PostID,
			AuthorID:  comment.AuthorID,
			Username:  user.Username,
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt.UnixMilli(),
		})
	}

	c.JSON(http.StatusOK, comment)
}

// collectCommentSubtree walks the reply tree iteratively (queue, no
// recursion) and returns the ids of the comment and all descendants
func collectCommentSubtree(tx *gorm.DB, rootID string) ([]string, error) {
	ids := []string{rootID}
	queue := []string{rootID}

	for len(queue) > 0 {
		var childIDs []string
		if err := tx.Model(&models.Comment{}).
			Where("parent_id IN ?", queue).
			Pluck("id", &childIDs).Error; err != nil {
			return nil, err
		}
		ids = append(ids, childIDs...)
		queue = childIDs
	}

	return ids, nil
}

// deleteCommentSubtree removes a comment, every descendant reply and
// their likes, then decrements the post counter by the delete policy
// constant. Used by the delete handler and report resolution.
func deleteCommentSubtree(tx *gorm.DB, comment *models.Comment) (int, error) {
	ids, err := collectCommentSubtree(tx, comment.ID)
	if err != nil {
		return 0, err
	}

	if err := tx.Where("comment_id IN ?", ids).Delete(&models.Like{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return 0, err
	}

	var post models.Post
	if err := tx.Where("id = ?", comment.PostID).First(&post).Error; err == nil {
		decrement := trending.CommentDeleteDecrement
		if err := tx.Model(&models.Post{}).
			Where("id = ? AND comment_count >= ?", post.ID, decrement).
			UpdateColumn("comment_count", gorm.Expr("comment_count - ?", decrement)).Error; err != nil {
			return 0, err
		}
		post.CommentCount -= decrement
		recomputeTrending(tx, &post)
	}

	return len(ids), nil
}

// DeleteComment handles DELETE /api/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.Where("id = ?", c.Param("id")).First(&comment).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	if comment.AuthorID != user.ID && !user.Role.CanAdministrate() {
		util.RespondForbidden(c, "you can only delete your own comments")
		return
	}

	var deleted int
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = deleteCommentSubtree(tx, &comment)
		return err
	})
	if err != nil {
		logger.ErrorWithFields("failed to delete comment", err)
		util.RespondInternalError(c, "failed to delete comment")
		return
	}

	if h.WS != nil {
		h.WS.BroadcastComment(websocket.MessageTypeCommentDeleted, &websocket.CommentPayload{
			CommentID: comment.ID,
			PostID:    comment.PostID,
			AuthorID:  comment.AuthorID,
		})
	}

	logger.Log.Info("comment deleted",
		zap.String("comment_id", comment.ID),
		logger.WithPostID(comment.PostID),
		zap.Int("subtree_size", deleted),
	)

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted", "deleted": deleted})
}

// LikeComment handles POST /api/comments/:id/like as a toggle
func (h *Handlers) LikeComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.Where("id = ?", c.Param("id")).First(&comment).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	var liked bool
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("user_id = ? AND comment_id = ?", user.ID, comment.ID).First(&existing).Error
		if err == nil {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Comment{}).Where("id = ? AND like_count > 0", comment.ID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return err
			}
			comment.LikeCount--
			liked = false
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		like := models.Like{UserID: user.ID, CommentID: &comment.ID}
		if err := tx.Create(&like).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("id = ?", comment.ID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return err
		}
		comment.LikeCount++
		liked = true
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusOK, gin.H{"liked": true, "like_count": comment.LikeCount})
			return
		}
		logger.ErrorWithFields("failed to toggle comment like", err)
		util.RespondInternalError(c, "failed to toggle like")
		return
	}

	if h.WS != nil {
		h.WS.BroadcastLikeCount(comment.PostID, &websocket.LikeCountPayload{
			CommentID: comment.ID,
			LikeCount: comment.LikeCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": comment.LikeCount})
}
