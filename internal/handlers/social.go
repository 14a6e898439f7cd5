package handlers

import (
	"fmt"
	"net/http"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/util"
	"github.com/devlog-app/backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// findUserByUsername loads a non-banned user by username, writing a 404
// when absent
func findUserByUsername(c *gin.Context, username string) (*models.User, bool) {
	var user models.User
	err := database.DB.Where("LOWER(username) = LOWER(?) AND is_banned = ?", username, false).
		First(&user).Error
	if err != nil {
		util.RespondNotFound(c, "user")
		return nil, false
	}
	return &user, true
}

// FollowUser handles POST /api/users/:username/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	target, ok := findUserByUsername(c, c.Param("username"))
	if !ok {
		return
	}

	if target.ID == user.ID {
		util.RespondBadRequest(c, "you cannot follow yourself")
		return
	}

	follow := models.Follow{FollowerID: user.ID, FollowingID: target.ID}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&follow).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", target.ID).
			UpdateColumn("follower_count", gorm.Expr("follower_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).
			UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			util.RespondConflict(c, "follow")
			return
		}
		logger.ErrorWithFields("failed to follow user", err)
		util.RespondInternalError(c, "failed to follow user")
		return
	}

	if h.WS != nil {
		h.WS.NotifyFollow(target.ID, &websocket.FollowPayload{
			FollowerID:     user.ID,
			FollowerName:   user.Username,
			FollowerAvatar: user.AvatarURL,
			FollowerCount:  target.FollowerCount + 1,
		})
	}

	h.notify(target.ID, models.NotificationTypeFollow, "New follower",
		fmt.Sprintf("%s started following you", user.Username),
		models.JSONMap{"follower_id": user.ID})

	c.JSON(http.StatusCreated, gin.H{"following": true})
}

// UnfollowUser handles DELETE /api/users/:username/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	target, ok := findUserByUsername(c, c.Param("username"))
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("follower_id = ? AND following_id = ?", user.ID, target.ID).
			Delete(&models.Follow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&models.User{}).Where("id = ? AND follower_count > 0", target.ID).
			UpdateColumn("follower_count", gorm.Expr("follower_count - 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ? AND following_count > 0", user.ID).
			UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondNotFound(c, "follow")
			return
		}
		logger.ErrorWithFields("failed to unfollow user", err)
		util.RespondInternalError(c, "failed to unfollow user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"following": false})
}

// ListFollowers handles GET /api/users/:username/followers
func (h *Handlers) ListFollowers(c *gin.Context) {
	target, ok := findUserByUsername(c, c.Param("username"))
	if !ok {
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	var users []models.User
	err := database.DB.
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", target.ID).
		Where("users.is_banned = ?", false).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		util.RespondInternalError(c, "failed to list followers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"followers": users,
		"page":      page,
		"limit":     limit,
	})
}

// ListFollowing handles GET /api/users/:username/following
func (h *Handlers) ListFollowing(c *gin.Context) {
	target, ok := findUserByUsername(c, c.Param("username"))
	if !ok {
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	var users []models.User
	err := database.DB.
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", target.ID).
		Where("users.is_banned = ?", false).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		util.RespondInternalError(c, "failed to list following")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"following": users,
		"page":      page,
		"limit":     limit,
	})
}
