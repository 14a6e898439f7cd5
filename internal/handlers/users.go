package handlers

import (
	"net/http"
	"strings"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpdateProfileRequest is the payload for editing the caller's profile
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
	Website   *string `json:"website"`
	Location  *string `json:"location"`
}

// GetProfile handles GET /api/users/:username
func (h *Handlers) GetProfile(c *gin.Context) {
	user, ok := findUserByUsername(c, c.Param("username"))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Website != nil {
		user.Website = *req.Website
	}
	if req.Location != nil {
		user.Location = *req.Location
	}

	if err := database.DB.Save(user).Error; err != nil {
		logger.ErrorWithFields("failed to update profile", err)
		util.RespondInternalError(c, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUserPosts handles GET /api/users/:username/posts. The owner sees
// all their statuses; everyone else sees published only.
func (h *Handlers) ListUserPosts(c *gin.Context) {
	target, ok := findUserByUsername(c, c.Param("username"))
	if !ok {
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	query := database.DB.Model(&models.Post{}).
		Preload("Tags").
		Preload("Category").
		Where("author_id = ?", target.ID)

	viewerID := util.OptionalUserID(c)
	if viewerID != target.ID {
		query = query.Where("status = ?", models.PostStatusPublished)
	} else if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var posts []models.Post
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error
	if err != nil {
		util.RespondInternalError(c, "failed to list posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"page":  page,
		"limit": limit,
	})
}

// AdminListUsers handles GET /api/admin/users
func (h *Handlers) AdminListUsers(c *gin.Context) {
	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	query := database.DB.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if c.Query("banned") == "true" {
		query = query.Where("is_banned = ?", true)
	}
	if q := c.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", pattern, pattern)
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		util.RespondInternalError(c, "failed to list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// ChangeRoleRequest is the payload for changing a user's role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// AdminChangeRole handles PUT /api/admin/users/:id/role
func (h *Handlers) AdminChangeRole(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "role is required")
		return
	}

	role := models.Role(strings.ToLower(req.Role))
	if !role.Valid() {
		util.RespondValidationError(c, "role", "role must be user, moderator or admin")
		return
	}

	var target models.User
	if err := database.DB.Where("id = ?", c.Param("id")).First(&target).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	if target.ID == admin.ID {
		util.RespondBadRequest(c, "you cannot change your own role")
		return
	}

	target.Role = role
	if err := database.DB.Model(&target).UpdateColumn("role", role).Error; err != nil {
		util.RespondInternalError(c, "failed to change role")
		return
	}

	event := models.ModerationEvent{
		ModeratorID:  admin.ID,
		Action:       models.ModerationActionChangeRole,
		Reason:       "role changed to " + string(role),
		TargetUserID: &target.ID,
	}
	if err := database.DB.Create(&event).Error; err != nil {
		logger.Log.Warn("failed to record moderation event", zap.Error(err))
	}

	logger.Log.Info("user role changed",
		logger.WithUserID(target.ID),
		zap.String("role", string(role)),
		zap.String("moderator_id", admin.ID),
	)

	c.JSON(http.StatusOK, target)
}

// AdminToggleBan handles PUT /api/admin/users/:id/ban. Banning revokes
// every active session so the lockout is immediate.
func (h *Handlers) AdminToggleBan(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var target models.User
	if err := database.DB.Where("id = ?", c.Param("id")).First(&target).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	if target.ID == admin.ID {
		util.RespondBadRequest(c, "you cannot ban yourself")
		return
	}

	target.IsBanned = !target.IsBanned
	if err := database.DB.Model(&target).UpdateColumn("is_banned", target.IsBanned).Error; err != nil {
		util.RespondInternalError(c, "failed to update ban status")
		return
	}

	action := models.ModerationActionUnban
	if target.IsBanned {
		action = models.ModerationActionBan
		if err := h.Auth.RevokeUserSessions(target.ID); err != nil {
			logger.Log.Warn("failed to revoke sessions for banned user",
				logger.WithUserID(target.ID),
				zap.Error(err),
			)
		}
	}

	event := models.ModerationEvent{
		ModeratorID:  admin.ID,
		Action:       action,
		TargetUserID: &target.ID,
	}
	if err := database.DB.Create(&event).Error; err != nil {
		logger.Log.Warn("failed to record moderation event", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"user_id": target.ID, "is_banned": target.IsBanned})
}
