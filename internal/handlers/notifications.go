package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/util"
	"github.com/devlog-app/backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// notify persists a notification and pushes it over websocket.
// Failures are logged and swallowed; notifications never fail the
// triggering request.
func (h *Handlers) notify(userID, notifType, title, message string, data models.JSONMap) {
	h.notifyTx(database.DB, userID, notifType, title, message, data)
}

// notifyTx is the transactional variant; the websocket push still
// happens immediately and is best effort
func (h *Handlers) notifyTx(tx *gorm.DB, userID, notifType, title, message string, data models.JSONMap) {
	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    data,
	}

	if err := tx.Create(&notification).Error; err != nil {
		logger.Log.Warn("failed to create notification",
			logger.WithUserID(userID),
			zap.Error(err),
		)
		return
	}

	if h.WS != nil {
		h.WS.NotifyNotification(userID, &websocket.NotificationPayload{
			ID:        notification.ID,
			Type:      notification.Type,
			Title:     notification.Title,
			Message:   notification.Message,
			Data:      notification.Data,
			IsRead:    false,
			CreatedAt: notification.CreatedAt.UnixMilli(),
		})
	}
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	query := database.DB.Where("user_id = ?", user.ID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error
	if err != nil {
		util.RespondInternalError(c, "failed to list notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"page":          page,
		"limit":         limit,
	})
}

// UnreadNotificationCount handles GET /api/notifications/unread-count
func (h *Handlers) UnreadNotificationCount(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var count int64
	database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&count)

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkNotificationRead handles PUT /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		UpdateColumn("is_read", true)
	if result.Error != nil {
		util.RespondInternalError(c, "failed to mark notification read")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification marked read"})
}

// MarkAllNotificationsRead handles PUT /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		UpdateColumn("is_read", true)
	if result.Error != nil {
		util.RespondInternalError(c, "failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked_read": result.RowsAffected})
}
