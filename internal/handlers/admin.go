package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/middleware"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errReportDeleteTarget = errors.New("delete action requires a post or comment target")

// ModeratePostRequest is the payload for approving or rejecting a post
type ModeratePostRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ResolveReportRequest is the payload for resolving a report
type ResolveReportRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ModerationQueue handles GET /api/admin/posts: the pending review list
func (h *Handlers) ModerationQueue(c *gin.Context) {
	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	status := c.DefaultQuery("status", string(models.PostStatusPending))

	query := database.DB.Model(&models.Post{}).
		Preload("Author").
		Preload("Tags").
		Where("status = ?", status)

	var total int64
	query.Count(&total)

	var posts []models.Post
	if err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
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

// ModeratePost handles POST /api/admin/posts/:id/moderate. Only pending
// posts can be moderated; an absent post and a post in any other state
// are indistinguishable (both 404). Status change, author notification
// and the audit row commit together.
func (h *Handlers) ModeratePost(c *gin.Context) {
	moderator, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req ModeratePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "action is required")
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		util.RespondValidationError(c, "action", "action must be approve or reject")
		return
	}

	var post models.Post
	err := database.DB.Preload("Author").
		Where("id = ? AND status = ?", c.Param("id"), models.PostStatusPending).
		First(&post).Error
	if err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	action := models.ModerationActionApprovePost
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if req.Action == "approve" {
			now := time.Now().UTC()
			post.Status = models.PostStatusPublished
			post.PublishedAt = &now
			if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
				Updates(map[string]interface{}{
					"status":       models.PostStatusPublished,
					"published_at": now,
				}).Error; err != nil {
				return err
			}
		} else {
			action = models.ModerationActionRejectPost
			post.Status = models.PostStatusRejected
			if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("status", models.PostStatusRejected).Error; err != nil {
				return err
			}
		}

		title := "Post approved"
		message := fmt.Sprintf("Your post \"%s\" was approved and is now published", post.Title)
		if req.Action == "reject" {
			title = "Post rejected"
			message = fmt.Sprintf("Your post \"%s\" was rejected", post.Title)
			if req.Reason != "" {
				message += ": " + req.Reason
			}
		}
		h.notifyTx(tx, post.AuthorID, models.NotificationTypeModeration, title, message,
			models.JSONMap{"post_id": post.ID, "action": req.Action})

		event := models.ModerationEvent{
			ModeratorID:  moderator.ID,
			Action:       action,
			Reason:       req.Reason,
			TargetPostID: &post.ID,
			TargetUserID: &post.AuthorID,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		logger.ErrorWithFields("failed to moderate post", err)
		util.RespondInternalError(c, "failed to moderate post")
		return
	}

	middleware.RecordModerationAction(action)

	if post.Status == models.PostStatusPublished {
		h.announcePost(&post, &post.Author)
	}

	logger.Log.Info("post moderated",
		logger.WithPostID(post.ID),
		zap.String("action", req.Action),
		zap.String("moderator_id", moderator.ID),
	)

	c.JSON(http.StatusOK, post)
}

// ResolveReport handles POST /api/admin/reports/:id/resolve. Only
// pending reports resolve; every branch stamps the moderator, notifies
// the reporter and appends an audit row in one transaction.
func (h *Handlers) ResolveReport(c *gin.Context) {
	moderator, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req ResolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "action is required")
		return
	}

	action := models.ReportAction(req.Action)
	if !action.Valid() {
		util.RespondValidationError(c, "action", "action must be dismiss, warn, ban or delete")
		return
	}

	var report models.Report
	err := database.DB.
		Where("id = ? AND status = ?", c.Param("id"), models.ReportStatusPending).
		First(&report).Error
	if err != nil {
		util.RespondNotFound(c, "report")
		return
	}

	auditAction := models.ModerationActionDismiss
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		switch action {
		case models.ReportActionDismiss:
			// Status change only

		case models.ReportActionWarn:
			auditAction = models.ModerationActionWarn
			targetID, err := reportTargetUserID(tx, &report)
			if err != nil {
				return err
			}
			h.notifyTx(tx, targetID, models.NotificationTypeWarning, "Moderation warning",
				warnMessage(req.Reason), models.JSONMap{"report_id": report.ID})

		case models.ReportActionBan:
			auditAction = models.ModerationActionBan
			targetID, err := reportTargetUserID(tx, &report)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", targetID).
				UpdateColumn("is_banned", true).Error; err != nil {
				return err
			}
			if err := h.Auth.RevokeUserSessions(targetID); err != nil {
				logger.Log.Warn("failed to revoke sessions for banned user",
					logger.WithUserID(targetID), zap.Error(err))
			}

		case models.ReportActionDelete:
			auditAction = models.ModerationActionDelete
			switch {
			case report.ReportedPostID != nil:
				var post models.Post
				if err := tx.Where("id = ?", *report.ReportedPostID).First(&post).Error; err == nil {
					if err := deletePostCascade(tx, &post); err != nil {
						return err
					}
				}
			case report.ReportedCommentID != nil:
				var comment models.Comment
				if err := tx.Where("id = ?", *report.ReportedCommentID).First(&comment).Error; err == nil {
					if _, err := deleteCommentSubtree(tx, &comment); err != nil {
						return err
					}
				}
			default:
				return errReportDeleteTarget
			}
		}

		now := time.Now().UTC()
		status := models.ReportStatusResolved
		if action == models.ReportActionDismiss {
			status = models.ReportStatusDismissed
		}
		if err := tx.Model(&models.Report{}).Where("id = ?", report.ID).
			Updates(map[string]interface{}{
				"status":       status,
				"moderator_id": moderator.ID,
				"action_taken": string(action),
				"resolved_at":  now,
			}).Error; err != nil {
			return err
		}
		report.Status = status
		report.ModeratorID = &moderator.ID
		report.ActionTaken = string(action)
		report.ResolvedAt = &now

		h.notifyTx(tx, report.ReporterID, models.NotificationTypeReport, "Report resolved",
			fmt.Sprintf("Your report was resolved with action: %s", action),
			models.JSONMap{"report_id": report.ID, "action": string(action)})

		event := models.ModerationEvent{
			ModeratorID:     moderator.ID,
			Action:          auditAction,
			Reason:          req.Reason,
			TargetUserID:    report.ReportedUserID,
			TargetPostID:    report.ReportedPostID,
			TargetCommentID: report.ReportedCommentID,
			ReportID:        &report.ID,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		if errors.Is(err, errReportDeleteTarget) {
			util.RespondBadRequest(c, err.Error())
			return
		}
		logger.ErrorWithFields("failed to resolve report", err)
		util.RespondInternalError(c, "failed to resolve report")
		return
	}

	middleware.RecordModerationAction(auditAction)

	logger.Log.Info("report resolved",
		zap.String("report_id", report.ID),
		zap.String("action", string(action)),
		zap.String("moderator_id", moderator.ID),
	)

	c.JSON(http.StatusOK, report)
}

// reportTargetUserID resolves which user a warn/ban action applies to:
// the reported user directly, or the author of the reported content
func reportTargetUserID(tx *gorm.DB, report *models.Report) (string, error) {
	switch {
	case report.ReportedUserID != nil:
		return *report.ReportedUserID, nil
	case report.ReportedPostID != nil:
		var post models.Post
		if err := tx.Where("id = ?", *report.ReportedPostID).First(&post).Error; err != nil {
			return "", err
		}
		return post.AuthorID, nil
	case report.ReportedCommentID != nil:
		var comment models.Comment
		if err := tx.Where("id = ?", *report.ReportedCommentID).First(&comment).Error; err != nil {
			return "", err
		}
		return comment.AuthorID, nil
	}
	return "", fmt.Errorf("report has no target")
}

func warnMessage(reason string) string {
	if reason == "" {
		return "You received a warning from the moderation team"
	}
	return "You received a warning from the moderation team: " + reason
}

// ListModerationEvents handles GET /api/admin/moderation-log
func (h *Handlers) ListModerationEvents(c *gin.Context) {
	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	query := database.DB.Model(&models.ModerationEvent{}).Preload("Moderator")

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var events []models.ModerationEvent
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		util.RespondInternalError(c, "failed to list moderation events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"page":   page,
		"limit":  limit,
	})
}
