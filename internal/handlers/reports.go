package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateReportRequest is the payload for filing a report. Exactly one
// of the three target fields must be set.
type CreateReportRequest struct {
	ReportedUserID    *string `json:"reported_user_id"`
	ReportedPostID    *string `json:"reported_post_id"`
	ReportedCommentID *string `json:"reported_comment_id"`
	Reason            string  `json:"reason" binding:"required"`
	Description       string  `json:"description"`
}

func validReportReason(reason models.ReportReason) bool {
	switch reason {
	case models.ReportReasonSpam, models.ReportReasonHarassment,
		models.ReportReasonInappropriate, models.ReportReasonMisinfo,
		models.ReportReasonCopyright, models.ReportReasonOther:
		return true
	}
	return false
}

// CreateReport handles POST /api/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "reason is required")
		return
	}

	reason := models.ReportReason(req.Reason)
	if !validReportReason(reason) {
		util.RespondValidationError(c, "reason", "unknown report reason")
		return
	}

	targets := 0
	if req.ReportedUserID != nil && *req.ReportedUserID != "" {
		targets++
	} else {
		req.ReportedUserID = nil
	}
	if req.ReportedPostID != nil && *req.ReportedPostID != "" {
		targets++
	} else {
		req.ReportedPostID = nil
	}
	if req.ReportedCommentID != nil && *req.ReportedCommentID != "" {
		targets++
	} else {
		req.ReportedCommentID = nil
	}
	if targets != 1 {
		util.RespondBadRequest(c, "report exactly one of a user, post or comment")
		return
	}

	// Verify the target exists
	switch {
	case req.ReportedUserID != nil:
		if *req.ReportedUserID == user.ID {
			util.RespondBadRequest(c, "you cannot report yourself")
			return
		}
		var target models.User
		if err := database.DB.Where("id = ?", *req.ReportedUserID).First(&target).Error; err != nil {
			util.RespondNotFound(c, "user")
			return
		}
	case req.ReportedPostID != nil:
		var target models.Post
		if err := database.DB.Where("id = ?", *req.ReportedPostID).First(&target).Error; err != nil {
			util.RespondNotFound(c, "post")
			return
		}
	case req.ReportedCommentID != nil:
		var target models.Comment
		if err := database.DB.Where("id = ?", *req.ReportedCommentID).First(&target).Error; err != nil {
			util.RespondNotFound(c, "comment")
			return
		}
	}

	report := models.Report{
		ReporterID:        user.ID,
		ReportedUserID:    req.ReportedUserID,
		ReportedPostID:    req.ReportedPostID,
		ReportedCommentID: req.ReportedCommentID,
		Reason:            reason,
		Description:       req.Description,
		Status:            models.ReportStatusPending,
	}

	if err := database.DB.Create(&report).Error; err != nil {
		logger.ErrorWithFields("failed to create report", err)
		util.RespondInternalError(c, "failed to create report")
		return
	}

	logger.Log.Info("report filed",
		zap.String("report_id", report.ID),
		logger.WithUserID(user.ID),
		zap.String("reason", string(reason)),
	)

	c.JSON(http.StatusCreated, report)
}

// AdminListReports handles GET /api/admin/reports
func (h *Handlers) AdminListReports(c *gin.Context) {
	page, limit, offset := util.ParsePagination(c.Query("page"), c.Query("limit"), 100)

	query := database.DB.Model(&models.Report{}).
		Preload("Reporter").
		Preload("ReportedUser").
		Preload("Moderator")

	status := c.DefaultQuery("status", string(models.ReportStatusPending))
	if status != "all" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var reports []models.Report
	if err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		util.RespondInternalError(c, "failed to list reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"page":    page,
		"limit":   limit,
		"total":   total,
	})
}
