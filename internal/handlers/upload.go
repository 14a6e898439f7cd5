package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadImage handles POST /api/upload/image: a single multipart image,
// size and type checked, stored via the configured backend
func (h *Handlers) UploadImage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if h.Storage == nil {
		util.RespondInternalError(c, "storage backend not configured")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		util.RespondBadRequest(c, "image file is required")
		return
	}

	if fileHeader.Size > h.maxUploadSize {
		util.RespondValidationError(c, "image",
			fmt.Sprintf("image exceeds the %d byte limit", h.maxUploadSize))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.RespondInternalError(c, "failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		util.RespondInternalError(c, "failed to read upload")
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		util.RespondValidationError(c, "image",
			fmt.Sprintf("image exceeds the %d byte limit", h.maxUploadSize))
		return
	}

	result, err := h.Storage.UploadImage(c.Request.Context(), data, user.ID, fileHeader.Filename)
	if err != nil {
		logger.Log.Error("image upload failed",
			logger.WithUserID(user.ID),
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		util.RespondBadRequest(c, err.Error())
		return
	}

	logger.Log.Info("image uploaded",
		logger.WithUserID(user.ID),
		zap.String("key", result.Key),
		zap.Int64("size", result.Size),
	)

	c.JSON(http.StatusCreated, result)
}
