package handlers

import (
	"errors"
	"net/http"

	"github.com/devlog-app/backend/internal/auth"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	user, err := h.Auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			util.RespondConflict(c, "email")
		case errors.Is(err, auth.ErrUsernameExists):
			util.RespondConflict(c, "username")
		default:
			util.RespondValidationError(c, "", err.Error())
		}
		return
	}

	logger.Log.Info("user registered",
		logger.WithUserID(user.ID),
		zap.String("username", user.Username),
	)

	c.JSON(http.StatusCreated, user)
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	resp, err := h.Auth.Login(req, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountBanned):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is banned"})
		case errors.Is(err, auth.ErrInvalidCredentials):
			util.RespondUnauthorized(c, "invalid email or password")
		default:
			logger.ErrorWithFields("login failed", err)
			util.RespondInternalError(c, "login failed")
		}
		return
	}

	logger.Log.Info("user logged in",
		logger.WithUserID(resp.User.ID),
		logger.WithIP(c.ClientIP()),
	)

	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout by revoking the current session
func (h *Handlers) Logout(c *gin.Context) {
	tokenID := c.GetString("token_id")
	if tokenID == "" {
		util.RespondUnauthorized(c)
		return
	}

	if err := h.Auth.RevokeSession(tokenID); err != nil {
		logger.ErrorWithFields("failed to revoke session", err)
		util.RespondInternalError(c, "failed to log out")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
