package websocket

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/devlog-app/backend/internal/auth"
	"github.com/gin-gonic/gin"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub     *Hub
	authSvc *auth.Service
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *auth.Service) *Handler {
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
	}
}

// HandleWebSocket handles WebSocket upgrade requests
// Authentication is done via JWT token in query param: ?token=...
// Or via Authorization header: Bearer <token>
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		if header := c.GetHeader("Authorization"); header != "" {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": "no authentication token provided",
		})
		return
	}

	// Session-backed validation, revoked tokens and banned accounts fail here
	user, _, err := h.authSvc.ValidateToken(tokenString)
	if err != nil {
		log.Printf("WebSocket auth failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": "invalid or expired token",
		})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // TODO: restrict origins once the frontend domains are final
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to Devlog!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump() // Blocks until client disconnects
}

// RegisterDefaultHandlers registers the room membership message handlers
func (h *Handler) RegisterDefaultHandlers() {
	h.hub.RegisterHandler(MessageTypeJoinPost, func(client *Client, msg *Message) error {
		var payload JoinPostPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.PostID == "" {
			client.SendError("invalid_payload", "post_id is required")
			return nil
		}

		h.hub.Subscribe(client, PostTopic(payload.PostID))
		client.Send(NewMessage(MessageTypeSystem, SystemPayload{
			Event: "joined_post",
			Data:  map[string]interface{}{"post_id": payload.PostID},
		}))
		return nil
	})

	h.hub.RegisterHandler(MessageTypeLeavePost, func(client *Client, msg *Message) error {
		var payload JoinPostPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.PostID == "" {
			client.SendError("invalid_payload", "post_id is required")
			return nil
		}

		h.hub.Unsubscribe(client, PostTopic(payload.PostID))
		client.Send(NewMessage(MessageTypeSystem, SystemPayload{
			Event: "left_post",
			Data:  map[string]interface{}{"post_id": payload.PostID},
		}))
		return nil
	})
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	metrics := h.hub.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"websocket":    metrics,
		"online_users": h.hub.GetOnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// NotifyNewPost sends a new post notification to followers
func (h *Handler) NotifyNewPost(followerIDs []string, payload *NewPostPayload) {
	msg := NewMessage(MessageTypeNewPost, payload)
	for _, followerID := range followerIDs {
		h.hub.SendToUser(followerID, msg)
	}
}

// BroadcastComment publishes a comment event to the post's room
func (h *Handler) BroadcastComment(msgType string, payload *CommentPayload) {
	h.hub.PublishToTopic(PostTopic(payload.PostID), NewMessage(msgType, payload))
}

// BroadcastLikeCount publishes a like counter update to the post's room
func (h *Handler) BroadcastLikeCount(postID string, payload *LikeCountPayload) {
	h.hub.PublishToTopic(PostTopic(postID), NewMessage(MessageTypeLikeCountUpdate, payload))
}

// NotifyFollow sends a follow notification
func (h *Handler) NotifyFollow(followeeID string, payload *FollowPayload) {
	h.hub.SendToUser(followeeID, NewMessage(MessageTypeNewFollower, payload))
}

// NotifyNotification sends a notification to a specific user
func (h *Handler) NotifyNotification(userID string, payload *NotificationPayload) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeNotification, payload))
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// GetHub returns the hub for external access
func (h *Handler) GetHub() *Hub {
	return h.hub
}
