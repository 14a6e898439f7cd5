package websocket

import (
	"os"
	"testing"
	"time"

	"github.com/devlog-app/backend/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.topics)
	assert.NotNil(t, hub.allClients)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.unicast)
	assert.NotNil(t, hub.publish)
	assert.NotNil(t, hub.metrics)
	assert.NotNil(t, hub.handlers)
}

func TestRateLimiter(t *testing.T) {
	// Create a rate limiter allowing 5 per second with burst of 10
	rl := NewRateLimiter(5, 10)

	// Should allow first 10 requests (burst)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "Request %d should be allowed", i+1)
	}

	// Next request should be denied (no tokens left)
	assert.False(t, rl.Allow(), "Request 11 should be denied")

	// After waiting, should be allowed again
	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "Request after wait should be allowed")
}

func TestNewMessage(t *testing.T) {
	payload := map[string]string{"test": "data"}
	msg := NewMessage(MessageTypeNewPost, payload)

	assert.Equal(t, MessageTypeNewPost, msg.Type)
	assert.NotNil(t, msg.Payload)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("test_error", "Something went wrong")

	assert.Equal(t, MessageTypeError, msg.Type)

	payload, ok := msg.Payload.(ErrorPayload)
	assert.True(t, ok)
	assert.Equal(t, "test_error", payload.Code)
	assert.Equal(t, "Something went wrong", payload.Message)
}

func TestMessageParsePayload(t *testing.T) {
	msg := NewMessage(MessageTypePing, map[string]interface{}{
		"client_time": float64(1234567890),
	})

	var ping PingPayload
	err := msg.ParsePayload(&ping)
	assert.NoError(t, err)
	assert.Equal(t, int64(1234567890), ping.ClientTime)
}

func TestPostTopic(t *testing.T) {
	assert.Equal(t, "post:abc-123", PostTopic("abc-123"))
}

func TestTopicSubscription(t *testing.T) {
	hub := NewHub()
	client := &Client{
		UserID: "user-1",
		send:   make(chan []byte, 1),
		topics: make(map[string]struct{}),
	}

	topic := PostTopic("post-1")
	hub.Subscribe(client, topic)
	assert.Equal(t, 1, hub.TopicMemberCount(topic))

	// Subscribing twice is idempotent
	hub.Subscribe(client, topic)
	assert.Equal(t, 1, hub.TopicMemberCount(topic))

	hub.Unsubscribe(client, topic)
	assert.Equal(t, 0, hub.TopicMemberCount(topic))
}

func TestFlexibleTimeUnmarshal(t *testing.T) {
	var ft FlexibleTime

	// Unix milliseconds
	err := ft.UnmarshalJSON([]byte("1700000000000"))
	assert.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ft.UnixMilli())

	// RFC3339 string
	err = ft.UnmarshalJSON([]byte(`"2025-06-01T12:00:00Z"`))
	assert.NoError(t, err)
	assert.Equal(t, 2025, ft.Year())

	// Garbage
	err = ft.UnmarshalJSON([]byte(`{"nope": true}`))
	assert.Error(t, err)
}
