// Package handlers contains the HTTP handlers for the Devlog API.
package handlers

import (
	"github.com/devlog-app/backend/internal/auth"
	"github.com/devlog-app/backend/internal/search"
	"github.com/devlog-app/backend/internal/storage"
	"github.com/devlog-app/backend/internal/websocket"
)

// Handlers bundles the service dependencies shared by the HTTP handlers
type Handlers struct {
	Auth    *auth.Service
	WS      *websocket.Handler
	Search  *search.Service
	Storage storage.Storage

	// maxUploadSize bounds image uploads in bytes
	maxUploadSize int64
}

// NewHandlers creates the handler set
func NewHandlers(authSvc *auth.Service, ws *websocket.Handler, searchSvc *search.Service, store storage.Storage, maxUploadSize int64) *Handlers {
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	return &Handlers{
		Auth:          authSvc,
		WS:            ws,
		Search:        searchSvc,
		Storage:       store,
		maxUploadSize: maxUploadSize,
	}
}
