// Package backend provides the Devlog API server.

// This package contains the module root. The actual API documentation is
// organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and session services
// - internal/websocket: WebSocket server for real-time updates
// - internal/search: Full-text search and suggestions
// - internal/trending: Post trending score
// - internal/storage: File storage (S3 or local disk) operations
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (auth, rate limiting, metrics)
// - internal/seed: Development and test data seeding

// See the individual package documentation for detailed API reference.
package backend
