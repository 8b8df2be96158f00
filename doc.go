// Package backend provides the MacChain API server and CLI.

// The binaries live under cmd/ and the implementation is organized into
// subpackages:

// - internal/handlers: HTTP request handlers and routes
// - internal/models: Data models and database schemas
// - internal/auth: Registration, login, JWT and password reset
// - internal/bible: Canon and the 365-day reading plan
// - internal/readingplan: Daily readings and progress
// - internal/stats: Reading statistics and streaks
// - internal/community: Discussions, comments, likes and bookmarks
// - internal/analysis: Passage analysis with a mock fallback
// - internal/notifications: Reminder and activity notifications
// - internal/scheduler: Timed reminder jobs
// - internal/websocket: Realtime row changes and notifications
// - internal/storage: Avatar storage on S3
// - internal/database: Database connection and migrations
// - pkg/syncer: Client-side cache, optimistic mutations and offline queue
// - pkg/realtime: Reconnecting realtime subscriber
// - pkg/service: CLI commands

// See the individual package documentation for detailed API reference.
package backend
