// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations
//	├── conversations/   # Conversation, message, and content-hash operations
//	├── jobs/            # Persisted job rows
//	└── reports/         # Import report tracking
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./conversations.db")
//
//	// Create domain-specific repositories
//	convRepo := conversations.NewRepository(db.DB)
//	jobsRepo := jobs.NewRepository(db.DB)
//
//	// Use repositories
//	conv, err := convRepo.GetByConversationID("abc-123")
//
// The full-text index lives in internal/search and is maintained through
// SQLite triggers installed at startup, so repository writes never have
// to remember to touch the index themselves.
package database
