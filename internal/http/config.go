package http

import (
	"github.com/lodeapp/lode/internal/database"
	"github.com/lodeapp/lode/internal/database/conversations"
	"github.com/lodeapp/lode/internal/database/reports"
	"github.com/lodeapp/lode/internal/jobs"
	"github.com/lodeapp/lode/internal/search"
)

// RouterConfig contains all dependencies needed to create the HTTP
// router. This replaces a long parameter list in NewRouter.
type RouterConfig struct {
	Database   *database.Database
	Store      *conversations.Repository
	Reports    *reports.Repository
	JobManager *jobs.Manager
	Index      *search.Index

	// Application info
	Version string
}
