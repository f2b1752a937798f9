package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Database, cfg.Index, cfg.Version)
	router.GET("/health", healthController.Status)

	api := router.Group("/api")

	jobsController := NewJobsController(cfg.JobManager)
	api.POST("/jobs", jobsController.CreateJob)
	api.GET("/jobs", jobsController.ListJobs)
	api.GET("/jobs/:id", jobsController.GetJob)
	api.POST("/jobs/:id/cancel", jobsController.CancelJob)

	searchController := NewSearchController(cfg.Index)
	api.GET("/search", searchController.Search)

	reportsController := NewReportsController(cfg.Reports)
	api.GET("/reports/:batch_id", reportsController.GetReport)

	duplicatesController := NewDuplicatesController(cfg.Store)
	api.GET("/duplicates/messages", duplicatesController.DuplicateMessages)
	api.GET("/duplicates/conversations", duplicatesController.DuplicateConversations)

	conversationsController := NewConversationsController(cfg.Store)
	api.GET("/conversations/:id", conversationsController.GetConversation)
	api.PUT("/conversations/:id/starred", conversationsController.SetStarred)
	api.PUT("/conversations/:id/title", conversationsController.SetCustomTitle)
	api.GET("/stats", conversationsController.Stats)

	return router
}
