package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/jobs"
)

// CreateJobRequest is the body for POST /api/jobs.
type CreateJobRequest struct {
	Type           entities.JobType  `json:"type" binding:"required"`
	SourceType     entities.AISource `json:"source_type"`
	FilePath       string            `json:"file_path"`
	CalculateStats bool              `json:"calculate_stats"`
	BuildIndex     bool              `json:"build_index"`
}

type JobsController struct {
	manager *jobs.Manager
}

func NewJobsController(manager *jobs.Manager) *JobsController {
	return &JobsController{manager: manager}
}

func (controller *JobsController) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Type == entities.JobTypeImport && req.FilePath == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "file_path is required for import jobs"})
		return
	}

	id, err := controller.manager.Submit(req.Type, jobs.Params{
		SourceType:     req.SourceType,
		FilePath:       req.FilePath,
		CalculateStats: req.CalculateStats,
		BuildIndex:     req.BuildIndex,
	})
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJobType) {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	view, err := controller.manager.Get(id)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusAccepted, view)
}

func (controller *JobsController) ListJobs(c *gin.Context) {
	views := controller.manager.List()
	c.IndentedJSON(http.StatusOK, gin.H{"jobs": views, "count": len(views)})
}

func (controller *JobsController) GetJob(c *gin.Context) {
	view, err := controller.manager.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, view)
}

func (controller *JobsController) CancelJob(c *gin.Context) {
	id := c.Param("id")
	if err := controller.manager.Cancel(id); err != nil {
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, jobs.ErrInvalidState):
			c.IndentedJSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	view, err := controller.manager.Get(id)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, view)
}
