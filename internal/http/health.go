package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lodeapp/lode/internal/database"
	"github.com/lodeapp/lode/internal/search"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	index   *search.Index
	version string
}

func NewHealthController(db *database.Database, index *search.Index, version string) *HealthController {
	return &HealthController{
		db:      db,
		index:   index,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// Index drift does not make the service unhealthy; a reindex job fixes it.
	if h.index != nil {
		if err := h.index.Verify(); err != nil {
			checks["search_index"] = "stale: " + err.Error()
		} else {
			checks["search_index"] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
