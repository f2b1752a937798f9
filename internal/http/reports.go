package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lodeapp/lode/internal/database/reports"
)

type ReportsController struct {
	reports *reports.Repository
}

func NewReportsController(repo *reports.Repository) *ReportsController {
	return &ReportsController{reports: repo}
}

// GetReport returns an import report with its per-conversation records.
func (controller *ReportsController) GetReport(c *gin.Context) {
	batchID := c.Param("batch_id")

	report, err := controller.reports.Get(batchID)
	if err != nil {
		if reports.IsNotFound(err) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	records, err := controller.reports.Records(batchID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"report": report, "records": records})
}
