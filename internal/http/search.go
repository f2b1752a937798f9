package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lodeapp/lode/internal/search"
)

type SearchController struct {
	index *search.Index
}

func NewSearchController(index *search.Index) *SearchController {
	return &SearchController{index: index}
}

// Search queries the full-text index. The "scope" parameter selects
// message-level (default) or conversation-level matches.
func (controller *SearchController) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	switch scope := c.DefaultQuery("scope", "messages"); scope {
	case "messages":
		matches, err := controller.index.SearchMessages(query, limit)
		if err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
	case "conversations":
		matches, err := controller.index.SearchConversations(query, limit)
		if err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
	default:
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "scope must be 'messages' or 'conversations'"})
	}
}
