package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lodeapp/lode/internal/database/conversations"
)

type DuplicatesController struct {
	store *conversations.Repository
}

func NewDuplicatesController(store *conversations.Repository) *DuplicatesController {
	return &DuplicatesController{store: store}
}

// DuplicateMessages lists groups of messages whose normalized content
// collides across stored conversations.
func (controller *DuplicatesController) DuplicateMessages(c *gin.Context) {
	groups, err := controller.store.FindDuplicateMessages()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"groups": groups, "count": len(groups)})
}

// DuplicateConversations lists groups of conversations with identical
// normalized transcripts.
func (controller *DuplicatesController) DuplicateConversations(c *gin.Context) {
	groups, err := controller.store.FindDuplicateConversations()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"groups": groups, "count": len(groups)})
}
