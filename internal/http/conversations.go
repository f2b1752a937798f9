package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lodeapp/lode/internal/database/conversations"
)

type ConversationsController struct {
	store *conversations.Repository
}

func NewConversationsController(store *conversations.Repository) *ConversationsController {
	return &ConversationsController{store: store}
}

func (controller *ConversationsController) GetConversation(c *gin.Context) {
	conv, err := controller.store.GetByConversationID(c.Param("id"))
	if err != nil {
		if conversations.IsNotFound(err) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, conv)
}

type setStarredRequest struct {
	Starred *bool `json:"starred" binding:"required"`
}

func (controller *ConversationsController) SetStarred(c *gin.Context) {
	var req setStarredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "starred boolean field is required"})
		return
	}

	if err := controller.store.SetStarred(c.Param("id"), *req.Starred); err != nil {
		if conversations.IsNotFound(err) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"conversation_id": c.Param("id"), "starred": *req.Starred})
}

type setTitleRequest struct {
	Title string `json:"title"`
}

func (controller *ConversationsController) SetCustomTitle(c *gin.Context) {
	var req setTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := controller.store.SetCustomTitle(c.Param("id"), req.Title); err != nil {
		if conversations.IsNotFound(err) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"conversation_id": c.Param("id"), "custom_title": req.Title})
}

// Stats reports store-wide counts.
func (controller *ConversationsController) Stats(c *gin.Context) {
	convCount, err := controller.store.CountConversations()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	msgCount, err := controller.store.CountMessages()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{
		"total_conversations": convCount,
		"total_messages":      msgCount,
	})
}
