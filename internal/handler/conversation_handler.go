package handler

import (
	"errors"
	"net/http"

	"magistral-go/internal/model"
	"magistral-go/internal/service"
	"magistral-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与对话记录相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// saveConversationRequest 是保存对话记录的请求体。
type saveConversationRequest struct {
	UserID    string              `json:"user_id" binding:"required"`
	Title     string              `json:"title"`
	Timestamp string              `json:"timestamp"`
	Messages  []model.ChatMessage `json:"messages"`
}

// SaveConversation 处理保存一份完整对话记录的请求。
func (h *ConversationHandler) SaveConversation(c *gin.Context) {
	var req saveConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Petición inválida",
			"data":    nil,
		})
		return
	}

	key, err := h.service.SaveConversation(c.Request.Context(), req.UserID, req.Title, req.Timestamp, req.Messages)
	if err != nil {
		if errors.Is(err, service.ErrMissingUser) || errors.Is(err, service.ErrEmptyHistory) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": err.Error(),
				"data":    nil,
			})
			return
		}
		log.Errorf("保存对话记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "No se pudo guardar la conversación",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"key": key},
	})
}

// ListConversations 处理获取用户全部对话记录的请求，最新在前。
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.Query("user_id")

	records, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrMissingUser) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": err.Error(),
				"data":    nil,
			})
			return
		}
		log.Errorf("获取对话记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "No se pudo recuperar el historial",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    records,
	})
}
