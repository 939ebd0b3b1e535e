package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scholar-search-go/internal/model"
	"scholar-search-go/internal/service"
	"scholar-search-go/pkg/log"
)

// ConversationHandler 负责处理会话与消息相关的 API 请求。
type ConversationHandler struct {
	convService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(convService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

// List 返回当前用户的会话列表，最近更新的在前。
func (h *ConversationHandler) List(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	conversations, err := h.convService.ListConversations(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("[ConversationHandler] 获取会话列表失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}
	if conversations == nil {
		conversations = make([]model.Conversation, 0)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// CreateRequest 定义了创建会话的请求体，title 可以省略。
type CreateRequest struct {
	Title string `json:"title"`
}

// Create 创建一个空会话。
func (h *ConversationHandler) Create(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.convService.CreateConversation(c.Request.Context(), user.ID, req.Title)
	if err != nil {
		log.Errorf("[ConversationHandler] 创建会话失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversation"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// CreateWithMessageRequest 定义了创建会话并发送首条消息的请求体。
type CreateWithMessageRequest struct {
	Message string `json:"message" binding:"required"`
	Agent   string `json:"agent"`
}

// CreateWithMessage 在一次调用中完成首轮对话：
// 创建会话、写入用户消息、调用搜索智能体并写入助手回复。
func (h *ConversationHandler) CreateWithMessage(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	var req CreateWithMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.convService.CreateWithFirstMessage(c.Request.Context(), user.ID, req.Message, req.Agent)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[ConversationHandler] 创建首轮对话失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"conversation": result.Conversation,
		"messages":     []*model.Message{result.UserMessage, result.AssistantMessage},
	})
}

// ListMessages 返回会话内的全部消息，按创建时间升序。
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	user := c.MustGet("user").(*model.User)
	convID := c.Param("id")

	messages, err := h.convService.ListMessages(c.Request.Context(), convID, user.ID)
	if err != nil {
		h.renderError(c, convID, err)
		return
	}
	if messages == nil {
		messages = make([]model.Message, 0)
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// AppendMessageRequest 定义了追加消息的请求体。
type AppendMessageRequest struct {
	Role     string                 `json:"role" binding:"required,oneof=user assistant"`
	Content  string                 `json:"content" binding:"required"`
	Metadata *model.MessageMetadata `json:"metadata"`
}

// AppendMessage 向会话追加一条消息。
// 用户的第一条消息会触发标题重新生成。
func (h *ConversationHandler) AppendMessage(c *gin.Context) {
	user := c.MustGet("user").(*model.User)
	convID := c.Param("id")

	var req AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.convService.AppendMessage(c.Request.Context(), convID, user.ID, req.Role, req.Content, req.Metadata)
	if err != nil {
		h.renderError(c, convID, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// UpdateTitleRequest 定义了更新会话标题的请求体。
type UpdateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// UpdateTitle 更新会话标题。
func (h *ConversationHandler) UpdateTitle(c *gin.Context) {
	user := c.MustGet("user").(*model.User)
	convID := c.Param("id")

	var req UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.convService.UpdateTitle(c.Request.Context(), convID, user.ID, req.Title)
	if err != nil {
		h.renderError(c, convID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// Delete 删除会话及其全部消息。
func (h *ConversationHandler) Delete(c *gin.Context) {
	user := c.MustGet("user").(*model.User)
	convID := c.Param("id")

	if err := h.convService.DeleteConversation(c.Request.Context(), convID, user.ID); err != nil {
		h.renderError(c, convID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// renderError 把业务层错误映射为对应的 HTTP 响应。
func (h *ConversationHandler) renderError(c *gin.Context, convID string, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Errorf("[ConversationHandler] 请求处理失败, convID: %s, error: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
