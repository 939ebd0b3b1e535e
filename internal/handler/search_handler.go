package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scholar-search-go/internal/model"
	"scholar-search-go/internal/service"
	"scholar-search-go/pkg/log"
)

// SearchHandler 负责处理搜索与搜索历史相关的 API 请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchRequest 定义了搜索接口的请求体。
type SearchRequest struct {
	Query          string `json:"query" binding:"required"`
	ConversationID string `json:"conversationId"`
	ThreadID       string `json:"threadId"`
	Agent          string `json:"agent"`
}

// Search 执行一次奖学金搜索并记录搜索历史。
func (h *SearchHandler) Search(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), user.ID, req.Query, req.ConversationID, req.ThreadID, req.Agent)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[SearchHandler] 搜索失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":       result.Response,
		"conversationId": result.ConversationID,
		"threadId":       result.ThreadID,
		"metadata": gin.H{
			"processingTime": result.ProcessingTimeMs,
			"resultsCount":   result.ResultsCount,
		},
	})
}

// History 从 Elasticsearch 返回当前用户的搜索历史。
// 支持可选的 query 关键词过滤和 limit 条数限制。
func (h *SearchHandler) History(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	query := c.Query("query")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.searchService.QueryHistory(c.Request.Context(), user.ID, query, limit)
	if err != nil {
		log.Errorf("[SearchHandler] 查询搜索历史失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query search history"})
		return
	}
	if records == nil {
		records = make([]model.SearchRecordDoc, 0)
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

// Recent 返回当前用户最近的搜索词。
func (h *SearchHandler) Recent(c *gin.Context) {
	user := c.MustGet("user").(*model.User)

	queries, err := h.searchService.RecentQueries(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("[SearchHandler] 查询最近搜索失败, userID: %s, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query recent searches"})
		return
	}
	if queries == nil {
		queries = make([]string, 0)
	}
	c.JSON(http.StatusOK, gin.H{"queries": queries})
}
