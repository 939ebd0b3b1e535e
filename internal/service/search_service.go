// Package service 提供了搜索相关的业务逻辑。
package service

import (
	"context"
	"strings"
	"time"

	"scholar-search-go/internal/model"
	"scholar-search-go/internal/repository"
	"scholar-search-go/pkg/agent"
	"scholar-search-go/pkg/es"
	"scholar-search-go/pkg/kafka"
	"scholar-search-go/pkg/log"
	"scholar-search-go/pkg/tasks"
)

// SearchResponse 是一次搜索的完整结果。
type SearchResponse struct {
	Response         string
	ConversationID   string
	ThreadID         string
	ResultsCount     int
	ProcessingTimeMs int64
}

// SearchService 接口定义了搜索与搜索历史的业务操作。
type SearchService interface {
	Search(ctx context.Context, userID, query, conversationID, threadID, variant string) (*SearchResponse, error)
	QueryHistory(ctx context.Context, userID, query string, limit int) ([]model.SearchRecordDoc, error)
	RecentQueries(ctx context.Context, userID string) ([]string, error)
}

// searchService 是 SearchService 接口的实现。
type searchService struct {
	agentClient agent.Client
	historyRepo repository.SearchHistoryRepository
	esIndex     string
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(agentClient agent.Client, historyRepo repository.SearchHistoryRepository, esIndex string) SearchService {
	return &searchService{
		agentClient: agentClient,
		historyRepo: historyRepo,
		esIndex:     esIndex,
	}
}

// Search 执行一次搜索并尽力记录历史。
// threadID 为空时退回到 conversationID 作为智能体侧的会话标识。
func (s *searchService) Search(ctx context.Context, userID, query, conversationID, threadID, variant string) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	effectiveThread := threadID
	if effectiveThread == "" {
		effectiveThread = conversationID
	}

	result := s.agentClient.Search(ctx, query, effectiveThread, variant)

	// 历史记录是尽力而为的：任何失败只记录日志，不影响搜索结果返回
	s.recordHistory(ctx, userID, query, result.ResultsCount)

	return &SearchResponse{
		Response:         result.Response,
		ConversationID:   conversationID,
		ThreadID:         effectiveThread,
		ResultsCount:     result.ResultsCount,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}, nil
}

// recordHistory 把一次搜索写入 MySQL，并投递 Kafka 事件和刷新 Redis 最近搜索。
func (s *searchService) recordHistory(ctx context.Context, userID, query string, resultCount int) {
	record := &model.SearchHistory{
		UserID:      userID,
		Query:       query,
		ResultCount: resultCount,
		CreatedAt:   time.Now(),
	}
	if err := s.historyRepo.Create(ctx, record); err != nil {
		log.Errorf("[SearchService] 写入搜索历史失败, userID: %s, error: %v", userID, err)
		return
	}

	task := tasks.SearchEventTask{
		RecordID:    record.ID,
		UserID:      userID,
		Query:       query,
		ResultCount: resultCount,
		CreatedAt:   record.CreatedAt,
	}
	if err := kafka.ProduceSearchEvent(ctx, task); err != nil {
		log.Errorf("[SearchService] 投递搜索事件失败, recordID: %s, error: %v", record.ID, err)
	}

	if err := s.historyRepo.PushRecentQuery(ctx, userID, query); err != nil {
		log.Warnf("[SearchService] 刷新最近搜索失败, userID: %s, error: %v", userID, err)
	}
}

// QueryHistory 从 Elasticsearch 查询用户自己的搜索历史。
func (s *searchService) QueryHistory(ctx context.Context, userID, query string, limit int) ([]model.SearchRecordDoc, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return es.QuerySearchHistory(ctx, s.esIndex, userID, query, limit)
}

// RecentQueries 返回用户最近的搜索词。
func (s *searchService) RecentQueries(ctx context.Context, userID string) ([]string, error) {
	return s.historyRepo.RecentQueries(ctx, userID)
}
