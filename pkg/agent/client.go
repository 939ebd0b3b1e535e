// Package agent 提供了访问外部奖学金搜索 Agent 服务的客户端。
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scholar-search-go/internal/config"
	"scholar-search-go/pkg/log"
)

// SearchResult 是一次 Agent 搜索的结果。
type SearchResult struct {
	Response         string
	ResultsCount     int
	ProcessingTimeMs int64
}

// Client 定义了搜索 Agent 客户端的接口。
// Search 永远返回一个可用的结果：Agent 服务不可达或返回非 2xx 时，
// 会降级为本地生成的兜底回复，而不是向调用方抛出错误。
// 同一次调用内不会重试真实的 Agent 服务。
type Client interface {
	Search(ctx context.Context, query, threadID, variant string) *SearchResult
}

type httpAgentClient struct {
	cfg    config.AgentConfig
	client *http.Client
}

// NewClient 创建一个新的 Agent 客户端实例。
func NewClient(cfg config.AgentConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds <= 0 {
		timeout = 30 * time.Second
	}
	return &httpAgentClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id"`
	Agent    string `json:"agent"`
}

type searchResponse struct {
	Response string `json:"response"`
	Metadata struct {
		ResultsCount int `json:"results_count"`
	} `json:"metadata"`
}

// Search 以单次请求/响应的方式调用 Agent 服务的 /search 接口。
func (c *httpAgentClient) Search(ctx context.Context, query, threadID, variant string) *SearchResult {
	if variant == "" {
		variant = c.cfg.DefaultVariant
	}

	reqBody := searchRequest{
		Query:    query,
		ThreadID: threadID,
		Agent:    variant,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		log.Errorf("[AgentClient] 序列化搜索请求失败: %v", err)
		return c.fallback(query, 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(reqBytes))
	if err != nil {
		log.Errorf("[AgentClient] 构建搜索请求失败: %v", err)
		return c.fallback(query, 0)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.Warnf("[AgentClient] Agent 服务不可达，使用兜底回复: %v", err)
		return c.fallback(query, elapsed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Warnf("[AgentClient] Agent 服务返回非 200 状态: %s, body: %s，使用兜底回复", resp.Status, string(body))
		return c.fallback(query, elapsed)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Warnf("[AgentClient] 解析 Agent 响应失败，使用兜底回复: %v", err)
		return c.fallback(query, elapsed)
	}

	resultsCount := data.Metadata.ResultsCount
	if resultsCount < 1 {
		resultsCount = 1
	}

	log.Infof("[AgentClient] 搜索成功, threadID: %s, 耗时: %dms", threadID, elapsed)
	return &SearchResult{
		Response:         data.Response,
		ResultsCount:     resultsCount,
		ProcessingTimeMs: elapsed,
	}
}

// fallback 生成一条引用原始查询的降级回复。
func (c *httpAgentClient) fallback(query string, elapsed int64) *SearchResult {
	if elapsed <= 0 {
		elapsed = 1
	}
	return &SearchResult{
		Response:         fmt.Sprintf("I found several scholarships that match your query: \"%s\". Here are some relevant opportunities...", query),
		ResultsCount:     1,
		ProcessingTimeMs: elapsed,
	}
}
