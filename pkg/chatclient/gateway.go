// Package chatclient 是聊天服务 HTTP API 的 Go 客户端，
// 负责维护会话列表与消息的本地状态，并封装乐观更新的发送流程。
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"scholar-search-go/internal/model"
	"scholar-search-go/pkg/agent"
)

// ConversationGateway 定义了控制器所依赖的会话持久化操作。
// 生产实现是 HTTP API 客户端，测试中用内存假实现替换。
type ConversationGateway interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, convID string) error
	ListMessages(ctx context.Context, convID string) ([]model.Message, error)
	AppendMessage(ctx context.Context, convID, role, content string, meta *model.MessageMetadata) (*model.Message, error)
}

// AgentGateway 定义了控制器所依赖的搜索智能体操作。
// pkg/agent 的 Client 直接满足该接口。
type AgentGateway interface {
	Search(ctx context.Context, query, threadID, variant string) *agent.SearchResult
}

// httpGateway 是 ConversationGateway 的 HTTP 实现，
// 以当前用户的 access token 调用服务端的 /api 接口。
type httpGateway struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewHTTPGateway 创建一个调用远端聊天服务的 ConversationGateway。
func NewHTTPGateway(baseURL, accessToken string) ConversationGateway {
	return &httpGateway{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{},
	}
}

// doJSON 发送一次带认证的 JSON 请求，并把成功响应解码到 out。
func (g *httpGateway) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListConversations 拉取当前用户的会话列表。
func (g *httpGateway) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var out struct {
		Conversations []model.Conversation `json:"conversations"`
	}
	if err := g.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// CreateConversation 创建一个新会话。
func (g *httpGateway) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	body := map[string]string{}
	if title != "" {
		body["title"] = title
	}
	var out struct {
		Conversation *model.Conversation `json:"conversation"`
	}
	if err := g.doJSON(ctx, http.MethodPost, "/api/conversations", body, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

// DeleteConversation 删除一个会话。
func (g *httpGateway) DeleteConversation(ctx context.Context, convID string) error {
	return g.doJSON(ctx, http.MethodDelete, "/api/conversations/"+convID, nil, nil)
}

// ListMessages 拉取会话内的全部消息。
func (g *httpGateway) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	var out struct {
		Messages []model.Message `json:"messages"`
	}
	if err := g.doJSON(ctx, http.MethodGet, "/api/conversations/"+convID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// AppendMessage 向会话追加一条消息。
func (g *httpGateway) AppendMessage(ctx context.Context, convID, role, content string, meta *model.MessageMetadata) (*model.Message, error) {
	body := map[string]interface{}{
		"role":    role,
		"content": content,
	}
	if meta != nil {
		body["metadata"] = meta
	}
	var out struct {
		Message *model.Message `json:"message"`
	}
	if err := g.doJSON(ctx, http.MethodPost, "/api/conversations/"+convID+"/messages", body, &out); err != nil {
		return nil, err
	}
	return out.Message, nil
}
