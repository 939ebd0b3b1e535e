package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"scholar-search-go/pkg/log"
)

// defaultSettleDelay 是导航完成后过渡指示的停留时间。
const defaultSettleDelay = 300 * time.Millisecond

// Navigator 按固定顺序执行页面切换：
// 显示过渡指示 -> 可选的一次 POST -> 跳转目标路由 -> 停留后隐藏指示。
// POST 失败只记录日志，跳转仍然发生。
type Navigator struct {
	mu            sync.Mutex
	transitioning bool

	httpClient  *http.Client
	navigate    func(route string)
	settleDelay time.Duration
	sleep       func(d time.Duration)
}

// NewNavigator 创建一个 Navigator。navigate 是实际执行路由跳转的回调。
func NewNavigator(navigate func(route string)) *Navigator {
	return &Navigator{
		httpClient:  &http.Client{},
		navigate:    navigate,
		settleDelay: defaultSettleDelay,
		sleep:       time.Sleep,
	}
}

// Transitioning 报告当前是否处于过渡状态。
func (n *Navigator) Transitioning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transitioning
}

// Go 执行一次导航。endpoint 非空时先向其 POST payload，
// 响应中携带会话 ID 时跳转到 target?conversation=<id>，否则跳转裸 target。
// 已有导航在途时本次调用静默忽略。
func (n *Navigator) Go(ctx context.Context, target string, payload interface{}, endpoint string) {
	n.mu.Lock()
	if n.transitioning {
		n.mu.Unlock()
		return
	}
	n.transitioning = true
	n.mu.Unlock()

	route := target
	if endpoint != "" {
		if convID := n.post(ctx, endpoint, payload); convID != "" {
			route = target + "?conversation=" + convID
		}
	}

	n.navigate(route)

	n.sleep(n.settleDelay)
	n.mu.Lock()
	n.transitioning = false
	n.mu.Unlock()
}

// post 执行可选的副作用请求，返回响应中的会话 ID（若有）。
// 任何失败都只记录日志并返回空串，不阻断导航。
func (n *Navigator) post(ctx context.Context, endpoint string, payload interface{}) string {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warnf("[chatclient] 导航前置请求编码失败: %v", err)
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		log.Warnf("[chatclient] 导航前置请求构造失败: %v", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		log.Warnf("[chatclient] 导航前置请求失败: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("[chatclient] 导航前置请求返回状态 %d", resp.StatusCode)
		return ""
	}

	var parsed struct {
		Conversation *struct {
			ID string `json:"id"`
		} `json:"conversation"`
		ConversationID string `json:"conversationId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warnf("[chatclient] 导航前置响应解析失败: %v", err)
		return ""
	}
	if parsed.Conversation != nil && parsed.Conversation.ID != "" {
		return parsed.Conversation.ID
	}
	return parsed.ConversationID
}
