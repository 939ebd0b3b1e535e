package chatclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"scholar-search-go/internal/model"
	"scholar-search-go/pkg/log"
)

// tempIDPrefix 是乐观消息在服务端确认前使用的临时标识前缀。
const tempIDPrefix = "temp-"

// ChatState 是控制器对外暴露的状态快照。
type ChatState struct {
	Conversations       []model.Conversation
	CurrentConversation *model.Conversation
	Messages            []model.Message
	IsLoading           bool
	Error               string
}

// Controller 维护聊天界面的内存状态，
// 并按乐观更新协议在本地状态与服务端之间同步。
// 同一实例的发送操作由 isLoading 标志串行化，不排队。
type Controller struct {
	mu sync.Mutex

	gateway ConversationGateway
	agent   AgentGateway

	conversations []model.Conversation
	current       *model.Conversation
	messages      []model.Message
	isLoading     bool
	errMsg        string

	// now 可在测试中替换以固定时间
	now func() time.Time
}

// NewController 创建一个新的 Controller 实例。
func NewController(gateway ConversationGateway, agentGateway AgentGateway) *Controller {
	return &Controller{
		gateway: gateway,
		agent:   agentGateway,
		now:     time.Now,
	}
}

// State 返回当前状态的一个副本。
func (c *Controller) State() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := ChatState{
		Conversations: append([]model.Conversation(nil), c.conversations...),
		Messages:      append([]model.Message(nil), c.messages...),
		IsLoading:     c.isLoading,
		Error:         c.errMsg,
	}
	if c.current != nil {
		current := *c.current
		state.CurrentConversation = &current
	}
	return state
}

// LoadInitial 拉取会话列表；若指定了目标会话 ID 且存在于列表中，自动选中它。
func (c *Controller) LoadInitial(ctx context.Context, targetConvID string) error {
	conversations, err := c.gateway.ListConversations(ctx)
	if err != nil {
		c.setError(err)
		return err
	}

	c.mu.Lock()
	c.conversations = conversations
	found := false
	if targetConvID != "" {
		for _, conv := range conversations {
			if conv.ID == targetConvID {
				found = true
				break
			}
		}
	}
	c.mu.Unlock()

	if found {
		return c.Select(ctx, targetConvID)
	}
	return nil
}

// Send 执行一次完整的发送流程：
// 乐观追加用户消息、持久化、调用智能体、持久化助手回复、刷新会话列表。
// 空内容、未选中会话或已有发送在途时静默忽略。
func (c *Controller) Send(ctx context.Context, content, agentVariant string) {
	c.mu.Lock()
	if strings.TrimSpace(content) == "" || c.current == nil || c.isLoading {
		c.mu.Unlock()
		return
	}
	convID := c.current.ID

	// 先在本地追加乐观消息，界面无需等待任何网络往返
	tempID := fmt.Sprintf("%s%d", tempIDPrefix, c.now().UnixNano())
	optimistic := model.Message{
		ID:             tempID,
		ConversationID: convID,
		Role:           model.RoleUser,
		Content:        content,
		CreatedAt:      c.now(),
	}
	c.messages = append(c.messages, optimistic)
	c.isLoading = true
	c.errMsg = ""
	c.mu.Unlock()

	// 持久化用户消息。失败时回滚乐观消息并终止流程。
	userMsg, err := c.gateway.AppendMessage(ctx, convID, model.RoleUser, content, nil)
	if err != nil {
		c.mu.Lock()
		c.removeMessage(tempID)
		c.errMsg = err.Error()
		c.isLoading = false
		c.mu.Unlock()
		return
	}

	// 智能体调用不会失败，降级回复也会正常返回
	result := c.agent.Search(ctx, content, convID, agentVariant)

	meta := &model.MessageMetadata{
		SearchQuery:      content,
		ResultsCount:     &result.ResultsCount,
		ProcessingTimeMs: &result.ProcessingTimeMs,
	}
	assistantMsg, err := c.gateway.AppendMessage(ctx, convID, model.RoleAssistant, result.Response, meta)
	if err != nil {
		// 用户消息已确认，保留它；只丢弃助手回复
		c.mu.Lock()
		c.replaceMessage(tempID, []model.Message{*userMsg})
		c.errMsg = err.Error()
		c.isLoading = false
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.replaceMessage(tempID, []model.Message{*userMsg, *assistantMsg})
	c.mu.Unlock()

	// 刷新会话列表以反映新的标题、计数和排序。失败不影响已完成的发送。
	if conversations, err := c.gateway.ListConversations(ctx); err == nil {
		c.mu.Lock()
		c.conversations = conversations
		c.mu.Unlock()
	} else {
		log.Warnf("[chatclient] 刷新会话列表失败: %v", err)
	}

	c.mu.Lock()
	c.isLoading = false
	c.mu.Unlock()
}

// Create 创建一个新会话，插入列表头部并选中，同时清空消息区。
func (c *Controller) Create(ctx context.Context, title string) (*model.Conversation, error) {
	conv, err := c.gateway.CreateConversation(ctx, title)
	if err != nil {
		c.setError(err)
		return nil, err
	}

	c.mu.Lock()
	c.conversations = append([]model.Conversation{*conv}, c.conversations...)
	c.current = conv
	c.messages = nil
	c.errMsg = ""
	c.mu.Unlock()
	return conv, nil
}

// Select 选中一个会话并拉取它的消息。
// 拉取结果带着发起时的会话 ID，返回时若选中会话已变更则直接丢弃，
// 避免慢响应覆盖新会话的消息。
func (c *Controller) Select(ctx context.Context, convID string) error {
	c.mu.Lock()
	var target *model.Conversation
	for i := range c.conversations {
		if c.conversations[i].ID == convID {
			conv := c.conversations[i]
			target = &conv
			break
		}
	}
	if target == nil {
		c.mu.Unlock()
		return fmt.Errorf("conversation %s not in list", convID)
	}
	c.current = target
	c.mu.Unlock()

	messages, err := c.gateway.ListMessages(ctx, convID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID != convID {
		// 响应迟到且选中会话已切换，丢弃
		return nil
	}
	if err != nil {
		c.errMsg = err.Error()
		return err
	}
	c.messages = messages
	c.errMsg = ""
	return nil
}

// Delete 删除一个会话。
// 成功时将其移出列表；若它是当前选中会话，同时清空选中与消息。
// 失败时状态保持不变，仅记录错误。
func (c *Controller) Delete(ctx context.Context, convID string) error {
	if err := c.gateway.DeleteConversation(ctx, convID); err != nil {
		c.setError(err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.conversations[:0]
	for _, conv := range c.conversations {
		if conv.ID != convID {
			kept = append(kept, conv)
		}
	}
	c.conversations = kept
	if c.current != nil && c.current.ID == convID {
		c.current = nil
		c.messages = nil
	}
	return nil
}

// removeMessage 从内存列表中移除指定 ID 的消息。调用方必须持有锁。
func (c *Controller) removeMessage(msgID string) {
	kept := c.messages[:0]
	for _, msg := range c.messages {
		if msg.ID != msgID {
			kept = append(kept, msg)
		}
	}
	c.messages = kept
}

// replaceMessage 用服务端确认的消息替换临时消息，并保持时间升序。
// 调用方必须持有锁。
func (c *Controller) replaceMessage(tempID string, confirmed []model.Message) {
	c.removeMessage(tempID)
	c.messages = append(c.messages, confirmed...)
	sort.SliceStable(c.messages, func(i, j int) bool {
		return c.messages[i].CreatedAt.Before(c.messages[j].CreatedAt)
	})
}

// setError 把网关错误写入 UI 可见的错误字段。
func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.errMsg = err.Error()
	c.mu.Unlock()
}
