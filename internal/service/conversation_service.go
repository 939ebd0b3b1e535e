package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"scholar-search-go/internal/model"
	"scholar-search-go/internal/repository"
	"scholar-search-go/internal/title"
	"scholar-search-go/pkg/agent"
	"scholar-search-go/pkg/log"
)

// defaultConversationTitle 是空标题创建时使用的默认标题。
const defaultConversationTitle = "New Conversation"

// ConversationWithMessages 是 CreateWithFirstMessage 的返回结果。
type ConversationWithMessages struct {
	Conversation     *model.Conversation
	UserMessage      *model.Message
	AssistantMessage *model.Message
}

// ConversationService 接口定义了会话与消息的业务操作。
// 所有操作都以当前登录用户的 ID 为边界，越权访问统一返回 ErrConversationNotFound。
type ConversationService interface {
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, userID, convTitle string) (*model.Conversation, error)
	UpdateTitle(ctx context.Context, convID, userID, newTitle string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, convID, userID string) error
	ListMessages(ctx context.Context, convID, userID string) ([]model.Message, error)
	AppendMessage(ctx context.Context, convID, userID, role, content string, meta *model.MessageMetadata) (*model.Message, error)
	CreateWithFirstMessage(ctx context.Context, userID, message, agentVariant string) (*ConversationWithMessages, error)
}

// conversationService 是 ConversationService 接口的实现。
type conversationService struct {
	convRepo    repository.ConversationRepository
	agentClient agent.Client
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(convRepo repository.ConversationRepository, agentClient agent.Client) ConversationService {
	return &conversationService{
		convRepo:    convRepo,
		agentClient: agentClient,
	}
}

// ListConversations 返回用户的全部未归档会话，最近更新的在前。
func (s *conversationService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.convRepo.ListByUser(ctx, userID)
}

// CreateConversation 创建一个新会话，标题为空时使用默认标题。
func (s *conversationService) CreateConversation(ctx context.Context, userID, convTitle string) (*model.Conversation, error) {
	if strings.TrimSpace(convTitle) == "" {
		convTitle = defaultConversationTitle
	}
	conv := &model.Conversation{
		UserID: userID,
		Title:  convTitle,
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("创建会话失败: %w", err)
	}
	return conv, nil
}

// UpdateTitle 更新会话标题。会话不属于当前用户时返回 ErrConversationNotFound。
func (s *conversationService) UpdateTitle(ctx context.Context, convID, userID, newTitle string) (*model.Conversation, error) {
	conv, err := s.findOwned(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"title":      newTitle,
		"updated_at": now,
	}
	if err := s.convRepo.UpdateFields(ctx, convID, updates); err != nil {
		return nil, fmt.Errorf("更新会话标题失败: %w", err)
	}
	conv.Title = newTitle
	conv.UpdatedAt = now
	return conv, nil
}

// DeleteConversation 删除会话及其消息。
// 会话不存在或不属于当前用户时返回 ErrConversationNotFound，而非静默成功。
func (s *conversationService) DeleteConversation(ctx context.Context, convID, userID string) error {
	affected, err := s.convRepo.Delete(ctx, convID, userID)
	if err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	if affected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ListMessages 返回会话内的全部消息，按创建时间升序。
func (s *conversationService) ListMessages(ctx context.Context, convID, userID string) ([]model.Message, error) {
	if _, err := s.findOwned(ctx, convID, userID); err != nil {
		return nil, err
	}
	return s.convRepo.ListMessages(ctx, convID)
}

// AppendMessage 向会话追加一条消息，并维护会话的计数、更新时间和标题。
// 多步操作不使用事务，依赖每一步自身的原子性；中途失败时已完成的步骤不回滚。
func (s *conversationService) AppendMessage(ctx context.Context, convID, userID, role, content string, meta *model.MessageMetadata) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.findOwned(ctx, convID, userID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: convID,
		Role:           role,
		Content:        content,
	}
	if meta != nil {
		msg.Metadata = *meta
	}
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("保存消息失败: %w", err)
	}

	updates := map[string]interface{}{
		"message_count": conv.MessageCount + 1,
		"updated_at":    time.Now(),
	}
	// 用户发出第一条消息时，根据消息内容重新生成标题。仅发生一次。
	if role == model.RoleUser && conv.MessageCount == 0 {
		updates["title"] = title.Generate(content)
	}
	if err := s.convRepo.UpdateFields(ctx, convID, updates); err != nil {
		// 消息本身已落库，会话元数据更新失败只记录日志
		log.Errorf("[ConversationService] 更新会话元数据失败, convID: %s, error: %v", convID, err)
	}

	return msg, nil
}

// CreateWithFirstMessage 创建会话并完成首轮对话：
// 创建会话 -> 写入用户消息 -> 调用搜索智能体 -> 写入助手回复。
func (s *conversationService) CreateWithFirstMessage(ctx context.Context, userID, message, agentVariant string) (*ConversationWithMessages, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.CreateConversation(ctx, userID, title.Generate(message))
	if err != nil {
		return nil, err
	}

	userMsg, err := s.AppendMessage(ctx, conv.ID, userID, model.RoleUser, message, nil)
	if err != nil {
		return nil, err
	}

	// 智能体调用不会失败，任何错误都已在内部降级为兜底回复
	result := s.agentClient.Search(ctx, message, conv.ID, agentVariant)

	meta := &model.MessageMetadata{
		SearchQuery:      message,
		ResultsCount:     &result.ResultsCount,
		ProcessingTimeMs: &result.ProcessingTimeMs,
	}
	assistantMsg, err := s.AppendMessage(ctx, conv.ID, userID, model.RoleAssistant, result.Response, meta)
	if err != nil {
		return nil, err
	}

	// 重新读取会话，拿到追加消息后的标题和计数
	fresh, err := s.findOwned(ctx, conv.ID, userID)
	if err == nil {
		conv = fresh
	}

	return &ConversationWithMessages{
		Conversation:     conv,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// findOwned 查找属于用户的会话，把仓储层的未找到统一映射为业务错误。
func (s *conversationService) findOwned(ctx context.Context, convID, userID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindOwned(ctx, convID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}
