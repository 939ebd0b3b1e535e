// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"

	"gorm.io/gorm"

	"scholar-search-go/internal/model"
)

// ConversationRepository 定义了会话与消息的持久化操作。
// 所有按会话 ID 的读写都必须同时携带 userID，以保证数据只对属主可见。
type ConversationRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Conversation, error)
	Create(ctx context.Context, conv *model.Conversation) error
	FindOwned(ctx context.Context, convID, userID string) (*model.Conversation, error)
	UpdateFields(ctx context.Context, convID string, updates map[string]interface{}) error
	Delete(ctx context.Context, convID, userID string) (int64, error)
	ListMessages(ctx context.Context, convID string) ([]model.Message, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
}

// conversationRepository 是 ConversationRepository 接口的 GORM 实现。
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// ListByUser 返回用户的所有未归档会话，按最近更新时间倒序。
func (r *conversationRepository) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_archived = ?", userID, false).
		Order("updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}

// Create 在数据库中创建一个新的会话记录。
func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// FindOwned 查找属于指定用户的会话。
// 会话不存在或不属于该用户时返回 gorm.ErrRecordNotFound。
func (r *conversationRepository) FindOwned(ctx context.Context, convID, userID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", convID, userID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateFields 按字段更新会话记录。
func (r *conversationRepository) UpdateFields(ctx context.Context, convID string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", convID).
		Updates(updates).Error
}

// Delete 删除属于指定用户的会话及其全部消息，返回删除的会话行数。
func (r *conversationRepository) Delete(ctx context.Context, convID, userID string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", convID, userID).Delete(&model.Conversation{})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		if affected == 0 {
			// 没有命中任何行，不再清理消息
			return nil
		}
		return tx.Where("conversation_id = ?", convID).Delete(&model.Message{}).Error
	})
	return affected, err
}

// ListMessages 返回会话内的全部消息，按创建时间升序。
func (r *conversationRepository) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// CreateMessage 在数据库中创建一条消息记录。
func (r *conversationRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}
