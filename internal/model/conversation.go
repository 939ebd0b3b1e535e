// Package model 包含了应用的数据模型定义。
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 消息角色。Role 在创建后不可变更。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation 代表一个用户拥有的、带标题的消息线程。
// 列表查询只返回未归档的会话，按 updated_at 倒序排列。
type Conversation struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	MessageCount int       `gorm:"not null;default:0" json:"messageCount"`
	IsArchived   bool      `gorm:"not null;default:false" json:"isArchived"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate 在插入前为会话分配一个不透明的 UUID 主键。
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// MessageMetadata 是消息的附加信息。
// 使用显式声明的可选字段而非开放的 map，保证契约可检查。
type MessageMetadata struct {
	SearchQuery      string `gorm:"type:text;column:search_query" json:"searchQuery,omitempty"`
	ResultsCount     *int   `gorm:"column:results_count" json:"resultsCount,omitempty"`
	ProcessingTimeMs *int64 `gorm:"column:processing_time_ms" json:"processingTime,omitempty"`
}

// Message 代表会话中的一条消息，按 created_at 升序排列。
type Message struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string          `gorm:"type:varchar(36);index;not null" json:"conversationId"`
	Role           string          `gorm:"type:varchar(16);not null" json:"role"`
	Content        string          `gorm:"type:text;not null" json:"content"`
	Metadata       MessageMetadata `gorm:"embedded" json:"metadata"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate 在插入前为消息分配一个不透明的 UUID 主键。
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
