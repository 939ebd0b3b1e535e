// Package model 包含了应用的数据模型定义。
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchHistory 对应于数据库中的 'search_history' 表。
// 每次调用搜索 Agent 都会尽力记录一条历史。
type SearchHistory struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Query       string    `gorm:"type:text;not null" json:"query"`
	ResultCount int       `gorm:"not null;default:0" json:"resultCount"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SearchHistory) TableName() string {
	return "search_history"
}

// BeforeCreate 在插入前为历史记录分配一个 UUID 主键。
func (h *SearchHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// SearchRecordDoc 定义了存储在 Elasticsearch 'search_history' 索引中的文档结构。
type SearchRecordDoc struct {
	RecordID    string    `json:"record_id"`
	UserID      string    `json:"user_id"`
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}
