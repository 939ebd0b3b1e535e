// Package pipeline 定义了搜索历史异步索引的核心流程。
package pipeline

import (
	"context"

	"scholar-search-go/internal/config"
	"scholar-search-go/internal/model"
	"scholar-search-go/pkg/es"
	"scholar-search-go/pkg/log"
	"scholar-search-go/pkg/tasks"
)

// Indexer 消费 Kafka 中的搜索历史事件并写入 Elasticsearch。
type Indexer struct {
	esCfg config.ElasticsearchConfig
}

// NewIndexer 创建一个新的 Indexer 实例。
func NewIndexer(esCfg config.ElasticsearchConfig) *Indexer {
	return &Indexer{esCfg: esCfg}
}

// Process 将一条搜索历史事件索引到 Elasticsearch。
// 返回错误时由 Kafka 消费端决定是否重试。
func (i *Indexer) Process(ctx context.Context, task tasks.SearchEventTask) error {
	doc := model.SearchRecordDoc{
		RecordID:    task.RecordID,
		UserID:      task.UserID,
		Query:       task.Query,
		ResultCount: task.ResultCount,
		CreatedAt:   task.CreatedAt,
	}

	if err := es.IndexSearchRecord(ctx, i.esCfg.IndexName, doc); err != nil {
		log.Errorf("[Indexer] 索引搜索历史失败, RecordID: %s, Error: %v", task.RecordID, err)
		return err
	}

	log.Infof("[Indexer] 搜索历史已索引, RecordID: %s, UserID: %s", task.RecordID, task.UserID)
	return nil
}
