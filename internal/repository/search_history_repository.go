package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"scholar-search-go/internal/model"
)

// recentQueriesKeyFmt 是用户最近搜索词在 Redis 中的 key 格式。
const recentQueriesKeyFmt = "search:recent:%s"

// recentQueriesMax 是每个用户保留的最近搜索词数量上限。
const recentQueriesMax = 10

// SearchHistoryRepository 接口定义了搜索历史的持久化操作。
type SearchHistoryRepository interface {
	Create(ctx context.Context, record *model.SearchHistory) error
	PushRecentQuery(ctx context.Context, userID, query string) error
	RecentQueries(ctx context.Context, userID string) ([]string, error)
}

// searchHistoryRepository 使用 MySQL 存储历史记录，Redis 缓存最近搜索词。
type searchHistoryRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewSearchHistoryRepository 创建一个新的 SearchHistoryRepository 实例。
func NewSearchHistoryRepository(db *gorm.DB, rdb *redis.Client) SearchHistoryRepository {
	return &searchHistoryRepository{db: db, rdb: rdb}
}

// Create 在数据库中创建一条搜索历史记录。
func (r *searchHistoryRepository) Create(ctx context.Context, record *model.SearchHistory) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// PushRecentQuery 把搜索词压入用户的最近搜索列表，并裁剪到上限。
func (r *searchHistoryRepository) PushRecentQuery(ctx context.Context, userID, query string) error {
	key := fmt.Sprintf(recentQueriesKeyFmt, userID)
	pipe := r.rdb.Pipeline()
	pipe.LPush(ctx, key, query)
	pipe.LTrim(ctx, key, 0, recentQueriesMax-1)
	pipe.Expire(ctx, key, 30*24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// RecentQueries 返回用户的最近搜索词，最新的在前。
func (r *searchHistoryRepository) RecentQueries(ctx context.Context, userID string) ([]string, error) {
	key := fmt.Sprintf(recentQueriesKeyFmt, userID)
	return r.rdb.LRange(ctx, key, 0, recentQueriesMax-1).Result()
}
