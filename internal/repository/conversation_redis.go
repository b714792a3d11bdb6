package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"magistral-go/internal/model"
	"magistral-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// redisConversationRepository 把每条记录存为
// conversation:<userID 编码>:<timestampKey> 下的 JSON 值。
// 用户段经 encodeComponent 单射编码，既不会和含 ':' 的用户标识
// 串段，也不会把 glob 元字符带进扫描模式。
// 显式保存的记录是持久数据，不设置过期时间。
type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewRedisConversationRepository 创建一个基于 Redis 的对话存储。
func NewRedisConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

func conversationKey(userID, timestampKey string) string {
	return fmt.Sprintf("conversation:%s:%s", encodeComponent(userID), timestampKey)
}

// Put 写入一条记录。Redis 的 SET 本身是原子的。
func (r *redisConversationRepository) Put(ctx context.Context, record model.ConversationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化对话记录失败: %w", err)
	}
	key := conversationKey(record.UserID, record.TimestampKey)
	if err := r.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("写入对话记录失败: %w", err)
	}
	return nil
}

// ListByUser 以 SCAN 遍历用户前缀下的全部键并按 TimestampKey 降序返回，损坏的值跳过。
func (r *redisConversationRepository) ListByUser(ctx context.Context, userID string) ([]model.ConversationRecord, error) {
	pattern := conversationKey(userID, "*")
	var keys []string
	iter := r.redisClient.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warnf("扫描用户对话键失败 (user=%s): %v", userID, err)
		return []model.ConversationRecord{}, nil
	}

	records := make([]model.ConversationRecord, 0, len(keys))
	for _, key := range keys {
		jsonData, err := r.redisClient.Get(ctx, key).Result()
		if err != nil {
			if err != redis.Nil {
				log.Warnf("读取对话记录失败 (key=%s): %v", key, err)
			}
			continue
		}
		var record model.ConversationRecord
		if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
			log.Warnf("跳过损坏的对话记录 (key=%s): %v", key, err)
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].TimestampKey > records[j].TimestampKey
	})
	return records, nil
}
