package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"magistral-go/internal/model"
	"magistral-go/pkg/log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mysqlConversationRepository 把对话记录存入 MySQL，消息序列以 JSON 文本落库。
// (user_id, timestamp_key) 上的唯一索引保证用户命名空间内的键唯一。
type mysqlConversationRepository struct {
	db *gorm.DB
}

// NewMySQLConversationRepository 创建一个基于 MySQL 的对话存储。
func NewMySQLConversationRepository(db *gorm.DB) ConversationRepository {
	return &mysqlConversationRepository{db: db}
}

// Put 写入一条记录；同一 (user, timestampKey) 重复保存时覆盖标题和消息。
func (r *mysqlConversationRepository) Put(ctx context.Context, record model.ConversationRecord) error {
	messagesJSON, err := json.Marshal(record.Messages)
	if err != nil {
		return fmt.Errorf("序列化对话消息失败: %w", err)
	}

	row := model.ConversationRow{
		UserID:       record.UserID,
		TimestampKey: record.TimestampKey,
		Title:        record.Title,
		MessagesJSON: string(messagesJSON),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "timestamp_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "messages_json"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("写入对话记录失败: %w", err)
	}
	return nil
}

// ListByUser 按 timestamp_key 降序返回某用户的全部记录，损坏的行跳过。
func (r *mysqlConversationRepository) ListByUser(ctx context.Context, userID string) ([]model.ConversationRecord, error) {
	var rows []model.ConversationRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp_key DESC").
		Find(&rows).Error
	if err != nil {
		log.Warnf("查询用户对话记录失败 (user=%s): %v", userID, err)
		return []model.ConversationRecord{}, nil
	}

	records := make([]model.ConversationRecord, 0, len(rows))
	for _, row := range rows {
		var messages []model.ChatMessage
		if err := json.Unmarshal([]byte(row.MessagesJSON), &messages); err != nil {
			log.Warnf("跳过损坏的对话记录 (user=%s, key=%s): %v", userID, row.TimestampKey, err)
			continue
		}
		records = append(records, model.ConversationRecord{
			UserID:       row.UserID,
			Title:        row.Title,
			TimestampKey: row.TimestampKey,
			Messages:     messages,
		})
	}
	return records, nil
}
