// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"

	"magistral-go/internal/model"
)

// ConversationRepository 定义了对话记录存储的操作接口。
//
// 记录按用户分区：不同用户即使使用相同的标题和时间戳也不会产生键冲突。
// Put 必须具有原子提交语义，并发读取方不能观察到写了一半的记录。
// ListByUser 按 TimestampKey 降序返回（最新在前）；分区不存在返回空序列而非错误。
type ConversationRepository interface {
	Put(ctx context.Context, record model.ConversationRecord) error
	ListByUser(ctx context.Context, userID string) ([]model.ConversationRecord, error)
}
