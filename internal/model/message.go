// Package model 包含了应用的数据模型定义。
package model

// 消息角色常量。组装后的消息序列首条固定为 system，其余按插入顺序排列。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 代表对话中的单条角色消息。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationRecord 代表一份已保存的完整对话记录。
// 写入后不可变（同一 key 重复保存视为覆盖），自描述，无需外部索引。
type ConversationRecord struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	// TimestampKey 在用户命名空间内唯一，且按创建时间字典序可排；
	// 不含冒号和空格等破坏排序或文件命名的字符。
	TimestampKey string        `json:"timestamp"`
	Messages     []ChatMessage `json:"messages"`
}
