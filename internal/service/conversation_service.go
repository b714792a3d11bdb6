package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"magistral-go/internal/model"
	"magistral-go/internal/repository"
)

// defaultTitle 在对话中没有任何用户消息可供取标题时使用。
const defaultTitle = "Consulta sin título"

// titleMaxRunes 限制自动派生标题的长度。
const titleMaxRunes = 40

// keyTimeLayout 是默认时间戳的格式：字典序即时间序，纳秒精度避免同用户碰撞。
const keyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// keyReplacer 把冒号和空格替换为文件系统安全的分隔符。
var keyReplacer = strings.NewReplacer(":", "-", " ", "_")

// ConversationService 定义了对话记录保存与检索的接口。
type ConversationService interface {
	// SaveConversation 保存一份完整对话记录，返回派生出的记录 key。
	// title 为空时自动从首条用户消息派生；timestamp 为空时取当前时间。
	SaveConversation(ctx context.Context, userID, title, timestamp string, messages []model.ChatMessage) (string, error)
	// ListConversations 返回某用户的全部对话记录，最新在前。
	ListConversations(ctx context.Context, userID string) ([]model.ConversationRecord, error)
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// SaveConversation 派生记录 key 并写入存储。
func (s *conversationService) SaveConversation(ctx context.Context, userID, title, timestamp string, messages []model.ChatMessage) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrMissingUser
	}
	if len(messages) == 0 {
		return "", ErrEmptyHistory
	}

	key := normalizeTimestampKey(timestamp)
	if strings.TrimSpace(title) == "" {
		title = deriveTitle(messages)
	}

	record := model.ConversationRecord{
		UserID:       userID,
		Title:        title,
		TimestampKey: key,
		Messages:     messages,
	}
	if err := s.repo.Put(ctx, record); err != nil {
		return "", fmt.Errorf("保存对话记录失败: %w", err)
	}
	return key, nil
}

// ListConversations 返回某用户的全部对话记录。
func (s *conversationService) ListConversations(ctx context.Context, userID string) ([]model.ConversationRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	return s.repo.ListByUser(ctx, userID)
}

// normalizeTimestampKey 把时间戳归一化为存储安全、按创建时间字典序可排的 key。
// 归一化后的 key 只含 [a-zA-Z0-9._+-]，不含路径分隔符，无法逃出用户分区。
func normalizeTimestampKey(timestamp string) string {
	if strings.TrimSpace(timestamp) == "" {
		timestamp = time.Now().UTC().Format(keyTimeLayout)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '+':
			return r
		default:
			return '_'
		}
	}, keyReplacer.Replace(timestamp))
}

// deriveTitle 从首条用户消息取一段有界前缀作为标题。
func deriveTitle(messages []model.ChatMessage) string {
	for _, m := range messages {
		if m.Role != model.RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		runes := []rune(text)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes])
		}
		return text
	}
	return defaultTitle
}
