package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"magistral-go/internal/model"
	"magistral-go/pkg/log"
)

// fsConversationRepository 把每条记录存为一个 JSON 文件：
// <baseDir>/<userID 编码>/<timestampKey 编码>.json。用户目录即分区，列举即目录扫描。
// 两个路径组件都经 encodeComponent 单射编码，不同用户不可能共享分区。
type fsConversationRepository struct {
	baseDir string
}

// NewFilesystemConversationRepository 创建一个基于文件系统的对话存储。
func NewFilesystemConversationRepository(baseDir string) ConversationRepository {
	return &fsConversationRepository{baseDir: baseDir}
}

// Put 原子写入一条记录：先写同目录临时文件，再 rename 提交，
// 并发读取方不可能看到写了一半的内容。
func (r *fsConversationRepository) Put(_ context.Context, record model.ConversationRecord) error {
	userDir := filepath.Join(r.baseDir, encodeComponent(record.UserID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("创建用户分区目录失败: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化对话记录失败: %w", err)
	}

	tmp, err := os.CreateTemp(userDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	target := filepath.Join(userDir, encodeComponent(record.TimestampKey)+".json")
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("提交对话记录失败: %w", err)
	}
	return nil
}

// ListByUser 扫描用户分区并按 TimestampKey 降序返回全部记录。
// 单条损坏的记录只记警告并跳过，不能让它遮蔽其余记录；
// 分区整体不可访问时降级为空结果，保持历史浏览可用。
func (r *fsConversationRepository) ListByUser(_ context.Context, userID string) ([]model.ConversationRecord, error) {
	userDir := filepath.Join(r.baseDir, encodeComponent(userID))
	entries, err := os.ReadDir(userDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("读取用户分区失败 (user=%s): %v", userID, err)
		}
		return []model.ConversationRecord{}, nil
	}

	records := make([]model.ConversationRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		record, err := r.readRecord(filepath.Join(userDir, entry.Name()))
		if err != nil {
			log.Warnf("跳过损坏的对话记录 (user=%s, file=%s): %v", userID, entry.Name(), err)
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].TimestampKey > records[j].TimestampKey
	})
	return records, nil
}

func (r *fsConversationRepository) readRecord(path string) (model.ConversationRecord, error) {
	var record model.ConversationRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("读取记录文件失败: %w", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("解析记录文件失败: %w", err)
	}
	return record, nil
}

// encodeComponent 把任意字符串单射地编码为存储安全的路径组件。
// 字母、数字和 '-' 原样保留，其余每个字节编码为 _xx（两位十六进制），
// 不同输入不可能编码出同一个组件。空串编码为 "_"（编码结果中
// 单独的 '_' 不会由非空输入产生）。
func encodeComponent(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}
