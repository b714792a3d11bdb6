package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"magistral-go/internal/artifact"
	"magistral-go/internal/config"
	"magistral-go/pkg/kafka"
	"magistral-go/pkg/log"
	"magistral-go/pkg/storage"
	"magistral-go/pkg/tasks"
)

// ArtifactArchiver 归档一次附件上传的原始字节。
// 归档失败不得影响本轮对话，实现只记日志。
type ArtifactArchiver interface {
	Archive(ctx context.Context, userID string, upload Upload, kind artifact.Kind)
}

// minioArchiver 把附件写入对象存储并发出 Kafka 归档任务，
// 由后台 pipeline.Processor 落库审计记录。
type minioArchiver struct {
	minioCfg config.MinIOConfig
}

// NewMinioArchiver 创建一个基于 MinIO + Kafka 的归档器。
func NewMinioArchiver(minioCfg config.MinIOConfig) ArtifactArchiver {
	return &minioArchiver{minioCfg: minioCfg}
}

// Archive 实现 ArtifactArchiver。
func (a *minioArchiver) Archive(ctx context.Context, userID string, upload Upload, kind artifact.Kind) {
	objectName := fmt.Sprintf("artifacts/%s/%d-%s",
		userID, time.Now().UnixNano(), safeObjectName(upload.FileName))

	if err := storage.PutObject(ctx, a.minioCfg.BucketName, objectName, upload.Data, upload.ContentType); err != nil {
		log.Warnf("附件归档失败 (user=%s, file=%s): %v", userID, upload.FileName, err)
		return
	}

	task := tasks.ArtifactArchiveTask{
		UserID:      userID,
		FileName:    upload.FileName,
		ObjectName:  objectName,
		ContentType: upload.ContentType,
		SourceKind:  kind.String(),
	}
	if err := kafka.ProduceArchiveTask(ctx, task); err != nil {
		log.Warnf("发送归档任务失败 (object=%s): %v", objectName, err)
	}
}

// noopArchiver 在归档管道未启用时使用。
type noopArchiver struct{}

// NewNoopArchiver 创建一个什么都不做的归档器。
func NewNoopArchiver() ArtifactArchiver {
	return noopArchiver{}
}

// Archive 实现 ArtifactArchiver。
func (noopArchiver) Archive(context.Context, string, Upload, artifact.Kind) {}

// safeObjectName 把文件名归一化为对象存储安全的名称。
func safeObjectName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, base)
}
