// Package pipeline 定义了附件归档的后台处理流程。
package pipeline

import (
	"context"
	"fmt"

	"magistral-go/internal/config"
	"magistral-go/internal/model"
	"magistral-go/internal/repository"
	"magistral-go/pkg/log"
	"magistral-go/pkg/storage"
	"magistral-go/pkg/tasks"
)

// Processor 消费归档任务：核对对象存储中的归档文件并落库审计记录。
type Processor struct {
	minioCfg  config.MinIOConfig
	auditRepo repository.ArtifactAuditRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(minioCfg config.MinIOConfig, auditRepo repository.ArtifactAuditRepository) *Processor {
	return &Processor{
		minioCfg:  minioCfg,
		auditRepo: auditRepo,
	}
}

// Process 是归档任务处理的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.ArtifactArchiveTask) error {
	log.Infof("[Processor] 开始处理归档任务, user=%s, object=%s", task.UserID, task.ObjectName)

	// 1. 核对对象已经写入存储桶，顺便拿到实际大小
	info, err := storage.StatObject(ctx, p.minioCfg.BucketName, task.ObjectName)
	if err != nil {
		return fmt.Errorf("核对归档对象失败: %w", err)
	}

	// 2. 落库审计记录
	audit := &model.ArtifactAudit{
		UserID:      task.UserID,
		FileName:    task.FileName,
		ObjectName:  task.ObjectName,
		ContentType: task.ContentType,
		SourceKind:  task.SourceKind,
		SizeBytes:   info.Size,
	}
	if err := p.auditRepo.Create(audit); err != nil {
		return fmt.Errorf("写入归档审计记录失败: %w", err)
	}

	log.Infof("[Processor] 归档任务处理成功, object=%s, size=%d", task.ObjectName, info.Size)
	return nil
}
