package repository

import (
	"magistral-go/internal/model"

	"gorm.io/gorm"
)

// ArtifactAuditRepository 定义了附件归档审计记录的操作接口。
type ArtifactAuditRepository interface {
	Create(audit *model.ArtifactAudit) error
	FindByUser(userID string) ([]model.ArtifactAudit, error)
}

type artifactAuditRepository struct {
	db *gorm.DB
}

// NewArtifactAuditRepository 创建一个新的 ArtifactAuditRepository 实例。
func NewArtifactAuditRepository(db *gorm.DB) ArtifactAuditRepository {
	return &artifactAuditRepository{db: db}
}

// Create 插入一条归档审计记录。
func (r *artifactAuditRepository) Create(audit *model.ArtifactAudit) error {
	return r.db.Create(audit).Error
}

// FindByUser 返回某用户的全部归档审计记录，最新在前。
func (r *artifactAuditRepository) FindByUser(userID string) ([]model.ArtifactAudit, error) {
	var audits []model.ArtifactAudit
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&audits).Error
	return audits, err
}
