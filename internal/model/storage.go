package model

import "time"

// ConversationRow 是 MySQL 对话存储驱动使用的 ORM 模型。
// Messages 以 JSON 文本落库，保持记录自描述。
type ConversationRow struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_user_ts" json:"userId"`
	TimestampKey string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_user_ts" json:"timestampKey"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	MessagesJSON string    `gorm:"type:longtext;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ConversationRow) TableName() string {
	return "conversations"
}

// ArtifactAudit 记录一次附件归档：原始文件已写入对象存储后，
// 由归档管道异步落库的审计元数据。
type ArtifactAudit struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"type:varchar(64);not null;index" json:"userId"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"fileName"`
	ObjectName  string    `gorm:"type:varchar(255);not null" json:"objectName"`
	ContentType string    `gorm:"type:varchar(100)" json:"contentType"`
	SourceKind  string    `gorm:"type:varchar(10)" json:"sourceKind"`
	SizeBytes   int64     `gorm:"not null;default:0" json:"sizeBytes"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ArtifactAudit) TableName() string {
	return "artifact_audit"
}
