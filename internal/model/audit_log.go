package model

import (
	"time"

	"gorm.io/datatypes"
)

// 审计动作
const (
	AuditCreate  = "CREATE"
	AuditUpdate  = "UPDATE"
	AuditDelete  = "DELETE"
	AuditLogin   = "LOGIN"
	AuditApprove = "APPROVE"
	AuditReject  = "REJECT"
	AuditPublish = "PUBLISH"
)

// AuditLog 操作审计日志，新旧值与附加信息以原始 JSON 保存
type AuditLog struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	UserID     *uint          `json:"user_id" gorm:"index"`
	User       *User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Action     string         `json:"action" gorm:"size:32;index"`
	Resource   string         `json:"resource" gorm:"size:64;index"`
	ResourceID string         `json:"resource_id" gorm:"size:64;index"`
	IPAddress  string         `json:"ip_address" gorm:"size:64"`
	UserAgent  string         `json:"user_agent" gorm:"size:255"`
	Endpoint   string         `json:"endpoint" gorm:"size:255"`
	HTTPMethod string         `json:"http_method" gorm:"size:16"`
	OldValues  datatypes.JSON `json:"old_values"`
	NewValues  datatypes.JSON `json:"new_values"`
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}
