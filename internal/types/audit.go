package types

import "time"

// CreateAuditLog 新增审计日志，Old/New/Metadata 为任意可序列化值
type CreateAuditLog struct {
	UserID     *uint
	Action     string
	Resource   string
	ResourceID string
	IPAddress  string
	UserAgent  string
	Endpoint   string
	HTTPMethod string
	OldValues  interface{}
	NewValues  interface{}
	Metadata   interface{}
}

// AuditLogQuery 审计日志筛选
type AuditLogQuery struct {
	UserID    *uint
	Action    string
	Resource  string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// AuditUser 日志中的用户摘要
type AuditUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// AuditLogItem 审计日志条目
type AuditLogItem struct {
	ID         uint        `json:"id"`
	UserID     *uint       `json:"user_id"`
	User       *AuditUser  `json:"user"`
	Action     string      `json:"action"`
	Resource   string      `json:"resource"`
	ResourceID string      `json:"resource_id"`
	IPAddress  string      `json:"ip_address"`
	UserAgent  string      `json:"user_agent"`
	Endpoint   string      `json:"endpoint"`
	HTTPMethod string      `json:"http_method"`
	OldValues  interface{} `json:"old_values"`
	NewValues  interface{} `json:"new_values"`
	Metadata   interface{} `json:"metadata"`
	CreatedAt  time.Time   `json:"created_at"`
}

type AuditLogList struct {
	Logs       []AuditLogItem `json:"logs"`
	Pagination Pagination     `json:"pagination"`
}

// RecentActivity 最近活动
type RecentActivity struct {
	ID         uint      `json:"id"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	UserRole   string    `json:"user_role"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	CreatedAt  time.Time `json:"created_at"`
	IPAddress  string    `json:"ip_address"`
}

// ActivityStats 活动统计
type ActivityStats struct {
	TotalLogs      int64            `json:"total_logs"`
	UniqueUsers    int64            `json:"unique_users"`
	ActionCounts   map[string]int64 `json:"action_counts"`
	ResourceCounts map[string]int64 `json:"resource_counts"`
}
