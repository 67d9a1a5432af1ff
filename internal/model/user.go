package model

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type User struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	Username  string         `json:"username" gorm:"size:64;uniqueIndex"`
	Password  string         `json:"-" gorm:"size:64"`
	Nickname  string         `json:"nickname" gorm:"size:64"`
	Email     string         `json:"email" gorm:"size:128"`
	Avatar    string         `json:"avatar" gorm:"size:255"`
	Role      string         `json:"role" gorm:"size:16;index"`
	District  string         `json:"district" gorm:"size:64;index"` // 学生所在地区，用于地区排名
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsAdmin 是否是管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff 管理员或教师
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleTeacher
}

// DisplayName 优先使用昵称
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// ValidRole 校验角色取值
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}
