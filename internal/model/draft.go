package model

import (
	"time"

	"gorm.io/datatypes"
)

// ExamDraft 组卷向导的草稿
type ExamDraft struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	DraftKey  string         `json:"key" gorm:"size:100;uniqueIndex"`
	UserID    uint           `json:"user_id" gorm:"index"`
	ExamID    *uint          `json:"exam_id"`
	Step      int            `json:"step"`
	Version   int            `json:"version"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"index"`
}
