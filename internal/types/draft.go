package types

import "encoding/json"

// SaveDraftRequest 保存草稿，version 为客户端持有的版本号，首次保存为 0
type SaveDraftRequest struct {
	ExamID  *uint           `json:"exam_id"`
	Step    int             `json:"step"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// BuilderRequest 组卷向导一次性提交
// 大题放在顶层 sections，exam.sections 中的大题排在前面
type BuilderRequest struct {
	DraftKey  string            `json:"draft_key"`
	Exam      CreateExamRequest `json:"exam" binding:"required"`
	Sections  []SectionRequest  `json:"sections"`
	Questions []QuestionRequest `json:"questions"`
}

// BuilderResult 组卷结果
type BuilderResult struct {
	ExamID        uint     `json:"exam_id"`
	SectionCount  int      `json:"section_count"`
	GroupCount    int      `json:"group_count"`
	QuestionCount int      `json:"question_count"`
	Warnings      []string `json:"warnings"`
}
