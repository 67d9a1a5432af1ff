package types

import "time"

// CreateExamRequest 创建考试
type CreateExamRequest struct {
	Title                    string           `json:"title" binding:"required"`
	Description              string           `json:"description"`
	Type                     string           `json:"type"`
	Subject                  string           `json:"subject"`
	Grade                    string           `json:"grade"`
	Medium                   string           `json:"medium"`
	Duration                 int              `json:"duration"`
	TotalMarks               float64          `json:"total_marks"`
	PassingMarks             float64          `json:"passing_marks"`
	AttemptsAllowed          int              `json:"attempts_allowed"`
	StartTime                time.Time        `json:"start_time"`
	EndTime                  time.Time        `json:"end_time"`
	WindowStart              *time.Time       `json:"window_start"`
	WindowEnd                *time.Time       `json:"window_end"`
	Instructions             string           `json:"instructions"`
	EnableRanking            bool             `json:"enable_ranking"`
	ShowResults              bool             `json:"show_results"`
	RandomizeQuestions       bool             `json:"randomize_questions"`
	UseHierarchicalStructure bool             `json:"use_hierarchical_structure"`
	Sections                 []SectionRequest `json:"sections"`
}

// UpdateExamRequest 部分更新，未传的字段保持不变
type UpdateExamRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	Type               *string    `json:"type"`
	Subject            *string    `json:"subject"`
	Grade              *string    `json:"grade"`
	Medium             *string    `json:"medium"`
	Duration           *int       `json:"duration"`
	TotalMarks         *float64   `json:"total_marks"`
	PassingMarks       *float64   `json:"passing_marks"`
	AttemptsAllowed    *int       `json:"attempts_allowed"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	WindowStart        *time.Time `json:"window_start"`
	WindowEnd          *time.Time `json:"window_end"`
	ClearWindow        bool       `json:"clear_window"`
	Instructions       *string    `json:"instructions"`
	EnableRanking      *bool      `json:"enable_ranking"`
	ShowResults        *bool      `json:"show_results"`
	RandomizeQuestions *bool      `json:"randomize_questions"`
}

// ExamQuery 考试列表筛选
type ExamQuery struct {
	PageQuery
	Status         string `form:"status"`
	ApprovalStatus string `form:"approval_status"`
	Subject        string `form:"subject"`
	Keyword        string `form:"keyword"`
	CreatedBy      uint   `form:"created_by"`
}

// SectionRequest 大题
type SectionRequest struct {
	Title               string            `json:"title" binding:"required"`
	Description         string            `json:"description"`
	Position            int               `json:"position"`
	ExamPart            int               `json:"exam_part"`
	DefaultQuestionType string            `json:"default_question_type"`
	Groups              []GroupRequest    `json:"groups"`
	Questions           []QuestionRequest `json:"questions"`
}

// UpdateSectionRequest 更新大题
type UpdateSectionRequest struct {
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	Position            *int    `json:"position"`
	ExamPart            *int    `json:"exam_part"`
	DefaultQuestionType *string `json:"default_question_type"`
}

// GroupRequest 题组
type GroupRequest struct {
	Title       string            `json:"title"`
	Instruction string            `json:"instruction"`
	Position    int               `json:"position"`
	Questions   []QuestionRequest `json:"questions"`
}

// QuestionRequest 创建/更新题目请求
type QuestionRequest struct {
	SectionID      *uint    `json:"section_id"`
	GroupID        *uint    `json:"group_id"`
	Type           string   `json:"type"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correct_answer"`
	Points         float64  `json:"points"`
	Position       int      `json:"position"`
	ExamPart       int      `json:"exam_part"`
	Explanation    string   `json:"explanation"`
	ImageURL       string   `json:"image_url"`
	AnswerImageURL string   `json:"answer_image_url"`
}

// ReorderItem 题目排序
type ReorderItem struct {
	ID       uint `json:"id" binding:"required"`
	Position int  `json:"position"`
}

// ApproveRequest 审核通过
type ApproveRequest struct {
	Notes string `json:"notes"`
}

// RejectRequest 审核驳回
type RejectRequest struct {
	Reason         string `json:"reason" binding:"required"`
	Feedback       string `json:"feedback"`
	RequestChanges bool   `json:"request_changes"`
}

// ForceCloseRequest 强制结束考试
type ForceCloseRequest struct {
	Reason string `json:"reason"`
}

// VisibilityRequest 排名可见性
type VisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// ExamPreview 试卷预览
type ExamPreview struct {
	Exam              interface{} `json:"exam"`
	Questions         interface{} `json:"questions"`
	QuestionCount     int         `json:"question_count"`
	Part1Count        int         `json:"part1_count"`
	Part2Count        int         `json:"part2_count"`
	TotalPoints       float64     `json:"total_points"`
	EstimatedDuration int         `json:"estimated_duration"`
	Warnings          []string    `json:"warnings"`
}
