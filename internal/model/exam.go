package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// 考试类型
const (
	ExamTypeFullOnline = "full_online"
	ExamTypeHalfUpload = "half_online_half_upload"
	ExamTypeFullUpload = "full_upload"
)

// 考试状态
const (
	ExamStatusDraft     = "draft"
	ExamStatusApproved  = "approved"
	ExamStatusPublished = "published"
	ExamStatusActive    = "active"
	ExamStatusCompleted = "completed"
	ExamStatusCancelled = "cancelled"
)

// 审核状态
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// 题目类型
const (
	QuestionMCQ         = "mcq"
	QuestionMultiple    = "multiple"
	QuestionTrueFalse   = "true_false"
	QuestionFillInBlank = "fill_in_blank"
	QuestionEssay       = "essay"
	QuestionUpload      = "upload"
)

// StringArray 以 JSON 形式存储的字符串数组
type StringArray []string

// 实现 Scanner 接口
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSON value")
	}
	if len(bytes) == 0 {
		*a = nil
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// 实现 Valuer 接口
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type Exam struct {
	ID                       uint           `json:"id" gorm:"primarykey"`
	Title                    string         `json:"title" gorm:"size:255"`
	Description              string         `json:"description" gorm:"type:text"`
	Type                     string         `json:"type" gorm:"size:32"`
	Subject                  string         `json:"subject" gorm:"size:64;index"`
	Grade                    string         `json:"grade" gorm:"size:32"`
	Medium                   string         `json:"medium" gorm:"size:32"`
	Status                   string         `json:"status" gorm:"size:16;index"`
	ApprovalStatus           string         `json:"approval_status" gorm:"size:16;index"`
	Duration                 int            `json:"duration"` // 考试时长(分钟)
	TotalMarks               float64        `json:"total_marks"`
	PassingMarks             float64        `json:"passing_marks"`
	AttemptsAllowed          int            `json:"attempts_allowed"`
	StartTime                time.Time      `json:"start_time"`
	EndTime                  time.Time      `json:"end_time"`
	WindowStart              *time.Time     `json:"window_start"` // 可选的答题窗口
	WindowEnd                *time.Time     `json:"window_end"`
	Instructions             string         `json:"instructions" gorm:"type:text"`
	EnableRanking            bool           `json:"enable_ranking"`
	RankingsVisible          bool           `json:"rankings_visible"`
	ShowResults              bool           `json:"show_results"`
	RandomizeQuestions       bool           `json:"randomize_questions"`
	UseHierarchicalStructure bool           `json:"use_hierarchical_structure"`
	CreatedByID              uint           `json:"created_by_id" gorm:"index"`
	Creator                  *User          `json:"creator,omitempty" gorm:"foreignKey:CreatedByID"`
	ApprovedByID             *uint          `json:"approved_by_id"`
	ApprovedAt               *time.Time     `json:"approved_at"`
	ApprovalNote             string         `json:"approval_note" gorm:"type:text"`
	RejectionReason          string         `json:"rejection_reason" gorm:"type:text"`
	ClosedReason             string         `json:"closed_reason" gorm:"size:255"`
	Sections                 []ExamSection  `json:"sections,omitempty" gorm:"foreignKey:ExamID"`
	Questions                []ExamQuestion `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
	DeletedAt                gorm.DeletedAt `json:"-" gorm:"index"`
}

// HasWindow 是否设置了答题窗口
func (e *Exam) HasWindow() bool {
	return e.WindowStart != nil && e.WindowEnd != nil
}

// OpenAt 判断某一时刻是否允许开始答题
func (e *Exam) OpenAt(now time.Time) bool {
	start, end := e.StartTime, e.EndTime
	if e.HasWindow() {
		start, end = *e.WindowStart, *e.WindowEnd
	}
	return !now.Before(start) && !now.After(end)
}

// Editable 考试结构（大题、题目）是否还能修改
func (e *Exam) Editable() bool {
	return e.Status == ExamStatusDraft || e.Status == ExamStatusApproved
}

// ExamSection 大题
type ExamSection struct {
	ID                  uint            `json:"id" gorm:"primarykey"`
	ExamID              uint            `json:"exam_id" gorm:"index"`
	Title               string          `json:"title" gorm:"size:255"`
	Description         string          `json:"description" gorm:"type:text"`
	Position            int             `json:"position"`
	ExamPart            int             `json:"exam_part"` // 1: 在线部分, 2: 上传部分
	DefaultQuestionType string          `json:"default_question_type" gorm:"size:32"`
	Groups              []QuestionGroup `json:"groups,omitempty" gorm:"foreignKey:SectionID"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// QuestionGroup 大题下的题组
type QuestionGroup struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	SectionID   uint      `json:"section_id" gorm:"index"`
	Title       string    `json:"title" gorm:"size:255"`
	Instruction string    `json:"instruction" gorm:"type:text"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ExamQuestion struct {
	ID             uint           `json:"id" gorm:"primarykey"`
	ExamID         uint           `json:"exam_id" gorm:"index"`
	SectionID      *uint          `json:"section_id" gorm:"index"`
	GroupID        *uint          `json:"group_id" gorm:"index"`
	Type           string         `json:"type" gorm:"size:32"`
	Question       string         `json:"question" gorm:"type:text"`
	Options        StringArray    `json:"options" gorm:"type:text"`
	CorrectAnswer  string         `json:"correct_answer" gorm:"size:255"`
	Points         float64        `json:"points"`
	Position       int            `json:"position"`
	ExamPart       int            `json:"exam_part"`
	Explanation    string         `json:"explanation" gorm:"type:text"`
	ImageURL       string         `json:"image_url" gorm:"size:512"`
	AnswerImageURL string         `json:"answer_image_url" gorm:"size:512"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// AutoGradable 是否可以自动判分
func (q *ExamQuestion) AutoGradable() bool {
	switch q.Type {
	case QuestionMCQ, QuestionMultiple, QuestionTrueFalse, QuestionFillInBlank:
		return true
	}
	return false
}

// ValidQuestionType 校验题目类型
func ValidQuestionType(t string) bool {
	switch t {
	case QuestionMCQ, QuestionMultiple, QuestionTrueFalse, QuestionFillInBlank, QuestionEssay, QuestionUpload:
		return true
	}
	return false
}

// ValidExamType 校验考试类型
func ValidExamType(t string) bool {
	switch t {
	case ExamTypeFullOnline, ExamTypeHalfUpload, ExamTypeFullUpload:
		return true
	}
	return false
}
