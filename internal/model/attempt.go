package model

import "time"

// 答题记录状态
const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptGraded     = "graded"
)

// 学生类型
const (
	StudentInternal = "INTERNAL"
	StudentExternal = "EXTERNAL"
)

type ExamAttempt struct {
	ID            uint         `json:"id" gorm:"primarykey"`
	ExamID        uint         `json:"exam_id" gorm:"index"`
	Exam          *Exam        `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	StudentID     uint         `json:"student_id" gorm:"index"`
	Student       *User        `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	AttemptNumber int          `json:"attempt_number"`
	Status        string       `json:"status" gorm:"size:16;index"`
	StartedAt     time.Time    `json:"started_at"`
	SubmittedAt   *time.Time   `json:"submitted_at"`
	TimeSpent     int          `json:"time_spent"` // 秒
	TotalScore    float64      `json:"total_score"`
	MaxScore      float64      `json:"max_score"`
	Percentage    float64      `json:"percentage"`
	Passed        bool         `json:"passed"`
	BrowserInfo   string       `json:"browser_info" gorm:"size:255"`
	Answers       []ExamAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type ExamAnswer struct {
	ID            uint          `json:"id" gorm:"primarykey"`
	AttemptID     uint          `json:"attempt_id" gorm:"index"`
	QuestionID    uint          `json:"question_id" gorm:"index"`
	Question      *ExamQuestion `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	Answer        string        `json:"answer" gorm:"type:text"`
	IsCorrect     *bool         `json:"is_correct"`
	PointsAwarded *float64      `json:"points_awarded"` // 为空表示未批改
	TimeSpent     int           `json:"time_spent"`
	Comments      string        `json:"comments" gorm:"type:text"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Marked 是否已评分
func (a *ExamAnswer) Marked() bool {
	return a.PointsAwarded != nil
}

// ExamRanking 考试排名，每次计算时整体重建
type ExamRanking struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	ExamID        uint      `json:"exam_id" gorm:"uniqueIndex:idx_exam_student"`
	StudentID     uint      `json:"student_id" gorm:"uniqueIndex:idx_exam_student"`
	Student       *User     `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	StudentName   string    `json:"student_name" gorm:"-"`
	AttemptID     uint      `json:"attempt_id"`
	Score         float64   `json:"score"`
	Percentage    float64   `json:"percentage"`
	StudentType   string    `json:"student_type" gorm:"size:16"`
	District      string    `json:"district" gorm:"size:64;index"`
	IslandRank    int       `json:"island_rank"`
	TotalIsland   int       `json:"total_island"`
	DistrictRank  *int      `json:"district_rank"`
	TotalDistrict *int      `json:"total_district"`
	CalculatedAt  time.Time `json:"calculated_at"`
}
