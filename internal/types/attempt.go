package types

type StartAttemptRequest struct {
	BrowserInfo string `json:"browser_info"`
}

// SubmitAnswerRequest 单题作答，多选题答案形如 "AC" 或 "A,C"
type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
	TimeSpent  int    `json:"time_spent"`
}

type SubmitAttemptRequest struct {
	Answers   []SubmitAnswerRequest `json:"answers"`
	TimeSpent int                   `json:"time_spent"`
}

type ExamResult struct {
	AttemptID    uint     `json:"attempt_id"`
	Status       string   `json:"status"`
	Score        *float64 `json:"score,omitempty"`
	MaxScore     float64  `json:"max_score"`
	Percentage   *float64 `json:"percentage,omitempty"`
	Passed       *bool    `json:"passed,omitempty"`
	CorrectCount int      `json:"correct_count"`
	WrongCount   int      `json:"wrong_count"`
	PendingCount int      `json:"pending_count"`
}

// GradeAnswerRequest 人工评分
type GradeAnswerRequest struct {
	PointsAwarded *float64 `json:"points_awarded" binding:"required"`
	Comments      string   `json:"comments"`
}

// AutoAssignRequest 批量给分
type AutoAssignRequest struct {
	Points       float64 `json:"points"`
	OnlyUnmarked bool    `json:"only_unmarked"`
}

// AttemptQuery 答卷列表筛选
type AttemptQuery struct {
	PageQuery
	Status string `form:"status"`
}
