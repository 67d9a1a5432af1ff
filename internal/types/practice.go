package types

// WrongQuestionQuery 错题列表查询参数
type WrongQuestionQuery struct {
	PageQuery
	ExamID uint `form:"exam_id"`
}
