package admin

import (
	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

// GetExamAttempts 考试的答卷列表
func GetExamAttempts(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var query types.AttemptQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequest(c, "")
		return
	}

	attempts, total, err := service.Attempt.ListAttempts(middleware.CurrentUser(c), examID, query)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, gin.H{
		"total": total,
		"items": attempts,
	})
}

// GetAttempt 答卷详情
func GetAttempt(c *gin.Context) {
	attemptID, ok := api.ParamID(c, "attemptId")
	if !ok {
		return
	}

	attempt, err := service.Attempt.GetAttempt(middleware.CurrentUser(c), attemptID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, attempt)
}

// GetQuestionAnswers 某道题的全部作答，按题批改
func GetQuestionAnswers(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}
	questionID, ok := api.ParamID(c, "questionId")
	if !ok {
		return
	}

	answers, err := service.Marking.QuestionAnswers(middleware.CurrentUser(c), examID, questionID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, answers)
}

// GradeAnswer 人工评分
func GradeAnswer(c *gin.Context) {
	answerID, ok := api.ParamID(c, "answerId")
	if !ok {
		return
	}

	var req types.GradeAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "请填写得分")
		return
	}

	answer, err := service.Marking.GradeAnswer(middleware.CurrentUser(c), answerID, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, answer)
}

// AutoAssignMarks 给某道题的作答统一给分
func AutoAssignMarks(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}
	questionID, ok := api.ParamID(c, "questionId")
	if !ok {
		return
	}

	var req types.AutoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	updated, err := service.Marking.AutoAssign(middleware.CurrentUser(c), examID, questionID, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, gin.H{"updated": updated})
}
