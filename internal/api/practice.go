package api

import (
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

// GetWrongQuestionsStats 获取错题统计信息
func GetWrongQuestionsStats(c *gin.Context) {
	stats, total, err := service.Practice.GetWrongQuestionsStats(middleware.CurrentUser(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"exams": stats,
		"total": total,
	})
}

// GetWrongQuestions 获取错题列表，exam_id 可选
func GetWrongQuestions(c *gin.Context) {
	var query types.WrongQuestionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, "")
		return
	}

	questions, total, err := service.Practice.GetWrongQuestions(middleware.CurrentUser(c), query)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"questions": questions,
		"total":     total,
	})
}
