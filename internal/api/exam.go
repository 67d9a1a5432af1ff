package api

import (
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

// GetAvailableExams 学生可参加的考试
func GetAvailableExams(c *gin.Context) {
	exams, err := service.Attempt.Available(middleware.CurrentUser(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, exams)
}

// StartExam 开始考试，已有未交卷的答卷时继续作答
func StartExam(c *gin.Context) {
	examID, ok := ParamID(c, "id")
	if !ok {
		return
	}

	var req types.StartAttemptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "")
			return
		}
	}
	if req.BrowserInfo == "" {
		req.BrowserInfo = c.Request.UserAgent()
	}

	started, err := service.Attempt.Start(middleware.CurrentUser(c), examID, req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, started)
}

// SubmitAttempt 交卷
func SubmitAttempt(c *gin.Context) {
	attemptID, ok := ParamID(c, "attemptId")
	if !ok {
		return
	}

	var req types.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "")
		return
	}

	result, err := service.Attempt.Submit(middleware.CurrentUser(c), attemptID, req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// GetExamResults 我的考试成绩
func GetExamResults(c *gin.Context) {
	results, err := service.Attempt.MyResults(middleware.CurrentUser(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, results)
}

// GetExamRankings 考试排名，管理端和学生端共用
func GetExamRankings(c *gin.Context) {
	examID, ok := ParamID(c, "id")
	if !ok {
		return
	}

	var query types.RankingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, "")
		return
	}

	rankings, err := service.Ranking.ExamRankings(middleware.CurrentUser(c), examID, query)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, rankings)
}
