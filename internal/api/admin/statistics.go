package admin

import (
	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// GetSystemStatistics 系统概况
func GetSystemStatistics(c *gin.Context) {
	info, err := service.Statistics.Overview(c.Request.Context())
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, info)
}

// GetExamStatistics 单场考试成绩统计
func GetExamStatistics(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	stats, err := service.Statistics.ExamStatistics(middleware.CurrentUser(c), examID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, stats)
}
