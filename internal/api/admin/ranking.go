package admin

import (
	"bytes"
	"fmt"
	"net/http"

	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

// GetRankingsOverview 各科目排名总览
func GetRankingsOverview(c *gin.Context) {
	var query types.RankingOverviewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequest(c, "")
		return
	}

	rankings, err := service.Ranking.Overview(middleware.CurrentUser(c), query)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, rankings)
}

// RecalculateRankings 重新计算考试排名
func RecalculateRankings(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	count, err := service.Ranking.Calculate(middleware.CurrentUser(c), examID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, gin.H{
		"exam_id": examID,
		"ranked":  count,
	})
}

// ExportRankings 导出排名 CSV
func ExportRankings(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var query types.RankingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequest(c, "")
		return
	}

	var buf bytes.Buffer
	if err := service.Ranking.ExportCSV(middleware.CurrentUser(c), examID, query, &buf); err != nil {
		api.Fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=exam_%d_rankings.csv", examID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
