package admin

import (
	"strconv"
	"time"

	"exam-portal/internal/api"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

type auditLogParams struct {
	UserID    uint   `form:"user_id"`
	Action    string `form:"action"`
	Resource  string `form:"resource"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

// parseDate 支持 RFC3339 和 2006-01-02
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}

// GetAuditLogs 审计日志列表
func GetAuditLogs(c *gin.Context) {
	var params auditLogParams
	if err := c.ShouldBindQuery(&params); err != nil {
		api.BadRequest(c, "")
		return
	}

	query := types.AuditLogQuery{
		Action:   params.Action,
		Resource: params.Resource,
		Page:     params.Page,
		Limit:    params.Limit,
	}
	if params.UserID > 0 {
		query.UserID = &params.UserID
	}

	var err error
	if query.StartDate, err = parseDate(params.StartDate, false); err != nil {
		api.BadRequest(c, "开始日期格式错误")
		return
	}
	if query.EndDate, err = parseDate(params.EndDate, true); err != nil {
		api.BadRequest(c, "结束日期格式错误")
		return
	}

	list, err := service.AuditLog.FindAll(c.Request.Context(), query)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, list)
}

// GetRecentActivity 最近活动
func GetRecentActivity(c *gin.Context) {
	activities, err := service.AuditLog.RecentActivity(c.Request.Context(), queryLimit(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, activities)
}

// GetActivityStats 操作统计
func GetActivityStats(c *gin.Context) {
	start, err := parseDate(c.Query("start_date"), false)
	if err != nil {
		api.BadRequest(c, "开始日期格式错误")
		return
	}
	end, err := parseDate(c.Query("end_date"), true)
	if err != nil {
		api.BadRequest(c, "结束日期格式错误")
		return
	}

	stats, err := service.AuditLog.ActivityStats(c.Request.Context(), start, end)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, stats)
}

// GetUserAuditLogs 某个用户的操作记录
func GetUserAuditLogs(c *gin.Context) {
	userID, ok := api.ParamID(c, "userId")
	if !ok {
		return
	}

	logs, err := service.AuditLog.FindByUser(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, logs)
}

// GetResourceAuditLogs 某个资源的操作历史
func GetResourceAuditLogs(c *gin.Context) {
	logs, err := service.AuditLog.FindByResource(c.Request.Context(), c.Param("resource"), c.Param("resourceId"), queryLimit(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, logs)
}

// GetAuditLog 单条审计日志
func GetAuditLog(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	log, err := service.AuditLog.FindOne(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, log)
}
