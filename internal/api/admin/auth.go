package admin

import (
	"errors"
	"net/http"

	"exam-portal/internal/api"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理端登录，管理员和教师可用
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	token, user, err := service.Auth.StaffLogin(req.Username, req.Password, service.LoginContext{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 401,
			"msg":  "用户名或密码错误",
		})
		return
	case errors.Is(err, service.ErrNotStaff):
		c.JSON(http.StatusForbidden, gin.H{
			"code": 403,
			"msg":  "无管理端权限",
		})
		return
	case err != nil:
		api.Fail(c, err)
		return
	}

	api.Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// GetLoginLogs 获取管理端登录日志
func GetLoginLogs(c *gin.Context) {
	var query service.LoginLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequest(c, "")
		return
	}

	logs, total, err := service.Auth.LoginLogs(query)
	if err != nil {
		api.Fail(c, err)
		return
	}

	items := make([]gin.H, 0, len(logs))
	for _, log := range logs {
		items = append(items, gin.H{
			"id":          log.ID,
			"username":    log.Username,
			"user_id":     log.UserID,
			"role":        log.Role,
			"ip":          log.IP,
			"user_agent":  log.UserAgent,
			"is_success":  log.IsSuccess,
			"fail_reason": log.FailReason,
			"login_time":  log.LoginTime,
		})
	}

	api.Success(c, gin.H{
		"total": total,
		"items": items,
	})
}
