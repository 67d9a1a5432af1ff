package admin

import (
	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminProfile 获取当前管理端用户个人信息
func GetAdminProfile(c *gin.Context) {
	user, err := service.User.GetProfile(c.GetUint(middleware.ContextUserID))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, user)
}

// UpdateAdminProfile 更新当前管理端用户个人信息
func UpdateAdminProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	if req.Nickname == "" && req.Avatar == "" && req.Email == "" && req.Password == "" {
		api.BadRequest(c, "没有需要更新的内容")
		return
	}

	userID := c.GetUint(middleware.ContextUserID)
	if err := service.User.UpdateProfile(userID, req); err != nil {
		api.Fail(c, err)
		return
	}

	user, err := service.User.GetProfile(userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, user)
}
