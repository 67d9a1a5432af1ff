package api

import (
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

func GetUserProfile(c *gin.Context) {
	user, err := service.User.GetProfile(c.GetUint(middleware.ContextUserID))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, user)
}

func UpdateUserProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "")
		return
	}

	userId := c.GetUint(middleware.ContextUserID)
	if err := service.User.UpdateProfile(userId, req); err != nil {
		Fail(c, err)
		return
	}

	user, err := service.User.GetProfile(userId)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, user)
}
