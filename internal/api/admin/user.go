package admin

import (
	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// GetUsers 获取用户列表
func GetUsers(c *gin.Context) {
	var query service.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequest(c, "")
		return
	}

	users, total, err := service.User.List(query)
	if err != nil {
		api.Fail(c, err)
		return
	}

	api.Success(c, gin.H{
		"total": total,
		"items": users,
	})
}

// GetUser 获取单个用户
func GetUser(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	user, err := service.User.Get(id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, user)
}

// CreateUser 创建用户
func CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	user, err := service.User.Create(req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, user)
}

// UpdateUser 更新用户
func UpdateUser(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	if err := service.User.Update(id, req); err != nil {
		api.Fail(c, err)
		return
	}

	user, err := service.User.Get(id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, user)
}

// DeleteUser 删除用户
func DeleteUser(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	if err := service.User.Delete(middleware.CurrentUser(c), id); err != nil {
		api.Fail(c, err)
		return
	}
	api.Message(c, "删除成功")
}
