package api

import (
	"errors"
	"net/http"

	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname" binding:"required"`
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "")
		return
	}

	token, user, err := service.Auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrWrongPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "用户名或密码错误",
			})
			return
		}
		Fail(c, err)
		return
	}

	Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "")
		return
	}

	user, err := service.Auth.Register(req.Username, req.Password, req.Nickname)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, user)
}
