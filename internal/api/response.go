package api

import (
	"errors"
	"net/http"
	"strconv"

	"exam-portal/internal/pkg/logger"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": data,
	})
}

// Message 只带提示的成功响应
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  msg,
	})
}

// BadRequest 参数错误
func BadRequest(c *gin.Context, msg string) {
	if msg == "" {
		msg = "参数错误"
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"code": 400,
		"msg":  msg,
	})
}

// Fail 按业务错误分类返回对应状态码，未分类的错误返回 500
func Fail(c *gin.Context, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf("请求处理失败 %s %s: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
		msg = "服务器内部错误"
	}
	c.JSON(status, gin.H{
		"code": status,
		"msg":  msg,
	})
}

// StatusOf 业务错误对应的 HTTP 状态码
func StatusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ParamID 解析路径中的数字 ID，失败时已写入 400 响应
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "无效的"+name)
		return 0, false
	}
	return uint(id), true
}
