package api

import (
	"net/http"

	"exam-portal/internal/pkg/database"

	"github.com/gin-gonic/gin"
)

// SimpleHealthCheck 健康检查，同时检查数据库连接
// 用于 Docker 健康检查和负载均衡器
func SimpleHealthCheck(c *gin.Context) {
	status := gin.H{"status": "ok", "database": "ok"}

	if database.DB == nil {
		status["database"] = "not initialized"
	} else if sqlDB, err := database.DB.DB(); err != nil {
		status["database"] = err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		status["database"] = err.Error()
	}

	if status["database"] != "ok" {
		status["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
