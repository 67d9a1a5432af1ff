package middleware

import (
	"exam-portal/internal/model"
	"exam-portal/internal/types"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextAudited 处理器已自行写入审计日志时设置，避免重复记录
const ContextAudited = "audited"

// AuditRecorder 审计日志写入函数
type AuditRecorder func(entry types.CreateAuditLog)

// MarkAudited 标记当前请求已记录审计
func MarkAudited(c *gin.Context) {
	c.Set(ContextAudited, true)
}

// Audit 记录管理端成功的写操作
func Audit(prefix string, record AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest || c.GetBool(ContextAudited) {
			return
		}

		user := CurrentUser(c)
		if user == nil {
			return
		}

		route := c.FullPath()
		resource, action := describeRoute(strings.TrimPrefix(route, prefix), method)
		userID := user.ID

		record(types.CreateAuditLog{
			UserID:     &userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID(c),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Endpoint:   c.Request.URL.Path,
			HTTPMethod: method,
			Metadata: map[string]interface{}{
				"route":      route,
				"status":     c.Writer.Status(),
				"request_id": c.GetString(ContextRequestID),
			},
		})
	}
}

// describeRoute 从路由模板推导资源名和动作
func describeRoute(route, method string) (string, string) {
	segments := strings.Split(strings.Trim(route, "/"), "/")
	resource := "unknown"
	if len(segments) > 0 && segments[0] != "" {
		resource = segments[0]
	}

	last := segments[len(segments)-1]
	switch last {
	case "approve":
		return resource, model.AuditApprove
	case "reject":
		return resource, model.AuditReject
	case "publish", "publish-results":
		return resource, model.AuditPublish
	}

	switch method {
	case http.MethodPost:
		return resource, model.AuditCreate
	case http.MethodDelete:
		return resource, model.AuditDelete
	default:
		return resource, model.AuditUpdate
	}
}

// resourceID 取最具体的路径参数
func resourceID(c *gin.Context) string {
	id := ""
	for _, p := range c.Params {
		id = p.Value
	}
	return id
}
