package middleware

import (
	"exam-portal/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRoles 角色校验中间件，需在 JWT 之后使用
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "未登录",
			})
			return
		}

		if !allowed[user.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": 403,
				"msg":  "无访问权限",
			})
			return
		}

		c.Next()
	}
}

// StaffAuth 管理端（管理员、教师）
func StaffAuth() gin.HandlerFunc {
	return RequireRoles(model.RoleAdmin, model.RoleTeacher)
}

// AdminAuth 仅管理员
func AdminAuth() gin.HandlerFunc {
	return RequireRoles(model.RoleAdmin)
}
