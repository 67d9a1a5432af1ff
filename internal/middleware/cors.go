package middleware

import (
	"exam-portal/internal/config"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
)

// Cors 跨域中间件，由 gorilla/handlers 处理跨域头，预检请求在此直接返回
func Cors() gin.HandlerFunc {
	origins := []string{"*"}
	if config.GlobalConfig != nil && len(config.GlobalConfig.Cors.AllowedOrigins) > 0 {
		origins = config.GlobalConfig.Cors.AllowedOrigins
	}

	options := []handlers.CORSOption{
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", HeaderRequestID}),
		handlers.ExposedHeaders([]string{HeaderRequestID, "Content-Disposition"}),
		handlers.MaxAge(600),
	}
	if !(len(origins) == 1 && origins[0] == "*") {
		options = append(options, handlers.AllowCredentials())
	}
	wrap := handlers.CORS(options...)

	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
		})

		wrap(next).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}
