package router

import (
	"exam-portal/internal/api"
	"exam-portal/internal/api/admin"
	"exam-portal/internal/config"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

const adminPrefix = "/api/v1/admin"

// New 创建带全局中间件的路由
func New() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Cors())

	SetupRoutes(r)
	return r
}

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine) {
	// 健康检查接口
	r.GET("/api/v1/health", api.SimpleHealthCheck)

	// 上传的题目图片
	uploadDir, urlPrefix := "uploads", "/uploads"
	if cfg := config.GlobalConfig; cfg != nil {
		if cfg.Upload.Dir != "" {
			uploadDir = cfg.Upload.Dir
		}
		if cfg.Upload.URLPrefix != "" {
			urlPrefix = cfg.Upload.URLPrefix
		}
	}
	r.Static(urlPrefix, uploadDir)

	// 用户API路由
	setupAPIRoutes(r)

	// 管理端API路由
	setupAdminAPIRoutes(r)
}

// setupAPIRoutes 设置学生端API路由
func setupAPIRoutes(r *gin.Engine) {
	apiGroup := r.Group("/api/v1")

	// 认证相关
	auth := apiGroup.Group("/auth")
	{
		auth.POST("/login", api.Login)
		auth.POST("/register", api.Register)
	}

	// 需要认证的路由
	authorized := apiGroup.Group("/")
	authorized.Use(middleware.JWT())
	{
		// 用户相关
		user := authorized.Group("/user")
		{
			user.GET("/profile", api.GetUserProfile)
			user.PUT("/profile", api.UpdateUserProfile)
		}

		// 考试相关
		exam := authorized.Group("/exams")
		{
			exam.GET("/available", api.GetAvailableExams)
			exam.GET("/results", api.GetExamResults)
			exam.POST("/:id/start", api.StartExam)
			exam.GET("/:id/rankings", api.GetExamRankings)
		}

		authorized.POST("/attempts/:attemptId/submit", api.SubmitAttempt)

		// 错题回顾
		practice := authorized.Group("/practice")
		{
			practice.GET("/wrong-questions", api.GetWrongQuestions)
			practice.GET("/wrong-questions/stats", api.GetWrongQuestionsStats)
		}
	}
}

// setupAdminAPIRoutes 设置管理端API路由
func setupAdminAPIRoutes(r *gin.Engine) {
	adminGroup := r.Group(adminPrefix)

	// 管理端登录
	adminGroup.POST("/login", admin.Login)

	// 需要管理员或教师权限的路由，写操作记录审计日志
	authorized := adminGroup.Group("/")
	authorized.Use(middleware.JWT())
	authorized.Use(middleware.StaffAuth())
	authorized.Use(middleware.Audit(adminPrefix, service.AuditLog.Record))
	{
		// 系统管理
		system := authorized.Group("/system")
		{
			system.GET("/login-logs", middleware.AdminAuth(), admin.GetLoginLogs) // 获取登录日志
			system.GET("/statistics", admin.GetSystemStatistics)                  // 系统概况

			// 个人信息
			system.GET("/profile", admin.GetAdminProfile)
			system.PUT("/profile", admin.UpdateAdminProfile)
		}

		// 用户管理
		users := authorized.Group("/users", middleware.AdminAuth())
		{
			users.GET("", admin.GetUsers)          // 获取用户列表
			users.GET("/:id", admin.GetUser)       // 获取单个用户
			users.POST("", admin.CreateUser)       // 创建用户
			users.PUT("/:id", admin.UpdateUser)    // 更新用户
			users.DELETE("/:id", admin.DeleteUser) // 删除用户
		}

		// 审计日志
		audit := authorized.Group("/audit-logs", middleware.AdminAuth())
		{
			audit.GET("", admin.GetAuditLogs)
			audit.GET("/recent", admin.GetRecentActivity)
			audit.GET("/stats", admin.GetActivityStats)
			audit.GET("/user/:userId", admin.GetUserAuditLogs)
			audit.GET("/resource/:resource/:resourceId", admin.GetResourceAuditLogs)
			audit.GET("/:id", admin.GetAuditLog)
		}

		// 考试管理
		exams := authorized.Group("/exams")
		{
			exams.GET("", admin.GetExams)
			exams.POST("", admin.CreateExam)
			exams.GET("/live", admin.GetLiveExams)
			exams.GET("/:id", admin.GetExam)
			exams.PUT("/:id", admin.UpdateExam)
			exams.DELETE("/:id", admin.DeleteExam)
			exams.PATCH("/:id/publish", admin.PublishExam)
			exams.GET("/:id/preview", admin.PreviewExam)
			exams.GET("/:id/statistics", admin.GetExamStatistics)
			exams.POST("/:id/duplicate", middleware.AdminAuth(), admin.DuplicateExam)
			exams.PATCH("/:id/force-close", middleware.AdminAuth(), admin.ForceCloseExam)
			exams.PATCH("/:id/rankings/visibility", middleware.AdminAuth(), admin.SetRankingVisibility)
			exams.POST("/:id/publish-results", admin.PublishResults)

			// 审核
			exams.PATCH("/:id/approve", middleware.AdminAuth(), admin.ApproveExam)
			exams.PATCH("/:id/reject", middleware.AdminAuth(), admin.RejectExam)

			// 大题和题组
			exams.POST("/:id/sections/bulk", admin.BulkCreateSections)
			exams.GET("/:id/sections", admin.GetSections)
			exams.PUT("/:id/sections/:sectionId", admin.UpdateSection)
			exams.DELETE("/:id/sections/:sectionId", admin.DeleteSection)
			exams.POST("/:id/sections/:sectionId/groups/bulk", admin.BulkCreateGroups)

			// 题目
			exams.GET("/:id/questions", admin.GetQuestions)
			exams.GET("/:id/questions/by-part", admin.GetQuestionsByPart)
			exams.POST("/:id/questions", admin.CreateQuestion)
			exams.POST("/:id/questions/bulk", admin.BulkCreateQuestions)
			exams.PUT("/:id/questions/reorder", admin.ReorderQuestions)
			exams.GET("/:id/questions/export", admin.ExportQuestions)
			exams.POST("/:id/questions/import", admin.ImportQuestions)

			// 阅卷
			exams.GET("/:id/attempts", admin.GetExamAttempts)
			exams.GET("/:id/questions/:questionId/answers", admin.GetQuestionAnswers)
			exams.POST("/:id/questions/:questionId/auto-assign", admin.AutoAssignMarks)

			// 排名
			exams.GET("/:id/rankings", api.GetExamRankings)
			exams.POST("/:id/rankings/recalculate", admin.RecalculateRankings)
			exams.GET("/:id/rankings/export", admin.ExportRankings)
		}

		questions := authorized.Group("/questions")
		{
			questions.PUT("/:questionId", admin.UpdateQuestion)
			questions.DELETE("/:questionId", admin.DeleteQuestion)
		}

		authorized.GET("/attempts/:attemptId", admin.GetAttempt)
		authorized.PATCH("/answers/:answerId/grade", admin.GradeAnswer)
		authorized.GET("/approvals/pending", middleware.AdminAuth(), admin.GetPendingApprovals)
		authorized.GET("/rankings", admin.GetRankingsOverview)

		// 组卷草稿
		drafts := authorized.Group("/drafts")
		{
			drafts.GET("", admin.GetDrafts)
			drafts.POST("/new-key", admin.NewDraftKey)
			drafts.GET("/:key", admin.GetDraft)
			drafts.PUT("/:key", admin.SaveDraft)
			drafts.DELETE("/:key", admin.DeleteDraft)
		}

		authorized.POST("/builder/submit", admin.SubmitBuilder)
		authorized.POST("/uploads/images", admin.UploadImage)
	}
}
