package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"exam-portal/internal/config"
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupConfig(t *testing.T) {
	t.Helper()
	prevDB, prevCfg := database.DB, config.GlobalConfig

	db, err := database.OpenMemory()
	require.NoError(t, err)
	database.DB = db

	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-secret"
	cfg.JWT.ExpireTime = 3600
	config.GlobalConfig = cfg

	t.Cleanup(func() {
		database.DB, config.GlobalConfig = prevDB, prevCfg
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
}

// withUser 直接注入当前用户，跳过 JWT
func withUser(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(ContextUser, user)
			c.Set(ContextUserID, user.ID)
			c.Set(ContextRole, user.Role)
		}
		c.Next()
	}
}

func serve(r *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDescribeRoute(t *testing.T) {
	tests := []struct {
		route, method     string
		resource, action string
	}{
		{"/exams", http.MethodPost, "exams", model.AuditCreate},
		{"/exams/:id", http.MethodPut, "exams", model.AuditUpdate},
		{"/exams/:id", http.MethodDelete, "exams", model.AuditDelete},
		{"/exams/:id/approve", http.MethodPatch, "exams", model.AuditApprove},
		{"/exams/:id/reject", http.MethodPatch, "exams", model.AuditReject},
		{"/exams/:id/publish", http.MethodPatch, "exams", model.AuditPublish},
		{"/exams/:id/publish-results", http.MethodPost, "exams", model.AuditPublish},
		{"/questions/:questionId", http.MethodPut, "questions", model.AuditUpdate},
		{"/", http.MethodPost, "unknown", model.AuditCreate},
	}
	for _, tt := range tests {
		resource, action := describeRoute(tt.route, tt.method)
		assert.Equal(t, tt.resource, resource, tt.route)
		assert.Equal(t, tt.action, action, tt.route)
	}
}

func TestAuditRecordsSuccessfulWrites(t *testing.T) {
	var entries []types.CreateAuditLog
	record := func(e types.CreateAuditLog) { entries = append(entries, e) }

	user := &model.User{ID: 9, Role: model.RoleAdmin}
	r := gin.New()
	g := r.Group("/api/v1/admin", RequestID(), withUser(user), Audit("/api/v1/admin", record))
	g.PATCH("/exams/:id/approve", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 200}) })
	g.GET("/exams/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 200}) })
	g.DELETE("/exams/:id", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"code": 404}) })
	g.POST("/drafts/:key", func(c *gin.Context) {
		MarkAudited(c)
		c.JSON(http.StatusOK, gin.H{"code": 200})
	})

	serve(r, http.MethodPatch, "/api/v1/admin/exams/12/approve", http.Header{HeaderRequestID: {"req-1"}})
	serve(r, http.MethodGet, "/api/v1/admin/exams/12", nil)
	serve(r, http.MethodDelete, "/api/v1/admin/exams/12", nil)
	serve(r, http.MethodPost, "/api/v1/admin/drafts/exam_draft_1", nil)

	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, uint(9), *e.UserID)
	assert.Equal(t, model.AuditApprove, e.Action)
	assert.Equal(t, "exams", e.Resource)
	assert.Equal(t, "12", e.ResourceID)
	assert.Equal(t, "/api/v1/admin/exams/12/approve", e.Endpoint)
	assert.Equal(t, http.MethodPatch, e.HTTPMethod)
	meta, ok := e.Metadata.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "req-1", meta["request_id"])
	assert.Equal(t, "/api/v1/admin/exams/:id/approve", meta["route"])
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"student", &model.User{ID: 1, Role: model.RoleStudent}, http.StatusForbidden},
		{"teacher", &model.User{ID: 2, Role: model.RoleTeacher}, http.StatusOK},
		{"admin", &model.User{ID: 3, Role: model.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/staff", withUser(tt.user), StaffAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
			assert.Equal(t, tt.want, serve(r, http.MethodGet, "/staff", nil).Code)
		})
	}

	r := gin.New()
	r.GET("/admin", withUser(&model.User{ID: 2, Role: model.RoleTeacher}), AdminAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", nil).Code)
}

func TestJWT(t *testing.T) {
	setupConfig(t)
	user := &model.User{Username: "teacher", Password: "x", Role: model.RoleTeacher}
	require.NoError(t, database.DB.Create(user).Error)

	token, err := GenerateToken(user)
	require.NoError(t, err)

	var seen *model.User
	r := gin.New()
	r.GET("/me", JWT(), func(c *gin.Context) {
		seen = CurrentUser(c)
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", http.Header{"Authorization": {token}}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer " + token + "x"}}).Code)

	// 用户删除后 token 失效
	require.NoError(t, database.DB.Delete(user).Error)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer " + token}}).Code)
}

func TestCorsAndRequestID(t *testing.T) {
	prev := config.GlobalConfig
	config.GlobalConfig = nil
	t.Cleanup(func() { config.GlobalConfig = prev })

	handled := 0
	r := gin.New()
	r.Use(RequestID(), Cors())
	r.Any("/api/v1/health", func(c *gin.Context) {
		handled++
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodOptions, "/api/v1/health", http.Header{
		"Origin":                        {"http://localhost:5173"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, handled, "preflight answered by middleware")

	w = serve(r, http.MethodGet, "/api/v1/health", http.Header{"Origin": {"http://localhost:5173"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, handled)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = serve(r, http.MethodGet, "/api/v1/health", http.Header{HeaderRequestID: {"trace-42"}})
	assert.Equal(t, "trace-42", w.Header().Get(HeaderRequestID))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodGet, "/panic", nil).Code)
}
