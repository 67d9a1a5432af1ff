package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exam-portal/internal/config"
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	prevDB, prevCfg := database.DB, config.GlobalConfig
	database.DB = db

	cfg := &config.Config{}
	cfg.JWT.Secret = "router-secret"
	cfg.JWT.ExpireTime = 3600
	cfg.Upload.Dir = t.TempDir()
	cfg.Upload.URLPrefix = "/uploads"
	cfg.Upload.MaxSize = 1
	cfg.Upload.AllowedExts = []string{".png"}
	cfg.Admin.DefaultPassword = "admin-pass"
	config.GlobalConfig = cfg

	t.Cleanup(func() {
		database.DB, config.GlobalConfig = prevDB, prevCfg
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	require.NoError(t, service.Auth.EnsureDefaultAdmin())
	return New()
}

func (c *client) do(method, path string, body interface{}) (int, envelope) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (c *client) login(path, username, password string) {
	c.t.Helper()
	status, env := c.do(http.MethodPost, path, gin.H{"username": username, "password": password})
	require.Equal(c.t, http.StatusOK, status, env.Msg)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &data))
	c.token = data.Token
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}

func TestExamLifecycleOverHTTP(t *testing.T) {
	r := setup(t)
	adminClient := &client{t: t, engine: r}
	adminClient.login("/api/v1/admin/login", "admin", "admin-pass")

	status, env := adminClient.do(http.MethodPost, "/api/v1/admin/users", gin.H{
		"username": "teacher", "password": "teacher-pass", "role": model.RoleTeacher,
	})
	require.Equal(t, http.StatusOK, status, env.Msg)

	teacher := &client{t: t, engine: r}
	teacher.login("/api/v1/admin/login", "teacher", "teacher-pass")

	now := time.Now()
	status, env = teacher.do(http.MethodPost, "/api/v1/admin/exams", gin.H{
		"title":         "Science Unit Test",
		"subject":       "Science",
		"duration":      30,
		"total_marks":   4,
		"passing_marks": 2,
		"start_time":    now.Add(-time.Hour),
		"end_time":      now.Add(time.Hour),
		"show_results":  true,
	})
	require.Equal(t, http.StatusOK, status, env.Msg)
	var exam model.Exam
	decode(t, env, &exam)
	assert.Equal(t, model.ApprovalPending, exam.ApprovalStatus)

	examPath := fmt.Sprintf("/api/v1/admin/exams/%d", exam.ID)
	status, env = teacher.do(http.MethodPost, examPath+"/questions/bulk", gin.H{
		"questions": []gin.H{
			{"type": model.QuestionMCQ, "question": "H2O is", "options": []string{"Water", "Salt"}, "correct_answer": "A", "points": 2},
			{"type": model.QuestionTrueFalse, "question": "Sun is a star", "correct_answer": "true", "points": 2},
		},
	})
	require.Equal(t, http.StatusOK, status, env.Msg)
	var questions []model.ExamQuestion
	decode(t, env, &questions)
	require.Len(t, questions, 2)

	status, _ = teacher.do(http.MethodPatch, examPath+"/publish", nil)
	assert.Equal(t, http.StatusBadRequest, status, "not approved yet")

	status, _ = teacher.do(http.MethodPatch, examPath+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, status, "teachers cannot approve")

	status, env = adminClient.do(http.MethodGet, "/api/v1/admin/approvals/pending", nil)
	require.Equal(t, http.StatusOK, status)
	var pending service.PendingApprovals
	decode(t, env, &pending)
	assert.EqualValues(t, 1, pending.Pagination.Total)

	status, env = adminClient.do(http.MethodPatch, examPath+"/approve", gin.H{"notes": "looks good"})
	require.Equal(t, http.StatusOK, status, env.Msg)

	status, env = teacher.do(http.MethodPatch, examPath+"/publish", nil)
	require.Equal(t, http.StatusOK, status, env.Msg)

	status, env = teacher.do(http.MethodGet, "/api/v1/admin/exams/live", nil)
	require.Equal(t, http.StatusOK, status, env.Msg)
	var live []service.LiveExam
	decode(t, env, &live)
	require.Len(t, live, 1)
	assert.Equal(t, exam.ID, live[0].ID)

	student := &client{t: t, engine: r}
	status, env = student.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "student", "password": "student-pass", "nickname": "Nimal",
	})
	require.Equal(t, http.StatusOK, status, env.Msg)
	student.login("/api/v1/auth/login", "student", "student-pass")

	status, _ = student.do(http.MethodGet, "/api/v1/admin/exams", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = student.do(http.MethodGet, "/api/v1/exams/available", nil)
	require.Equal(t, http.StatusOK, status)
	var available []service.AvailableExam
	decode(t, env, &available)
	require.Len(t, available, 1)
	assert.True(t, available[0].CanStart)

	status, env = student.do(http.MethodPost, fmt.Sprintf("/api/v1/exams/%d/start", exam.ID), nil)
	require.Equal(t, http.StatusOK, status, env.Msg)
	var started struct {
		Attempt   model.ExamAttempt `json:"attempt"`
		Questions []json.RawMessage `json:"questions"`
	}
	decode(t, env, &started)
	assert.Len(t, started.Questions, 2)
	assert.NotContains(t, string(env.Data), "correct_answer")

	status, env = student.do(http.MethodPost, fmt.Sprintf("/api/v1/attempts/%d/submit", started.Attempt.ID), gin.H{
		"answers": []gin.H{
			{"question_id": questions[0].ID, "answer": "A"},
			{"question_id": questions[1].ID, "answer": "false"},
		},
	})
	require.Equal(t, http.StatusOK, status, env.Msg)
	var result struct {
		Status string  `json:"status"`
		Score  float64 `json:"score"`
	}
	decode(t, env, &result)
	assert.Equal(t, model.AttemptGraded, result.Status)
	assert.Equal(t, 2.0, result.Score)

	status, env = student.do(http.MethodGet, "/api/v1/exams/results", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Science Unit Test")

	status, env = student.do(http.MethodGet, "/api/v1/practice/wrong-questions", nil)
	require.Equal(t, http.StatusOK, status, env.Msg)
	var wrong struct {
		Questions []service.WrongQuestionDetail `json:"questions"`
		Total     int64                         `json:"total"`
	}
	decode(t, env, &wrong)
	assert.EqualValues(t, 1, wrong.Total)
	require.Len(t, wrong.Questions, 1)
	assert.Equal(t, questions[1].ID, wrong.Questions[0].QuestionID)
	assert.Equal(t, "false", wrong.Questions[0].YourAnswer)

	// 写操作已记录审计日志
	status, env = adminClient.do(http.MethodGet, "/api/v1/admin/audit-logs?resource=exams", nil)
	require.Equal(t, http.StatusOK, status, env.Msg)
	var logs struct {
		Logs []struct {
			Action string `json:"action"`
		} `json:"logs"`
	}
	decode(t, env, &logs)
	var actions []string
	for _, l := range logs.Logs {
		actions = append(actions, l.Action)
	}
	assert.ElementsMatch(t, []string{model.AuditCreate, model.AuditCreate, model.AuditApprove, model.AuditPublish}, actions)
}

func TestDraftConflictOverHTTP(t *testing.T) {
	r := setup(t)
	admin := &client{t: t, engine: r}
	admin.login("/api/v1/admin/login", "admin", "admin-pass")

	status, env := admin.do(http.MethodPost, "/api/v1/admin/drafts/new-key", nil)
	require.Equal(t, http.StatusOK, status)
	var key struct {
		Key string `json:"key"`
	}
	decode(t, env, &key)

	path := "/api/v1/admin/drafts/" + key.Key
	status, _ = admin.do(http.MethodPut, path, gin.H{"version": 0, "payload": gin.H{"title": "Draft"}})
	require.Equal(t, http.StatusOK, status)

	status, env = admin.do(http.MethodPut, path, gin.H{"version": 0, "payload": gin.H{"title": "Stale"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, http.StatusConflict, env.Code)

	status, _ = admin.do(http.MethodGet, "/api/v1/admin/drafts/exam_draft_bad", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = admin.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = admin.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthFailures(t *testing.T) {
	r := setup(t)
	anon := &client{t: t, engine: r}

	status, _ := anon.do(http.MethodPost, "/api/v1/admin/login", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = anon.do(http.MethodGet, "/api/v1/admin/exams", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = anon.do(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = anon.do(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := anon.do(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "admin", "password": "secret1", "nickname": "Dup"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "用户名已存在", env.Msg)
}
