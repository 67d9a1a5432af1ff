package service

import (
	"testing"
	"time"

	"exam-portal/internal/config"
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)

	prevDB, prevCfg := database.DB, config.GlobalConfig
	database.DB = db

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = 3600
	cfg.Upload.Dir = t.TempDir()
	cfg.Upload.URLPrefix = "/uploads"
	cfg.Upload.MaxSize = 1
	cfg.Upload.AllowedExts = []string{".png", ".jpg"}
	cfg.Draft.RetentionDays = 7
	config.GlobalConfig = cfg

	t.Cleanup(func() {
		database.DB, config.GlobalConfig = prevDB, prevCfg
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
}

// freezeTime 固定 timeNow
func freezeTime(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func createUser(t *testing.T, username, role, district string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Nickname: username, Role: role, District: district, Password: "x"}
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func examRequest(now time.Time) types.CreateExamRequest {
	return types.CreateExamRequest{
		Title:           "Mathematics Term Test",
		Subject:         "Mathematics",
		Duration:        60,
		TotalMarks:      10,
		PassingMarks:    5,
		AttemptsAllowed: 1,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(2 * time.Hour),
	}
}

func mcq(points float64, answer string) types.QuestionRequest {
	return types.QuestionRequest{
		Type:          model.QuestionMCQ,
		Question:      "2 + 2 = ?",
		Options:       []string{"3", "4", "5"},
		CorrectAnswer: answer,
		Points:        points,
	}
}

func essay(points float64) types.QuestionRequest {
	return types.QuestionRequest{
		Type:     model.QuestionEssay,
		Question: "Explain the Pythagorean theorem.",
		Points:   points,
	}
}

// publishedExam 管理员创建、添加题目并发布的考试
func publishedExam(t *testing.T, admin *model.User, mutate func(*types.CreateExamRequest), questions ...types.QuestionRequest) (*model.Exam, []model.ExamQuestion) {
	t.Helper()

	req := examRequest(timeNow())
	if mutate != nil {
		mutate(&req)
	}
	exam, err := Exam.Create(admin, req)
	require.NoError(t, err)

	created, err := Question.BulkAdd(admin, exam.ID, questions)
	require.NoError(t, err)

	exam, err = Exam.Publish(admin, exam.ID)
	require.NoError(t, err)
	return exam, created
}
