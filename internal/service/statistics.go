package service

import (
	"context"
	"fmt"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var Statistics = new(StatisticsService)

type StatisticsService struct{}

// SystemInfo 系统概况
type SystemInfo struct {
	TotalUsers        int64            `json:"total_users"`
	UsersByRole       map[string]int64 `json:"users_by_role"`
	TotalExams        int64            `json:"total_exams"`
	ExamsByStatus     map[string]int64 `json:"exams_by_status"`
	PendingApprovals  int64            `json:"pending_approvals"`
	TotalAttempts     int64            `json:"total_attempts"`
	AveragePercentage float64          `json:"average_percentage"`
}

// ScoreBucket 成绩分布区间
type ScoreBucket struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// ExamStatistics 单场考试统计
type ExamStatistics struct {
	ExamID       uint          `json:"exam_id"`
	AttemptCount int64         `json:"attempt_count"`
	GradedCount  int64         `json:"graded_count"`
	AverageScore float64       `json:"average_score"`
	HighestScore float64       `json:"highest_score"`
	LowestScore  float64       `json:"lowest_score"`
	PassRate     float64       `json:"pass_rate"`
	Distribution []ScoreBucket `json:"distribution"`
}

type statusCount struct {
	Name  string
	Count int64
}

// Overview 获取系统概况，各项统计并发查询
func (s *StatisticsService) Overview(ctx context.Context) (*SystemInfo, error) {
	result := &SystemInfo{
		UsersByRole:   make(map[string]int64),
		ExamsByStatus: make(map[string]int64),
	}
	var roles, statuses []statusCount
	g, gctx := errgroup.WithContext(ctx)
	db := func() *gorm.DB { return database.DB.WithContext(gctx) }
	g.Go(func() error {
		return db().Model(&model.User{}).Select("role AS name, COUNT(*) AS count").Group("role").Scan(&roles).Error
	})
	g.Go(func() error {
		return db().Model(&model.Exam{}).Select("status AS name, COUNT(*) AS count").Group("status").Scan(&statuses).Error
	})
	g.Go(func() error {
		return db().Model(&model.Exam{}).Where("approval_status = ?", model.ApprovalPending).Count(&result.PendingApprovals).Error
	})
	g.Go(func() error {
		return db().Model(&model.ExamAttempt{}).Count(&result.TotalAttempts).Error
	})
	g.Go(func() error {
		var avg struct{ Value *float64 }
		if err := db().Model(&model.ExamAttempt{}).
			Where("status <> ?", model.AttemptInProgress).
			Select("AVG(percentage) AS value").
			Scan(&avg).Error; err != nil {
			return err
		}
		if avg.Value != nil {
			result.AveragePercentage = round2(*avg.Value)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range roles {
		result.UsersByRole[r.Name] = r.Count
		result.TotalUsers += r.Count
	}
	for _, st := range statuses {
		result.ExamsByStatus[st.Name] = st.Count
		result.TotalExams += st.Count
	}
	return result, nil
}

// ExamStatistics 单场考试成绩统计，分布按 10% 分段
func (s *StatisticsService) ExamStatistics(operator *model.User, examID uint) (*ExamStatistics, error) {
	exam, err := manageable(database.DB, operator, examID)
	if err != nil {
		return nil, err
	}

	var attempts []model.ExamAttempt
	if err := database.DB.
		Where("exam_id = ? AND status <> ?", examID, model.AttemptInProgress).
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	stats := &ExamStatistics{
		ExamID:       exam.ID,
		AttemptCount: int64(len(attempts)),
		Distribution: make([]ScoreBucket, 10),
	}
	for i := range stats.Distribution {
		stats.Distribution[i].Range = fmt.Sprintf("%d-%d", i*10, (i+1)*10)
	}
	if len(attempts) == 0 {
		return stats, nil
	}

	var sum float64
	var passed int64
	stats.LowestScore = attempts[0].TotalScore
	for _, a := range attempts {
		if a.Status == model.AttemptGraded {
			stats.GradedCount++
		}
		if a.Passed {
			passed++
		}
		sum += a.TotalScore
		if a.TotalScore > stats.HighestScore {
			stats.HighestScore = a.TotalScore
		}
		if a.TotalScore < stats.LowestScore {
			stats.LowestScore = a.TotalScore
		}

		bucket := int(a.Percentage / 10)
		if bucket > 9 {
			bucket = 9
		}
		if bucket < 0 {
			bucket = 0
		}
		stats.Distribution[bucket].Count++
	}
	stats.AverageScore = round2(sum / float64(len(attempts)))
	stats.PassRate = percentage(float64(passed), float64(len(attempts)))
	return stats, nil
}
