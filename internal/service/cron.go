package service

import (
	"context"
	"time"

	"exam-portal/internal/config"
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/pkg/logger"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronService 定时任务服务
type CronService struct {
	cron *cron.Cron
}

var Cron = NewCronService()

func NewCronService() *CronService {
	return &CronService{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{}))),
	}
}

// Start 注册并启动定时任务
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.updateExamStatus); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.purgeDrafts); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("定时任务已启动")
	return nil
}

// Stop 停止定时任务，等待正在执行的任务结束
func (s *CronService) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logger.Info("定时任务已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CronService) updateExamStatus() {
	now := timeNow()
	if n, err := s.ActivateDueExams(now); err != nil {
		logger.Errorf("开始考试失败: %v", err)
	} else if n > 0 {
		logger.Infof("%d 场考试已开始", n)
	}
	if n, err := s.CompleteEndedExams(now); err != nil {
		logger.Errorf("结束考试失败: %v", err)
	} else if n > 0 {
		logger.Infof("%d 场考试已结束", n)
	}
}

func (s *CronService) purgeDrafts() {
	n, err := s.PurgeStaleDrafts(timeNow())
	if err != nil {
		logger.Errorf("清理草稿失败: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("已清理 %d 份过期草稿", n)
	}
}

// ActivateDueExams 到达开始时间且已通过审核的考试变为进行中，没有题目的考试跳过
func (s *CronService) ActivateDueExams(now time.Time) (int64, error) {
	hasQuestions := database.DB.Model(&model.ExamQuestion{}).Select("1").Where("exam_questions.exam_id = exams.id")
	result := database.DB.Model(&model.Exam{}).
		Where("status IN ? AND approval_status = ?",
			[]string{model.ExamStatusDraft, model.ExamStatusApproved, model.ExamStatusPublished}, model.ApprovalApproved).
		Where("start_time <= ? AND end_time > ?", now, now).
		Where("EXISTS (?)", hasQuestions).
		Update("status", model.ExamStatusActive)
	return result.RowsAffected, result.Error
}

// CompleteEndedExams 超过结束时间的考试变为已结束，未交卷的答卷自动提交
func (s *CronService) CompleteEndedExams(now time.Time) (int, error) {
	var exams []model.Exam
	if err := database.DB.
		Where("status = ? AND end_time < ?", model.ExamStatusActive, now).
		Find(&exams).Error; err != nil {
		return 0, err
	}

	completed := 0
	for i := range exams {
		exam := &exams[i]
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			closed, err := closeOpenAttempts(tx, exam, now)
			if err != nil {
				return err
			}
			if closed > 0 {
				logger.Infof("考试 %d 结束，自动提交 %d 份答卷", exam.ID, closed)
			}
			return tx.Model(exam).Update("status", model.ExamStatusCompleted).Error
		})
		if err != nil {
			return completed, err
		}
		completed++
	}
	return completed, nil
}

// PurgeStaleDrafts 清理超过保留天数未更新的草稿
func (s *CronService) PurgeStaleDrafts(now time.Time) (int64, error) {
	days := 30
	if cfg := config.GlobalConfig; cfg != nil && cfg.Draft.RetentionDays > 0 {
		days = cfg.Draft.RetentionDays
	}
	return Draft.PurgeStale(now.AddDate(0, 0, -days))
}

// cronLogger 把 cron 的日志转到 zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.GetLogger().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.GetLogger().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
