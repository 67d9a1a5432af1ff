package service

import (
	"errors"
	"math/rand"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/pkg/logger"
	"exam-portal/internal/types"

	"gorm.io/gorm"
)

var Attempt = new(AttemptService)

type AttemptService struct{}

// timeNow 测试中可替换
var timeNow = time.Now

// AvailableExam 学生可参加的考试
type AvailableExam struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Subject         string     `json:"subject"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Duration        int        `json:"duration"`
	TotalMarks      float64    `json:"total_marks"`
	PassingMarks    float64    `json:"passing_marks"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	WindowStart     *time.Time `json:"window_start"`
	WindowEnd       *time.Time `json:"window_end"`
	Instructions    string     `json:"instructions"`
	QuestionCount   int64      `json:"question_count"`
	AttemptsAllowed int        `json:"attempts_allowed"`
	AttemptCount    int64      `json:"attempt_count"`
	CanStart        bool       `json:"can_start"`
}

// StudentQuestion 答题时下发的题目，不含答案和解析
type StudentQuestion struct {
	ID        uint              `json:"id"`
	SectionID *uint             `json:"section_id"`
	GroupID   *uint             `json:"group_id"`
	Type      string            `json:"type"`
	Question  string            `json:"question"`
	Options   model.StringArray `json:"options"`
	Points    float64           `json:"points"`
	Position  int               `json:"position"`
	ExamPart  int               `json:"exam_part"`
	ImageURL  string            `json:"image_url"`
}

// StartedAttempt 开始答题的返回
type StartedAttempt struct {
	Attempt   *model.ExamAttempt `json:"attempt"`
	Exam      AvailableExam      `json:"exam"`
	Questions []StudentQuestion  `json:"questions"`
}

// MyResult 学生的成绩
type MyResult struct {
	types.ExamResult
	ExamID        uint       `json:"exam_id"`
	ExamTitle     string     `json:"exam_title"`
	Subject       string     `json:"subject"`
	AttemptNumber int        `json:"attempt_number"`
	SubmittedAt   *time.Time `json:"submitted_at"`
}

func toAvailable(exam *model.Exam) AvailableExam {
	return AvailableExam{
		ID:              exam.ID,
		Title:           exam.Title,
		Description:     exam.Description,
		Subject:         exam.Subject,
		Type:            exam.Type,
		Status:          exam.Status,
		Duration:        exam.Duration,
		TotalMarks:      exam.TotalMarks,
		PassingMarks:    exam.PassingMarks,
		StartTime:       exam.StartTime,
		EndTime:         exam.EndTime,
		WindowStart:     exam.WindowStart,
		WindowEnd:       exam.WindowEnd,
		Instructions:    exam.Instructions,
		AttemptsAllowed: exam.AttemptsAllowed,
	}
}

func takeable(exam *model.Exam) bool {
	return exam.Status == model.ExamStatusPublished || exam.Status == model.ExamStatusActive
}

// Available 已发布且未结束的考试
func (s *AttemptService) Available(student *model.User) ([]AvailableExam, error) {
	now := timeNow()

	var exams []model.Exam
	if err := database.DB.
		Where("status IN ?", []string{model.ExamStatusPublished, model.ExamStatusActive}).
		Where("end_time > ?", now).
		Order("start_time, id").
		Find(&exams).Error; err != nil {
		return nil, err
	}
	if len(exams) == 0 {
		return []AvailableExam{}, nil
	}

	ids := make([]uint, len(exams))
	for i, e := range exams {
		ids[i] = e.ID
	}
	counts, err := questionCounts(database.DB, ids)
	if err != nil {
		return nil, err
	}

	var attempts []struct {
		ExamID uint
		Total  int64
	}
	if err := database.DB.Model(&model.ExamAttempt{}).
		Select("exam_id, COUNT(*) AS total").
		Where("student_id = ? AND exam_id IN ?", student.ID, ids).
		Group("exam_id").
		Scan(&attempts).Error; err != nil {
		return nil, err
	}
	attempted := make(map[uint]int64, len(attempts))
	for _, a := range attempts {
		attempted[a.ExamID] = a.Total
	}

	result := make([]AvailableExam, 0, len(exams))
	for i := range exams {
		item := toAvailable(&exams[i])
		item.QuestionCount = counts[exams[i].ID]
		item.AttemptCount = attempted[exams[i].ID]
		item.CanStart = exams[i].OpenAt(now) && item.AttemptCount < int64(exams[i].AttemptsAllowed)
		result = append(result, item)
	}
	return result, nil
}

// Start 开始答题，存在未交卷的答卷时直接继续
func (s *AttemptService) Start(student *model.User, examID uint, req types.StartAttemptRequest) (*StartedAttempt, error) {
	now := timeNow()

	var (
		exam    *model.Exam
		attempt *model.ExamAttempt
	)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		if exam, err = loadExam(tx, examID); err != nil {
			return err
		}
		if !takeable(exam) {
			return invalidState("考试未开放")
		}
		if !exam.OpenAt(now) {
			return invalidState("不在考试时间内")
		}

		var open model.ExamAttempt
		err = tx.Where("exam_id = ? AND student_id = ? AND status = ?", examID, student.ID, model.AttemptInProgress).
			First(&open).Error
		if err == nil {
			attempt = &open
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&model.ExamAttempt{}).
			Where("exam_id = ? AND student_id = ?", examID, student.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(exam.AttemptsAllowed) {
			return invalidState("已达到最大作答次数(%d)", exam.AttemptsAllowed)
		}

		attempt = &model.ExamAttempt{
			ExamID:        examID,
			StudentID:     student.ID,
			AttemptNumber: int(count) + 1,
			Status:        model.AttemptInProgress,
			StartedAt:     now,
			MaxScore:      exam.TotalMarks,
			BrowserInfo:   req.BrowserInfo,
		}
		return tx.Create(attempt).Error
	})
	if err != nil {
		return nil, err
	}

	questions, err := Question.List(examID)
	if err != nil {
		return nil, err
	}

	started := &StartedAttempt{
		Attempt:   attempt,
		Exam:      toAvailable(exam),
		Questions: make([]StudentQuestion, 0, len(questions)),
	}
	started.Exam.QuestionCount = int64(len(questions))
	for _, q := range questions {
		started.Questions = append(started.Questions, StudentQuestion{
			ID:        q.ID,
			SectionID: q.SectionID,
			GroupID:   q.GroupID,
			Type:      q.Type,
			Question:  q.Question,
			Options:   q.Options,
			Points:    q.Points,
			Position:  q.Position,
			ExamPart:  q.ExamPart,
			ImageURL:  q.ImageURL,
		})
	}
	if exam.RandomizeQuestions {
		rand.Shuffle(len(started.Questions), func(i, j int) {
			started.Questions[i], started.Questions[j] = started.Questions[j], started.Questions[i]
		})
	}
	return started, nil
}

// Submit 交卷并自动判分，主观题等待人工批改
func (s *AttemptService) Submit(student *model.User, attemptID uint, req types.SubmitAttemptRequest) (*types.ExamResult, error) {
	now := timeNow()

	var (
		attempt model.ExamAttempt
		exam    *model.Exam
		answers []model.ExamAnswer
	)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&attempt, attemptID).Error; err != nil {
			return wrapNotFound(err, "答卷不存在")
		}
		if attempt.StudentID != student.ID {
			return forbidden("无权提交该答卷")
		}
		if attempt.Status != model.AttemptInProgress {
			return invalidState("答卷已提交")
		}

		var err error
		if exam, err = loadExam(tx.Unscoped(), attempt.ExamID); err != nil {
			return err
		}

		var questions []model.ExamQuestion
		if err := tx.Where("exam_id = ?", exam.ID).Find(&questions).Error; err != nil {
			return err
		}
		byID := make(map[uint]*model.ExamQuestion, len(questions))
		for i := range questions {
			byID[questions[i].ID] = &questions[i]
		}

		// 同一题多次作答以最后一次为准
		latest := make(map[uint]types.SubmitAnswerRequest, len(req.Answers))
		order := make([]uint, 0, len(req.Answers))
		for _, a := range req.Answers {
			if _, ok := byID[a.QuestionID]; !ok {
				return invalid("题目 %d 不属于该考试", a.QuestionID)
			}
			if _, seen := latest[a.QuestionID]; !seen {
				order = append(order, a.QuestionID)
			}
			latest[a.QuestionID] = a
		}

		for _, qid := range order {
			a := latest[qid]
			answer := model.ExamAnswer{
				AttemptID:  attempt.ID,
				QuestionID: qid,
				Answer:     a.Answer,
				TimeSpent:  a.TimeSpent,
			}
			q := byID[qid]
			if correct, ok := gradeAnswer(q, a.Answer); ok {
				points := 0.0
				if correct {
					points = q.Points
				}
				answer.IsCorrect = &correct
				answer.PointsAwarded = &points
			}
			answers = append(answers, answer)
		}

		if err := tx.Where("attempt_id = ?", attempt.ID).Delete(&model.ExamAnswer{}).Error; err != nil {
			return err
		}
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return err
			}
		}

		attempt.SubmittedAt = &now
		attempt.TimeSpent = req.TimeSpent
		if attempt.TimeSpent <= 0 {
			attempt.TimeSpent = int(now.Sub(attempt.StartedAt).Seconds())
		}
		if err := scoreAttempt(tx, &attempt, exam); err != nil {
			return err
		}
		if attempt.Status == model.AttemptGraded && exam.EnableRanking {
			if _, err := calculateRankings(tx, exam); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("答卷提交 attempt=%d exam=%d student=%d status=%s", attempt.ID, attempt.ExamID, student.ID, attempt.Status)
	result := resultOf(&attempt, exam, answers)
	return &result, nil
}

// scoreAttempt 根据已评分答案汇总分数，全部评分后状态为 graded
func scoreAttempt(tx *gorm.DB, attempt *model.ExamAttempt, exam *model.Exam) error {
	var answers []model.ExamAnswer
	if err := tx.Where("attempt_id = ?", attempt.ID).Find(&answers).Error; err != nil {
		return err
	}

	var (
		score   float64
		pending int
	)
	for _, a := range answers {
		if !a.Marked() {
			pending++
			continue
		}
		score += *a.PointsAwarded
	}

	if attempt.MaxScore <= 0 {
		attempt.MaxScore = exam.TotalMarks
	}
	attempt.TotalScore = round2(score)
	attempt.Percentage = percentage(attempt.TotalScore, attempt.MaxScore)
	attempt.Passed = attempt.TotalScore >= exam.PassingMarks
	if pending == 0 {
		attempt.Status = model.AttemptGraded
	} else {
		attempt.Status = model.AttemptSubmitted
	}

	return tx.Model(attempt).Updates(map[string]interface{}{
		"status":       attempt.Status,
		"submitted_at": attempt.SubmittedAt,
		"time_spent":   attempt.TimeSpent,
		"total_score":  attempt.TotalScore,
		"max_score":    attempt.MaxScore,
		"percentage":   attempt.Percentage,
		"passed":       attempt.Passed,
	}).Error
}

// closeOpenAttempts 将考试中未交卷的答卷按已有作答提交并计分
func closeOpenAttempts(tx *gorm.DB, exam *model.Exam, now time.Time) (int, error) {
	var open []model.ExamAttempt
	if err := tx.Where("exam_id = ? AND status = ?", exam.ID, model.AttemptInProgress).
		Find(&open).Error; err != nil {
		return 0, err
	}

	graded := false
	for i := range open {
		attempt := &open[i]
		submittedAt := now
		attempt.SubmittedAt = &submittedAt
		attempt.TimeSpent = int(now.Sub(attempt.StartedAt).Seconds())
		if err := scoreAttempt(tx, attempt, exam); err != nil {
			return 0, err
		}
		if attempt.Status == model.AttemptGraded {
			graded = true
		}
	}

	if graded && exam.EnableRanking {
		if _, err := calculateRankings(tx, exam); err != nil {
			return 0, err
		}
	}
	return len(open), nil
}

func resultOf(attempt *model.ExamAttempt, exam *model.Exam, answers []model.ExamAnswer) types.ExamResult {
	result := types.ExamResult{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
		MaxScore:  attempt.MaxScore,
	}
	for _, a := range answers {
		switch {
		case !a.Marked():
			result.PendingCount++
		case a.IsCorrect != nil && *a.IsCorrect:
			result.CorrectCount++
		default:
			result.WrongCount++
		}
	}
	if exam.ShowResults {
		score, pct, passed := attempt.TotalScore, attempt.Percentage, attempt.Passed
		result.Score = &score
		result.Percentage = &pct
		result.Passed = &passed
	}
	return result
}

// MyResults 学生已提交的答卷，考试未公布成绩时不返回分数
func (s *AttemptService) MyResults(student *model.User) ([]MyResult, error) {
	var attempts []model.ExamAttempt
	if err := database.DB.
		Preload("Exam", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Answers").
		Where("student_id = ? AND status <> ?", student.ID, model.AttemptInProgress).
		Order("started_at DESC").Order("id DESC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	results := make([]MyResult, 0, len(attempts))
	for i := range attempts {
		attempt := &attempts[i]
		if attempt.Exam == nil {
			continue
		}
		results = append(results, MyResult{
			ExamResult:    resultOf(attempt, attempt.Exam, attempt.Answers),
			ExamID:        attempt.ExamID,
			ExamTitle:     attempt.Exam.Title,
			Subject:       attempt.Exam.Subject,
			AttemptNumber: attempt.AttemptNumber,
			SubmittedAt:   attempt.SubmittedAt,
		})
	}
	return results, nil
}

// ListAttempts 考试的答卷列表
func (s *AttemptService) ListAttempts(operator *model.User, examID uint, query types.AttemptQuery) ([]model.ExamAttempt, int64, error) {
	if _, err := manageable(database.DB, operator, examID); err != nil {
		return nil, 0, err
	}
	query.Normalize(20, 100)

	db := database.DB.Model(&model.ExamAttempt{}).Where("exam_id = ?", examID)
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []model.ExamAttempt
	if err := db.Preload("Student").
		Order("submitted_at DESC").Order("id DESC").
		Offset(query.Offset()).Limit(query.Size).
		Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// GetAttempt 答卷详情，包含每题作答
func (s *AttemptService) GetAttempt(operator *model.User, attemptID uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	if err := database.DB.
		Preload("Exam").
		Preload("Student").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Answers.Question", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&attempt, attemptID).Error; err != nil {
		return nil, wrapNotFound(err, "答卷不存在")
	}
	if attempt.Exam == nil || !canManage(operator, attempt.Exam) {
		return nil, forbidden("无权查看该答卷")
	}
	return &attempt, nil
}
