package service

import (
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"gorm.io/gorm"
)

var Practice = new(PracticeService)

// PracticeService 学生错题回顾，只包含已公布成绩且已完成评分的答卷
type PracticeService struct{}

// 错题详情
type WrongQuestionDetail struct {
	QuestionID    uint              `json:"question_id"`
	ExamID        uint              `json:"exam_id"`
	ExamTitle     string            `json:"exam_title"`
	Type          string            `json:"type"`
	Question      string            `json:"question"`
	Options       model.StringArray `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	YourAnswer    string            `json:"your_answer"`
	Explanation   string            `json:"explanation"`
	Points        float64           `json:"points"`
	PointsAwarded *float64          `json:"points_awarded"`
	Comments      string            `json:"comments"`
	AnsweredAt    time.Time         `json:"answered_at"`
}

// 错题统计信息（考试维度）
type WrongQuestionExam struct {
	ExamID    uint   `json:"exam_id"`
	ExamTitle string `json:"exam_title"`
	Subject   string `json:"subject"`
	Single    int    `json:"single"`
	Multiple  int    `json:"multiple"`
	Judge     int    `json:"judge"`
	Blank     int    `json:"blank"`
	Written   int    `json:"written"`
	Total     int    `json:"total"`
}

type wrongAnswerRow struct {
	AnswerID      uint
	QuestionID    uint
	ExamID        uint
	ExamTitle     string
	Subject       string
	Answer        string
	PointsAwarded *float64
	Comments      string
	UpdatedAt     time.Time
}

// wrongAnswers 学生答错的题目，同一题多次答错只保留最近一次
func wrongAnswers(db *gorm.DB, studentID, examID uint) ([]wrongAnswerRow, error) {
	query := db.Table("exam_answers").
		Select("exam_answers.id AS answer_id, exam_answers.question_id, exams.id AS exam_id, "+
			"exams.title AS exam_title, exams.subject, exam_answers.answer, exam_answers.points_awarded, "+
			"exam_answers.comments, exam_answers.updated_at").
		Joins("JOIN exam_attempts ON exam_attempts.id = exam_answers.attempt_id").
		Joins("JOIN exams ON exams.id = exam_attempts.exam_id").
		Where("exam_attempts.student_id = ? AND exam_attempts.status = ?", studentID, model.AttemptGraded).
		Where("exams.show_results = ? AND exams.deleted_at IS NULL", true).
		Where("exam_answers.is_correct = ?", false)
	if examID > 0 {
		query = query.Where("exams.id = ?", examID)
	}

	var rows []wrongAnswerRow
	if err := query.Order("exam_answers.updated_at DESC").Order("exam_answers.id DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(rows))
	unique := rows[:0]
	for _, row := range rows {
		if seen[row.QuestionID] {
			continue
		}
		seen[row.QuestionID] = true
		unique = append(unique, row)
	}
	return unique, nil
}

// GetWrongQuestions 获取错题列表，可按考试过滤
func (s *PracticeService) GetWrongQuestions(student *model.User, query types.WrongQuestionQuery) ([]WrongQuestionDetail, int64, error) {
	query.Normalize(10, 100)

	rows, err := wrongAnswers(database.DB, student.ID, query.ExamID)
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(rows))
	start := query.Offset()
	if start >= len(rows) {
		return []WrongQuestionDetail{}, total, nil
	}
	end := start + query.Size
	if end > len(rows) {
		end = len(rows)
	}
	rows = rows[start:end]

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.QuestionID)
	}

	// 题目被删除后仍然展示
	var questions []model.ExamQuestion
	if err := database.DB.Unscoped().Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[uint]*model.ExamQuestion, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	details := make([]WrongQuestionDetail, 0, len(rows))
	for _, row := range rows {
		q, ok := byID[row.QuestionID]
		if !ok {
			continue
		}
		details = append(details, WrongQuestionDetail{
			QuestionID:    q.ID,
			ExamID:        row.ExamID,
			ExamTitle:     row.ExamTitle,
			Type:          q.Type,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			YourAnswer:    row.Answer,
			Explanation:   q.Explanation,
			Points:        q.Points,
			PointsAwarded: row.PointsAwarded,
			Comments:      row.Comments,
			AnsweredAt:    row.UpdatedAt,
		})
	}
	return details, total, nil
}

// GetWrongQuestionsStats 按考试统计错题数量
func (s *PracticeService) GetWrongQuestionsStats(student *model.User) ([]WrongQuestionExam, int, error) {
	rows, err := wrongAnswers(database.DB, student.ID, 0)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []WrongQuestionExam{}, 0, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.QuestionID)
	}
	var questions []model.ExamQuestion
	if err := database.DB.Unscoped().Select("id", "type").Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, 0, err
	}
	typeOf := make(map[uint]string, len(questions))
	for _, q := range questions {
		typeOf[q.ID] = q.Type
	}

	var stats []WrongQuestionExam
	index := make(map[uint]int)
	total := 0
	for _, row := range rows {
		i, ok := index[row.ExamID]
		if !ok {
			i = len(stats)
			index[row.ExamID] = i
			stats = append(stats, WrongQuestionExam{ExamID: row.ExamID, ExamTitle: row.ExamTitle, Subject: row.Subject})
		}

		stat := &stats[i]
		switch typeOf[row.QuestionID] {
		case model.QuestionMCQ:
			stat.Single++
		case model.QuestionMultiple:
			stat.Multiple++
		case model.QuestionTrueFalse:
			stat.Judge++
		case model.QuestionFillInBlank:
			stat.Blank++
		default:
			stat.Written++
		}
		stat.Total++
		total++
	}
	return stats, total, nil
}
