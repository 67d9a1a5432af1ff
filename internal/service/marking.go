package service

import (
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"gorm.io/gorm"
)

var Marking = new(MarkingService)

type MarkingService struct{}

// AnswerItem 某题的一份作答
type AnswerItem struct {
	model.ExamAnswer
	StudentID   uint   `json:"student_id"`
	StudentName string `json:"student_name"`
}

// AnswerStats 批改进度
type AnswerStats struct {
	Total    int `json:"total"`
	Marked   int `json:"marked"`
	Unmarked int `json:"unmarked"`
}

type QuestionAnswers struct {
	Question *model.ExamQuestion `json:"question"`
	Answers  []AnswerItem        `json:"answers"`
	Stats    AnswerStats         `json:"stats"`
}

// submittedAttempts 已交卷的答卷，按 id 索引
func submittedAttempts(db *gorm.DB, examID uint, withStudent bool) (map[uint]*model.ExamAttempt, error) {
	q := db.Where("exam_id = ? AND status <> ?", examID, model.AttemptInProgress)
	if withStudent {
		q = q.Preload("Student")
	}
	var attempts []model.ExamAttempt
	if err := q.Find(&attempts).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.ExamAttempt, len(attempts))
	for i := range attempts {
		byID[attempts[i].ID] = &attempts[i]
	}
	return byID, nil
}

func attemptIDs(attempts map[uint]*model.ExamAttempt) []uint {
	ids := make([]uint, 0, len(attempts))
	for id := range attempts {
		ids = append(ids, id)
	}
	return ids
}

func examQuestion(db *gorm.DB, examID, questionID uint) (*model.ExamQuestion, error) {
	var q model.ExamQuestion
	if err := db.Unscoped().Where("id = ? AND exam_id = ?", questionID, examID).First(&q).Error; err != nil {
		return nil, wrapNotFound(err, "题目不存在")
	}
	return &q, nil
}

// QuestionAnswers 某题的全部作答
func (s *MarkingService) QuestionAnswers(operator *model.User, examID, questionID uint) (*QuestionAnswers, error) {
	if _, err := manageable(database.DB, operator, examID); err != nil {
		return nil, err
	}
	question, err := examQuestion(database.DB, examID, questionID)
	if err != nil {
		return nil, err
	}

	attempts, err := submittedAttempts(database.DB, examID, true)
	if err != nil {
		return nil, err
	}

	result := &QuestionAnswers{Question: question, Answers: []AnswerItem{}}
	if len(attempts) == 0 {
		return result, nil
	}

	var answers []model.ExamAnswer
	if err := database.DB.
		Where("question_id = ? AND attempt_id IN ?", questionID, attemptIDs(attempts)).
		Order("id").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	for _, a := range answers {
		item := AnswerItem{ExamAnswer: a}
		if attempt := attempts[a.AttemptID]; attempt != nil {
			item.StudentID = attempt.StudentID
			if attempt.Student != nil {
				item.StudentName = attempt.Student.DisplayName()
			}
		}
		result.Answers = append(result.Answers, item)
		result.Stats.Total++
		if a.Marked() {
			result.Stats.Marked++
		} else {
			result.Stats.Unmarked++
		}
	}
	return result, nil
}

func checkPoints(points, max float64) error {
	if points < 0 || points > max {
		return invalid("得分必须在0到%g之间", max)
	}
	return nil
}

func award(answer *model.ExamAnswer, points, max float64) {
	points = round2(points)
	correct := points == max
	answer.PointsAwarded = &points
	answer.IsCorrect = &correct
}

// GradeAnswer 人工评分并重新计算答卷总分
func (s *MarkingService) GradeAnswer(operator *model.User, answerID uint, req types.GradeAnswerRequest) (*model.ExamAnswer, error) {
	if req.PointsAwarded == nil {
		return nil, invalid("得分不能为空")
	}

	var answer model.ExamAnswer
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&answer, answerID).Error; err != nil {
			return wrapNotFound(err, "作答不存在")
		}
		var attempt model.ExamAttempt
		if err := tx.First(&attempt, answer.AttemptID).Error; err != nil {
			return wrapNotFound(err, "答卷不存在")
		}
		if attempt.Status == model.AttemptInProgress {
			return invalidState("答卷尚未提交")
		}
		exam, err := manageable(tx, operator, attempt.ExamID)
		if err != nil {
			return err
		}
		question, err := examQuestion(tx, exam.ID, answer.QuestionID)
		if err != nil {
			return err
		}
		if err := checkPoints(*req.PointsAwarded, question.Points); err != nil {
			return err
		}

		award(&answer, *req.PointsAwarded, question.Points)
		answer.Comments = req.Comments
		if err := tx.Model(&answer).Updates(map[string]interface{}{
			"points_awarded": answer.PointsAwarded,
			"is_correct":     answer.IsCorrect,
			"comments":       answer.Comments,
		}).Error; err != nil {
			return err
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
	return &answer, nil
}

// AutoAssign 给某题的全部作答统一赋分，返回更新数量
func (s *MarkingService) AutoAssign(operator *model.User, examID, questionID uint, req types.AutoAssignRequest) (int, error) {
	updated := 0
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		exam, err := manageable(tx, operator, examID)
		if err != nil {
			return err
		}
		question, err := examQuestion(tx, examID, questionID)
		if err != nil {
			return err
		}
		if err := checkPoints(req.Points, question.Points); err != nil {
			return err
		}

		attempts, err := submittedAttempts(tx, examID, false)
		if err != nil {
			return err
		}
		if len(attempts) == 0 {
			return nil
		}

		var answers []model.ExamAnswer
		if err := tx.Where("question_id = ? AND attempt_id IN ?", questionID, attemptIDs(attempts)).
			Find(&answers).Error; err != nil {
			return err
		}

		touched := make(map[uint]bool)
		for i := range answers {
			answer := &answers[i]
			if req.OnlyUnmarked && answer.Marked() {
				continue
			}
			award(answer, req.Points, question.Points)
			if err := tx.Model(answer).Updates(map[string]interface{}{
				"points_awarded": answer.PointsAwarded,
				"is_correct":     answer.IsCorrect,
			}).Error; err != nil {
				return err
			}
			touched[answer.AttemptID] = true
			updated++
		}

		graded := false
		for id := range touched {
			attempt := attempts[id]
			if err := scoreAttempt(tx, attempt, exam); err != nil {
				return err
			}
			if attempt.Status == model.AttemptGraded {
				graded = true
			}
		}
		if graded && exam.EnableRanking {
			if _, err := calculateRankings(tx, exam); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// PublishResults 公布成绩并结束考试，返回已评分的学生数
func (s *MarkingService) PublishResults(operator *model.User, examID uint) (int64, error) {
	var graded int64
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		exam, err := manageable(tx, operator, examID)
		if err != nil {
			return err
		}
		switch exam.Status {
		case model.ExamStatusPublished, model.ExamStatusActive, model.ExamStatusCompleted:
		default:
			return invalidState("考试尚未发布，不能公布成绩")
		}

		if _, err := closeOpenAttempts(tx, exam, timeNow()); err != nil {
			return err
		}

		exam.ShowResults = true
		exam.Status = model.ExamStatusCompleted
		if err := tx.Model(exam).Updates(map[string]interface{}{
			"show_results": true,
			"status":       exam.Status,
		}).Error; err != nil {
			return err
		}

		if exam.EnableRanking {
			if _, err := calculateRankings(tx, exam); err != nil {
				return err
			}
		}

		return tx.Model(&model.ExamAttempt{}).
			Where("exam_id = ? AND status = ?", examID, model.AttemptGraded).
			Distinct("student_id").
			Count(&graded).Error
	})
	if err != nil {
		return 0, err
	}
	return graded, nil
}
