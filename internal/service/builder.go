package service

import (
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/pkg/logger"
	"exam-portal/internal/types"

	"gorm.io/gorm"
)

var Builder = new(BuilderService)

type BuilderService struct{}

// Submit 组卷向导提交：考试、大题、题组、题目在同一事务中创建，成功后删除草稿
func (s *BuilderService) Submit(operator *model.User, req types.BuilderRequest) (*types.BuilderResult, error) {
	if !operator.IsStaff() {
		return nil, forbidden("只有管理员和教师可以创建考试")
	}
	if req.DraftKey != "" && !ValidDraftKey(req.DraftKey) {
		return nil, invalid("草稿key格式不正确")
	}

	examReq := req.Exam
	examReq.Sections = append(append([]types.SectionRequest{}, req.Exam.Sections...), req.Sections...)
	exam := newExam(operator, examReq)
	if err := validateExam(exam); err != nil {
		return nil, err
	}

	result := &types.BuilderResult{}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exam).Error; err != nil {
			return err
		}
		result.ExamID = exam.ID

		counts, err := createSectionTree(tx, exam.ID, examReq.Sections, 1)
		if err != nil {
			return err
		}
		result.SectionCount = counts.Sections
		result.GroupCount = counts.Groups
		result.QuestionCount = counts.Questions

		// 不属于任何大题的题目
		next, err := nextQuestionPosition(tx, exam.ID)
		if err != nil {
			return err
		}
		for i, q := range req.Questions {
			if q.SectionID != nil || q.GroupID != nil {
				return invalid("第%d题: 组卷时题目应放在对应大题中", i+1)
			}
			if err := createQuestion(tx, exam.ID, nil, nil, q, next); err != nil {
				return invalid("第%d题: %s", i+1, err.Error())
			}
			next++
			result.QuestionCount++
		}

		if req.DraftKey != "" {
			return tx.Where("draft_key = ? AND user_id = ?", req.DraftKey, operator.ID).
				Delete(&model.ExamDraft{}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	questions, err := Question.List(exam.ID)
	if err != nil {
		return nil, err
	}
	result.Warnings = examWarnings(exam, questions)

	logger.Infof("组卷完成 exam=%d sections=%d groups=%d questions=%d", result.ExamID, result.SectionCount, result.GroupCount, result.QuestionCount)
	return result, nil
}
