package service

import (
	"strings"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"gorm.io/gorm"
)

var Section = new(SectionService)

type SectionService struct{}

// treeCounts 批量创建的数量统计
type treeCounts struct {
	Sections  int
	Groups    int
	Questions int
}

// createSectionTree 在事务中创建大题、题组及其题目，position 未指定时按顺序从 start 开始编号
func createSectionTree(tx *gorm.DB, examID uint, sections []types.SectionRequest, start int) (treeCounts, error) {
	var counts treeCounts

	nextQuestion, err := nextQuestionPosition(tx, examID)
	if err != nil {
		return counts, err
	}

	for i, req := range sections {
		if strings.TrimSpace(req.Title) == "" {
			return counts, invalid("第%d个大题标题不能为空", i+1)
		}
		if req.DefaultQuestionType != "" && !model.ValidQuestionType(req.DefaultQuestionType) {
			return counts, invalid("大题「%s」默认题型无效", req.Title)
		}

		section := model.ExamSection{
			ExamID:              examID,
			Title:               strings.TrimSpace(req.Title),
			Description:         req.Description,
			Position:            req.Position,
			ExamPart:            examPart(req.ExamPart),
			DefaultQuestionType: req.DefaultQuestionType,
		}
		if section.Position == 0 {
			section.Position = start + i
		}
		if err := tx.Create(&section).Error; err != nil {
			return counts, err
		}
		counts.Sections++

		for _, q := range req.Questions {
			if err := createQuestion(tx, examID, &section, nil, q, nextQuestion); err != nil {
				return counts, err
			}
			nextQuestion++
			counts.Questions++
		}

		for j, g := range req.Groups {
			group := model.QuestionGroup{
				SectionID:   section.ID,
				Title:       g.Title,
				Instruction: g.Instruction,
				Position:    g.Position,
			}
			if group.Position == 0 {
				group.Position = j + 1
			}
			if err := tx.Create(&group).Error; err != nil {
				return counts, err
			}
			counts.Groups++

			for _, q := range g.Questions {
				if err := createQuestion(tx, examID, &section, &group, q, nextQuestion); err != nil {
					return counts, err
				}
				nextQuestion++
				counts.Questions++
			}
		}
	}
	return counts, nil
}

func examPart(part int) int {
	if part == 2 {
		return 2
	}
	return 1
}

// editableExam 校验权限，并且考试仍处于可编辑状态
func editableExam(db *gorm.DB, operator *model.User, examID uint) (*model.Exam, error) {
	exam, err := manageable(db, operator, examID)
	if err != nil {
		return nil, err
	}
	if !exam.Editable() {
		return nil, invalidState("当前状态(%s)的考试不能修改试卷结构", exam.Status)
	}
	if err := resubmitForApproval(db, operator, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// resubmitForApproval 教师修改已通过审核的考试后需要重新审核
func resubmitForApproval(db *gorm.DB, operator *model.User, exam *model.Exam) error {
	if operator.IsAdmin() || exam.ApprovalStatus != model.ApprovalApproved {
		return nil
	}
	exam.ApprovalStatus = model.ApprovalPending
	exam.Status = model.ExamStatusDraft
	exam.ApprovedByID = nil
	exam.ApprovedAt = nil
	return db.Model(exam).Updates(map[string]interface{}{
		"approval_status": exam.ApprovalStatus,
		"status":          exam.Status,
		"approved_by_id":  nil,
		"approved_at":     nil,
	}).Error
}

// BulkCreate 批量创建大题
func (s *SectionService) BulkCreate(operator *model.User, examID uint, sections []types.SectionRequest) ([]model.ExamSection, error) {
	if len(sections) == 0 {
		return nil, invalid("大题列表不能为空")
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := editableExam(tx, operator, examID); err != nil {
			return err
		}

		var maxPos int
		if err := tx.Model(&model.ExamSection{}).
			Where("exam_id = ?", examID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return err
		}

		if _, err := createSectionTree(tx, examID, sections, maxPos+1); err != nil {
			return err
		}
		return tx.Model(&model.Exam{}).Where("id = ?", examID).
			Update("use_hierarchical_structure", true).Error
	})
	if err != nil {
		return nil, err
	}

	return s.list(examID)
}

// List 考试的大题列表
func (s *SectionService) List(operator *model.User, examID uint) ([]model.ExamSection, error) {
	if _, err := manageable(database.DB, operator, examID); err != nil {
		return nil, err
	}
	return s.list(examID)
}

func (s *SectionService) list(examID uint) ([]model.ExamSection, error) {
	var sections []model.ExamSection
	err := database.DB.
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Where("exam_id = ?", examID).
		Order("position, id").
		Find(&sections).Error
	return sections, err
}

func loadSection(db *gorm.DB, examID, sectionID uint) (*model.ExamSection, error) {
	var section model.ExamSection
	if err := db.Where("id = ? AND exam_id = ?", sectionID, examID).First(&section).Error; err != nil {
		return nil, wrapNotFound(err, "大题不存在")
	}
	return &section, nil
}

// Update 更新大题
func (s *SectionService) Update(operator *model.User, examID, sectionID uint, req types.UpdateSectionRequest) (*model.ExamSection, error) {
	updates := make(map[string]interface{})
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, invalid("大题标题不能为空")
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if req.ExamPart != nil {
		updates["exam_part"] = examPart(*req.ExamPart)
	}
	if req.DefaultQuestionType != nil {
		if *req.DefaultQuestionType != "" && !model.ValidQuestionType(*req.DefaultQuestionType) {
			return nil, invalid("默认题型无效")
		}
		updates["default_question_type"] = *req.DefaultQuestionType
	}

	var section *model.ExamSection
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) == 0 {
			if _, err := manageable(tx, operator, examID); err != nil {
				return err
			}
			var err error
			section, err = loadSection(tx, examID, sectionID)
			return err
		}

		if _, err := editableExam(tx, operator, examID); err != nil {
			return err
		}
		current, err := loadSection(tx, examID, sectionID)
		if err != nil {
			return err
		}
		if err := tx.Model(current).Updates(updates).Error; err != nil {
			return err
		}
		section, err = loadSection(tx, examID, sectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// Delete 删除大题及其题组，原有题目保留但不再归属该大题
func (s *SectionService) Delete(operator *model.User, examID, sectionID uint) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := editableExam(tx, operator, examID); err != nil {
			return err
		}
		section, err := loadSection(tx, examID, sectionID)
		if err != nil {
			return err
		}

		if err := tx.Model(&model.ExamQuestion{}).
			Where("section_id = ?", section.ID).
			Updates(map[string]interface{}{"section_id": nil, "group_id": nil}).Error; err != nil {
			return err
		}
		if err := tx.Where("section_id = ?", section.ID).Delete(&model.QuestionGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(section).Error
	})
}

// BulkCreateGroups 在大题下批量创建题组
func (s *SectionService) BulkCreateGroups(operator *model.User, examID, sectionID uint, groups []types.GroupRequest) ([]model.QuestionGroup, error) {
	if len(groups) == 0 {
		return nil, invalid("题组列表不能为空")
	}

	var created []model.QuestionGroup
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := editableExam(tx, operator, examID); err != nil {
			return err
		}
		section, err := loadSection(tx, examID, sectionID)
		if err != nil {
			return err
		}

		var maxPos int
		if err := tx.Model(&model.QuestionGroup{}).
			Where("section_id = ?", section.ID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		nextQuestion, err := nextQuestionPosition(tx, examID)
		if err != nil {
			return err
		}

		for i, g := range groups {
			group := model.QuestionGroup{
				SectionID:   section.ID,
				Title:       g.Title,
				Instruction: g.Instruction,
				Position:    g.Position,
			}
			if group.Position == 0 {
				group.Position = maxPos + i + 1
			}
			if err := tx.Create(&group).Error; err != nil {
				return err
			}
			for _, q := range g.Questions {
				if err := createQuestion(tx, examID, section, &group, q, nextQuestion); err != nil {
					return err
				}
				nextQuestion++
			}
			created = append(created, group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
