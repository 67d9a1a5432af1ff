package service

import (
	"sort"
	"strings"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"gorm.io/gorm"
)

var Question = new(QuestionService)

type QuestionService struct{}

var trueFalseOptions = model.StringArray{"True", "False"}

// QuestionsByPart 按试卷部分分组
type QuestionsByPart struct {
	Part1 []model.ExamQuestion `json:"part1"`
	Part2 []model.ExamQuestion `json:"part2"`
}

// validateQuestionOptions 验证题目选项和答案格式，返回规范化后的选项和答案
func validateQuestionOptions(qType string, options []string, answer string) (model.StringArray, string, error) {
	switch qType {
	case model.QuestionTrueFalse:
		// 判断题固定两个选项：A.True、B.False
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "a", "true", "t":
			return trueFalseOptions, "A", nil
		case "b", "false", "f":
			return trueFalseOptions, "B", nil
		}
		return nil, "", invalid("判断题答案必须为A(True)或B(False)")
	case model.QuestionMCQ:
		cleaned := cleanOptions(options)
		if len(cleaned) < 2 || len(cleaned) > 26 {
			return nil, "", invalid("单选题选项数量必须在2-26之间")
		}
		letter := cleanAnswer(answer)
		if len(letter) != 1 || int(letter[0]-'A') >= len(cleaned) {
			return nil, "", invalid("单选题答案必须是选项中的一个字母")
		}
		return cleaned, letter, nil
	case model.QuestionMultiple:
		cleaned := cleanOptions(options)
		if len(cleaned) < 2 || len(cleaned) > 26 {
			return nil, "", invalid("多选题选项数量必须在2-26之间")
		}
		letters := splitLetters(answer)
		if len(letters) == 0 {
			return nil, "", invalid("多选题答案不能为空")
		}
		for _, l := range letters {
			if int(l[0]-'A') >= len(cleaned) {
				return nil, "", invalid("多选题答案必须是选项标签的组合")
			}
		}
		sort.Strings(letters)
		return cleaned, strings.Join(letters, ""), nil
	case model.QuestionFillInBlank:
		if strings.TrimSpace(answer) == "" {
			return nil, "", invalid("填空题答案不能为空")
		}
		return nil, strings.TrimSpace(answer), nil
	case model.QuestionEssay, model.QuestionUpload:
		// 主观题人工评分，答案仅作参考
		return nil, strings.TrimSpace(answer), nil
	}
	return nil, "", invalid("不支持的题目类型: %s", qType)
}

// cleanOptions 去掉空选项和 "A." 形式的标签前缀
func cleanOptions(options []string) model.StringArray {
	cleaned := make(model.StringArray, 0, len(options))
	for _, text := range options {
		text = strings.TrimSpace(text)
		prefix := string(rune('A'+len(cleaned))) + "."
		if strings.HasPrefix(strings.ToUpper(text), prefix) {
			text = strings.TrimSpace(text[len(prefix):])
		}
		if text == "" {
			continue
		}
		cleaned = append(cleaned, text)
	}
	return cleaned
}

// buildQuestion 校验请求并生成题目，section 为空时根据请求中的 section_id 查找
func buildQuestion(tx *gorm.DB, examID uint, section *model.ExamSection, group *model.QuestionGroup, req types.QuestionRequest) (*model.ExamQuestion, error) {
	if section == nil && req.SectionID != nil {
		s, err := loadSection(tx, examID, *req.SectionID)
		if err != nil {
			return nil, err
		}
		section = s
	}
	if group == nil && req.GroupID != nil {
		if section == nil {
			return nil, invalid("指定题组时必须同时指定大题")
		}
		var g model.QuestionGroup
		if err := tx.Where("id = ? AND section_id = ?", *req.GroupID, section.ID).First(&g).Error; err != nil {
			return nil, wrapNotFound(err, "题组不存在")
		}
		group = &g
	}

	qType := req.Type
	if qType == "" && section != nil {
		qType = section.DefaultQuestionType
	}
	if qType == "" {
		qType = model.QuestionMCQ
	}

	if strings.TrimSpace(req.Question) == "" && req.ImageURL == "" {
		return nil, invalid("题目内容不能为空")
	}
	if req.Points <= 0 {
		return nil, invalid("题目分值必须大于0")
	}

	options, answer, err := validateQuestionOptions(qType, req.Options, req.CorrectAnswer)
	if err != nil {
		return nil, err
	}

	q := &model.ExamQuestion{
		ExamID:         examID,
		Type:           qType,
		Question:       strings.TrimSpace(req.Question),
		Options:        options,
		CorrectAnswer:  answer,
		Points:         req.Points,
		Position:       req.Position,
		ExamPart:       examPart(req.ExamPart),
		Explanation:    req.Explanation,
		ImageURL:       req.ImageURL,
		AnswerImageURL: req.AnswerImageURL,
	}
	if section != nil {
		q.SectionID = &section.ID
		if req.ExamPart == 0 {
			q.ExamPart = examPart(section.ExamPart)
		}
	}
	if group != nil {
		q.GroupID = &group.ID
	}
	return q, nil
}

func createQuestion(tx *gorm.DB, examID uint, section *model.ExamSection, group *model.QuestionGroup, req types.QuestionRequest, position int) error {
	q, err := buildQuestion(tx, examID, section, group, req)
	if err != nil {
		return err
	}
	if q.Position == 0 {
		q.Position = position
	}
	return tx.Create(q).Error
}

func nextQuestionPosition(tx *gorm.DB, examID uint) (int, error) {
	var maxPos int
	if err := tx.Model(&model.ExamQuestion{}).
		Where("exam_id = ?", examID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPos).Error; err != nil {
		return 0, err
	}
	return maxPos + 1, nil
}

// Add 添加单个题目
func (s *QuestionService) Add(operator *model.User, examID uint, req types.QuestionRequest) (*model.ExamQuestion, error) {
	var created *model.ExamQuestion
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := editableExam(tx, operator, examID); err != nil {
			return err
		}
		q, err := buildQuestion(tx, examID, nil, nil, req)
		if err != nil {
			return err
		}
		if q.Position == 0 {
			if q.Position, err = nextQuestionPosition(tx, examID); err != nil {
				return err
			}
		}
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		created = q
		return nil
	})
	return created, err
}

// BulkAdd 批量添加题目，任一题目校验失败则全部回滚
func (s *QuestionService) BulkAdd(operator *model.User, examID uint, reqs []types.QuestionRequest) ([]model.ExamQuestion, error) {
	if len(reqs) == 0 {
		return nil, invalid("题目列表不能为空")
	}

	var created []model.ExamQuestion
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := editableExam(tx, operator, examID); err != nil {
			return err
		}
		next, err := nextQuestionPosition(tx, examID)
		if err != nil {
			return err
		}

		for i, req := range reqs {
			q, err := buildQuestion(tx, examID, nil, nil, req)
			if err != nil {
				return invalid("第%d题: %s", i+1, err.Error())
			}
			if q.Position == 0 {
				q.Position = next
				next++
			}
			if err := tx.Create(q).Error; err != nil {
				return err
			}
			created = append(created, *q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func loadQuestion(db *gorm.DB, id uint) (*model.ExamQuestion, error) {
	var q model.ExamQuestion
	if err := db.First(&q, id).Error; err != nil {
		return nil, wrapNotFound(err, "题目不存在")
	}
	return &q, nil
}

// Update 更新题目，整体替换题目内容
func (s *QuestionService) Update(operator *model.User, questionID uint, req types.QuestionRequest) (*model.ExamQuestion, error) {
	var updated *model.ExamQuestion
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := loadQuestion(tx, questionID)
		if err != nil {
			return err
		}
		if _, err := editableExam(tx, operator, existing.ExamID); err != nil {
			return err
		}

		if req.SectionID == nil && req.GroupID == nil {
			req.SectionID, req.GroupID = existing.SectionID, existing.GroupID
		}
		q, err := buildQuestion(tx, existing.ExamID, nil, nil, req)
		if err != nil {
			return err
		}
		q.ID = existing.ID
		q.CreatedAt = existing.CreatedAt
		if q.Position == 0 {
			q.Position = existing.Position
		}
		if err := tx.Save(q).Error; err != nil {
			return err
		}
		updated = q
		return nil
	})
	return updated, err
}

// Delete 删除题目
func (s *QuestionService) Delete(operator *model.User, questionID uint) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		q, err := loadQuestion(tx, questionID)
		if err != nil {
			return err
		}
		if _, err := editableExam(tx, operator, q.ExamID); err != nil {
			return err
		}
		return tx.Delete(q).Error
	})
}

// Reorder 调整题目顺序
func (s *QuestionService) Reorder(operator *model.User, examID uint, items []types.ReorderItem) error {
	if len(items) == 0 {
		return invalid("排序列表不能为空")
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := editableExam(tx, operator, examID); err != nil {
			return err
		}
		for _, item := range items {
			result := tx.Model(&model.ExamQuestion{}).
				Where("id = ? AND exam_id = ?", item.ID, examID).
				Update("position", item.Position)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return notFound("题目 %d 不属于该考试", item.ID)
			}
		}
		return nil
	})
}

// List 按顺序返回考试的全部题目
func (s *QuestionService) List(examID uint) ([]model.ExamQuestion, error) {
	var questions []model.ExamQuestion
	err := database.DB.Where("exam_id = ?", examID).
		Order("exam_part, position, id").
		Find(&questions).Error
	return questions, err
}

// ListFor 校验权限后返回题目
func (s *QuestionService) ListFor(operator *model.User, examID uint) ([]model.ExamQuestion, error) {
	if _, err := manageable(database.DB, operator, examID); err != nil {
		return nil, err
	}
	return s.List(examID)
}

// ByPart 按第一部分、第二部分分组
func (s *QuestionService) ByPart(operator *model.User, examID uint) (*QuestionsByPart, error) {
	questions, err := s.ListFor(operator, examID)
	if err != nil {
		return nil, err
	}

	result := &QuestionsByPart{
		Part1: []model.ExamQuestion{},
		Part2: []model.ExamQuestion{},
	}
	for _, q := range questions {
		if q.ExamPart == 2 {
			result.Part2 = append(result.Part2, q)
		} else {
			result.Part1 = append(result.Part1, q)
		}
	}
	return result, nil
}
