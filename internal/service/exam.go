package service

import (
	"fmt"
	"strings"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var Exam = new(ExamService)

type ExamService struct{}

// ExamListItem 考试列表项
type ExamListItem struct {
	*model.Exam
	QuestionCount int64  `json:"question_count"`
	CreatorName   string `json:"creator_name"`
}

// validateExam 校验分数、时长和时间窗口
func validateExam(exam *model.Exam) error {
	if strings.TrimSpace(exam.Title) == "" {
		return invalid("考试标题不能为空")
	}
	if !model.ValidExamType(exam.Type) {
		return invalid("不支持的考试类型: %s", exam.Type)
	}
	if exam.Duration <= 0 {
		return invalid("考试时长必须大于0")
	}
	if exam.TotalMarks <= 0 {
		return invalid("总分必须大于0")
	}
	if exam.PassingMarks < 0 || exam.PassingMarks > exam.TotalMarks {
		return invalid("及格分必须在0到总分之间")
	}
	if exam.AttemptsAllowed < 1 {
		return invalid("允许作答次数至少为1")
	}
	return validateExamTiming(exam)
}

func validateExamTiming(exam *model.Exam) error {
	if exam.StartTime.IsZero() || exam.EndTime.IsZero() {
		return invalid("开始时间和结束时间不能为空")
	}
	if !exam.EndTime.After(exam.StartTime) {
		return invalid("结束时间必须晚于开始时间")
	}

	duration := time.Duration(exam.Duration) * time.Minute

	if (exam.WindowStart == nil) != (exam.WindowEnd == nil) {
		return invalid("答题窗口的开始和结束时间必须同时设置")
	}
	if exam.HasWindow() {
		ws, we := *exam.WindowStart, *exam.WindowEnd
		if !we.After(ws) {
			return invalid("答题窗口结束时间必须晚于开始时间")
		}
		if ws.Before(exam.StartTime) || we.After(exam.EndTime) {
			return invalid("答题窗口必须在考试时间范围内")
		}
		if duration > we.Sub(ws) {
			return invalid("考试时长不能超过答题窗口")
		}
		return nil
	}

	if duration > exam.EndTime.Sub(exam.StartTime) {
		return invalid("考试时长不能超过考试时间范围")
	}
	return nil
}

func loadExam(db *gorm.DB, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := db.First(&exam, id).Error; err != nil {
		return nil, wrapNotFound(err, "考试不存在")
	}
	return &exam, nil
}

// canManage 管理员或考试创建者
func canManage(operator *model.User, exam *model.Exam) bool {
	return operator.IsAdmin() || (operator.IsStaff() && exam.CreatedByID == operator.ID)
}

// manageable 加载考试并校验管理权限
func manageable(db *gorm.DB, operator *model.User, id uint) (*model.Exam, error) {
	exam, err := loadExam(db, id)
	if err != nil {
		return nil, err
	}
	if !canManage(operator, exam) {
		return nil, forbidden("无权操作该考试")
	}
	return exam, nil
}

func questionCounts(db *gorm.DB, examIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(examIDs))
	if len(examIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ExamID uint
		Total  int64
	}
	if err := db.Model(&model.ExamQuestion{}).
		Select("exam_id, COUNT(*) AS total").
		Where("exam_id IN ?", examIDs).
		Group("exam_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ExamID] = r.Total
	}
	return counts, nil
}

// Create 创建考试，管理员创建的考试直接通过审核
func (s *ExamService) Create(operator *model.User, req types.CreateExamRequest) (*model.Exam, error) {
	if !operator.IsStaff() {
		return nil, forbidden("只有管理员和教师可以创建考试")
	}

	exam := newExam(operator, req)
	if err := validateExam(exam); err != nil {
		return nil, err
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exam).Error; err != nil {
			return err
		}
		if len(req.Sections) > 0 {
			if _, err := createSectionTree(tx, exam.ID, req.Sections, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func newExam(operator *model.User, req types.CreateExamRequest) *model.Exam {
	exam := &model.Exam{
		Title:                    strings.TrimSpace(req.Title),
		Description:              req.Description,
		Type:                     req.Type,
		Subject:                  req.Subject,
		Grade:                    req.Grade,
		Medium:                   req.Medium,
		Status:                   model.ExamStatusDraft,
		ApprovalStatus:           model.ApprovalPending,
		Duration:                 req.Duration,
		TotalMarks:               req.TotalMarks,
		PassingMarks:             req.PassingMarks,
		AttemptsAllowed:          req.AttemptsAllowed,
		StartTime:                req.StartTime,
		EndTime:                  req.EndTime,
		WindowStart:              req.WindowStart,
		WindowEnd:                req.WindowEnd,
		Instructions:             req.Instructions,
		EnableRanking:            req.EnableRanking,
		ShowResults:              req.ShowResults,
		RandomizeQuestions:       req.RandomizeQuestions,
		UseHierarchicalStructure: req.UseHierarchicalStructure || len(req.Sections) > 0,
		CreatedByID:              operator.ID,
	}
	if exam.Type == "" {
		exam.Type = model.ExamTypeFullOnline
	}
	if exam.AttemptsAllowed == 0 {
		exam.AttemptsAllowed = 1
	}
	if operator.IsAdmin() {
		now := time.Now()
		exam.ApprovalStatus = model.ApprovalApproved
		exam.ApprovedByID = &operator.ID
		exam.ApprovedAt = &now
	}
	return exam
}

// List 考试列表，教师只能看到自己创建的考试
func (s *ExamService) List(operator *model.User, query types.ExamQuery) ([]ExamListItem, int64, error) {
	query.Normalize(10, 100)

	db := database.DB.Model(&model.Exam{})
	if !operator.IsAdmin() {
		db = db.Where("created_by_id = ?", operator.ID)
	} else if query.CreatedBy > 0 {
		db = db.Where("created_by_id = ?", query.CreatedBy)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.ApprovalStatus != "" {
		db = db.Where("approval_status = ?", query.ApprovalStatus)
	}
	if query.Subject != "" {
		db = db.Where("subject = ?", query.Subject)
	}
	if query.Keyword != "" {
		db = db.Where("title LIKE ?", "%"+query.Keyword+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var exams []model.Exam
	if err := db.Preload("Creator").
		Order("created_at DESC").Order("id DESC").
		Offset(query.Offset()).Limit(query.Size).
		Find(&exams).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]uint, len(exams))
	for i, e := range exams {
		ids[i] = e.ID
	}
	counts, err := questionCounts(database.DB, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]ExamListItem, 0, len(exams))
	for i := range exams {
		item := ExamListItem{Exam: &exams[i], QuestionCount: counts[exams[i].ID]}
		if exams[i].Creator != nil {
			item.CreatorName = exams[i].Creator.DisplayName()
		}
		items = append(items, item)
	}
	return items, total, nil
}

// LiveExam 正在进行中的考试及答卷数量
type LiveExam struct {
	ExamListItem
	AttemptCount    int64 `json:"attempt_count"`
	InProgressCount int64 `json:"in_progress_count"`
}

// Live 当前时间处于考试时间范围内的已发布或进行中考试，按开始时间排序
func (s *ExamService) Live(operator *model.User) ([]LiveExam, error) {
	now := timeNow()
	db := database.DB.Preload("Creator").
		Where("status IN ?", []string{model.ExamStatusPublished, model.ExamStatusActive}).
		Where("start_time <= ? AND end_time >= ?", now, now)
	if !operator.IsAdmin() {
		db = db.Where("created_by_id = ?", operator.ID)
	}

	var exams []model.Exam
	if err := db.Order("start_time ASC").Order("id ASC").Find(&exams).Error; err != nil {
		return nil, err
	}
	if len(exams) == 0 {
		return []LiveExam{}, nil
	}

	ids := make([]uint, len(exams))
	for i, e := range exams {
		ids[i] = e.ID
	}
	counts, err := questionCounts(database.DB, ids)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ExamID     uint
		Total      int64
		InProgress int64
	}
	if err := database.DB.Model(&model.ExamAttempt{}).
		Select("exam_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS in_progress", model.AttemptInProgress).
		Where("exam_id IN ?", ids).
		Group("exam_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	attempts := make(map[uint]int, len(rows))
	for i, r := range rows {
		attempts[r.ExamID] = i
	}

	live := make([]LiveExam, 0, len(exams))
	for i := range exams {
		item := LiveExam{ExamListItem: ExamListItem{Exam: &exams[i], QuestionCount: counts[exams[i].ID]}}
		if exams[i].Creator != nil {
			item.CreatorName = exams[i].Creator.DisplayName()
		}
		if j, ok := attempts[exams[i].ID]; ok {
			item.AttemptCount = rows[j].Total
			item.InProgressCount = rows[j].InProgress
		}
		live = append(live, item)
	}
	return live, nil
}

// Get 考试详情，包含大题和题组
func (s *ExamService) Get(operator *model.User, id uint) (*ExamListItem, error) {
	var exam model.Exam
	err := database.DB.
		Preload("Creator").
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Sections.Groups", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		First(&exam, id).Error
	if err != nil {
		return nil, wrapNotFound(err, "考试不存在")
	}
	if !canManage(operator, &exam) {
		return nil, forbidden("无权查看该考试")
	}

	counts, err := questionCounts(database.DB, []uint{exam.ID})
	if err != nil {
		return nil, err
	}

	item := &ExamListItem{Exam: &exam, QuestionCount: counts[exam.ID]}
	if exam.Creator != nil {
		item.CreatorName = exam.Creator.DisplayName()
	}
	return item, nil
}

// Update 部分更新考试信息
func (s *ExamService) Update(operator *model.User, id uint, req types.UpdateExamRequest) (*model.Exam, error) {
	exam, err := manageable(database.DB, operator, id)
	if err != nil {
		return nil, err
	}

	switch exam.Status {
	case model.ExamStatusActive, model.ExamStatusCompleted, model.ExamStatusCancelled:
		return nil, invalidState("当前状态(%s)的考试不能修改", exam.Status)
	}

	applyExamUpdate(exam, req)
	if err := validateExam(exam); err != nil {
		return nil, err
	}

	// 教师修改已通过审核的考试需要重新审核
	if !operator.IsAdmin() && exam.ApprovalStatus == model.ApprovalApproved {
		exam.ApprovalStatus = model.ApprovalPending
		exam.Status = model.ExamStatusDraft
		exam.ApprovedByID = nil
		exam.ApprovedAt = nil
	}

	if err := database.DB.Omit(clause.Associations).Save(exam).Error; err != nil {
		return nil, err
	}
	return exam, nil
}

func applyExamUpdate(exam *model.Exam, req types.UpdateExamRequest) {
	if req.Title != nil {
		exam.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.Type != nil {
		exam.Type = *req.Type
	}
	if req.Subject != nil {
		exam.Subject = *req.Subject
	}
	if req.Grade != nil {
		exam.Grade = *req.Grade
	}
	if req.Medium != nil {
		exam.Medium = *req.Medium
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.TotalMarks != nil {
		exam.TotalMarks = *req.TotalMarks
	}
	if req.PassingMarks != nil {
		exam.PassingMarks = *req.PassingMarks
	}
	if req.AttemptsAllowed != nil {
		exam.AttemptsAllowed = *req.AttemptsAllowed
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if req.ClearWindow {
		exam.WindowStart, exam.WindowEnd = nil, nil
	}
	if req.WindowStart != nil {
		exam.WindowStart = req.WindowStart
	}
	if req.WindowEnd != nil {
		exam.WindowEnd = req.WindowEnd
	}
	if req.Instructions != nil {
		exam.Instructions = *req.Instructions
	}
	if req.EnableRanking != nil {
		exam.EnableRanking = *req.EnableRanking
	}
	if req.ShowResults != nil {
		exam.ShowResults = *req.ShowResults
	}
	if req.RandomizeQuestions != nil {
		exam.RandomizeQuestions = *req.RandomizeQuestions
	}
}

// Delete 删除考试（软删除）
func (s *ExamService) Delete(operator *model.User, id uint) error {
	exam, err := manageable(database.DB, operator, id)
	if err != nil {
		return err
	}
	if exam.Status == model.ExamStatusActive {
		return invalidState("进行中的考试不能删除")
	}
	return database.DB.Delete(exam).Error
}

// Publish 发布考试
func (s *ExamService) Publish(operator *model.User, id uint) (*model.Exam, error) {
	exam, err := manageable(database.DB, operator, id)
	if err != nil {
		return nil, err
	}

	switch exam.Status {
	case model.ExamStatusPublished, model.ExamStatusActive:
		return nil, invalidState("考试已发布")
	case model.ExamStatusCompleted:
		return nil, invalidState("考试已结束")
	case model.ExamStatusCancelled:
		return nil, invalidState("已取消的考试不能发布")
	}
	if exam.ApprovalStatus != model.ApprovalApproved {
		return nil, invalidState("考试尚未通过审核，不能发布")
	}

	counts, err := questionCounts(database.DB, []uint{exam.ID})
	if err != nil {
		return nil, err
	}
	if counts[exam.ID] == 0 {
		return nil, invalidState("考试没有题目，不能发布")
	}

	if err := database.DB.Model(exam).Update("status", model.ExamStatusPublished).Error; err != nil {
		return nil, err
	}
	exam.Status = model.ExamStatusPublished
	return exam, nil
}

// 各题型预计作答时间(分钟)
var estimatedMinutes = map[string]int{
	model.QuestionMCQ:         1,
	model.QuestionTrueFalse:   1,
	model.QuestionMultiple:    2,
	model.QuestionFillInBlank: 2,
	model.QuestionEssay:       10,
	model.QuestionUpload:      15,
}

// Preview 试卷预览，附带提示信息但不阻止保存
func (s *ExamService) Preview(operator *model.User, id uint) (*types.ExamPreview, error) {
	var exam model.Exam
	err := database.DB.
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Sections.Groups", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		First(&exam, id).Error
	if err != nil {
		return nil, wrapNotFound(err, "考试不存在")
	}
	if !canManage(operator, &exam) {
		return nil, forbidden("无权查看该考试")
	}

	questions, err := Question.List(id)
	if err != nil {
		return nil, err
	}

	preview := &types.ExamPreview{
		Exam:          &exam,
		Questions:     questions,
		QuestionCount: len(questions),
		Warnings:      examWarnings(&exam, questions),
	}
	perSection := make(map[uint]int)
	for _, q := range questions {
		if q.ExamPart == 2 {
			preview.Part2Count++
		} else {
			preview.Part1Count++
		}
		preview.TotalPoints += q.Points
		preview.EstimatedDuration += estimatedMinutes[q.Type]
		if q.SectionID != nil {
			perSection[*q.SectionID]++
		}
	}
	preview.TotalPoints = round2(preview.TotalPoints)
	for _, section := range exam.Sections {
		if perSection[section.ID] == 0 {
			preview.Warnings = append(preview.Warnings, fmt.Sprintf("大题「%s」没有题目", section.Title))
		}
	}
	return preview, nil
}

// examWarnings 分数相关的提示
func examWarnings(exam *model.Exam, questions []model.ExamQuestion) []string {
	warnings := []string{}
	if len(questions) == 0 {
		warnings = append(warnings, "考试还没有题目")
		return warnings
	}

	var points float64
	for _, q := range questions {
		points += q.Points
	}
	points = round2(points)
	if points != exam.TotalMarks {
		warnings = append(warnings, fmt.Sprintf("题目总分(%g)与考试总分(%g)不一致", points, exam.TotalMarks))
	}
	if exam.PassingMarks > points {
		warnings = append(warnings, fmt.Sprintf("及格分(%g)高于题目总分(%g)", exam.PassingMarks, points))
	}
	return warnings
}

// Duplicate 复制考试及其大题、题组和题目，副本需要重新审核
func (s *ExamService) Duplicate(operator *model.User, id uint) (*model.Exam, error) {
	if !operator.IsAdmin() {
		return nil, forbidden("只有管理员可以复制考试")
	}

	var copied *model.Exam
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var source model.Exam
		if err := tx.Preload("Sections.Groups").First(&source, id).Error; err != nil {
			return wrapNotFound(err, "考试不存在")
		}

		exam := source
		exam.ID = 0
		exam.Title = source.Title + " (Copy)"
		exam.Status = model.ExamStatusDraft
		exam.ApprovalStatus = model.ApprovalPending
		exam.ApprovedByID = nil
		exam.ApprovedAt = nil
		exam.ApprovalNote = ""
		exam.RejectionReason = ""
		exam.ClosedReason = ""
		exam.RankingsVisible = false
		exam.CreatedByID = operator.ID
		exam.Creator = nil
		exam.Sections = nil
		exam.Questions = nil
		exam.CreatedAt = time.Time{}
		exam.UpdatedAt = time.Time{}
		if err := tx.Create(&exam).Error; err != nil {
			return err
		}

		sectionIDs := make(map[uint]uint)
		groupIDs := make(map[uint]uint)
		for _, section := range source.Sections {
			newSection := model.ExamSection{
				ExamID:              exam.ID,
				Title:               section.Title,
				Description:         section.Description,
				Position:            section.Position,
				ExamPart:            section.ExamPart,
				DefaultQuestionType: section.DefaultQuestionType,
			}
			if err := tx.Create(&newSection).Error; err != nil {
				return err
			}
			sectionIDs[section.ID] = newSection.ID

			for _, group := range section.Groups {
				newGroup := model.QuestionGroup{
					SectionID:   newSection.ID,
					Title:       group.Title,
					Instruction: group.Instruction,
					Position:    group.Position,
				}
				if err := tx.Create(&newGroup).Error; err != nil {
					return err
				}
				groupIDs[group.ID] = newGroup.ID
			}
		}

		var questions []model.ExamQuestion
		if err := tx.Where("exam_id = ?", source.ID).Order("position, id").Find(&questions).Error; err != nil {
			return err
		}
		for _, q := range questions {
			q.ID = 0
			q.ExamID = exam.ID
			q.SectionID = remap(q.SectionID, sectionIDs)
			q.GroupID = remap(q.GroupID, groupIDs)
			q.CreatedAt = time.Time{}
			q.UpdatedAt = time.Time{}
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
		}

		copied = &exam
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copied, nil
}

func remap(id *uint, ids map[uint]uint) *uint {
	if id == nil {
		return nil
	}
	newID, ok := ids[*id]
	if !ok {
		return nil
	}
	return &newID
}

// ForceClose 强制结束进行中的考试，未交卷的答卷按已作答内容提交
func (s *ExamService) ForceClose(operator *model.User, id uint, reason string) (*model.Exam, error) {
	if !operator.IsAdmin() {
		return nil, forbidden("只有管理员可以强制结束考试")
	}

	exam, err := loadExam(database.DB, id)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusActive {
		return nil, invalidState("只能强制结束进行中的考试")
	}
	if reason == "" {
		reason = "管理员强制结束"
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := closeOpenAttempts(tx, exam, time.Now()); err != nil {
			return err
		}
		exam.Status = model.ExamStatusCompleted
		exam.ClosedReason = reason
		return tx.Model(exam).Updates(map[string]interface{}{
			"status":        exam.Status,
			"closed_reason": exam.ClosedReason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

// SetRankingVisibility 设置排名是否对学生可见
func (s *ExamService) SetRankingVisibility(operator *model.User, id uint, visible bool) (*model.Exam, error) {
	if !operator.IsAdmin() {
		return nil, forbidden("只有管理员可以设置排名可见性")
	}

	exam, err := loadExam(database.DB, id)
	if err != nil {
		return nil, err
	}
	if visible && !exam.EnableRanking {
		return nil, invalidState("该考试未开启排名")
	}
	if err := database.DB.Model(exam).Update("rankings_visible", visible).Error; err != nil {
		return nil, err
	}
	exam.RankingsVisible = visible
	return exam, nil
}
