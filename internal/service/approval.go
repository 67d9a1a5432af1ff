package service

import (
	"context"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var Approval = new(ApprovalService)

type ApprovalService struct{}

// PendingApprovals 待审核列表
type PendingApprovals struct {
	Exams      []ExamListItem   `json:"exams"`
	Pagination types.Pagination `json:"pagination"`
}

// Pending 待审核考试，最新提交的在前
func (s *ApprovalService) Pending(ctx context.Context, page, limit int) (*PendingApprovals, error) {
	query := types.PageQuery{Page: page, Size: limit}
	query.Normalize(10, 100)

	scope := func(ctx context.Context) *gorm.DB {
		return database.DB.WithContext(ctx).Model(&model.Exam{}).
			Where("approval_status = ?", model.ApprovalPending)
	}

	var (
		total int64
		exams []model.Exam
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return scope(gctx).Preload("Creator").
			Order("created_at DESC").Order("id DESC").
			Offset(query.Offset()).Limit(query.Size).
			Find(&exams).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]uint, len(exams))
	for i, e := range exams {
		ids[i] = e.ID
	}
	counts, err := questionCounts(database.DB.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}

	items := make([]ExamListItem, 0, len(exams))
	for i := range exams {
		item := ExamListItem{Exam: &exams[i], QuestionCount: counts[exams[i].ID]}
		if exams[i].Creator != nil {
			item.CreatorName = exams[i].Creator.DisplayName()
		}
		items = append(items, item)
	}

	return &PendingApprovals{
		Exams:      items,
		Pagination: types.NewPagination(query.Page, query.Size, total),
	}, nil
}

// Approve 审核通过
func (s *ApprovalService) Approve(operator *model.User, id uint, req types.ApproveRequest) (*model.Exam, error) {
	if !operator.IsAdmin() {
		return nil, forbidden("只有管理员可以审核考试")
	}

	exam, err := loadExam(database.DB, id)
	if err != nil {
		return nil, err
	}
	if exam.ApprovalStatus != model.ApprovalPending {
		return nil, invalidState("考试不在待审核状态")
	}

	before := approvalSnapshot(exam)
	now := time.Now()
	exam.ApprovalStatus = model.ApprovalApproved
	exam.Status = model.ExamStatusApproved
	exam.ApprovedByID = &operator.ID
	exam.ApprovedAt = &now
	exam.ApprovalNote = req.Notes
	exam.RejectionReason = ""

	if err := database.DB.Model(exam).Updates(map[string]interface{}{
		"approval_status":  exam.ApprovalStatus,
		"status":           exam.Status,
		"approved_by_id":   exam.ApprovedByID,
		"approved_at":      exam.ApprovedAt,
		"approval_note":    exam.ApprovalNote,
		"rejection_reason": exam.RejectionReason,
	}).Error; err != nil {
		return nil, err
	}

	s.record(operator, exam, model.AuditApprove, before, map[string]interface{}{"notes": req.Notes})
	return exam, nil
}

// Reject 驳回，反馈意见附加在驳回原因之后
func (s *ApprovalService) Reject(operator *model.User, id uint, req types.RejectRequest) (*model.Exam, error) {
	if !operator.IsAdmin() {
		return nil, forbidden("只有管理员可以审核考试")
	}
	if req.Reason == "" {
		return nil, invalid("驳回原因不能为空")
	}

	exam, err := loadExam(database.DB, id)
	if err != nil {
		return nil, err
	}
	if exam.ApprovalStatus != model.ApprovalPending {
		return nil, invalidState("考试不在待审核状态")
	}

	reason := req.Reason
	if req.Feedback != "" {
		reason += "\n\nFeedback: " + req.Feedback
	}

	before := approvalSnapshot(exam)
	exam.ApprovalStatus = model.ApprovalRejected
	exam.Status = model.ExamStatusCancelled
	exam.RejectionReason = reason

	if err := database.DB.Model(exam).Updates(map[string]interface{}{
		"approval_status":  exam.ApprovalStatus,
		"status":           exam.Status,
		"rejection_reason": exam.RejectionReason,
	}).Error; err != nil {
		return nil, err
	}

	s.record(operator, exam, model.AuditReject, before, map[string]interface{}{
		"reason":          req.Reason,
		"feedback":        req.Feedback,
		"request_changes": req.RequestChanges,
	})
	return exam, nil
}

func approvalSnapshot(exam *model.Exam) map[string]interface{} {
	return map[string]interface{}{
		"status":          exam.Status,
		"approval_status": exam.ApprovalStatus,
	}
}

func (s *ApprovalService) record(operator *model.User, exam *model.Exam, action string, before, metadata map[string]interface{}) {
	AuditLog.Record(types.CreateAuditLog{
		UserID:     &operator.ID,
		Action:     action,
		Resource:   "exams",
		ResourceID: uintString(exam.ID),
		OldValues:  before,
		NewValues:  approvalSnapshot(exam),
		Metadata:   metadata,
	})
}
