package admin

import (
	"strconv"

	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

// GetExams 考试列表，教师只能看到自己创建的考试
func GetExams(c *gin.Context) {
	var query types.ExamQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequest(c, "")
		return
	}

	exams, total, err := service.Exam.List(middleware.CurrentUser(c), query)
	if err != nil {
		api.Fail(c, err)
		return
	}

	api.Success(c, gin.H{
		"total": total,
		"items": exams,
	})
}

// GetLiveExams 正在进行的考试，附带答卷数量
func GetLiveExams(c *gin.Context) {
	exams, err := service.Exam.Live(middleware.CurrentUser(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exams)
}

// GetExam 考试详情
func GetExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	exam, err := service.Exam.Get(middleware.CurrentUser(c), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exam)
}

// CreateExam 创建考试，可同时带上大题结构
func CreateExam(c *gin.Context) {
	var req types.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	exam, err := service.Exam.Create(middleware.CurrentUser(c), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exam)
}

// UpdateExam 更新考试
func UpdateExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req types.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	exam, err := service.Exam.Update(middleware.CurrentUser(c), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exam)
}

// DeleteExam 删除考试
func DeleteExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	if err := service.Exam.Delete(middleware.CurrentUser(c), id); err != nil {
		api.Fail(c, err)
		return
	}
	api.Message(c, "删除成功")
}

// PublishExam 发布考试
func PublishExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	exam, err := service.Exam.Publish(middleware.CurrentUser(c), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exam)
}

// PreviewExam 试卷预览，附带结构检查提示
func PreviewExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	preview, err := service.Exam.Preview(middleware.CurrentUser(c), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, preview)
}

// DuplicateExam 复制考试
func DuplicateExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	exam, err := service.Exam.Duplicate(middleware.CurrentUser(c), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exam)
}

// ForceCloseExam 强制结束考试
func ForceCloseExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req types.ForceCloseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, "")
			return
		}
	}

	exam, err := service.Exam.ForceClose(middleware.CurrentUser(c), id, req.Reason)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exam)
}

// SetRankingVisibility 设置学生是否可以查看排名
func SetRankingVisibility(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req types.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	exam, err := service.Exam.SetRankingVisibility(middleware.CurrentUser(c), id, *req.Visible)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, exam)
}

// PublishResults 发布成绩
func PublishResults(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	count, err := service.Marking.PublishResults(middleware.CurrentUser(c), id)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, gin.H{
		"exam_id":       id,
		"student_count": count,
	})
}

// GetPendingApprovals 待审核考试
func GetPendingApprovals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	pending, err := service.Approval.Pending(c.Request.Context(), page, limit)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, pending)
}

// ApproveExam 审核通过，审计日志由服务层写入
func ApproveExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req types.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, "")
			return
		}
	}

	exam, err := service.Approval.Approve(middleware.CurrentUser(c), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	middleware.MarkAudited(c)
	api.Success(c, exam)
}

// RejectExam 审核驳回
func RejectExam(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req types.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "请填写驳回原因")
		return
	}

	exam, err := service.Approval.Reject(middleware.CurrentUser(c), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	middleware.MarkAudited(c)
	api.Success(c, exam)
}
