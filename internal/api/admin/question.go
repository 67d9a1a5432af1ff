package admin

import (
	"bytes"
	"fmt"
	"net/http"

	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

type bulkQuestionsRequest struct {
	Questions []types.QuestionRequest `json:"questions" binding:"required,min=1"`
}

type reorderRequest struct {
	Questions []types.ReorderItem `json:"questions" binding:"required,min=1,dive"`
}

// GetQuestions 考试题目列表
func GetQuestions(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	questions, err := service.Question.ListFor(middleware.CurrentUser(c), examID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, questions)
}

// GetQuestionsByPart 按第一、二部分分组的题目
func GetQuestionsByPart(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	parts, err := service.Question.ByPart(middleware.CurrentUser(c), examID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, parts)
}

// CreateQuestion 添加题目
func CreateQuestion(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req types.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	question, err := service.Question.Add(middleware.CurrentUser(c), examID, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, question)
}

// BulkCreateQuestions 批量添加题目，任一题目不合法则全部不添加
func BulkCreateQuestions(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req bulkQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	questions, err := service.Question.BulkAdd(middleware.CurrentUser(c), examID, req.Questions)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, questions)
}

// ReorderQuestions 调整题目顺序
func ReorderQuestions(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	if err := service.Question.Reorder(middleware.CurrentUser(c), examID, req.Questions); err != nil {
		api.Fail(c, err)
		return
	}
	api.Message(c, "排序已更新")
}

// UpdateQuestion 更新题目
func UpdateQuestion(c *gin.Context) {
	questionID, ok := api.ParamID(c, "questionId")
	if !ok {
		return
	}

	var req types.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	question, err := service.Question.Update(middleware.CurrentUser(c), questionID, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, question)
}

// DeleteQuestion 删除题目
func DeleteQuestion(c *gin.Context) {
	questionID, ok := api.ParamID(c, "questionId")
	if !ok {
		return
	}

	if err := service.Question.Delete(middleware.CurrentUser(c), questionID); err != nil {
		api.Fail(c, err)
		return
	}
	api.Message(c, "删除成功")
}

// ExportQuestions 导出考试题目为 CSV
func ExportQuestions(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	// 先写入缓冲区，出错时还能返回 JSON
	var buf bytes.Buffer
	if err := service.Question.ExportCSV(middleware.CurrentUser(c), examID, &buf); err != nil {
		api.Fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=exam_%d_questions.csv", examID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ImportQuestions 从 CSV 导入题目，出错的行跳过并返回错误明细
func ImportQuestions(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		api.BadRequest(c, "请选择要上传的CSV文件")
		return
	}

	src, err := file.Open()
	if err != nil {
		api.Fail(c, err)
		return
	}
	defer src.Close()

	result, err := service.Question.ImportCSV(middleware.CurrentUser(c), examID, src)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, result)
}
