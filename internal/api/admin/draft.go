package admin

import (
	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

// GetDrafts 当前用户的组卷草稿
func GetDrafts(c *gin.Context) {
	drafts, err := service.Draft.List(middleware.CurrentUser(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, drafts)
}

// NewDraftKey 为新考试生成草稿 key
func NewDraftKey(c *gin.Context) {
	api.Success(c, gin.H{"key": service.Draft.NewKey()})
}

// GetDraft 读取草稿
func GetDraft(c *gin.Context) {
	draft, err := service.Draft.Get(middleware.CurrentUser(c), c.Param("key"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, draft)
}

// SaveDraft 保存草稿，版本号不一致返回 409
func SaveDraft(c *gin.Context) {
	var req types.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	draft, err := service.Draft.Save(middleware.CurrentUser(c), c.Param("key"), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	// 自动保存很频繁，不写审计日志
	middleware.MarkAudited(c)
	api.Success(c, draft)
}

// DeleteDraft 删除草稿
func DeleteDraft(c *gin.Context) {
	if err := service.Draft.Delete(middleware.CurrentUser(c), c.Param("key")); err != nil {
		api.Fail(c, err)
		return
	}
	api.Message(c, "删除成功")
}

// SubmitBuilder 组卷向导提交
func SubmitBuilder(c *gin.Context) {
	var req types.BuilderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := service.Builder.Submit(middleware.CurrentUser(c), req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, result)
}
