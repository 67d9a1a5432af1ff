package admin

import (
	"exam-portal/internal/api"
	"exam-portal/internal/middleware"
	"exam-portal/internal/service"
	"exam-portal/internal/types"

	"github.com/gin-gonic/gin"
)

type bulkSectionsRequest struct {
	Sections []types.SectionRequest `json:"sections" binding:"required,min=1,dive"`
}

type bulkGroupsRequest struct {
	Groups []types.GroupRequest `json:"groups" binding:"required,min=1"`
}

// BulkCreateSections 批量创建大题及其题组、题目
func BulkCreateSections(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req bulkSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	sections, err := service.Section.BulkCreate(middleware.CurrentUser(c), examID, req.Sections)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, sections)
}

// GetSections 大题列表（含题组和题目）
func GetSections(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	sections, err := service.Section.List(middleware.CurrentUser(c), examID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, sections)
}

// UpdateSection 更新大题
func UpdateSection(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := api.ParamID(c, "sectionId")
	if !ok {
		return
	}

	var req types.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	section, err := service.Section.Update(middleware.CurrentUser(c), examID, sectionID, req)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, section)
}

// DeleteSection 删除大题
func DeleteSection(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := api.ParamID(c, "sectionId")
	if !ok {
		return
	}

	if err := service.Section.Delete(middleware.CurrentUser(c), examID, sectionID); err != nil {
		api.Fail(c, err)
		return
	}
	api.Message(c, "删除成功")
}

// BulkCreateGroups 在大题下批量创建题组
func BulkCreateGroups(c *gin.Context) {
	examID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}
	sectionID, ok := api.ParamID(c, "sectionId")
	if !ok {
		return
	}

	var req bulkGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "")
		return
	}

	groups, err := service.Section.BulkCreateGroups(middleware.CurrentUser(c), examID, sectionID, req.Groups)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, groups)
}
