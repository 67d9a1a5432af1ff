package admin

import (
	"exam-portal/internal/api"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadImage 上传题目图片
func UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		api.BadRequest(c, "请选择要上传的图片")
		return
	}

	saved, err := service.Upload.SaveImage(file)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.Success(c, saved)
}
