package service

import (
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"exam-portal/internal/config"

	"github.com/google/uuid"
)

var Upload = new(UploadService)

type UploadService struct{}

// UploadedFile 上传结果
type UploadedFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// SaveImage 保存题目图片到 <dir>/images/<yyyy>/<mm>/<uuid><ext>
func (s *UploadService) SaveImage(file *multipart.FileHeader) (*UploadedFile, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := false
	for _, e := range cfg.Upload.AllowedExts {
		if strings.EqualFold(e, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, invalid("不支持的文件类型: %s", ext)
	}
	if maxBytes := cfg.Upload.MaxSize << 20; maxBytes > 0 && file.Size > maxBytes {
		return nil, invalid("文件大小不能超过%dMB", cfg.Upload.MaxSize)
	}

	month := timeNow().Format("2006/01")
	name := uuid.NewString() + ext
	dir := filepath.Join(cfg.Upload.Dir, "images", filepath.FromSlash(month))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return nil, err
	}

	return &UploadedFile{
		URL:  path.Join(cfg.Upload.URLPrefix, "images", month, name),
		Name: file.Filename,
		Size: size,
	}, nil
}
