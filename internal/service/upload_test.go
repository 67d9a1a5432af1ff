package service

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"exam-portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader 通过 multipart 请求构造上传文件
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/uploads/images", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(2<<20))
	_, fh, err := req.FormFile("file")
	require.NoError(t, err)
	return fh
}

func TestUploadSaveImage(t *testing.T) {
	setupDB(t)
	freezeTime(t, time.Date(2024, 3, 9, 10, 0, 0, 0, time.Local))

	saved, err := Upload.SaveImage(fileHeader(t, "Diagram.PNG", []byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.URL, "/uploads/images/2024/03/"), saved.URL)
	assert.True(t, strings.HasSuffix(saved.URL, ".png"), saved.URL)
	assert.Equal(t, "Diagram.PNG", saved.Name)
	assert.EqualValues(t, 9, saved.Size)

	stored := filepath.Join(config.GlobalConfig.Upload.Dir, filepath.FromSlash(strings.TrimPrefix(saved.URL, "/uploads/")))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestUploadRejectsFiles(t *testing.T) {
	setupDB(t)

	_, err := Upload.SaveImage(fileHeader(t, "script.sh", []byte("#!/bin/sh")))
	assert.ErrorIs(t, err, ErrValidation)

	big := bytes.Repeat([]byte{0xff}, 1<<20+1)
	_, err = Upload.SaveImage(fileHeader(t, "huge.jpg", big))
	assert.ErrorIs(t, err, ErrValidation)
}
