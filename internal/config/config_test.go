package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("jwt:\n  secret: s3cret\n"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Log.MaxSize)
	assert.Equal(t, "/uploads", cfg.Upload.URLPrefix)
	assert.Equal(t, 30, cfg.Draft.RetentionDays)
	assert.Contains(t, cfg.Upload.AllowedExts, ".png")
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("EXAM_DB_DRIVER", "sqlite")
	t.Setenv("EXAM_DB_PATH", "/tmp/exam.db")
	t.Setenv("EXAM_JWT_SECRET", "from-env")
	t.Setenv("EXAM_CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Parse([]byte("database:\n  driver: mysql\njwt:\n  secret: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/exam.db", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Cors.AllowedOrigins)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "database:\n  driver: oracle\njwt:\n  secret: x\n"},
		{"missing secret", "server:\n  port: \"9000\"\n"},
		{"broken yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromConfigPath(t *testing.T) {
	GlobalConfig = nil
	t.Cleanup(func() { GlobalConfig = nil })

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\njwt:\n  secret: abc\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Same(t, cfg, GlobalConfig)
}
