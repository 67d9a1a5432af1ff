package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`       // 日志级别: debug, info, warn, error
	Format     string `yaml:"format"`      // 日志格式: json, text
	Output     string `yaml:"output"`      // 输出方式: console, file, both
	FilePath   string `yaml:"file_path"`   // 日志文件路径
	MaxSize    int    `yaml:"max_size"`    // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"max_backups"` // 保留的旧日志文件数量
	MaxAge     int    `yaml:"max_age"`     // 日志文件保留天数
	Compress   bool   `yaml:"compress"`    // 是否压缩旧日志文件
}

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`

	Database struct {
		Driver       string `yaml:"driver"` // mysql, postgres, sqlite
		Host         string `yaml:"host"`
		Port         string `yaml:"port"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		DBName       string `yaml:"dbname"`
		Path         string `yaml:"path"` // sqlite 数据库文件
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`

	JWT struct {
		Secret     string `yaml:"secret"`
		ExpireTime int    `yaml:"expire_time"`
	} `yaml:"jwt"`

	Log LogConfig `yaml:"log"`

	Upload struct {
		Dir         string   `yaml:"dir"`
		URLPrefix   string   `yaml:"url_prefix"`
		MaxSize     int64    `yaml:"max_size"` // MB
		AllowedExts []string `yaml:"allowed_exts"`
	} `yaml:"upload"`

	Cors struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Draft struct {
		RetentionDays int `yaml:"retention_days"`
	} `yaml:"draft"`

	Admin struct {
		DefaultPassword string `yaml:"default_password"`
	} `yaml:"admin"`
}

var GlobalConfig *Config

func Load() (*Config, error) {
	if GlobalConfig != nil {
		return GlobalConfig, nil
	}

	// .env 文件可选，不存在时忽略
	_ = godotenv.Load()

	// 获取配置文件路径
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		workDir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("获取工作目录失败: %v", err)
		}

		// 尝试默认配置路径
		configPath = filepath.Join(workDir, "config", "config.yaml")

		// 如果默认配置不存在，尝试根目录下的配置文件
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = filepath.Join(workDir, "config.yaml")
		}
	}

	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败 %s: %v", configPath, err)
	}

	config, err := Parse(configFile)
	if err != nil {
		return nil, err
	}

	GlobalConfig = config
	return config, nil
}

// Parse 解析 YAML 内容，应用环境变量覆盖和默认值
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	applyEnv(config)
	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv 环境变量优先于配置文件
func applyEnv(config *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("EXAM_SERVER_PORT", &config.Server.Port)
	setString("EXAM_SERVER_MODE", &config.Server.Mode)
	setString("EXAM_DB_DRIVER", &config.Database.Driver)
	setString("EXAM_DB_HOST", &config.Database.Host)
	setString("EXAM_DB_PORT", &config.Database.Port)
	setString("EXAM_DB_USER", &config.Database.Username)
	setString("EXAM_DB_PASSWORD", &config.Database.Password)
	setString("EXAM_DB_NAME", &config.Database.DBName)
	setString("EXAM_DB_PATH", &config.Database.Path)
	setString("EXAM_JWT_SECRET", &config.JWT.Secret)

	if v := os.Getenv("EXAM_JWT_EXPIRE_TIME"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			config.JWT.ExpireTime = seconds
		}
	}
	if v := os.Getenv("EXAM_CORS_ORIGINS"); v != "" {
		config.Cors.AllowedOrigins = strings.Split(v, ",")
	}
}

func applyDefaults(config *Config) {
	// 服务配置默认值
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "debug"
	}

	// 数据库配置默认值
	if config.Database.Driver == "" {
		config.Database.Driver = "mysql"
	}
	if config.Database.Driver == "sqlite" && config.Database.Path == "" {
		config.Database.Path = "data/exam.db"
	}
	if config.Database.MaxOpenConns == 0 {
		config.Database.MaxOpenConns = 50
	}
	if config.Database.MaxIdleConns == 0 {
		config.Database.MaxIdleConns = 10
	}

	if config.JWT.ExpireTime == 0 {
		config.JWT.ExpireTime = 7 * 24 * 3600
	}

	// 日志配置默认值
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
	if config.Log.Output == "" {
		config.Log.Output = "console"
	}
	if config.Log.FilePath == "" {
		config.Log.FilePath = "logs/app.log"
	}
	if config.Log.MaxSize == 0 {
		config.Log.MaxSize = 100 // 100MB
	}
	if config.Log.MaxBackups == 0 {
		config.Log.MaxBackups = 3
	}
	if config.Log.MaxAge == 0 {
		config.Log.MaxAge = 28 // 28天
	}

	// 上传配置默认值
	if config.Upload.Dir == "" {
		config.Upload.Dir = "uploads"
	}
	if config.Upload.URLPrefix == "" {
		config.Upload.URLPrefix = "/uploads"
	}
	if config.Upload.MaxSize == 0 {
		config.Upload.MaxSize = 5
	}
	if len(config.Upload.AllowedExts) == 0 {
		config.Upload.AllowedExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	}

	if config.Draft.RetentionDays == 0 {
		config.Draft.RetentionDays = 30
	}
	if config.Admin.DefaultPassword == "" {
		config.Admin.DefaultPassword = "exam_portal"
	}
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret 不能为空")
	}
	return nil
}
