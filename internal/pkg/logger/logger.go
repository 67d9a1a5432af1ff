package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"exam-portal/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	base  = zap.NewNop()
	sugar = base.Sugar()
)

// Setup 初始化日志系统
func Setup() error {
	l, err := New(config.GlobalConfig.Log)
	if err != nil {
		return err
	}
	Replace(l)

	Info("Logger initialized successfully")
	return nil
}

// New 根据配置构建 zap 日志实例
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	case "fatal":
		level = zapcore.FatalLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	case "text":
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	var writer zapcore.WriteSyncer
	switch strings.ToLower(cfg.Output) {
	case "console":
		writer = zapcore.Lock(os.Stdout)
	case "file":
		fileWriter, err := setupFileWriter(cfg)
		if err != nil {
			return nil, err
		}
		writer = fileWriter
	case "both":
		fileWriter, err := setupFileWriter(cfg)
		if err != nil {
			return nil, err
		}
		writer = zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), fileWriter)
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	core := zapcore.NewCore(encoder, writer, level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

// setupFileWriter 设置文件输出，按大小滚动
func setupFileWriter(cfg config.LogConfig) (zapcore.WriteSyncer, error) {
	logDir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}), nil
}

// Replace 替换全局日志实例
func Replace(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	base = l
	sugar = l.Sugar()
}

// GetLogger 获取日志实例
func GetLogger() *zap.Logger {
	return base
}

// Sync 刷新缓冲区
func Sync() {
	_ = base.Sync()
}

// 便捷方法
func Debug(args ...interface{}) { sugar.Debug(args...) }

func Debugf(format string, args ...interface{}) { sugar.Debugf(format, args...) }

func Info(args ...interface{}) { sugar.Info(args...) }

func Infof(format string, args ...interface{}) { sugar.Infof(format, args...) }

func Warn(args ...interface{}) { sugar.Warn(args...) }

func Warnf(format string, args ...interface{}) { sugar.Warnf(format, args...) }

func Error(args ...interface{}) { sugar.Error(args...) }

func Errorf(format string, args ...interface{}) { sugar.Errorf(format, args...) }

func Fatal(args ...interface{}) { sugar.Fatal(args...) }

func Fatalf(format string, args ...interface{}) { sugar.Fatalf(format, args...) }

// With 返回附带结构化字段的日志实例
func With(fields ...zap.Field) *zap.Logger {
	return base.WithOptions(zap.AddCallerSkip(-1)).With(fields...)
}
