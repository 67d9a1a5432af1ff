package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"exam-portal/internal/config"
	"exam-portal/internal/pkg/banner"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/pkg/logger"
	"exam-portal/internal/router"
	"exam-portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
)

// 版本信息，编译时通过 ldflags 设置
var (
	Version    = "v0.1.0"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatalf("应用程序启动失败: %v", err)
	}
}

// newApp 构建命令行入口
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "exam-portal",
		Usage:   "考试管理系统后端服务",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, useConfigFile(cmd.String("config"))
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "启动 HTTP 服务(默认)",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "执行数据库迁移",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := bootstrap(); err != nil {
						return err
					}
					logger.Info("数据库迁移完成")
					return nil
				},
			},
			{
				Name:  "admin",
				Usage: "管理员账号维护",
				Commands: []*cli.Command{
					{
						Name:  "ensure",
						Usage: "默认管理员不存在时创建",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							if err := bootstrap(); err != nil {
								return err
							}
							return service.Auth.EnsureDefaultAdmin()
						},
					},
					{
						Name:  "reset-password",
						Usage: "重置用户密码",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "用户名", Required: true},
							&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "新密码", Required: true},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							if err := bootstrap(); err != nil {
								return err
							}
							return service.Auth.ResetPassword(cmd.String("username"), cmd.String("password"))
						},
					},
				},
			},
		},
	}
}

// useConfigFile 未指定配置文件时尝试默认位置，路径通过 CONFIG_PATH 传给 config 包
func useConfigFile(configPath string) error {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		for _, path := range []string{"config.yaml", filepath.Join("config", "config.yaml")} {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}
	if configPath == "" {
		return fmt.Errorf("未指定配置文件且未找到默认配置文件(config.yaml或config/config.yaml)")
	}
	return os.Setenv("CONFIG_PATH", configPath)
}

// bootstrap 加载配置、初始化日志和数据库
func bootstrap() error {
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("加载配置失败: %v", err)
	}

	if err := logger.Setup(); err != nil {
		return fmt.Errorf("初始化日志系统失败: %v", err)
	}
	logger.Info("配置加载完成")

	if err := database.Setup(); err != nil {
		return fmt.Errorf("数据库初始化失败: %v", err)
	}
	logger.Info("数据库初始化完成")
	return nil
}

// serve 启动应用程序的主要逻辑
func serve(ctx context.Context, cmd *cli.Command) error {
	banner.Print(Version, CommitHash, BuildTime)

	if err := bootstrap(); err != nil {
		return err
	}
	defer logger.Sync()

	if err := service.Auth.EnsureDefaultAdmin(); err != nil {
		return err
	}

	// 启动定时任务
	if err := service.Cron.Start(); err != nil {
		return fmt.Errorf("定时任务启动失败: %v", err)
	}

	gin.SetMode(config.GlobalConfig.Server.Mode)
	if config.GlobalConfig.Server.Mode == gin.ReleaseMode {
		logger.Info("Gin设置为生产模式")
	} else {
		logger.Info("Gin运行在调试模式")
	}

	srv := &http.Server{
		Addr:    ":" + config.GlobalConfig.Server.Port,
		Handler: router.New(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("服务器启动中，端口: %s", config.GlobalConfig.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %v", err)
		}
	case sig := <-quit:
		logger.Infof("收到信号 %s，正在关闭服务", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	if err := service.Cron.Stop(shutdownCtx); err != nil {
		logger.Errorf("定时任务停止超时: %v", err)
	}
	logger.Info("服务已停止")
	return nil
}
