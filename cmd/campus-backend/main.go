package main

import (
	"fmt"
	"log"
	"os"

	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/campusbot/campusbot-go/internal/handler"
	"github.com/campusbot/campusbot-go/internal/intent"
	"github.com/campusbot/campusbot-go/internal/service"
	"github.com/campusbot/campusbot-go/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := "configs/campus-backend.yaml"
	if p := os.Getenv("CAMPUSBOT_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("campus-backend 服务启动中...")

	campus := intent.NewRegistry(zapLogger)
	if err := intent.RegisterCampusIntents(campus, zapLogger); err != nil {
		zapLogger.Fatal("注册校园意图失败", zap.Error(err))
	}
	smalltalk := intent.NewRegistry(zapLogger)
	if err := intent.RegisterSmalltalk(smalltalk, zapLogger); err != nil {
		zapLogger.Fatal("注册闲聊失败", zap.Error(err))
	}

	// Dialogflow 导出的意图回复覆盖内置回复
	var loaded []string
	if cfg.Intents.Dir != "" {
		intents, err := intent.LoadDialogflowIntents(cfg.Intents.Dir, zapLogger)
		if err != nil {
			zapLogger.Warn("加载意图目录失败，使用内置回复", zap.Error(err))
		} else {
			for name := range intents {
				loaded = append(loaded, name)
			}
			applied := intent.ApplyDialogflow(campus, intents, intent.DialogflowNames)
			zapLogger.Info("意图回复已覆盖", zap.Int("applied", applied))
		}
	}
	if err := campus.Validate(); err != nil {
		zapLogger.Fatal("意图目录无效", zap.Error(err))
	}

	responder := service.NewResponderService(campus, smalltalk, loaded, nil, zapLogger)

	r := handler.NewRouter(zapLogger, cfg.Server.AllowedOrigins...)
	handler.RegisterBackendRoutes(r, handler.NewBackendHandler(responder, cfg.Server.Name, zapLogger))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zapLogger.Info("campus-backend 服务启动成功",
		zap.Int("port", cfg.Server.Port),
		zap.Int("intents", len(loaded)))

	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("服务启动失败", zap.Error(err))
	}
}
