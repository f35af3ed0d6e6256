package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusbot/campusbot-go/internal/client"
	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/campusbot/campusbot-go/internal/handler"
	"github.com/campusbot/campusbot-go/internal/intent"
	"github.com/campusbot/campusbot-go/internal/kvstore"
	"github.com/campusbot/campusbot-go/internal/service"
	"github.com/campusbot/campusbot-go/pkg/logger"
	"github.com/campusbot/campusbot-go/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := "configs/campus-widget.yaml"
	if p := os.Getenv("CAMPUSBOT_CONFIG"); p != "" {
		configPath = p
	}

	// 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("campus-widget 服务启动中...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化存储
	var redisClient *goredis.Client
	if cfg.Storage.Driver == "redis" {
		redisClient, err = redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			zapLogger.Fatal("连接 Redis 失败", zap.Error(err))
		}
		defer redisClient.Close()
	}
	kv, err := kvstore.NewStore(cfg.Storage, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化存储失败", zap.Error(err))
	}

	// 回复目录，启动时校验
	catalog, err := intent.NewBuiltinCatalog(zapLogger)
	if err != nil {
		zapLogger.Fatal("分类目录无效", zap.Error(err))
	}

	replyOpts := service.ReplyOptions{TypingDelay: cfg.TypingDelay}
	if cfg.Backend.BackendActive() {
		replyOpts.Backend = client.NewBackendClient(cfg.Backend.APIBaseURL, cfg.Backend.Timeout(), zapLogger)
		zapLogger.Info("远程后端已启用", zap.String("url", cfg.Backend.APIBaseURL))
	}

	// 初始化服务
	conversations := service.NewConversationService(kv, catalog, service.ConversationOptions{
		Capacity:  cfg.MaxMessages,
		KeyPrefix: cfg.Storage.KeyPrefix,
		IdleTTL:   cfg.Server.IdleTTL(),
		Reply:     replyOpts,
	}, zapLogger)
	sessionService := service.NewSessionService(service.DefaultHeartbeatInterval, service.DefaultHeartbeatTimeout, zapLogger)
	defer sessionService.Close()
	chatService := service.NewChatService(conversations, sessionService, zapLogger)

	go conversations.RunEviction(ctx, time.Minute)

	// 初始化处理器
	wsHandler := handler.NewWebSocketHandler(sessionService, chatService, cfg.Welcome, cfg.Server.AllowedOrigins, zapLogger)
	apiHandler := handler.NewAPIHandler(conversations, sessionService, handler.WidgetSettings{
		Welcome:      cfg.Welcome,
		QuickActions: cfg.QuickActions,
		ServiceName:  cfg.Server.Name,
	}, zapLogger)

	r := handler.NewRouter(zapLogger, cfg.Server.AllowedOrigins...)
	handler.RegisterWidgetRoutes(r, apiHandler, wsHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Warn("服务关闭超时", zap.Error(err))
		}
	}()

	zapLogger.Info("campus-widget 服务启动成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Fatal("服务启动失败", zap.Error(err))
	}
	zapLogger.Info("campus-widget 服务已停止")
}
