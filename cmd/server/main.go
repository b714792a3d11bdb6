// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"magistral-go/internal/config"
	"magistral-go/internal/extractor"
	"magistral-go/internal/handler"
	"magistral-go/internal/middleware"
	"magistral-go/internal/model"
	"magistral-go/internal/pipeline"
	"magistral-go/internal/repository"
	"magistral-go/internal/service"
	"magistral-go/pkg/database"
	"magistral-go/pkg/kafka"
	"magistral-go/pkg/llm"
	"magistral-go/pkg/log"
	"magistral-go/pkg/storage"
	"magistral-go/pkg/tika"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 按配置初始化对话存储驱动
	conversationRepo := buildConversationRepository(cfg.Storage)

	// 4. 初始化 Service (依赖注入)
	tikaClient := tika.NewClient(cfg.Tika)
	llmClient := llm.NewClient(cfg.LLM)
	pdfExtractor := extractor.NewPDFExtractor(tikaClient)
	imageExtractor := extractor.NewImageExtractor(tikaClient, cfg.Tika)
	archiver := buildArchiver(cfg.Archive)
	chatService := service.NewChatService(llmClient, pdfExtractor, imageExtractor, archiver, cfg.Prompt.System)
	conversationService := service.NewConversationService(conversationRepo)

	// 5. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), middleware.CORS(), gin.Recovery())

	// 6. 注册路由
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		chatHandler := handler.NewChatHandler(chatService)
		apiV1.POST("/chat", chatHandler.Chat)
		apiV1.GET("/chat/stream", chatHandler.Stream)

		conversationHandler := handler.NewConversationHandler(conversationService)
		apiV1.POST("/conversations", conversationHandler.SaveConversation)
		apiV1.GET("/conversations", conversationHandler.ListConversations)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// buildConversationRepository 按 storage.driver 选择对话存储实现，默认文件系统。
func buildConversationRepository(cfg config.StorageConfig) repository.ConversationRepository {
	switch strings.ToLower(cfg.Driver) {
	case "mysql":
		database.InitMySQL(cfg.MySQL.DSN)
		if err := database.DB.AutoMigrate(&model.ConversationRow{}, &model.ArtifactAudit{}); err != nil {
			log.Fatalf("数据库迁移失败: %v", err)
		}
		return repository.NewMySQLConversationRepository(database.DB)
	case "redis":
		database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		return repository.NewRedisConversationRepository(database.RDB)
	case "", "filesystem":
		return repository.NewFilesystemConversationRepository(cfg.Filesystem.BaseDir)
	default:
		log.Fatalf("未知的存储驱动: %s", cfg.Driver)
		return nil
	}
}

// buildArchiver 在归档开启时初始化 MinIO 与 Kafka，并启动后台消费者。
// 审计记录写入 MySQL，因此消费者仅在 MySQL 可用时启动。
func buildArchiver(cfg config.ArchiveConfig) service.ArtifactArchiver {
	if !cfg.Enabled {
		return service.NewNoopArchiver()
	}

	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	if database.DB != nil {
		auditRepo := repository.NewArtifactAuditRepository(database.DB)
		processor := pipeline.NewProcessor(cfg.MinIO, auditRepo)
		go kafka.StartConsumer(cfg.Kafka, processor)
	} else {
		log.Warnf("归档已开启但 MySQL 未初始化，跳过审计消费者")
	}

	return service.NewMinioArchiver(cfg.MinIO)
}
