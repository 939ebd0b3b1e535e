// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"scholar-search-go/internal/config"
	"scholar-search-go/internal/handler"
	"scholar-search-go/internal/middleware"
	"scholar-search-go/internal/model"
	"scholar-search-go/internal/pipeline"
	"scholar-search-go/internal/repository"
	"scholar-search-go/internal/service"
	"scholar-search-go/pkg/agent"
	"scholar-search-go/pkg/database"
	"scholar-search-go/pkg/es"
	"scholar-search-go/pkg/kafka"
	"scholar-search-go/pkg/log"
	"scholar-search-go/pkg/storage"
	"scholar-search-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、ES 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 建表
	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.SearchHistory{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB)
	historyRepo := repository.NewSearchHistoryRepository(database.DB, database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	agentClient := agent.NewClient(cfg.Agent)
	userService := service.NewUserService(userRepo, jwtManager)
	conversationService := service.NewConversationService(conversationRepo, agentClient)
	searchService := service.NewSearchService(agentClient, historyRepo, cfg.Elasticsearch.IndexName)

	// 6. 启动后台 Kafka 消费者，把搜索历史事件写入 ES
	indexer := pipeline.NewIndexer(cfg.Elasticsearch)
	go kafka.StartConsumer(cfg.Kafka, indexer)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	searchHandler := handler.NewSearchHandler(searchService)

	api := r.Group("/api")
	{
		// Auth 路由组
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)

			authedAuth := auth.Group("/")
			authedAuth.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authedAuth.POST("/logout", authHandler.Logout)
			}
		}

		// Users 路由组，需要认证
		users := api.Group("/users")
		users.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			users.GET("/me", userHandler.Me)
			users.POST("/avatar", userHandler.UploadAvatar)
		}

		// Conversation 路由组，需要认证
		conversations := api.Group("/conversations")
		conversations.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			conversations.GET("", conversationHandler.List)
			conversations.POST("", conversationHandler.Create)
			conversations.POST("/create-with-message", conversationHandler.CreateWithMessage)
			conversations.GET("/:id/messages", conversationHandler.ListMessages)
			conversations.POST("/:id/messages", conversationHandler.AppendMessage)
			conversations.PATCH("/:id", conversationHandler.UpdateTitle)
			conversations.DELETE("/:id", conversationHandler.Delete)
		}

		// Search 路由组，需要认证
		search := api.Group("/search")
		search.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			search.POST("", searchHandler.Search)
			search.GET("/history", searchHandler.History)
			search.GET("/recent", searchHandler.Recent)
		}
	}

	// 9. 启动 HTTP 服务器并实现优雅停机
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个循环，会在进程退出时自然结束。
	log.Info("服务已优雅关闭")
}
