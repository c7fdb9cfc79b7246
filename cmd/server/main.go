// Package main 是应用程序的入口点。
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-edu-go/internal/config"
	"smart-edu-go/internal/handler"
	"smart-edu-go/internal/middleware"
	"smart-edu-go/internal/pipeline"
	"smart-edu-go/internal/repository"
	"smart-edu-go/internal/service"
	"smart-edu-go/pkg/database"
	"smart-edu-go/pkg/embedding"
	"smart-edu-go/pkg/gemini"
	"smart-edu-go/pkg/kafka"
	"smart-edu-go/pkg/llm"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/speech"
	"smart-edu-go/pkg/storage"
	"smart-edu-go/pkg/token"
	"smart-edu-go/pkg/vectorstore"
	esstore "smart-edu-go/pkg/vectorstore/es"
	"smart-edu-go/pkg/vectorstore/pinecone"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		panic(err)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化基础设施
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 AI 客户端
	geminiClient, err := gemini.NewClient(cfg.Gemini)
	if err != nil {
		log.Fatal("Gemini 客户端初始化失败", err)
	}
	llmClient, err := llm.NewClient(cfg.OpenAI)
	if err != nil {
		log.Fatal("LLM 客户端初始化失败", err)
	}
	llmHolder := service.NewLLMHolder(llmClient, func() (llm.Client, error) {
		return llm.NewClient(cfg.OpenAI)
	})
	speechClient, err := speech.NewClient(cfg.OpenAI)
	if err != nil {
		log.Fatal("语音转写客户端初始化失败", err)
	}
	embedder, err := embedding.NewClient(cfg.Embedding, cfg.OpenAI, cfg.Gemini)
	if err != nil {
		log.Fatal("向量化客户端初始化失败", err)
	}
	log.Infof("向量化客户端就绪, provider: %s, dimensions: %d", embedder.Provider(), embedder.Dimension())

	// 5. 初始化向量存储并确保索引存在
	var store vectorstore.Store
	switch cfg.VectorStore.Type {
	case "elasticsearch":
		store, err = esstore.NewStore(cfg.Elasticsearch)
	default:
		store, err = pinecone.NewStore(cfg.Pinecone)
	}
	if err != nil {
		log.Fatal("向量存储初始化失败", err)
	}
	ensureCtx, cancelEnsure := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := store.EnsureIndex(ensureCtx, embedder.Dimension()); err != nil {
		cancelEnsure()
		log.Fatal("向量索引初始化失败", err)
	}
	cancelEnsure()

	// 6. 初始化 Repository 与 Service
	chunkRepo := repository.NewChunkRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.RDB)

	processor := pipeline.NewProcessor(geminiClient, speechClient, storageClient, embedder, store, chunkRepo, cfg.Pipeline)
	chatService := service.NewChatService(llmHolder, embedder, store, convRepo)
	scanner := service.NewWebsiteScanner(cfg.Indexer)
	indexerService := service.NewIndexerService(scanner, embedder, store, cfg.Indexer)
	ingestService := service.NewIngestService(storageClient, producer, chunkRepo)
	diagnosticService := service.NewDiagnosticService(geminiClient, llmHolder, store, cfg)

	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)

	// 7. 启动 Kafka 消费者，处理异步摄取任务
	go kafka.StartConsumer(cfg.Kafka, processor, database.RDB)

	// 8. 初始化 Handler 并注册路由
	chatHandler := handler.NewChatHandler(chatService, jwtManager)
	indexHandler := handler.NewIndexHandler(indexerService)
	diagnosticHandler := handler.NewDiagnosticHandler(diagnosticService)
	ingestHandler := handler.NewIngestHandler(ingestService)
	authHandler := handler.NewAuthHandler(cfg.Admin, jwtManager)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORS(), middleware.RequestLogger())

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/chat", chatHandler.Chat)

		api.GET("/test-gemini", diagnosticHandler.TestGemini)
		api.POST("/test-gemini", diagnosticHandler.TestGeminiAction)
		api.GET("/test-openai", diagnosticHandler.TestOpenAI)
		api.POST("/test-openai", diagnosticHandler.TestOpenAIAction)
		api.GET("/test-vectorstore", diagnosticHandler.TestVectorStore)

		api.GET("/index-website", indexHandler.Describe)

		admin := api.Group("", middleware.AdminAuth(jwtManager))
		{
			admin.POST("/index-website", indexHandler.Index)
			admin.POST("/documents", ingestHandler.Upload)
			admin.GET("/documents", ingestHandler.List)
			admin.GET("/documents/:md5/download", ingestHandler.Download)
			admin.DELETE("/chat/history", chatHandler.ClearHistory)
		}
	}
	router.GET("/chat/:token", chatHandler.HandleWebSocket)

	// 9. 启动服务并支持优雅停机
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.Infof("服务器启动，监听端口 %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("服务器启动失败", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到退出信号，正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("服务器关闭异常", err)
	}
	log.Info("服务器已退出")
}
