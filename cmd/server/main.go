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

	"pdf-embeddings-go/internal/config"
	"pdf-embeddings-go/internal/handler"
	"pdf-embeddings-go/internal/loader"
	"pdf-embeddings-go/internal/middleware"
	"pdf-embeddings-go/internal/model"
	"pdf-embeddings-go/internal/repository"
	"pdf-embeddings-go/internal/service"
	"pdf-embeddings-go/internal/store"
	"pdf-embeddings-go/pkg/database"
	"pdf-embeddings-go/pkg/embedding"
	"pdf-embeddings-go/pkg/es"
	"pdf-embeddings-go/pkg/log"
	"pdf-embeddings-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置与日志
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 2. 初始化 Elasticsearch 客户端并确保嵌入索引存在
	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("Elasticsearch 客户端初始化失败", err)
	}
	if err := es.EnsureIndex(esClient, cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Fatal("Elasticsearch 索引初始化失败", err)
	}

	// 3. 初始化 Embedding 客户端
	embeddingClient := embedding.NewClient(cfg.Embedding)

	// 4. 可选依赖：摄取审计库 / 查询向量缓存 / 原始文件归档
	var ingestionRepo repository.IngestionRepository
	if cfg.Database.MySQL.DSN != "" {
		db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
		if err != nil {
			log.Fatal("MySQL 初始化失败", err)
		}
		if err := db.AutoMigrate(&model.IngestionRecord{}); err != nil {
			log.Fatal("摄取审计表迁移失败", err)
		}
		ingestionRepo = repository.NewIngestionRepository(db)
	}

	var queryVectorCache store.QueryVectorCache
	if cfg.Database.Redis.Addr != "" {
		rdb, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		ttl := time.Duration(cfg.Database.Redis.QueryVectorTTLHours) * time.Hour
		queryVectorCache = repository.NewQueryVectorCache(rdb, ttl)
	}

	var archiver *storage.Archiver
	if cfg.MinIO.Endpoint != "" {
		archiver, err = storage.NewArchiver(cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
	}

	// 5. 初始化核心组件（依赖注入）
	pdfLoader := loader.NewPDFLoader()
	vectorStore := store.NewElasticStore(esClient, embeddingClient, cfg.Elasticsearch.IndexName, queryVectorCache)
	ingestService := service.NewIngestService(pdfLoader, vectorStore, ingestionRepo, archiver)
	retrieveService := service.NewRetrieveService(vectorStore, cfg.Retrieval)

	// 6. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.POST("/upload-pdf", handler.NewPDFHandler(ingestService).UploadPDF)
	r.POST("/query", handler.NewQueryHandler(retrieveService).Query)
	r.GET("/health", handler.NewHealthHandler().Health)

	// 7. 启动 HTTP 服务器并实现优雅停机
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
