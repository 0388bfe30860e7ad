package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/case-extractor/api"
	"github.com/fyerfyer/case-extractor/api/handler"
	"github.com/fyerfyer/case-extractor/api/middleware"
	appconfig "github.com/fyerfyer/case-extractor/config"
	"github.com/fyerfyer/case-extractor/internal/aiparser"
	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/cache"
	"github.com/fyerfyer/case-extractor/internal/database"
	"github.com/fyerfyer/case-extractor/internal/llm"
	"github.com/fyerfyer/case-extractor/internal/ner"
	"github.com/fyerfyer/case-extractor/internal/repository"
	"github.com/fyerfyer/case-extractor/internal/services"
	"github.com/fyerfyer/case-extractor/internal/watcher"
	"github.com/fyerfyer/case-extractor/pkg/storage"
	"github.com/fyerfyer/case-extractor/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 命令行参数，显式设置时覆盖配置文件
type flags struct {
	ConfigFile string // 配置文件路径
	Port       int    // 服务端口
	Mode       string // 运行模式 (debug/release)
	LogLevel   string // 日志级别
	Queue      bool   // 是否启用任务队列
	Worker     bool   // 是否在本进程运行 worker
	Watch      string // 收件目录，非空时启用监听
	NoAI       bool   // 禁用大模型解析
}

func main() {
	f := parseFlags()

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, f)

	gin.SetMode(cfg.Server.Mode)

	logger := middleware.SetupLogger(middleware.LogConfig{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	logger.Info("Starting Case Extractor...")

	// 初始化数据库
	if err := database.Setup(&database.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		MaxLifetime:  time.Hour,
	}, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 创建文件存储服务
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建处理流水线
	pipeline := setupPipeline(cfg, logger)

	// 初始化任务队列（如果启用）
	var queue taskqueue.Queue
	if cfg.Queue.Enable {
		queue, err = setupTaskQueue(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	repo := repository.NewDocumentRepository()
	documentOptions := []services.DocumentOption{
		services.WithLogger(logger),
		services.WithDocumentRepository(repo),
		services.WithCaseRepository(repository.NewCaseRepository()),
		services.WithStatusManager(services.NewDocumentStatusManager(repo, logger)),
		services.WithMaxFileSize(int64(cfg.Document.MaxFileSizeMB) << 20),
		services.WithTimeout(cfg.Document.ProcessingTimeout),
	}
	if queue != nil {
		documentOptions = append(documentOptions, services.WithTaskQueue(queue))
	}

	documentService := services.NewDocumentService(fileStorage, pipeline, documentOptions...)
	if err := documentService.Init(); err != nil {
		logger.Fatalf("Failed to initialize document service: %v", err)
	}

	// 启动 worker
	if queue != nil && f.Worker {
		worker, err := setupWorker(queue, cfg, documentService)
		if err != nil {
			logger.Fatalf("Failed to initialize worker: %v", err)
		}
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start worker: %v", err)
		}
		defer worker.Stop()
		logger.WithField("concurrency", cfg.Queue.Concurrency).Info("Task worker started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听收件目录
	if cfg.Watcher.Enable {
		w, err := setupWatcher(ctx, cfg, documentService, logger)
		if err != nil {
			logger.Fatalf("Failed to start inbox watcher: %v", err)
		}
		defer w.Stop()
	}

	// 设置路由
	maxUpload := int64(cfg.Document.MaxFileSizeMB) << 20
	r := api.SetupRouter(api.Handlers{
		Document:      handler.NewDocumentHandler(documentService),
		Case:          handler.NewCaseHandler(documentService),
		Anonymization: handler.NewAnonymizationHandler(pipeline.Anonymizer(), maxUpload),
		Task:          handler.NewTaskHandler(documentService),
	}, maxUpload)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.ConfigFile, "config", "config.yaml", "Path to config file")
	flag.IntVar(&f.Port, "port", 0, "Server port (overrides config)")
	flag.StringVar(&f.Mode, "mode", "", "Run mode (debug/release)")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug/info/warn/error)")
	flag.BoolVar(&f.Queue, "queue", false, "Enable async task queue")
	flag.BoolVar(&f.Worker, "worker", true, "Run the task worker in this process when the queue is enabled")
	flag.StringVar(&f.Watch, "watch", "", "Inbox directory to watch for new reports")
	flag.BoolVar(&f.NoAI, "no-ai", false, "Disable AI parsing and use pattern extraction only")
	flag.Parse()
	return f
}

// applyFlags 用显式设置的命令行参数覆盖配置
func applyFlags(cfg *appconfig.Config, f flags) {
	if f.Port > 0 {
		cfg.Server.Port = f.Port
	}
	if f.Mode != "" {
		cfg.Server.Mode = f.Mode
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.Queue {
		cfg.Queue.Enable = true
	}
	if f.Watch != "" {
		cfg.Watcher.Enable = true
		cfg.Watcher.Dir = f.Watch
	}
	if f.NoAI {
		cfg.LLM.EnableAIParse = false
	}
}

// setupStorage 设置文件存储服务
func setupStorage(cfg *appconfig.Config) (storage.Storage, error) {
	return storage.NewStorage(storage.Config{
		Type:  cfg.Storage.Type,
		Local: storage.LocalConfig{Path: cfg.Storage.Path},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		},
	})
}

// setupPipeline 组装匿名化器、大模型解析器与流水线
func setupPipeline(cfg *appconfig.Config, logger *logrus.Logger) *services.CasePipeline {
	gazetteerOpts := []ner.Option{ner.WithLogger(logger)}
	if cfg.Anonymization.NamesFile != "" {
		gazetteerOpts = append(gazetteerOpts, ner.WithNamesFile(cfg.Anonymization.NamesFile))
	}
	anon := anonymizer.New(
		anonymizer.WithRecognizer(ner.NewGazetteer(gazetteerOpts...)),
		anonymizer.WithLogger(logger),
	)

	opts := []services.PipelineOption{
		services.WithAnonymizer(anon),
		services.WithAnonymizationOptions(anonymizer.Options{
			PreserveDates: cfg.Anonymization.PreserveDates,
			PreserveTimes: cfg.Anonymization.PreserveTimes,
		}),
		services.WithDefaultCaseFallback(cfg.Document.DefaultCase),
		services.WithPipelineLogger(logger),
	}

	if parser := setupAIParser(cfg, logger); parser != nil {
		opts = append(opts, services.WithAIParser(parser))
	}
	return services.NewCasePipeline(opts...)
}

// setupAIParser 创建大模型解析器，未启用或缺少密钥时返回 nil，只使用规则解析
func setupAIParser(cfg *appconfig.Config, logger *logrus.Logger) *aiparser.Parser {
	if !cfg.LLM.EnableAIParse {
		logger.Info("AI parsing disabled, using pattern extraction only")
		return nil
	}

	clientOpts := []llm.Option{
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithModel(cfg.LLM.Model),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithLogger(logger),
	}
	if cfg.LLM.Endpoint != "" {
		clientOpts = append(clientOpts, llm.WithBaseURL(cfg.LLM.Endpoint))
	}
	if cfg.LLM.Timeout > 0 {
		clientOpts = append(clientOpts, llm.WithTimeout(cfg.LLM.Timeout))
	}

	client, err := llm.NewClient(cfg.LLM.Provider, clientOpts...)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"provider": cfg.LLM.Provider,
			"error":    err.Error(),
		}).Warn("LLM client unavailable, using pattern extraction only")
		return nil
	}

	parserOpts := []aiparser.Option{
		aiparser.WithTimeout(cfg.LLM.Timeout),
		aiparser.WithJSONMode(cfg.LLM.JSONMode),
		aiparser.WithLogger(logger),
	}
	if c := setupCache(cfg, logger); c != nil {
		parserOpts = append(parserOpts, aiparser.WithCache(c, time.Duration(cfg.Cache.TTL)*time.Second))
	}
	logger.WithField("model", client.Name()).Info("AI parsing enabled")
	return aiparser.New(client, parserOpts...)
}

// setupCache 设置解析结果缓存，失败时不启用缓存
func setupCache(cfg *appconfig.Config, logger *logrus.Logger) cache.Cache {
	if !cfg.Cache.Enable {
		return nil
	}

	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Cache.Type
	cacheConfig.DefaultTTL = time.Duration(cfg.Cache.TTL) * time.Second
	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}

	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize cache, AI results will not be cached")
		return nil
	}
	return c
}

// setupTaskQueue 设置任务队列
func setupTaskQueue(cfg *appconfig.Config, logger *logrus.Logger) (taskqueue.Queue, error) {
	logger.WithFields(logrus.Fields{
		"type":        cfg.Queue.Type,
		"redis_addr":  cfg.Queue.RedisAddr,
		"concurrency": cfg.Queue.Concurrency,
		"retry_limit": cfg.Queue.RetryLimit,
	}).Info("Setting up task queue")

	return taskqueue.NewQueue(cfg.Queue.Type, queueConfig(cfg, logger))
}

func queueConfig(cfg *appconfig.Config, logger *logrus.Logger) *taskqueue.Config {
	qc := taskqueue.DefaultConfig()
	qc.RedisAddr = cfg.Queue.RedisAddr
	qc.RedisPassword = cfg.Queue.RedisPassword
	qc.RedisDB = cfg.Queue.RedisDB
	qc.Concurrency = cfg.Queue.Concurrency
	qc.RetryLimit = cfg.Queue.RetryLimit
	qc.RetryDelay = time.Duration(cfg.Queue.RetryDelay) * time.Second
	qc.Logger = logger
	return qc
}

// setupWorker 创建 worker 并注册案例提取处理器
func setupWorker(queue taskqueue.Queue, cfg *appconfig.Config, svc *services.DocumentService) (taskqueue.Worker, error) {
	redisQueue, ok := queue.(*taskqueue.RedisQueue)
	if !ok {
		return nil, fmt.Errorf("queue type %q does not support workers", cfg.Queue.Type)
	}
	worker := taskqueue.NewRedisWorker(redisQueue, nil)
	worker.RegisterHandler(taskqueue.TaskCaseExtraction, svc.CaseExtractionHandler())
	return worker, nil
}

// setupWatcher 监听收件目录，新文件进入处理流程
func setupWatcher(ctx context.Context, cfg *appconfig.Config, svc *services.DocumentService, logger *logrus.Logger) (*watcher.Watcher, error) {
	opts := svc.Pipeline().AnonymizationOptions()
	w := watcher.New(cfg.Watcher.Dir, cfg.Watcher.Extensions, func(path string) {
		doc, err := svc.IngestFile(ctx, path, opts)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"path":  path,
				"error": err.Error(),
			}).Error("Failed to ingest report from inbox")
			return
		}
		logger.WithFields(logrus.Fields{
			"path":        path,
			"document_id": doc.ID,
			"status":      doc.Status,
		}).Info("Ingested report from inbox")
	}, watcher.WithLogger(logger), watcher.WithDebounce(cfg.Watcher.Debounce))

	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	if err := w.SyncExisting(); err != nil {
		logger.WithError(err).Warn("Failed to process existing inbox files")
	}
	logger.WithField("dir", w.Dir()).Info("Watching inbox directory")
	return w, nil
}
