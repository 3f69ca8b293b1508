package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	pkgvalidator "github.com/johnquangdev/focus-group-analyzer/pkg/validator"

	"github.com/johnquangdev/focus-group-analyzer/internal/adapter/handler"
	"github.com/johnquangdev/focus-group-analyzer/internal/adapter/repository"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/cache"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/database"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/external/report"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/metrics"
	filesnapshot "github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/snapshot"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/storage"
	"github.com/johnquangdev/focus-group-analyzer/internal/usecase/analysis"
	"github.com/johnquangdev/focus-group-analyzer/internal/usecase/response"
	"github.com/johnquangdev/focus-group-analyzer/internal/usecase/snapshot"
	pkgai "github.com/johnquangdev/focus-group-analyzer/pkg/ai"
	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
	"github.com/johnquangdev/focus-group-analyzer/pkg/textproc"
)

// @title           Focus Group Analyzer API
// @version         1.0
// @description     Collects focus-group answers and runs topic, sentiment, embedding and word-cloud analyses over them
// @BasePath        /v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if cfg.Server.Environment == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${id} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))

	log.Println("🔧 Initializing dependencies...")

	// Response store and snapshots
	pipeline := textproc.NewPipeline(cfg.Analysis.MinTokenLength)
	store := repository.NewResponseStore(pipeline, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, reg, store.LiveMeetings)

	log.Printf("💾 Snapshot directory: %s", cfg.Snapshot.Dir)
	files, err := filesnapshot.NewFileStore(cfg.Snapshot.Dir, logger)
	if err != nil {
		log.Fatalf("Failed to open snapshot directory: %v", err)
	}
	snapshots := snapshot.NewService(store, files, cfg.Snapshot, m, logger)

	if cfg.Snapshot.ReloadOnStartup {
		restored, err := snapshots.ReloadAll(ctx)
		if err != nil {
			// malformed partitions are skipped; the rest are loaded
			logger.Warn("⚠️ Some snapshots could not be restored", zap.Error(err))
		}
		log.Printf("✅ Restored %d meetings from snapshots", len(restored))
	}

	// Object storage
	log.Println("📦 Connecting to object storage...")
	minioClient, err := storage.NewMinIOClient(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to object storage: %v", err)
	}

	// Topic cache
	log.Printf("📦 Initializing %s cache...", cfg.Cache.Driver)
	resultCache, err := cache.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer resultCache.Close()

	healthChecks := map[string]handler.Pinger{"storage": minioClient}
	if redisStore, ok := resultCache.(*cache.RedisStore); ok {
		healthChecks["cache"] = redisStore
	}

	// Report database
	var reports *repository.ReportRepository
	if cfg.Database.Enabled {
		log.Println("📦 Connecting to report database...")
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.CloseDB(db)

		if cfg.Database.AutoMigrate {
			if err := database.AutoMigrate(db, database.MigrationsDir); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		} else {
			log.Println("🔄 Skipping migrations; run cmd/migrate to manage the schema")
		}
		reports = repository.NewReportRepository(db)
		healthChecks["database"] = database.NewPinger(db)
	} else {
		log.Println("⚠️  Report database disabled; analyses will not be logged")
	}

	// AI collaborators
	log.Println("🤖 Initializing AI components...")
	modelServer := pkgai.NewModelServerClient(&cfg.Analysis, logger)
	groqClient := pkgai.NewGroqClient(&cfg.Groq)

	var transcriber response.Transcriber
	if cfg.Assembly.APIKey != "" {
		transcriber = pkgai.NewAssemblyAIClient(&cfg.Assembly)
	} else {
		log.Println("⚠️  ASSEMBLYAI_API_KEY not set; voice responses are disabled")
	}

	deps := analysis.Dependencies{
		Store:      store,
		Pipeline:   pipeline,
		Topics:     modelServer,
		Sentiment:  modelServer,
		Embedder:   modelServer,
		Wordcloud:  modelServer,
		Summarizer: groqClient,
		Storage:    minioClient,
		Cache:      resultCache,
		Metrics:    m,
		Logger:     logger,
	}
	if reporter := report.NewClient(&cfg.Report, logger); reporter != nil {
		deps.Reporter = reporter
	}
	if reports != nil {
		deps.Reports = reports
	}

	analysisService := analysis.NewService(deps, analysis.Options{
		MostCommonK:     cfg.Analysis.MostCommonK,
		WordcloudWidth:  cfg.Analysis.WordcloudWidth,
		WordcloudHeight: cfg.Analysis.WordcloudHeight,
		CacheTTL:        cfg.Cache.TTL,
	})
	responseService := response.NewService(store, transcriber, m, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(
		cfg,
		handler.NewResponseHandler(responseService, logger),
		handler.NewAnalysisHandler(analysisService, logger),
		handler.NewMeetingHandler(analysisService, snapshots, logger),
		m,
		healthChecks,
	)
	if cfg.Server.AnalysisRateLimit > 0 {
		router.WithAnalysisMiddleware(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.AnalysisRateLimit)),
		))
	}
	router.Setup(e)

	if err := snapshots.Start(ctx); err != nil {
		log.Fatalf("Failed to start snapshot scheduler: %v", err)
	}

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
	}

	// stop accepting answers first, then flush what is left
	if err := snapshots.Stop(shutdownCtx); err != nil {
		logger.Error("❌ Final snapshot failed", zap.Error(err))
	}

	log.Println("✅ Server stopped gracefully")
}
