package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	invapp "github.com/venturelink/funding/internal/investment/application"
	invdomain "github.com/venturelink/funding/internal/investment/domain"
	invmessaging "github.com/venturelink/funding/internal/investment/infrastructure/messaging"
	invmysql "github.com/venturelink/funding/internal/investment/infrastructure/persistence/mysql"
	invhttp "github.com/venturelink/funding/internal/investment/interfaces/http"
	reportapp "github.com/venturelink/funding/internal/reporting/application"
	reporthttp "github.com/venturelink/funding/internal/reporting/interfaces/http"
	wdapp "github.com/venturelink/funding/internal/withdrawal/application"
	wddomain "github.com/venturelink/funding/internal/withdrawal/domain"
	wdmessaging "github.com/venturelink/funding/internal/withdrawal/infrastructure/messaging"
	wdmysql "github.com/venturelink/funding/internal/withdrawal/infrastructure/persistence/mysql"
	wdhttp "github.com/venturelink/funding/internal/withdrawal/interfaces/http"
	"github.com/venturelink/funding/pkg/cache"
	"github.com/venturelink/funding/pkg/config"
	"github.com/venturelink/funding/pkg/db"
	"github.com/venturelink/funding/pkg/logger"
	"github.com/venturelink/funding/pkg/metrics"
	"github.com/venturelink/funding/pkg/middleware"
	"github.com/venturelink/funding/pkg/mq"
	"github.com/venturelink/funding/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get()
	ctx := context.Background()

	// 3. 初始化指标
	metricsImpl := metrics.New("funding")
	if cfg.Metrics.Enabled {
		if err := metricsImpl.Register(); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "failed to start metrics server", "error", err)
		}
	}

	// 4. 初始化基础设施
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	// Auto Migrate (仅用于开发方便)
	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&invdomain.Investment{},
			&invdomain.Contribution{},
			&invdomain.InvestorBalance{},
			&invdomain.ImpactEntry{},
			&wddomain.WithdrawalRequest{},
		); err != nil {
			logger.Error(ctx, "failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", "error", err)
	}
	defer redisCache.Close()

	kafkaCfg := mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	}
	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal(ctx, "failed to init kafka producer", "error", err)
	}
	defer producer.Close()

	invConsumer, err := mq.NewConsumer(kafkaCfg, invmessaging.Topic)
	if err != nil {
		logger.Fatal(ctx, "failed to init kafka consumer", "topic", invmessaging.Topic, "error", err)
	}
	defer invConsumer.Close()
	wdConsumer, err := mq.NewConsumer(kafkaCfg, wdmessaging.Topic)
	if err != nil {
		logger.Fatal(ctx, "failed to init kafka consumer", "topic", wdmessaging.Topic, "error", err)
	}
	defer wdConsumer.Close()

	// 5. 初始化仓储
	investmentRepo := invmysql.NewInvestmentRepository(database.DB)
	contributionRepo := invmysql.NewContributionRepository(database.DB)
	balanceRepo := invmysql.NewBalanceRepository(database.DB)
	impactRepo := invmysql.NewImpactRepository(database.DB)
	withdrawalRepo := wdmysql.NewWithdrawalRepository(database.DB)

	invPublisher := invmessaging.NewKafkaEventPublisher(producer)
	wdPublisher := wdmessaging.NewKafkaEventPublisher(producer)

	// 6. 初始化应用服务
	invCommandSvc := invapp.NewInvestmentCommandService(
		investmentRepo, contributionRepo, balanceRepo, impactRepo, invPublisher, cfg.App.AdminIDs, log).
		WithMetrics(metricsImpl)
	invQuerySvc := invapp.NewInvestmentQueryService(investmentRepo, contributionRepo, balanceRepo)
	wdCommandSvc := wdapp.NewWithdrawalCommandService(
		withdrawalRepo, investmentRepo, balanceRepo, contributionRepo, wdPublisher, cfg.App.AdminIDs, log).
		WithMetrics(metricsImpl)
	wdQuerySvc := wdapp.NewWithdrawalQueryService(withdrawalRepo)
	reportingSvc := reportapp.NewReportingService(
		investmentRepo, contributionRepo, balanceRepo, impactRepo, withdrawalRepo, redisCache, log)

	// 7. 初始化接口层
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware())
	r.Use(middleware.GinLoggingMiddleware())
	r.Use(middleware.GinCORSMiddleware())
	r.Use(middleware.GinMetricsMiddleware(metricsImpl))
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		r.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	api := r.Group("/api/v1")
	invhttp.NewHandler(invCommandSvc, invQuerySvc).RegisterRoutes(api)
	wdhttp.NewHandler(wdCommandSvc, wdQuerySvc).RegisterRoutes(api)
	reporthttp.NewHandler(reportingSvc).RegisterRoutes(api)

	// 8. 启动服务与后台任务
	g, gctx := errgroup.WithContext(ctx)

	expiryJob := invapp.NewExpiryJob(invCommandSvc,
		time.Duration(cfg.App.ExpirySweepInterval)*time.Second, log)
	g.Go(func() error {
		expiryJob.Start(gctx)
		return nil
	})

	auditor := reportapp.NewEventAuditor(log, invConsumer, wdConsumer)
	g.Go(func() error {
		auditor.Run(gctx)
		return nil
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 9. 优雅关闭
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(gctx, "shutting down servers...")
		case <-gctx.Done():
			logger.Info(gctx, "context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
	}
}
