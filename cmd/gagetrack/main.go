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

	"github.com/bitfantasy/gagetrack/internal/config"
	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/handler"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/bitfantasy/gagetrack/internal/gage/service"
	"github.com/bitfantasy/gagetrack/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting gagetrack service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 建表
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Gage{},
		&entity.Reallocation{},
		&entity.Calibration{},
		&entity.ActivityLog{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, cfg)
	handlers := handler.NewHandlers(services, repos)

	// 后台任务：定期推进已到期的调拨单
	expiryCtx, cancelExpiry := context.WithCancel(context.Background())
	go runExpirySweeper(expiryCtx, services.Reallocation, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	cancelExpiry()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

// runExpirySweeper 每分钟扫描一次approved且已过期的调拨单
func runExpirySweeper(ctx context.Context, svc *service.ReallocationService, zapLogger *zap.Logger) {
	system := &entity.User{ID: "system", Username: "system", Name: "System"}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := svc.ProcessAllExpiredReallocations(ctx, system)
			if err != nil {
				zapLogger.Warn("Expiry sweep failed", zap.Error(err))
				continue
			}
			if processed > 0 {
				zapLogger.Info("Expiry sweep completed", zap.Int("processed", processed))
			}
		}
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// 登录不需要鉴权
	public := r.Group("/api/v1")
	public.POST("/auth/login", h.Auth.Login)
	public.POST("/auth/refresh", h.Auth.Refresh)

	api := r.Group("/api/v1", middleware.JWTAuth(cfg.JWT.Secret))

	// 认证
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/auth/me", h.Auth.Me)
	api.POST("/auth/password", h.Auth.ChangePassword)

	// 量具台账
	gages := api.Group("/gages")
	gages.GET("", h.Gage.List)
	gages.GET("/calibration-due", h.Gage.CalibrationDue)
	gages.GET("/:id", h.Gage.Get)
	gages.POST("", middleware.RequireRole(entity.RoleCribManager), h.Gage.Create)
	gages.PUT("/:id", middleware.RequireRole(entity.RoleCribManager), h.Gage.Update)
	gages.POST("/:id/retire", middleware.RequireRole(entity.RoleCribManager), h.Gage.Retire)

	// 调拨
	reallocs := api.Group("/reallocations")
	reallocs.POST("", h.Reallocation.Create)
	reallocs.GET("", h.Reallocation.List)
	reallocs.GET("/export", middleware.RequireRole(entity.RoleCribManager, entity.RolePlantHead), h.Reallocation.Export)
	reallocs.GET("/enums/time-limits", h.Reallocation.TimeLimits)
	reallocs.GET("/status/:status", h.Reallocation.ListByStatus)
	reallocs.GET("/user/:username", h.Reallocation.ListByUser)
	reallocs.GET("/validate/gage/:gageId/available", h.Reallocation.CheckAvailable)
	reallocs.GET("/gage/:gageId/completed-history", h.Reallocation.CompletedHistory)
	reallocs.POST("/process-expired", middleware.RequireRole(entity.RoleCribManager), h.Reallocation.ProcessAllExpired)
	reallocs.GET("/:id", h.Reallocation.Get)
	reallocs.POST("/:id/approve", middleware.RequireRole(entity.RolePlantHead), h.Reallocation.Approve)
	reallocs.POST("/:id/reject", middleware.RequireRole(entity.RolePlantHead), h.Reallocation.Reject)
	reallocs.POST("/:id/return", h.Reallocation.Return)
	reallocs.POST("/:id/cancel", h.Reallocation.Cancel)
	reallocs.POST("/:id/complete", middleware.RequireRole(entity.RoleCribManager), h.Reallocation.Complete)
	reallocs.POST("/:id/request-again", h.Reallocation.RequestAgain)
	reallocs.POST("/:id/process-expired", middleware.RequireRole(entity.RoleCribManager), h.Reallocation.ProcessExpired)

	// 通知
	notifications := api.Group("/notifications")
	notifications.GET("", h.Notification.List)
	notifications.GET("/unread-count", h.Notification.UnreadCount)
	notifications.POST("/:id/ack", h.Notification.Acknowledge)

	// 校准排期
	calibrations := api.Group("/calibrations")
	calibrations.GET("", h.Calibration.List)
	calibrations.GET("/:id", h.Calibration.Get)
	calibrations.GET("/gage/:gageId", h.Calibration.ListByGage)
	calibrations.POST("", middleware.RequireRole(entity.RolePlantHead, entity.RoleCribManager), h.Calibration.Schedule)
	calibrations.POST("/:id/complete", middleware.RequireRole(entity.RolePlantHead, entity.RoleCribManager), h.Calibration.Complete)
	calibrations.POST("/:id/cancel", middleware.RequireRole(entity.RolePlantHead, entity.RoleCribManager), h.Calibration.Cancel)

	// SSE实时推送
	api.GET("/sse/events", h.SSE.Stream)
}
