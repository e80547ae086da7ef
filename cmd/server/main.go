package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"github.com/bitfantasy/nimo-collect/internal/collect/formresponse"
	"github.com/bitfantasy/nimo-collect/internal/collect/handler"
	"github.com/bitfantasy/nimo-collect/internal/collect/repository"
	"github.com/bitfantasy/nimo-collect/internal/collect/service"
	"github.com/bitfantasy/nimo-collect/internal/config"
	"github.com/bitfantasy/nimo-collect/internal/middleware"
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

	zapLogger.Info("Starting nimo-collect service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Role{},
		&entity.Form{},
		&entity.FormField{},
		&entity.Location{},
		&entity.ImageUpload{},
		&entity.FormResponse{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, zapLogger)

	// 草稿会话注册表：每个填报会话持有一个控制器
	drafts := formresponse.NewManager(formresponse.Deps{
		Schema:   services.Form,
		Response: services.Response,
		Upload:   services.Upload,
		Logger:   zapLogger,
	}, cfg.Draft.TTL, zapLogger)
	defer drafts.Close()

	handlers := handler.NewHandlers(services, drafts)

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
		WriteTimeout: cfg.Server.WriteTimeout,
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

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
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

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 用户
			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.GET("/search", h.User.Search)
			}

			// 表单定义
			forms := authorized.Group("/forms")
			{
				forms.GET("", h.Form.List)
				forms.GET("/:id", h.Form.Get)
				forms.POST("", middleware.RequireRole("form_designer"), h.Form.Create)
				forms.PUT("/:id", middleware.RequireRole("form_designer"), h.Form.Update)
				forms.DELETE("/:id", middleware.RequireRole("form_designer"), h.Form.Delete)

				// 提交记录浏览与导出
				forms.GET("/:id/responses", h.Response.List)
				forms.GET("/:id/responses/export", h.Response.Export)
			}

			// 填报草稿会话
			drafts := authorized.Group("/drafts")
			{
				drafts.POST("", h.Draft.Create)
				drafts.GET("/:sid", h.Draft.State)
				drafts.PUT("/:sid/values", h.Draft.SetValue)
				drafts.PUT("/:sid/choices", h.Draft.ToggleChoice)
				drafts.POST("/:sid/files", h.Draft.UploadFile)
				drafts.DELETE("/:sid/files/:label", h.Draft.ClearFile)
				drafts.POST("/:sid/submit", h.Draft.Submit)
				drafts.POST("/:sid/load", h.Draft.LoadResponse)
				drafts.POST("/:sid/reset", h.Draft.Reset)
				drafts.DELETE("/:sid/responses/:id", h.Draft.DeleteResponse)
				drafts.DELETE("/:sid", h.Draft.Remove)
			}

			// 提交记录
			responses := authorized.Group("/responses")
			{
				responses.GET("/:id", h.Response.Get)
				responses.DELETE("/:id", middleware.RequireRole("collect_admin"), h.Response.Delete)
			}
		}
	}
}
