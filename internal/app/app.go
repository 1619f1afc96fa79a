package app

import (
	"context"
	"fmt"
	"log"
	"mocktest_backend/internal/config"
	"mocktest_backend/internal/controller"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/repository"
	"mocktest_backend/internal/service"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/database"
	"mocktest_backend/pkg/docstore"
	"mocktest_backend/pkg/logger"
	"mocktest_backend/pkg/monitoring"
	"mocktest_backend/pkg/security"
	"mocktest_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Store  docstore.Store

	services        *services
	cron            *cron.Cron
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	mockTest   *repository.MockTestRepository
	submission *repository.SubmissionRepository
}

type services struct {
	mockTest *service.MockTestService
	session  *service.SessionService
	result   *service.ResultService
}

type controllers struct {
	mockTest *controller.MockTestController
	session  *controller.SessionController
	result   *controller.ResultController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// OnConfigReload 配置热更新入口，依次调用已注册的回调
func (a *App) OnConfigReload(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(store docstore.Store) *repositories {
	return &repositories{
		mockTest:   repository.NewMockTestRepository(store),
		submission: repository.NewSubmissionRepository(store),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	return &services{
		mockTest: service.NewMockTestService(repos.mockTest),
		session:  service.NewSessionService(repos.mockTest, repos.submission, cfg.Session),
		result:   service.NewResultService(repos.mockTest, repos.submission),
	}
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		mockTest: controller.NewMockTestController(s.mockTest),
		session:  controller.NewSessionController(s.session),
		result:   controller.NewResultController(s.result),
		health:   controller.NewHealthController(a.DB, a.Redis, s.session, a.Config.Store.Type),
	}
}

// initStore 按配置选择文档存储；开启缓存时在外层包一层 Redis 读缓存
func initStore(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (docstore.Store, error) {
	var store docstore.Store
	switch cfg.Store.Type {
	case util.StoreSQL:
		if db == nil {
			return nil, fmt.Errorf("sql store requires a database connection")
		}
		store = docstore.NewGormStore(db)
	case util.StoreRemote:
		store = docstore.NewRemoteStore(docstore.RemoteConfig{
			Endpoint: cfg.Store.RemoteEndpoint,
			Project:  cfg.Store.RemoteProject,
			APIKey:   cfg.Store.RemoteAPIKey,
			Database: cfg.Store.RemoteDatabase,
			Timeout:  cfg.Store.RemoteTimeout,
			Retries:  cfg.Store.RemoteRetries,
		})
	case util.StoreMemory:
		store = docstore.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported store type: %q", cfg.Store.Type)
	}

	// 作答过程中试卷和题目只读，提交记录不缓存
	if rdb != nil && cfg.Store.CacheEnabled {
		store = docstore.NewCachedStore(store, rdb, cfg.Store.CacheTTL,
			model.CollectionTests, model.CollectionQuestions)
	}
	return store, nil
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时清理已完成和长时间无操作的作答
func (a *App) startBackgroundTasks(s *services, cfg *config.Config) error {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(cfg.Session.JanitorSchedule, func() {
		if n := s.session.Sweep(); n > 0 {
			monitoring.JanitorEvictions.Add(float64(n))
			logger.Log.Info("session janitor evicted sessions", zap.Int("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", cfg.Session.JanitorSchedule, err)
	}
	a.cron.Start()
	return nil
}

// build 组装存储之上的各层并注册路由
func (a *App) build(store docstore.Store) {
	a.Store = store

	repos := a.initRepositories(store)
	services := a.initServices(repos, a.Config)
	a.services = services
	controllers := a.initControllers(services)

	monitoring.Init()

	if a.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	a.Router = router

	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, controllers, a.Config)
}

// newWithStore 使用给定存储构建应用，不连接外部依赖
func newWithStore(cfg *config.Config, store docstore.Store) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, ctx: ctx, cancel: cancel}
	app.build(store)
	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, ctx: ctx, cancel: cancel}

	if cfg.Store.Type == util.StoreSQL {
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		app.DB = db
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Store.CacheEnabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			// 缓存不可用时直接读存储
			logger.Log.Warn("Redis unavailable, document cache disabled", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	store, err := initStore(cfg, app.DB, app.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize document store", zap.Error(err))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("mocktest-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.build(store)
	app.RegisterConfigCallback(logger.Reload)

	if err := app.startBackgroundTasks(app.services, cfg); err != nil {
		logger.Log.Fatal("Failed to start background tasks", zap.Error(err))
	}

	logger.Log.Info("Application initialized", zap.String("store", cfg.Store.Type), zap.Bool("cache", app.Redis != nil))
	return app
}

// Context 随 Shutdown 取消
func (a *App) Context() context.Context {
	return a.ctx
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Shutdown(ctx)

	logger.Log.Info("Server exiting")
}

// Shutdown 停止后台任务并丢弃内存中的作答
func (a *App) Shutdown(ctx context.Context) {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.services != nil {
		a.services.session.Shutdown()
	}
	if err := tracing.Shutdown(ctx, a.tracer); err != nil {
		logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.cancel()
}
