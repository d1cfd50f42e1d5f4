// Package app 提供参数配置服务的应用入口
//
// ========================================
// eidos-tunables 服务对接总览
// ========================================
//
// ## 服务信息
// - 服务名: eidos-tunables
// - HTTP 端口: 8080 (管理接口 + metrics + health)
// - gRPC 端口: 50058 (仅健康检查)
// - 数据库: eidos_tunables (PostgreSQL), 也可切换为 Nacos 配置中心
//
// ## 依赖服务
// - PostgreSQL: 五个参数集合
// - Redis: 跨实例缓存失效广播 (可选)
// - Kafka: 配置变更事件 (可选)
// - Nacos: 参数配置源 (tunables.source=nacos 时)
//
// ## Kafka 主题
// - 生产: tunables-changes
//
// ## 下游对接
// 决策引擎调用方通过 /tunables/v1/snapshot 读取快照,
// 通过 /tunables/v1/classify 获取风险等级。
//
// ========================================
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/cache"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/classifier"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/config"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/handler"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/kafka"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/metrics"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/mutator"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/resolver"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/router"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/source"
	"github.com/eidos-exchange/eidos/eidos-tunables/migrations"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/circuitbreaker"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/migrate"
)

// App 参数配置服务应用
type App struct {
	cfg *config.Config

	// 基础设施
	db           *gorm.DB
	redisClient  redis.UniversalClient
	nacosSource  *source.NacosSource
	grpcServer   *grpc.Server
	healthServer *health.Server
	httpServer   *http.Server

	// Kafka
	kafkaProducer *kafka.Producer

	// 核心组件
	source      source.Source
	broadcaster *cache.Broadcaster
	resolver    *resolver.Resolver
	mutator     *mutator.Mutator
	classifier  *classifier.Classifier

	// 上下文
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建应用实例
func New(cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run 启动应用
func (a *App) Run() error {
	// 1. 初始化配置源
	if err := a.initSource(); err != nil {
		return fmt.Errorf("failed to init source: %w", err)
	}

	// 2. 初始化 Redis, 失败时仅关闭跨实例广播
	if err := a.initRedis(); err != nil {
		logger.Warn("failed to init redis, running without invalidation broadcast", zap.Error(err))
		a.redisClient = nil
	}

	// 3. 初始化 Kafka
	if err := a.initKafka(); err != nil {
		logger.Warn("failed to init kafka, running without change events", zap.Error(err))
	}

	// 4. 初始化核心组件
	a.initCore()

	// 5. 订阅失效通知
	a.startWatchers()

	// 6. 预热
	a.warmup()

	// 7. 启动 HTTP 服务
	if err := a.startHTTP(); err != nil {
		return fmt.Errorf("failed to start http: %w", err)
	}

	// 8. 启动 gRPC 健康检查
	if err := a.startGRPC(); err != nil {
		return fmt.Errorf("failed to start gRPC: %w", err)
	}

	return nil
}

// Shutdown 优雅关闭
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutting down tunables service...")

	if a.healthServer != nil {
		a.healthServer.Shutdown()
	}

	// 1. 停止 HTTP 服务器
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}
	}

	// 2. 停止 gRPC 服务器
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	// 3. 停止订阅
	a.cancel()
	if a.broadcaster != nil {
		a.broadcaster.Close()
	}

	// 4. 关闭 Kafka 生产者
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			logger.Warn("close kafka producer failed", zap.Error(err))
		}
	}

	// 5. 关闭数据库
	if a.db != nil {
		sqlDB, _ := a.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 6. 关闭 Redis
	if a.redisClient != nil {
		a.redisClient.Close()
	}

	logger.Info("tunables service stopped")
	return nil
}

// initSource 按配置选择 PostgreSQL 或 Nacos
func (a *App) initSource() error {
	switch a.cfg.Tunables.Source {
	case config.SourceNacos:
		client, err := source.NewNacosConfigClient(&source.NacosSourceConfig{
			ServerAddr: a.cfg.Nacos.ServerAddr,
			Namespace:  a.cfg.Nacos.Namespace,
			Group:      a.cfg.Nacos.Group,
			DataPrefix: a.cfg.Nacos.DataPrefix,
			Username:   a.cfg.Nacos.Username,
			Password:   a.cfg.Nacos.Password,
			LogDir:     a.cfg.Nacos.LogDir,
			CacheDir:   a.cfg.Nacos.CacheDir,
			TimeoutMs:  a.cfg.Nacos.TimeoutMs,
		})
		if err != nil {
			return fmt.Errorf("create nacos client: %w", err)
		}
		a.nacosSource = source.NewNacosSource(client, a.cfg.Nacos.Group, a.cfg.Nacos.DataPrefix)
		a.source = a.nacosSource
		logger.Info("using nacos tunables source", zap.String("server", a.cfg.Nacos.ServerAddr))
		return nil

	case config.SourceDB:
		if err := a.initDB(); err != nil {
			return err
		}
		a.source = source.NewDBSource(a.db)
		return nil
	}
	return fmt.Errorf("unknown tunables source %q", a.cfg.Tunables.Source)
}

// initDB 初始化数据库
func (a *App) initDB() error {
	pg := a.cfg.Postgres
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(pg.MaxConnections)
	sqlDB.SetMaxIdleConns(pg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pg.ConnMaxLifetimeMinutes) * time.Minute)
	a.db = db

	// 自动迁移
	m := migrate.NewMigrator(sqlDB, a.cfg.Service.Name, logger.L())
	if err := m.AutoMigrate(migrations.FS, "."); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("database migrated")

	return nil
}

// initRedis 初始化 Redis
func (a *App) initRedis() error {
	if !a.cfg.Redis.Enabled {
		logger.Info("redis disabled")
		return nil
	}

	a.redisClient = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    a.cfg.Redis.Addrs,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.redisClient.Ping(ctx).Err(); err != nil {
		a.redisClient.Close()
		return err
	}
	return nil
}

// initKafka 初始化 Kafka
func (a *App) initKafka() error {
	if !a.cfg.Kafka.Enabled || len(a.cfg.Kafka.Brokers) == 0 {
		logger.Info("kafka disabled")
		return nil
	}

	producer, err := kafka.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.ClientID)
	if err != nil {
		return err
	}
	a.kafkaProducer = producer

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", a.cfg.Kafka.Brokers))

	return nil
}

// initCore 初始化缓存、解析器、变更器与分级器
func (a *App) initCore() {
	tc := a.cfg.Tunables

	var breaker *circuitbreaker.Config
	if tc.Breaker.Enabled {
		breaker = circuitbreaker.DefaultConfig()
		breaker.FailureThreshold = tc.Breaker.FailureThreshold
		breaker.SuccessThreshold = tc.Breaker.SuccessThreshold
		breaker.Timeout = time.Duration(tc.Breaker.OpenTimeoutSec) * time.Second
	} else {
		// 关闭熔断: 阈值足够大, 永不打开
		breaker = circuitbreaker.DefaultConfig()
		breaker.FailureThreshold = math.MaxInt
	}

	configCache := cache.New(tc.CacheTTL(), nil)
	a.resolver = resolver.New(a.source, configCache, resolver.Options{
		FetchTimeout:      tc.FetchTimeout(),
		ServeStaleOnError: tc.ServeStaleOnError,
		CacheFallback:     tc.CacheFallback,
		Breaker:           breaker,
	})

	a.mutator = mutator.New(a.source, a.resolver, mutator.Options{
		WriteRetries: tc.WriteRetries,
		RetryBackoff: tc.RetryBackoff(),
	})
	if a.redisClient != nil {
		a.broadcaster = cache.NewBroadcaster(a.redisClient, a.cfg.Redis.Channel)
		a.mutator.SetBroadcast(a.broadcaster.Publish)
	}
	if a.kafkaProducer != nil {
		a.mutator.SetChangeCallback(a.kafkaProducer.ChangeCallback())
	}

	a.classifier = classifier.New(a.resolver)
}

// startWatchers 订阅其他实例的失效广播与 Nacos 变更
func (a *App) startWatchers() {
	if a.broadcaster != nil {
		err := a.broadcaster.Subscribe(a.ctx, func(msg cache.InvalidationMessage) {
			logger.Info("peer invalidation received",
				zap.String("origin", msg.Origin),
				zap.String("collection", msg.Collection),
				zap.String("reason", msg.Reason))
			a.resolver.Invalidate()
			metrics.RecordInvalidation("peer")
		})
		if err != nil {
			logger.Warn("subscribe invalidation channel failed", zap.Error(err))
		}
	}

	if a.nacosSource != nil {
		err := a.nacosSource.Watch(a.ctx, func(collection string) {
			logger.Info("nacos tunables changed", zap.String("collection", collection))
			a.resolver.Invalidate()
			metrics.RecordInvalidation("nacos")
		})
		if err != nil {
			logger.Warn("watch nacos tunables failed", zap.Error(err))
		}
	}
}

// warmup 启动时解析一次, 失败不阻止启动
func (a *App) warmup() {
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	s, err := a.resolver.ResolveStrict(ctx)
	if err != nil {
		logger.Warn("tunables warmup failed, serving baseline until source recovers", zap.Error(err))
		return
	}
	logger.Info("tunables warmed up",
		zap.Float64("low_max", s.RiskThresholds.LowMax),
		zap.Float64("moderate_max", s.RiskThresholds.ModerateMax))
}

// startHTTP 启动管理接口
func (a *App) startHTTP() error {
	if a.cfg.Service.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.New(&router.Handlers{
		Tunables: handler.NewTunablesHandler(a.resolver, a.mutator),
		Classify: handler.NewClassifyHandler(a.classifier),
	})

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Service.HTTPPort))
	if err != nil {
		return err
	}

	a.httpServer = &http.Server{
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := a.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	logger.Info("http server started", zap.Int("port", a.cfg.Service.HTTPPort))
	return nil
}

// startGRPC 启动 gRPC 健康检查
func (a *App) startGRPC() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Service.GRPCPort))
	if err != nil {
		return err
	}

	a.grpcServer = grpc.NewServer()
	a.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, a.healthServer)
	a.healthServer.SetServingStatus(a.cfg.Service.Name, grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		if err := a.grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	logger.Info("gRPC server started", zap.Int("port", a.cfg.Service.GRPCPort))
	return nil
}
