package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"agentic-rag/internal/ai"
	"agentic-rag/internal/app"
	"agentic-rag/internal/cache"
	"agentic-rag/internal/config"
	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/extract"
	"agentic-rag/internal/pkg/logger"
	mysqlClient "agentic-rag/internal/platform/mysql"
	"agentic-rag/internal/platform/pgpool"
	rabbitmqClient "agentic-rag/internal/platform/rabbitmq"
	redisClient "agentic-rag/internal/platform/redis"
	"agentic-rag/internal/repository"
	"agentic-rag/internal/sqlagent"
	"agentic-rag/internal/worker"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	MySQL    *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Pools    *pgpool.Manager
	Services *Services

	consumers []*worker.Consumer
	StartedAt time.Time
}

// New connects every backing service, migrates and seeds the schema, and
// starts the background workers. Redis and RabbitMQ are optional: when they
// are unreachable the app runs without caching and with direct writes.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}
	log = log.With(zap.String("app", cfg.App.Name))
	ctx = ctxzap.ToContext(ctx, log)

	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), a.Logger)
	if err != nil {
		return err
	}
	a.MySQL = db
	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	if cfg.Redis.Addr != "" {
		if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
			ctxzap.Extract(ctx).Warn("redis unavailable, caching disabled", zap.Error(err))
		}
	}
	if cfg.RabbitMQ.URL != "" {
		if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL); err != nil {
			ctxzap.Extract(ctx).Warn("rabbitmq unavailable, background queues disabled", zap.Error(err))
		}
	}

	a.Pools = pgpool.NewManager(pgpool.Config{
		MaxPools: cfg.SQLAgent.MaxPools,
		MaxConns: int32(cfg.SQLAgent.PoolMaxConns),
		IdleTTL:  time.Duration(cfg.SQLAgent.PoolIdleTTLSeconds) * time.Second,
	}, pgpool.WithLogger(a.Logger.Named("pgpool")))
	a.Pools.Start()

	llm := ai.NewOpenAICompatibleClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		ChatModel:      cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Timeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		Retry:          cfg.RetryPolicy(),
	})

	deps := ServiceDeps{
		Embedder:     llm,
		Completer:    llm,
		SQLCompleter: llm.WithModel(cfg.LLM.SQLModel),
		Extractor:    extract.NewExtractor(),
		Targets: sqlagent.NewPoolOpener(a.Pools, sqlagent.ExecOptions{
			ReadOnly: cfg.SQLAgent.ReadOnly,
			Timeout:  time.Duration(cfg.SQLAgent.QueryTimeoutSeconds) * time.Second,
			MaxRows:  cfg.SQLAgent.MaxRows,
		}),
		Documents: app.DocumentOptions{
			UploadDir:      cfg.Documents.UploadDir,
			MaxUploadBytes: int64(cfg.Documents.MaxUploadMB) << 20,
			ChunkSize:      cfg.Documents.ChunkSize,
			EmbedBatchSize: cfg.Documents.EmbedBatchSize,
			AsyncIngest:    cfg.Documents.AsyncIngest,
		},
		Guard:         sqlagent.NewGuard(cfg.SQLAgent.ReadOnly),
		JWTSecret:     cfg.Auth.JWTSecret,
		JWTExpiration: cfg.JWTExpiration(),
	}

	var historyCache *cache.HistoryCache
	if a.Redis != nil {
		historyCache = cache.NewHistoryCache(a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryWriteWindowSeconds)*time.Second)
		deps.HistoryCache = historyCache
		deps.SchemaCache = cache.NewSchemaCache(a.Redis, time.Duration(cfg.Redis.SchemaTTLSeconds)*time.Second)
	}
	if a.MQConn != nil {
		deps.MessagePublisher = rabbitmqClient.NewPublisher(a.MQConn, cfg.RabbitMQ.MessagePersistQueue)
		deps.IngestPublisher = rabbitmqClient.NewPublisher(a.MQConn, cfg.RabbitMQ.IngestQueue)
	}

	a.Services = NewServices(db, deps)

	if err := a.Services.Authz.Seed(ctx, app.SeedInput{
		AdminMobile:   cfg.Seed.AdminMobile,
		AdminPassword: cfg.Seed.AdminPassword,
		AdminEmail:    cfg.Seed.AdminEmail,
	}); err != nil {
		return fmt.Errorf("seed roles and permissions failed: %w", err)
	}

	if a.MQConn != nil {
		var msgCache worker.MessageCache
		if historyCache != nil {
			msgCache = historyCache
		}
		persist := worker.NewMessagePersistWorker(repository.NewMessageRepository(db), msgCache)
		ingest := worker.NewIngestWorker(a.Services.Documents)
		a.consumers = []*worker.Consumer{
			worker.NewConsumer(a.MQConn, cfg.RabbitMQ.MessagePersistQueue, persist.Handle),
			worker.NewConsumer(a.MQConn, cfg.RabbitMQ.IngestQueue, ingest.Handle),
		}
		for _, c := range a.consumers {
			if err := c.Start(ctx); err != nil {
				return fmt.Errorf("start worker failed: %w", err)
			}
		}
	}
	return nil
}

// Close releases resources in dependency order: workers first, then pools,
// caches, the broker and finally the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.consumers {
		c.Close()
	}
	if a.Pools != nil {
		a.Pools.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close mysql: %w", err))
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
