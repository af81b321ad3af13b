package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/application/subscribers"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/felixgeelhaar/gritline/internal/grit/infrastructure/cache"
	"github.com/felixgeelhaar/gritline/internal/grit/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/gritline/internal/shared/application"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry
	Tuning  Tuning

	// Infrastructure
	DBConn      database.Connection // nil for the memory driver
	DBDriver    database.Driver
	RedisClient *redis.Client
	Scoreboard  *cache.RedisScoreboard      // nil without Redis
	RabbitMQ    *eventbus.RabbitMQPublisher // nil in local mode
	EventBus    *eventbus.InProcessEventBus // nil when RabbitMQ is used

	// Data store
	Store      *persistence.ResilientStore
	UnitOfWork sharedApplication.UnitOfWork

	// Engine
	Calculator     *formula.Calculator
	Catalog        *trigger.Catalog
	Scorer         *services.Scorer
	ScoreCache     *services.ScoreCache
	Locks          *services.InstanceLocks
	Coherence      *services.Coherence
	Scheduler      *services.Scheduler
	EventPublisher *eventbus.DomainPublisher

	// Command handlers
	CreateInstanceHandler   *commands.CreateInstanceHandler
	UpdateInstanceHandler   *commands.UpdateInstanceHandler
	DeleteInstanceHandler   *commands.DeleteInstanceHandler
	CompleteInstanceHandler *commands.CompleteInstanceHandler
	RecordResponseHandler   *commands.RecordResponseHandler
	SetSurveyProfileHandler *commands.SetSurveyProfileHandler

	// Query handlers
	GetInstanceHandler   *queries.GetInstanceHandler
	ListInstancesHandler *queries.ListInstancesHandler
	GetScoreHandler      *queries.GetScoreHandler
	WarmScoresHandler    *queries.WarmScoresHandler
}

// NewContainer creates a new container with all dependencies wired up.
// SQLite and memory drivers run without external services; Redis and
// RabbitMQ are used when their URLs are configured.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tuning, err := LoadTuning(cfg)
	if err != nil {
		return nil, err
	}
	if len(tuning.Sections) > 0 {
		logger.Info("tuning file applied", "path", cfg.TuningFile, "sections", tuning.Sections)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
		Tuning:  tuning,
	}

	conn, err := openConnection(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.DBConn = conn

	factory := NewRepositoryFactory(conn)
	c.DBDriver = factory.Driver()
	store, err := factory.DataStore()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = persistence.NewResilientStore(store, breakerConfig(cfg), c.Metrics, logger)
	c.UnitOfWork = factory.UnitOfWork()

	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}

	// Create the engine
	c.Calculator, err = formula.NewCalculator(tuning.Formula)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Catalog = trigger.NewCatalog(tuning.Triggers)
	c.Scorer = services.NewScorer(c.Calculator, c.Store, tuning.Scheduler.HistoryWindow)

	var board services.Scoreboard
	var mirror queries.MirroredScoreReader
	if c.RedisClient != nil {
		c.Scoreboard = cache.NewRedisScoreboard(c.RedisClient, cfg.ScoreTTL)
		board, mirror = c.Scoreboard, c.Scoreboard
	}
	c.ScoreCache = services.NewScoreCache(
		c.Scorer.Compute,
		c.Store,
		board,
		services.ScoreCacheConfig{WarmConcurrency: cfg.WarmConcurrency},
		c.Metrics,
		logger,
	)

	if err := c.connectEventBus(); err != nil {
		c.Close()
		return nil, err
	}

	c.Locks = services.NewInstanceLocks()
	c.Coherence = services.NewCoherence(c.Store, c.Scorer, c.ScoreCache, c.EventPublisher, c.UnitOfWork, c.Locks, logger)
	c.Scheduler = services.NewScheduler(
		c.Catalog,
		c.Store,
		c.EventPublisher,
		c.UnitOfWork,
		c.Locks,
		tuning.SchedulerConfig(),
		c.Metrics,
		logger,
	)

	// Create command handlers
	c.CreateInstanceHandler = commands.NewCreateInstanceHandler(c.Coherence, c.Metrics)
	c.UpdateInstanceHandler = commands.NewUpdateInstanceHandler(c.Coherence)
	c.DeleteInstanceHandler = commands.NewDeleteInstanceHandler(c.Coherence, c.Metrics)
	c.CompleteInstanceHandler = commands.NewCompleteInstanceHandler(c.Coherence, c.Scheduler, c.Metrics)
	c.RecordResponseHandler = commands.NewRecordResponseHandler(c.Coherence, c.Catalog, c.Metrics)
	c.SetSurveyProfileHandler = commands.NewSetSurveyProfileHandler(c.Store)

	// Create query handlers
	c.GetInstanceHandler = queries.NewGetInstanceHandler(c.Store)
	c.ListInstancesHandler = queries.NewListInstancesHandler(c.Store)
	c.GetScoreHandler = queries.NewGetScoreHandler(c.ScoreCache, c.Store, mirror)
	c.WarmScoresHandler = queries.NewWarmScoresHandler(c.Store, c.ScoreCache)

	c.registerHealthChecks()

	logger.Info("container ready",
		"driver", c.DBDriver,
		"scoreboard", c.RedisClient != nil,
		"rabbitmq", c.RabbitMQ != nil,
	)
	return c, nil
}

// connectRedis connects the optional score mirror. Outside development an
// unreachable Redis is an error.
func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, scoreboard disabled", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, scoreboard disabled", "error", err)
		return nil
	}

	c.RedisClient = client
	c.Logger.Info("connected to Redis")
	return nil
}

// connectEventBus publishes domain events to RabbitMQ when configured.
// Otherwise events are dispatched in process, where the score subscriber
// warms the affected scopes after each committed change.
func (c *Container) connectEventBus() error {
	if c.Config.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err == nil {
			c.RabbitMQ = publisher
			c.EventPublisher = eventbus.NewDomainPublisher(publisher, c.Metrics)
			return nil
		}
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, dispatching events in process", "error", err)
	}

	c.EventBus = eventbus.NewInProcessEventBus(c.Logger)
	c.EventBus.Registry().WithMetrics(c.Metrics)
	c.EventBus.RegisterConsumer(subscribers.NewScoreSubscriber(c.ScoreCache, false, c.Logger))
	c.EventPublisher = eventbus.NewDomainPublisher(c.EventBus, c.Metrics)
	return nil
}

func (c *Container) registerHealthChecks() {
	if c.DBConn != nil {
		c.Health.Register("database", observability.DatabaseHealthChecker(c.DBConn.Ping))
	}
	if c.Scoreboard != nil {
		c.Health.Register("redis", observability.RedisHealthChecker(c.Scoreboard.Ping))
	}
	if c.RabbitMQ != nil {
		c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(c.RabbitMQ.Check))
	}
}

// CurrentUserID parses the configured user.
func (c *Container) CurrentUserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Config.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid GRITLINE_USER_ID: %w", err)
	}
	return id, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}

func breakerConfig(cfg *config.Config) persistence.BreakerConfig {
	bc := persistence.DefaultBreakerConfig()
	if cfg.BreakerFailureThreshold > 0 {
		bc.FailureThreshold = uint32(cfg.BreakerFailureThreshold)
	}
	if cfg.BreakerTimeout > 0 {
		bc.Timeout = cfg.BreakerTimeout
	}
	return bc
}
