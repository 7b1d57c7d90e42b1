package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"eden-backend/application/batch"
	"eden-backend/application/ports"
	"eden-backend/application/services"
	domainconfig "eden-backend/domain/config"
	"eden-backend/infrastructure/config"
	"eden-backend/infrastructure/extraction"
	"eden-backend/infrastructure/llm"
	"eden-backend/infrastructure/messaging"
	"eden-backend/infrastructure/messaging/eventbridge"
	"eden-backend/infrastructure/persistence/dynamodb"
	"eden-backend/infrastructure/persistence/memory"
	"eden-backend/infrastructure/persistence/search"
	"eden-backend/infrastructure/persistence/sqlite"
	"eden-backend/infrastructure/tasks"
	"eden-backend/interfaces/http/rest"
	"eden-backend/interfaces/http/rest/handlers"
	"eden-backend/pkg/auth"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

const metricsNamespace = "eden"

// Storage is the selected persistence backend behind the search index.
type Storage struct {
	Items  *search.IndexedStore
	Tokens ports.TokenStore
	// Ping checks that the backend is reachable; nil for in-process stores.
	Ping func(ctx context.Context) error
}

// ProvideLogLevel parses the configured level into an adjustable level so
// config reloads can change it at runtime.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	return level, nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideDomainConfig returns the business limits
func ProvideDomainConfig() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

// ProvideErrorHandler exposes internal error detail outside production.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, !cfg.IsProduction())
}

// ProvideStorage opens the configured backend and wraps it with the search
// index. The cleanup closes the index and then the backend.
func ProvideStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, func(), error) {
	var (
		inner  ports.ItemStore
		tokens ports.TokenStore
		ping   func(context.Context) error
		closer io.Closer
	)

	switch cfg.StoreBackend {
	case config.StoreMemory:
		store := memory.NewStore()
		inner, tokens = store, store

	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		inner, tokens, ping, closer = store, store, store.Ping, store

	case config.StoreDynamoDB:
		client, err := dynamodb.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		store := dynamodb.NewStore(client, cfg.DynamoDBTable, logger)
		inner, tokens = store, store
		ping = func(ctx context.Context) error {
			_, err := store.GetItemsByUser(ctx, "__readiness__")
			return err
		}

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	indexed, err := search.Open(inner, cfg.SearchIndexPath, logger)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}

	logger.Info("Storage configured",
		zap.String("backend", cfg.StoreBackend),
		zap.Bool("persistentIndex", cfg.SearchIndexPath != ""),
	)

	cleanup := func() {
		if err := indexed.Close(); err != nil {
			logger.Warn("Failed to close search index", zap.Error(err))
		}
		if closer != nil {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close store", zap.Error(err))
			}
		}
	}
	return &Storage{Items: indexed, Tokens: tokens, Ping: ping}, cleanup, nil
}

// ProvideItemStore exposes the indexed store as the item port
func ProvideItemStore(s *Storage) ports.ItemStore {
	return s.Items
}

// ProvideTokenStore exposes the backend's token store
func ProvideTokenStore(s *Storage) ports.TokenStore {
	return s.Tokens
}

// ProvideEventBus publishes to EventBridge when a bus is configured and
// otherwise logs events.
func ProvideEventBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventBus, error) {
	if cfg.EventBusName == "" {
		return messaging.NewLogPublisher(logger), nil
	}
	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return eventbridge.NewPublisher(eventbridge.NewClient(awsCfg), cfg.EventBusName, logger), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// ProvideLLMProvider builds the configured model behind the resilience guards
func ProvideLLMProvider(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (ports.LLMProvider, error) {
	return llm.NewProviderFromConfig(cfg, metrics, logger)
}

// ProvideExtractor creates the content extractor
func ProvideExtractor(cfg *config.Config, domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *extraction.Extractor {
	return extraction.NewExtractor(nil, extraction.Options{
		FetchTimeout:     cfg.FetchTimeout,
		MaxFetchBytes:    cfg.MaxFetchBytes,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		MaxContentLength: domainCfg.MaxContentLength,
		MaxBookmarks:     domainCfg.MaxBookmarksPerFile,
		UserAgent:        cfg.UserAgent,
	}, logger)
}

// ProvideRunner creates the batch runner with the configured concurrency
func ProvideRunner(capture *services.CaptureService, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *batch.Runner {
	return batch.NewRunner(capture, cfg.BatchConcurrency, metrics, logger)
}

// ProvideScheduler starts the background workers. The cleanup drains them.
func ProvideScheduler(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*tasks.Scheduler, func()) {
	scheduler := tasks.NewScheduler(tasks.Config{
		Workers:   cfg.BackgroundWorkers,
		QueueSize: cfg.BackgroundQueueSize,
		Timeout:   cfg.BackgroundTaskTimeout,
	}, metrics, logger)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := scheduler.Shutdown(ctx); err != nil {
			logger.Warn("Background tasks did not finish", zap.Error(err))
		}
	}
	return scheduler, cleanup
}

// ProvideHandlers creates the HTTP handlers
func ProvideHandlers(
	cfg *config.Config,
	domainCfg *domainconfig.DomainConfig,
	runner *batch.Runner,
	extractor *extraction.Extractor,
	capture *services.CaptureService,
	items *services.ItemService,
	chat *services.ChatService,
	tokens ports.TokenStore,
	scheduler *tasks.Scheduler,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) rest.Handlers {
	return rest.Handlers{
		Import:      handlers.NewImportHandler(runner, extractor, domainCfg, cfg.MaxUploadBytes, errorHandler, logger),
		Capture:     handlers.NewCaptureHandler(capture, errorHandler, logger),
		Bookmarklet: handlers.NewBookmarkletHandler(capture, tokens, scheduler, errorHandler, logger),
		Token:       handlers.NewTokenHandler(tokens, errorHandler, logger),
		Items:       handlers.NewItemHandler(items, errorHandler, logger),
		Chat:        handlers.NewChatHandler(chat, errorHandler, logger),
	}
}

// ProvideRouterOptions configures auth, rate limiting and readiness. Without
// a JWT secret the API trusts the X-User-ID header, which Validate only
// allows outside production.
func ProvideRouterOptions(cfg *config.Config, storage *Storage, logger *zap.Logger) (rest.Options, error) {
	opts := rest.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		EnableMetrics:  cfg.EnableMetrics,
		Ready:          storage.Ping,
	}

	if cfg.JWTSecret != "" {
		validator, err := auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return rest.Options{}, err
		}
		opts.Validator = validator
	} else {
		logger.Warn("JWT_SECRET not set, authenticating with the X-User-ID header")
	}

	if cfg.RateLimitRPS > 0 {
		opts.Limiter = auth.NewKeyedRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return opts, nil
}

// ProvideRouter creates the router
func ProvideRouter(
	h rest.Handlers,
	opts rest.Options,
	metrics *observability.Collector,
	logger *zap.Logger,
	errorHandler *pkgerrors.ErrorHandler,
) *rest.Router {
	return rest.NewRouter(h, opts, metrics, logger, errorHandler)
}
