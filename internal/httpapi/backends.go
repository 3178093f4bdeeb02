package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"routing_gateway/internal/catalog"
	"routing_gateway/internal/chat"
	"routing_gateway/internal/config"
	"routing_gateway/internal/dispatch"
	"routing_gateway/internal/errs"
	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
	"routing_gateway/internal/providers"
	"routing_gateway/internal/queue"
	"routing_gateway/internal/routing"
	"routing_gateway/internal/storage"
)

// backend bundles the repositories of one store implementation
type backend struct {
	rules    routing.RuleRepository
	settings routing.PolicyRepository
	models   interface {
		catalog.ModelLister
		ModelStore
	}
	dispatchLog logging.BatchWriter
	closers     []func() error
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (*backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := storage.NewDB(storage.DBConfig{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &backend{
			rules:       storage.NewRuleRepository(db),
			settings:    storage.NewSettingsRepository(db),
			models:      storage.NewModelRepository(db),
			dispatchLog: storage.NewDispatchLogRepository(db),
			closers:     []func() error{db.Close},
		}, nil

	case config.BackendSQLite:
		gdb, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
		}
		return &backend{
			rules:       storage.NewSQLiteRuleRepository(gdb),
			settings:    storage.NewSQLiteSettingsRepository(gdb),
			models:      storage.NewSQLiteModelRepository(gdb),
			dispatchLog: storage.NewSQLiteDispatchLogRepository(gdb),
			closers:     []func() error{sqlDB.Close},
		}, nil

	case config.BackendMemory:
		return &backend{
			rules:    storage.NewMemoryRuleRepository(),
			settings: storage.NewMemorySettingsRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// NewRouter builds every service described by cfg and returns the HTTP
// handler along with the dependencies that must be shut down on exit.
func NewRouter(cfg *config.Config) (http.Handler, *Dependencies, error) {
	bgCtx, cancel := context.WithCancel(context.Background())
	deps := &Dependencies{Upload: cfg.Upload, cancel: cancel}

	fail := func(err error) (http.Handler, *Dependencies, error) {
		deps.Shutdown(context.Background())
		return nil, nil, err
	}

	store, err := openBackend(bgCtx, cfg.Store)
	if err != nil {
		return fail(err)
	}
	deps.closers = append(deps.closers, store.closers...)

	// Redis is optional; without it replicas only converge on the reload interval
	var redisClient *storage.RedisClient
	var notifier *storage.RedisRuleNotifier
	if cfg.Redis.Enabled() {
		redisClient, err = storage.NewRedisClient(storage.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize Redis: %w", err))
		}
		deps.closers = append(deps.closers, redisClient.Close)
		notifier = storage.NewRedisRuleNotifier(redisClient.Client(), cfg.Routing.ChangeChannel)
	}

	sink, err := newAuditSink(bgCtx, cfg.Audit, store, redisClient)
	if err != nil {
		return fail(err)
	}
	deps.AuditSink = sink

	// Catalog and providers
	var sources []catalog.Source
	if cfg.Catalog.FilePath != "" {
		sources = append(sources, catalog.NewFileSource(cfg.Catalog.FilePath))
	}
	if store.models != nil {
		sources = append(sources, catalog.NewDBSource(store.models))
		deps.Models = store.models
	}
	cat := catalog.New(sources...)
	registry := providers.NewRegistry(providers.New)
	cat.OnReload(registry.Sync)
	if err := cat.Reload(bgCtx); err != nil {
		return fail(fmt.Errorf("failed to load model catalog: %w", err))
	}
	deps.Catalog = cat
	deps.Providers = registry

	// Rules and file-upload policy
	ruleOpts := []routing.RuleStoreOption{
		routing.WithRedirectValidator(func(model string) error {
			if len(cat.ProvidersFor(model)) == 0 {
				return errs.New(errs.InvalidModel, "Redirect model does not exist in models table")
			}
			return nil
		}),
	}
	var policyOpts []routing.PolicyOption
	if notifier != nil {
		ruleOpts = append(ruleOpts, routing.WithNotifier(notifier))
		policyOpts = append(policyOpts, routing.WithPolicyNotifier(notifier))
	}

	rules := routing.NewRuleStore(store.rules, ruleOpts...)
	if err := rules.Reload(bgCtx); err != nil {
		return fail(fmt.Errorf("failed to load routing rules: %w", err))
	}
	policies := routing.NewPolicyRegistry(store.settings, cat, policyOpts...)
	if err := policies.Load(bgCtx); err != nil {
		return fail(fmt.Errorf("failed to load file upload policy: %w", err))
	}
	deps.Rules = rules
	deps.Policies = policies

	mode, err := routing.ParseMatchMode(cfg.Routing.MatchMode)
	if err != nil {
		return fail(err)
	}
	resolver := routing.NewResolver(rules, mode)
	dispatcher := dispatch.New(cat, registry, sink, cfg.Dispatch.Timeout)
	deps.Orchestrator = chat.NewOrchestrator(resolver, dispatcher, policies, cat, chat.NewExtractor(cfg.Upload.MaxContextBytes))

	// Background reloaders
	deps.goBackground(func() { cat.Run(bgCtx, cfg.Catalog.ReloadInterval) })
	deps.goBackground(func() { rules.Run(bgCtx, cfg.Routing.RuleReloadInterval) })
	deps.goBackground(func() { policies.Run(bgCtx, cfg.Routing.RuleReloadInterval) })
	if notifier != nil {
		deps.goBackground(func() {
			err := notifier.Subscribe(bgCtx, nil, func(ctx context.Context) {
				if err := rules.Reload(ctx); err != nil {
					logger.Warn("Rule reload after change notice failed", "error", err)
				}
				if err := policies.Load(ctx); err != nil {
					logger.Warn("Policy reload after change notice failed", "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Rule change subscription stopped", "error", err)
			}
		})
	}

	logger.Info("Gateway wired",
		"store", cfg.Store.Backend,
		"redis", cfg.Redis.Enabled(),
		"audit", cfg.Audit.Enabled,
		"models", len(cat.List()),
		"providers", registry.IDs(),
		"rules", len(rules.List()),
		"match_mode", string(resolver.Mode()))

	return NewHandler(deps), deps, nil
}

// newAuditSink wires the dispatch audit pipeline: a queue (Redis when
// available), a worker draining it in batches, and a database or S3 writer.
func newAuditSink(ctx context.Context, cfg config.AuditConfig, store *backend, redisClient *storage.RedisClient) (logging.Sink, error) {
	if !cfg.Enabled {
		return logging.NewNoopSink(), nil
	}

	var writer logging.BatchWriter
	switch cfg.Writer {
	case "s3":
		s3Writer, err := logging.NewS3Writer(ctx, logging.S3WriterConfig{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Prefix:   cfg.S3Prefix,
			PodName:  cfg.PodName,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 audit writer: %w", err)
		}
		writer = s3Writer
	default:
		if store.dispatchLog == nil {
			return nil, fmt.Errorf("audit writer %q needs a persistent store", cfg.Writer)
		}
		writer = store.dispatchLog
	}

	qcfg := queue.DefaultConfig("audit")
	qcfg.Capacity = cfg.QueueSize
	qcfg.BatchSize = cfg.BatchSize
	qcfg.BatchTimeout = cfg.BatchTimeout

	var (
		q   queue.Queue[*models.DispatchRecord]
		dlq queue.DeadLetterQueue[*models.DispatchRecord]
	)
	if redisClient != nil {
		rq, err := queue.NewRedisQueue[*models.DispatchRecord](redisClient.Client(), qcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit queue: %w", err)
		}
		rdlq, err := queue.NewRedisDeadLetterQueue[*models.DispatchRecord](redisClient.Client(), qcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit dead letter queue: %w", err)
		}
		q, dlq = rq, rdlq
	} else {
		q = queue.NewMemoryQueue[*models.DispatchRecord](qcfg)
		dlq = queue.NewMemoryDeadLetterQueue[*models.DispatchRecord]()
	}

	worker := logging.NewAuditWorker(q, dlq, writer, qcfg)
	sink := logging.NewQueueSink(q, worker)
	sink.Start(context.Background())
	return sink, nil
}
