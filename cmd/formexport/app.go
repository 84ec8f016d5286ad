package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"formexport/internal/config"
	"formexport/internal/export"
	"formexport/internal/mailer"
	"formexport/internal/options"
	"formexport/internal/repository"
	"formexport/internal/service"
	"formexport/pkg/circuitbreaker"
	"formexport/pkg/db"
	"formexport/pkg/logger"
	"formexport/pkg/mq"
	"formexport/pkg/redis"
)

// app holds the connections and services shared by every command.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	clock     clockwork.Clock
	db        *pgxpool.Pool
	rdb       *goredis.Client
	store     options.Store
	publisher *mq.Publisher
	options   *options.Manager
	exports   *service.ExportService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Env)
	a := &app{cfg: cfg, log: log, clock: clockwork.NewRealClock()}

	log.Info("Initializing database connection...")
	a.db, err = db.NewConnection(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		a.rdb, err = redis.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var store options.Store
	switch cfg.Export.OptionsBackend {
	case config.BackendRedis:
		if a.rdb == nil {
			a.Close()
			return nil, fmt.Errorf("options backend redis requires redis.addr")
		}
		store = options.NewRedisStore(a.rdb, "formexport:")
	case config.BackendPostgres:
		store = options.NewPGStore(a.db)
	default:
		a.Close()
		return nil, fmt.Errorf("unknown options backend %q", cfg.Export.OptionsBackend)
	}
	a.store = store
	a.options = options.NewManager(store)

	// 未配置 MQ 时不发布事件
	var events service.EventPublisher
	if cfg.MQ.URL != "" {
		a.publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to init MQ publisher: %w", err)
		}
		events = a.publisher
	}

	submissions := repository.NewSubmissionRepository(a.db, log)
	a.exports = service.NewExportService(
		export.NewFetcher(submissions, a.clock, log),
		export.NewTitleResolver(submissions, log),
		export.NewCSVWriter(afero.NewOsFs(), cfg.Export.OutputDir),
		mailer.NewBreakerMailer(
			mailer.NewSMTPMailer(cfg.SMTP, log),
			circuitbreaker.New(circuitbreaker.DefaultConfig(), a.clock),
			log,
		),
		events,
		cfg.Export.SiteName,
		a.clock,
		log,
	)
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.log.Sync()
}
