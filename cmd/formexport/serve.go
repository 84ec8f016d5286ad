package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mqcontracts "formexport/contracts/mq"
	"formexport/internal/handler"
	"formexport/internal/httpserver"
	"formexport/internal/mqhandler"
	"formexport/internal/scheduler"
	"formexport/internal/service"
	"formexport/pkg/mq"
	"formexport/pkg/rbac"
	"formexport/pkg/util"
)

const exportRequestedQueue = "export.requested.q"

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API, the export schedule and the request consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(a)
		},
	}
}

func serve(a *app) error {
	log := a.log
	cfg := a.cfg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduler
	sched := scheduler.New(ctx, a.clock, log)
	var guard service.TickGuard
	if a.rdb != nil {
		guard = util.NewRunGuard(a.rdb, 24*time.Hour, log)
	}
	exportScheduler := service.NewExportScheduler(sched, a.options, a.exports, guard, a.store, a.clock, log)

	opts, err := a.options.Load(ctx)
	if err != nil {
		return err
	}
	if err := exportScheduler.Start(ctx, opts); err != nil {
		log.Warn("Export schedule not started", zap.Error(err))
	} else {
		_, next := exportScheduler.Status()
		log.Info("Export schedule active",
			zap.String("frequency", string(opts.ScheduleFrequency)),
			zap.Time("next_run", next),
		)
	}

	// MQ Consumer
	var consumer *mq.Consumer
	if cfg.MQ.URL != "" {
		consumer, err = mq.NewConsumer(cfg.MQ.URL, exportRequestedQueue, mqcontracts.RoutingExportRequested, log)
		if err != nil {
			return err
		}
		defer consumer.Close()

		requested := mqhandler.NewExportRequestedHandler(a.options, a.exports, log)
		consumer.SetHandler(requested.HandleExportRequested)
		go func() {
			if err := consumer.StartConsuming(ctx); err != nil {
				log.Error("Consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("MQ not configured, export events disabled")
	}

	// HTTP Server
	authService := service.NewAuthService(cfg.JWT.Secret, cfg.TokenTTL(),
		service.Account{Username: cfg.Admin.Username, PasswordHash: cfg.Admin.PasswordHash, Role: rbac.RoleAdmin},
		service.Account{Username: cfg.Viewer.Username, PasswordHash: cfg.Viewer.PasswordHash, Role: rbac.RoleViewer},
	)
	router := httpserver.NewRouter(
		handler.NewAuthHandler(authService, log),
		handler.NewAdminHandler(a.options, exportScheduler, a.exports, log),
		cfg.JWT.Secret,
		a.db,
	)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("formexport is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		log.Error("HTTP server failed", zap.Error(err))
		cancel()
		sched.Stop()
		return err
	}

	log.Info("Shutting down formexport gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// 等待正在执行的导出结束
	sched.Stop()

	log.Info("formexport shutdown complete")
	return nil
}
