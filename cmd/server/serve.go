package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/lovedemo/seedManage/internal/api/http"
	"github.com/lovedemo/seedManage/internal/history"
	"github.com/lovedemo/seedManage/internal/metrics"
	"github.com/lovedemo/seedManage/internal/search"
	"github.com/lovedemo/seedManage/internal/telemetry"
)

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger := c.cfg, c.logger
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(parent, telemetry.ServiceName, logger)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", telemetry.ServiceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("searchTimeout", cfg.SearchTimeout),
		slog.String("defaultAdapter", cfg.DefaultAdapter),
		slog.String("fallbackAdapter", cfg.FallbackAdapter),
		slog.String("historyBackend", cfg.HistoryBackend),
		slog.Bool("passwordProtected", cfg.AccessPassword != ""),
	)

	reg, err := buildRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("configure adapters: %w", err)
	}

	rootCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openHistory(rootCtx, cfg, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("history close failed", slog.String("error", err.Error()))
		}
	}()
	dispatcher := history.NewDispatcher(store,
		history.WithDispatcherLogger(logger),
		history.WithResultsPerEntry(cfg.HistoryResultsPerItem),
	)

	searchService := search.NewService(reg,
		search.WithLogger(logger),
		search.WithPageSize(cfg.PageSize),
		search.WithRecorder(dispatcher),
	)
	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithHistory(store),
		apihttp.WithAccessPassword(cfg.AccessPassword),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.SearchTimeout*2 + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(rootCtx)
	// The dispatcher outlives groupCtx so searches still finishing during
	// Shutdown get recorded; Close below ends it.
	group.Go(func() error {
		return dispatcher.Run(context.WithoutCancel(groupCtx))
	})
	group.Go(func() error {
		logger.Info("seedmanage service started",
			slog.String("addr", cfg.HTTPAddr),
			slog.Duration("timeout", cfg.SearchTimeout),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", slog.String("error", err.Error()))
		}
		dispatcher.Close()
		return nil
	})

	err = group.Wait()
	logger.Info("seedmanage service stopped")
	return err
}
