package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lovedemo/seedManage/internal/app"
	"github.com/lovedemo/seedManage/internal/history"
	"github.com/lovedemo/seedManage/internal/providers/apibay"
	"github.com/lovedemo/seedManage/internal/providers/common"
	"github.com/lovedemo/seedManage/internal/providers/local"
	"github.com/lovedemo/seedManage/internal/providers/nyaa"
	"github.com/lovedemo/seedManage/internal/providers/sukebei"
	"github.com/lovedemo/seedManage/internal/registry"
)

func buildRegistry(cfg app.Config, logger *slog.Logger) (*registry.Registry, error) {
	client := common.NewClient(common.ClientConfig{
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		UserAgent:  cfg.UserAgent,
		Headers:    cfg.Headers(),
		Timeout:    cfg.SearchTimeout,
	})
	dataset := local.NewDataset(local.FileLoader{
		Path:     cfg.SampleDataFile,
		Fallback: local.EmbeddedLoader{},
	}, logger)

	return registry.New([]registry.Adapter{
		apibay.NewProvider(apibay.Config{Endpoint: cfg.APIBayEndpoint, Trackers: cfg.Trackers, Client: client}),
		nyaa.NewProvider(nyaa.Config{Endpoint: cfg.NyaaEndpoint, Trackers: cfg.Trackers, Client: client}),
		sukebei.NewProvider(sukebei.Config{Endpoint: cfg.SukebeiEndpoint, Trackers: cfg.Trackers, Client: client}),
		local.NewProvider(local.Config{Dataset: dataset}),
	}, cfg.DefaultAdapter, cfg.FallbackAdapter)
}

func historyConfig(cfg app.Config) history.Config {
	return history.Config{
		Backend:       cfg.HistoryBackend,
		File:          cfg.HistoryFile,
		SQLitePath:    cfg.HistorySQLitePath,
		PostgresDSN:   cfg.PostgresDSN,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		RedisURL:      cfg.RedisURL,
		Limit:         cfg.HistoryLimit,
	}
}

// openHistory degrades to a discarding store when the configured backend is
// unreachable; history is never allowed to block searching.
func openHistory(ctx context.Context, cfg app.Config, logger *slog.Logger) history.Store {
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := history.Open(openCtx, historyConfig(cfg))
	if err != nil {
		logger.Warn("history disabled: backend unavailable",
			slog.String("backend", cfg.HistoryBackend),
			slog.String("error", err.Error()),
		)
		return history.Discard{}
	}
	logger.Info("history store ready", slog.String("backend", store.Name()))
	return store
}
