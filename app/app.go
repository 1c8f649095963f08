// Package app assembles the shared runtime pieces from configuration: the
// database, optional Redis and Kafka, and the two ingestion jobs. The
// server and the genie CLI both start from here.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/cache"
	"github.com/padraicbc/wagergenie/config"
	"github.com/padraicbc/wagergenie/db"
	"github.com/padraicbc/wagergenie/events"
	"github.com/padraicbc/wagergenie/ingest"
	"github.com/padraicbc/wagergenie/oddsapi"
	"github.com/padraicbc/wagergenie/scraper"
	"github.com/padraicbc/wagergenie/store"
)

type App struct {
	Config *config.Config
	DB     *bun.DB
	Store  *store.Store
	Cache  cache.Cache
	Events events.Publisher

	// Redis is nil when REDIS_ADDR is unset.
	Redis *redis.Client

	OddsJob   *ingest.OddsJob
	ScrapeJob *ingest.ScrapeJob

	log *zap.Logger
}

// Open connects to the database and the optional infrastructure and builds
// the ingestion jobs. It does not create tables.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	bdb, err := db.Setup(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		DB:     bdb,
		Store:  store.New(bdb),
		Cache:  cache.Nop{},
		Events: events.New(cfg.KafkaBrokers, cfg.KafkaTopic, log),
		log:    log,
	}

	if cfg.RedisAddr != "" {
		r, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.Redis = r
		a.Cache = cache.NewRedis(r, cfg.ContextCacheTTL)
		log.Info("redis enabled", zap.String("addr", cfg.RedisAddr))
	}

	odds := oddsapi.NewClient(cfg.OddsAPIURL, cfg.OddsAPIKey,
		oddsapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		oddsapi.WithMarkets(cfg.OddsRegions, cfg.OddsMarkets))
	a.OddsJob = ingest.NewOddsJob(odds, a.Store, cfg.OddsSports, log.Named("odds"),
		ingest.WithDedupWindow(cfg.OddsDedupWindow),
		ingest.WithCache(a.Cache),
		ingest.WithPublisher(a.Events),
	)
	a.ScrapeJob = ingest.NewScrapeJob(scraper.New(cfg.ScrapeURL, cfg.HTTPTimeout), a.Store, a.Cache, a.Events, log.Named("scrape"))

	return a, nil
}

// Close releases every connection Open made.
func (a *App) Close() {
	if err := a.Events.Close(); err != nil {
		a.log.Warn("closing event publisher failed", zap.Error(err))
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if err := a.DB.Close(); err != nil {
		a.log.Warn("closing database failed", zap.Error(err))
	}
}
