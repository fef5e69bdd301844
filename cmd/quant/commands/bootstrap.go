package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/gateway"
	"github.com/wonny/signalscreen/backend/internal/marketcache"
	"github.com/wonny/signalscreen/backend/internal/s0_data"
	"github.com/wonny/signalscreen/backend/internal/s1_universe"
	"github.com/wonny/signalscreen/backend/internal/selection"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/config"
	"github.com/wonny/signalscreen/backend/pkg/database"
	"github.com/wonny/signalscreen/backend/pkg/logger"
	"github.com/wonny/signalscreen/backend/pkg/metrics"
	"github.com/wonny/signalscreen/backend/pkg/redis"
)

// app holds the process-wide dependencies built from configuration
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	log      *logger.Logger
	recorder *metrics.Recorder // METRICS_ENABLED=false 이면 nil
	redis    *redis.Client     // 연결 실패 시 nil
	db       *database.DB      // DATA_SOURCE=postgres 또는 수집 시만

	web       *gateway.Gateway // DATA_SOURCE=yahoo 또는 수집 시만
	source    *s0_data.Source
	gateway   contracts.DataGateway
	universes *s1_universe.Builder
	screener  *selection.Screener
}

// bootstrap loads configuration and connects shared resources (logger, metrics, redis)
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	strategy, _, err := strategyconfig.Load(strategyPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("load strategy config: %w", err)
	}

	a := &app{cfg: cfg, strategy: strategy, log: log}

	if cfg.MetricsEnabled {
		a.recorder = metrics.New(prometheus.DefaultRegisterer)
	}

	a.redis, err = redis.New(cfg)
	if err != nil {
		// Redis 장애는 치명적이지 않음: 로컬 limiter/메모리 캐시로 동작
		log.WithError(err).Warn("Redis unavailable, falling back to local limiter and memory cache")
		a.redis = nil
	} else if a.redis.Enabled() {
		log.WithField("addr", a.redis.Addr()).Debug("Redis connected")
	}

	return a, nil
}

// strategyPath prefers --strategy over STRATEGY_CONFIG
func strategyPath(cfg *config.Config) string {
	if strategyFile != "" {
		return strategyFile
	}
	return cfg.StrategyConfigPath
}

// withScreener wires the configured data source, universe builder and screener
func (a *app) withScreener() error {
	switch a.cfg.DataSource {
	case config.DataSourcePostgres:
		if err := a.connectDB(); err != nil {
			return err
		}
		a.gateway = a.postgresSource()
	default:
		a.gateway = a.webGateway()
	}

	a.universes = s1_universe.NewBuilder(a.gateway, a.log)

	var opts []selection.Option
	if a.recorder != nil {
		opts = append(opts, selection.WithRecorder(a.recorder))
	}
	screener, err := selection.NewScreener(a.strategy, a.gateway, a.log, opts...)
	if err != nil {
		return fmt.Errorf("build screener: %w", err)
	}
	a.screener = screener

	a.log.WithFields(map[string]interface{}{
		"data_source": a.cfg.DataSource,
		"concurrency": a.strategy.Screener.MaxConcurrency,
		"redis":       a.redis != nil && a.redis.Enabled(),
		"metrics":     a.recorder != nil,
	}).Info("Screener ready")
	return nil
}

// webGateway builds the Yahoo/news/listing gateway once
func (a *app) webGateway() *gateway.Gateway {
	if a.web == nil {
		a.web = gateway.Build(gateway.Deps{
			Config:   a.cfg,
			Cache:    a.strategy.Cache,
			Redis:    a.redis,
			Recorder: a.recorder,
			Logger:   a.log,
		})
	}
	return a.web
}

// postgresSource builds the database-backed source once (connectDB first)
func (a *app) postgresSource() *s0_data.Source {
	if a.source == nil {
		a.source = s0_data.NewSource(a.db.Pool, s1_universe.NewRepository(a.db.Pool), a.log)
	}
	return a.source
}

// connectDB opens the pool and applies the schema
func (a *app) connectDB() error {
	if a.db != nil {
		return nil
	}
	if a.cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := database.New(a.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("migrate database: %w", err)
	}

	a.db = db
	a.log.Info("Connected to database")
	return nil
}

// marketCache returns the web gateway's cache, if one was built
func (a *app) marketCache() *marketcache.Cache {
	if a.web == nil {
		return nil
	}
	return a.web.Cache()
}

// metricsHandler exposes the default registry, or nil when metrics are off
func (a *app) metricsHandler() http.Handler {
	if a.recorder == nil {
		return nil
	}
	return promhttp.Handler()
}

// Close releases pooled connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
