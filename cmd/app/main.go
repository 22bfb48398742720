package main

import (
	"context"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/thesis-engine/internal/composite"
	"github.com/mauv0809/thesis-engine/internal/config"
	"github.com/mauv0809/thesis-engine/internal/db"
	"github.com/mauv0809/thesis-engine/internal/efficiency"
	"github.com/mauv0809/thesis-engine/internal/growth"
	"github.com/mauv0809/thesis-engine/internal/handlers"
	"github.com/mauv0809/thesis-engine/internal/ingest"
	"github.com/mauv0809/thesis-engine/internal/thesis"
	"github.com/mauv0809/thesis-engine/internal/watch"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := config.NewLogger(os.Stderr, config.DefaultLogLevel)
		fallback.Fatal().Err(err).Msg("loading configuration")
	}
	logger := cfg.Logger(os.Stderr)

	ctx := context.Background()

	// Watch state goes to Postgres when configured, otherwise to a JSON file
	var store watch.Store
	if cfg.UsePostgres() {
		if err := db.RunMigrations(ctx, cfg.DatabaseURL, logger); err != nil {
			logger.Warn().Err(err).Msg("could not run migrations")
		} else {
			logger.Info().Msg("migrations completed")
		}

		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn().Err(err).Str("file", cfg.StateFile).Msg("could not connect to database, using state file")
		} else {
			defer pool.Close()
			store = db.NewRepository(pool)
			logger.Info().Msg("connected to database")
		}
	}
	if store == nil {
		store = watch.NewFileStore(cfg.StateFile, logger)
	}

	capitalKeys := cfg.Metrics.Efficiency
	watch.MigrateLegacy(ctx, store, capitalKeys.All(), logger)

	// Calculators
	salesCfg, epsCfg, equityCfg, fcfCfg, bookValueCfg := cfg.Metrics.Growth()
	sales := growth.New(store, salesCfg, logger)
	eps := growth.New(store, epsCfg, logger)
	equity := growth.New(store, equityCfg, logger)
	fcf := growth.New(store, fcfCfg, logger)
	bookValue := growth.New(store, bookValueCfg, logger)
	roic := efficiency.NewROIC(store, cfg.Metrics.ROIC, cfg.Metrics.Sources(), logger)
	capital := efficiency.NewCapitalEfficiency(store, capitalKeys, logger)
	user := watch.New(store, watch.Config{Name: "user", Namespace: watch.NamespaceUser}, logger)

	growthCalcs := map[string]*growth.Calculator{}
	for _, c := range []*growth.Calculator{sales, eps, equity, fcf, bookValue} {
		c.Load(ctx)
		growthCalcs[c.Name()] = c
	}
	roic.Load(ctx)
	capital.Load(ctx)
	user.Load(ctx)

	scores := composite.NewService(composite.Calculators{
		ROIC:       roic,
		Efficiency: capital,
		Sales:      sales,
		EPS:        eps,
		Equity:     equity,
		FCF:        fcf,
	}, logger)
	aggregator := thesis.New(roic, sales, eps, equity, fcf, scores, logger)

	client := ingest.NewClient(cfg.SECUserAgent, logger)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			if v.Error == nil {
				ev = logger.Info()
			} else {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Routes
	handlers.New(client, handlers.Calculators{
		Growth:     growthCalcs,
		ROIC:       roic,
		Efficiency: capital,
		User:       user,
	}, aggregator, scores, logger).Register(e)
	handlers.NewIngestHandler(client, client, store, logger).Register(e)

	logger.Info().Str("port", cfg.Port).Msg("starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
