package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"channelsync/internal/adapters/channex"
	server "channelsync/internal/adapters/http_server"
	natsad "channelsync/internal/adapters/nats"
	"channelsync/internal/adapters/observability"
	redisad "channelsync/internal/adapters/redis"
	"channelsync/internal/app"
	"channelsync/internal/shared"
	mysqlrepo "channelsync/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	inventory := mysqlrepo.NewInventoryRepo(db)
	rooms := mysqlrepo.NewRoomRepo(db)
	mappings := mysqlrepo.NewMappingRepo(db)
	restrictions := mysqlrepo.NewRestrictionRepo(db)
	plans := mysqlrepo.NewRatePlanRepo(db)
	configs := mysqlrepo.NewConfigRepo(db)
	logs := mysqlrepo.NewSyncLogRepo(db)

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	client, err := channex.New(cfg.ChannexBase, cfg.ChannexRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize channel client")
	}
	notifier, err := natsad.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer notifier.Close()

	availability := app.NewAvailabilityService(inventory, rooms, cache, cfg.CacheTTL)
	restrictionSvc := app.NewRestrictionService(restrictions, cache, cfg.CacheTTL)
	rateSvc := app.NewRateService(plans, inventory, nil)
	roomSvc := app.NewRoomService(mappings, configs, inventory, client)
	orch := app.NewOrchestrator(app.OrchestratorConfig{
		BatchSize:      cfg.BatchSize,
		RetryBatchSize: cfg.RetryBatch,
		MaxRetries:     cfg.MaxRetries,
		JobTimeout:     cfg.JobTimeout,
		FullWindowDays: cfg.FullWindow,
		PullWindowDays: cfg.PullWindow,
		LogRetention:   cfg.LogRetention,
	}, inventory, mappings, restrictions, rooms, configs, logs, client, notifier)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Availability: availability,
		Restrictions: restrictionSvc,
		Rates:        rateSvc,
		Rooms:        roomSvc,
		Sync:         orch,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
