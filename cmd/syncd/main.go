package main

import (
	"context"
	"database/sql"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"channelsync/internal/adapters/channex"
	natsad "channelsync/internal/adapters/nats"
	"channelsync/internal/adapters/observability"
	"channelsync/internal/app"
	"channelsync/internal/shared"
	mysqlrepo "channelsync/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// console logger in dev, JSON otherwise
	log.Logger = observability.NewLogger(cfg.AppEnv, "syncd")

	log.Info().
		Str("base", cfg.ChannexBase).
		Int("workers", cfg.Workers).
		Dur("incremental_every", cfg.IncrementalEvery).
		Msg("sync daemon starting")

	observability.Serve()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	inventory := mysqlrepo.NewInventoryRepo(db)
	rooms := mysqlrepo.NewRoomRepo(db)
	mappings := mysqlrepo.NewMappingRepo(db)
	restrictions := mysqlrepo.NewRestrictionRepo(db)
	configs := mysqlrepo.NewConfigRepo(db)
	logs := mysqlrepo.NewSyncLogRepo(db)

	client, err := channex.New(cfg.ChannexBase, cfg.ChannexRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize channel client")
	}
	notifier, err := natsad.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer notifier.Close()

	orch := app.NewOrchestrator(app.OrchestratorConfig{
		BatchSize:      cfg.BatchSize,
		RetryBatchSize: cfg.RetryBatch,
		MaxRetries:     cfg.MaxRetries,
		JobTimeout:     cfg.JobTimeout,
		FullWindowDays: cfg.FullWindow,
		PullWindowDays: cfg.PullWindow,
		LogRetention:   cfg.LogRetention,
	}, inventory, mappings, restrictions, rooms, configs, logs, client, notifier)

	// Passes of different kinds may overlap; instances of the same pass never
	// do. The semaphore bounds total concurrent passes.
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	runEvery := func(name string, every time.Duration, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.NewTicker(every)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
				if err := sem.Acquire(ctx, 1); err != nil {
					return
				}
				start := time.Now()
				fn(ctx)
				sem.Release(1)
				log.Debug().Str("pass", name).Dur("took", time.Since(start)).Msg("scheduled pass done")
			}
		}()
	}

	runEvery("incremental", cfg.IncrementalEvery, orch.RunIncremental)
	runEvery("retry", cfg.RetryEvery, orch.RetrySweep)
	runEvery("health", cfg.HealthEvery, func(ctx context.Context) {
		status, err := orch.HealthCheck(ctx)
		if err != nil {
			log.Error().Err(err).Msg("health pass failed")
			return
		}
		log.Info().Str("overall", string(status.Overall)).Int("configs", len(status.Configs)).
			Msg("health pass done")
	})

	// Daily full reconciliation plus cleanup at a fixed UTC hour.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			next := nextDailyRun(time.Now().UTC(), cfg.FullAt)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			orch.RunFull(ctx, false)
			orch.Cleanup(ctx)
			sem.Release(1)
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down, waiting for running passes")
	wg.Wait()
	log.Info().Msg("sync daemon stopped")
}

func nextDailyRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
