package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"auto_reviews/internal/adapters/drive2"
	"auto_reviews/internal/adapters/drom"
	"auto_reviews/internal/adapters/fetch"
	"auto_reviews/internal/adapters/observability"
	redisad "auto_reviews/internal/adapters/redis"
	"auto_reviews/internal/app"
	"auto_reviews/internal/domain"
	"auto_reviews/internal/shared"
	mysqlrepo "auto_reviews/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// global logger: console in dev, JSON otherwise
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.Workers).
		Int("rps", cfg.FetchRPS).
		Int("pages_per_source", cfg.PagesPerSource).
		Int("max_per_model", cfg.MaxPerModel).
		Msg("collector starting")

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	targets, err := shared.LoadTargets(cfg.TargetsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TargetsPath).Msg("load targets failed")
	}
	seeded, err := repo.Seed(ctx, targets)
	if err != nil {
		log.Fatal().Err(err).Msg("seed queue failed")
	}
	log.Info().Int("targets", len(targets)).Int("new_tasks", seeded).Msg("queue seeded")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	svc := app.NewIngestionService(
		fetch.New(cfg.FetchRPS),
		[]domain.Site{drom.New(), drive2.New()},
		repo,
		cache,
	)
	lim := app.Limits{PagesPerSource: cfg.PagesPerSource, MaxPerModel: cfg.MaxPerModel}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	var tasks, saved, dups atomic.Int64

	for {
		task, err := repo.Next(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("queue next failed")
		}
		if task == nil {
			break // drained
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(t domain.SourceTask) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := svc.CollectSource(ctx, t, lim)
			if err != nil {
				log.Warn().
					Int64("task", t.ID).
					Str("brand", t.Brand).
					Str("model", t.Model).
					Str("source", t.Source).
					Str("err_type", observability.LabelErr(err)).
					Err(err).
					Msg("collect failed")
				_ = repo.Fail(ctx, t.ID, err.Error())
				return
			}
			if err := repo.Complete(ctx, t.ID, res.Pages, res.Saved); err != nil {
				log.Warn().Int64("task", t.ID).Err(err).Msg("complete failed")
			}
			tasks.Add(1)
			saved.Add(int64(res.Saved))
			dups.Add(int64(res.Duplicates))
			log.Info().
				Int64("task", t.ID).
				Str("brand", t.Brand).
				Str("model", t.Model).
				Str("source", t.Source).
				Int("pages", res.Pages).
				Int("found", res.Found).
				Int("saved", res.Saved).
				Int("duplicates", res.Duplicates).
				Int("skipped", res.Skipped).
				Msg("collect ok")
		}(*task)
	}

	wg.Wait()
	log.Info().
		Int64("tasks", tasks.Load()).
		Int64("saved", saved.Load()).
		Int64("duplicates", dups.Load()).
		Msg("collection completed")
}
