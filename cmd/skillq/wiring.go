package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nadhanasaripv257/skillq-app/internal/common/config"
	"github.com/nadhanasaripv257/skillq-app/internal/common/database"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	queryinterpreter "github.com/nadhanasaripv257/skillq-app/internal/matching/query-interpreter"
	scoringengine "github.com/nadhanasaripv257/skillq-app/internal/matching/scoring-engine"
	"github.com/nadhanasaripv257/skillq-app/internal/recordstore"
)

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
}

func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// backends holds the connections a command opened; close releases them.
type backends struct {
	postgres *database.PostgresClient
	es       *database.ElasticsearchClient
	redis    *database.RedisClient
}

func (b *backends) close() {
	if b.postgres != nil {
		_ = b.postgres.Close()
	}
	if b.es != nil {
		b.es.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// connectWithRetry opens a client and pings it until the ping succeeds. A client
// whose ping failed is closed before the next attempt.
func connectWithRetry[C any](
	ctx context.Context,
	open func() (C, error),
	ping func(context.Context, C) error,
	closeClient func(C),
	maxRetries int,
	initialDelay time.Duration,
	log logger.Logger,
	name string,
) (C, error) {
	var client C
	err := retryWithBackoff(ctx, func() error {
		c, err := open()
		if err != nil {
			return err
		}
		if err := ping(ctx, c); err != nil {
			closeClient(c)
			return err
		}
		client = c
		return nil
	}, maxRetries, initialDelay, log, name)
	if err != nil {
		var zero C
		return zero, err
	}
	log.Info(name+" established", nil)
	return client, nil
}

const connectRetryDelay = 2 * time.Second

func connectPostgres(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	return connectWithRetry(ctx,
		func() (*database.PostgresClient, error) { return database.NewPostgres(cfg.Database.Postgres) },
		func(ctx context.Context, c *database.PostgresClient) error { return c.Ping(ctx) },
		func(c *database.PostgresClient) { _ = c.Close() },
		15, connectRetryDelay, log, "PostgreSQL connection")
}

// The Elasticsearch client holds no pool of its own beyond the HTTP transport, so a
// failed attempt only needs its idle connections dropped.
func connectElasticsearch(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.ElasticsearchClient, error) {
	return connectWithRetry(ctx,
		func() (*database.ElasticsearchClient, error) { return database.NewElasticsearch(cfg.Database.Elasticsearch) },
		func(ctx context.Context, c *database.ElasticsearchClient) error { return c.Ping(ctx) },
		func(c *database.ElasticsearchClient) { c.Close() },
		15, connectRetryDelay, log, "Elasticsearch connection")
}

// connectRedis returns nil when no address is configured; Redis only backs caches.
func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.RedisClient, error) {
	if cfg.Database.Redis.Address == "" {
		log.Info("Redis not configured, caches disabled", nil)
		return nil, nil
	}
	return connectWithRetry(ctx,
		func() (*database.RedisClient, error) { return database.NewRedis(cfg.Database.Redis) },
		func(ctx context.Context, c *database.RedisClient) error { return c.Ping(ctx) },
		func(c *database.RedisClient) { _ = c.Close() },
		10, connectRetryDelay, log, "Redis connection")
}

// openStore connects the configured backend. The Elasticsearch store reads contact
// details from Postgres, so Postgres is always connected.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (recordstore.Store, *backends, error) {
	b := &backends{}

	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	b.postgres = pg
	pgStore := recordstore.NewPostgresStore(pg.DB, cfg.RecordStore.MaxFetch, log)

	var store recordstore.Store = pgStore
	if cfg.RecordStore.Backend == "elasticsearch" {
		es, err := connectElasticsearch(ctx, cfg, log)
		if err != nil {
			b.close()
			return nil, nil, err
		}
		b.es = es
		store = recordstore.NewElasticsearchStore(es.Client, cfg.RecordStore.Index, cfg.RecordStore.MaxFetch, pgStore, log)
	}

	rdb, err := connectRedis(ctx, cfg, log)
	if err != nil {
		b.close()
		return nil, nil, err
	}
	b.redis = rdb
	if rdb != nil && cfg.RecordStore.CacheTTL > 0 {
		store = recordstore.NewCachedStore(store, rdb.Client, config.GetDuration(cfg.RecordStore.CacheTTL), log)
	}
	return store, b, nil
}

// buildInterpreter loads the vocabulary and extends it with the corpus skills when
// the store can list them.
func buildInterpreter(ctx context.Context, cfg *config.Config, store recordstore.Store, log logger.Logger) (*queryinterpreter.Interpreter, error) {
	vocab := queryinterpreter.DefaultVocabulary()
	if cfg.Matching.VocabularyFile != "" {
		v, err := queryinterpreter.LoadVocabulary(cfg.Matching.VocabularyFile)
		if err != nil {
			return nil, err
		}
		vocab = v
	}

	if lister, ok := store.(recordstore.SkillLister); ok {
		skills, err := lister.ListSkills(ctx)
		if err != nil {
			log.Warn("Could not list corpus skills, using base vocabulary", map[string]interface{}{"error": err.Error()})
		} else {
			vocab = vocab.WithSkills(skills)
			log.Info("Vocabulary extended with corpus skills", map[string]interface{}{"skills": len(skills)})
		}
	}
	return queryinterpreter.New(vocab, log), nil
}

func buildRanker(cfg *config.Config, log logger.Logger) (*scoringengine.Ranker, error) {
	engine, err := scoringengine.NewEngine(scoringengine.ConfigFrom(cfg.Matching))
	if err != nil {
		return nil, err
	}
	return scoringengine.NewRanker(engine, cfg.Matching.Parallelism, log), nil
}
