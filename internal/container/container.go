package container

import (
	"context"
	"fmt"
	"time"

	"storyhub/internal/config"
	"storyhub/internal/localstate"
	"storyhub/internal/repository"
	"storyhub/internal/service"
	"storyhub/internal/store"
	"storyhub/internal/supabase"
	"storyhub/pkg/database"
	"storyhub/pkg/logger"
	"storyhub/pkg/redis"
)

// userLoadTimeout bounds each post-sign-in user-scoped load.
const userLoadTimeout = 10 * time.Second

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	DB          *database.PostgresDB
	Local       *localstate.Store
	Records     repository.RecordStore
	Store       *store.Store
	Auth        service.AuthProvider
	Services    *service.Services
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	local := localstate.Open(cfg.LocalStatePath, log)

	// Pick the record backend: PostgREST when a Supabase project is
	// configured, direct Postgres for self-hosted deployments, in-memory
	// otherwise so local development works with no services at all.
	var (
		records repository.RecordStore
		db      *database.PostgresDB
	)
	switch {
	case cfg.SupabaseURL != "":
		records = supabase.NewClient(cfg, log)
		log.WithField("url", cfg.SupabaseURL).Info("Using PostgREST record store")
	case cfg.DatabaseURL != "":
		pg, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db = pg
		records = repository.NewPostgresStore(pg)
		log.Info("Using Postgres record store")
	default:
		records = repository.NewMemoryStore()
		log.Warn("No record backend configured, using in-memory store")
	}

	authProvider := supabase.NewAuth(cfg, log)
	st := store.New(cfg.MaxVotesPerUser, log)

	stories := service.NewStoryService(st, records, local, log)
	votes := service.NewVoteService(st, records, cfg.ReconcileDelay, log)
	finished := service.NewFinishedCacheService(st, records, redisClient, log)
	authSync := service.NewAuthSync(st, records, authProvider, votes, stories, userLoadTimeout, cfg.ResetRedirectPath, log)

	services := &service.Services{
		Auth:     authSync,
		Votes:    votes,
		Stories:  stories,
		Finished: finished,
	}

	return &Container{
		Config:      cfg,
		Logger:      log,
		RedisClient: redisClient,
		DB:          db,
		Local:       local,
		Records:     records,
		Store:       st,
		Auth:        authProvider,
		Services:    services,
	}, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetStore returns the application state store
func (c *Container) GetStore() *store.Store {
	return c.Store
}

// GetServices returns the service bundle
func (c *Container) GetServices() *service.Services {
	return c.Services
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
