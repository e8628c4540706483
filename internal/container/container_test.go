package container

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyhub/internal/config"
	"storyhub/internal/repository"
	"storyhub/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		LogLevel:          "info",
		MaxVotesPerUser:   3,
		ReconcileDelay:    200 * time.Millisecond,
		LocalStatePath:    "", // localstate tolerates an unwritable path
		ResetRedirectPath: "/reset-password",
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		mutate      func(*config.Config)
		expectRedis bool
	}{
		{
			name:        "Container with Redis configured",
			mutate:      func(c *config.Config) { c.RedisURL = "redis://" + mr.Addr() },
			expectRedis: true,
		},
		{
			name:        "Container without Redis configured",
			mutate:      func(c *config.Config) {},
			expectRedis: false,
		},
		{
			name: "Container with unreachable Redis proceeds without caching",
			mutate: func(c *config.Config) {
				c.RedisURL = "invalid://redis-url"
			},
			expectRedis: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			testLogger, _ := logger.New("info", "test")

			c, err := New(context.Background(), cfg, testLogger)
			require.NoError(t, err)
			require.NotNil(t, c)

			assert.Equal(t, cfg, c.Config)
			assert.Equal(t, testLogger, c.Logger)
			assert.NotNil(t, c.Store)
			assert.NotNil(t, c.Local)
			assert.NotNil(t, c.Auth)
			require.NotNil(t, c.Services)
			assert.NotNil(t, c.Services.Auth)
			assert.NotNil(t, c.Services.Votes)
			assert.NotNil(t, c.Services.Stories)
			assert.NotNil(t, c.Services.Finished)

			if tt.expectRedis {
				assert.NotNil(t, c.RedisClient)
				assert.True(t, c.HasRedis())
			} else {
				assert.Nil(t, c.RedisClient)
				assert.False(t, c.HasRedis())
			}
		})
	}
}

func TestNewFallsBackToMemoryStore(t *testing.T) {
	testLogger, _ := logger.New("info", "test")

	c, err := New(context.Background(), testConfig(), testLogger)
	require.NoError(t, err)

	assert.IsType(t, &repository.MemoryStore{}, c.Records)
	assert.Nil(t, c.DB)
}

func TestNewPrefersSupabaseBackend(t *testing.T) {
	cfg := testConfig()
	cfg.SupabaseURL = "https://project.supabase.co"
	cfg.SupabaseAnonKey = "anon-key"
	testLogger, _ := logger.New("info", "test")

	c, err := New(context.Background(), cfg, testLogger)
	require.NoError(t, err)

	_, isMemory := c.Records.(*repository.MemoryStore)
	assert.False(t, isMemory, "a configured Supabase project must win over the in-memory fallback")
	assert.Nil(t, c.DB, "PostgREST mode opens no direct database connection")
}

func TestStoreStartsWithConfiguredBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxVotesPerUser = 5
	testLogger, _ := logger.New("info", "test")

	c, err := New(context.Background(), cfg, testLogger)
	require.NoError(t, err)

	assert.Equal(t, 5, c.Store.MaxVotes())
}
