package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and fails when the server cannot be pinged.
// The reservation lock fails closed, so there is no degraded mode.
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*goredis.Client, error) {
	log.Info().Str("addr", cfg.Addr).Msg("connecting to redis")

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info().Msg("redis connected")
	return client, nil
}
