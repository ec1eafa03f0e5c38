package config

// Redis backs the distributed rate limiter.  If the server cannot be reached
// during startup the client is nil and callers degrade by disabling limiting.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the client parameters.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	TLS      bool   `env:"REDIS_TLS" env-default:"false"`
}

// NewRedisClient instantiates a Redis client from the config and pings it
// with a short timeout.  The returned client is nil when the ping fails.
func NewRedisClient(cfg Redis) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
