package ratelimit

import (
	"github.com/voxpractice/cadence/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module provides the ingest locker. Without a configured redis address the
// locker is nil and callers fall back to best-effort, single-instance safety.
var Module = fx.Module("ratelimit",
	fx.Provide(NewClient),
	fx.Provide(NewLocker),
)

func NewClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
