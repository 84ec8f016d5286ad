package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RunGuard makes a scheduled tick fire at most once across replicas.
type RunGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRunGuard(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RunGuard {
	return &RunGuard{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to acquire the lock for a task + tick
// returns true if this is the FIRST time processing
// returns false if another process already took the tick
func (g *RunGuard) AcquireOnce(ctx context.Context, task string, tick time.Time) bool {
	key := fmt.Sprintf("runguard:%s:%d", task, tick.Unix())

	ok, err := g.rdb.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止执行
		g.logger.Warn("Redis run guard check failed, allowing run",
			zap.String("task", task),
			zap.Time("tick", tick),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		g.logger.Info("Skipped tick already taken by another process",
			zap.String("task", task),
			zap.String("guard_key", key),
		)
	}

	return ok
}
