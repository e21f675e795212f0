// Package cache keeps computed workshop reports in Redis. Reports are pure
// projections of stored state, so a miss or a failed write only costs a
// recomputation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/config"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/report"
)

// Key returns the Redis key of a workshop report.
func Key(workshopID string) string {
	return "report:workshop:" + workshopID
}

// VersionKey returns the Redis key of a workshop's invalidation counter.
func VersionKey(workshopID string) string {
	return Key(workshopID) + ":version"
}

var errStale = errors.New("report version moved")

// Reports is a Redis-backed report cache. A nil *Reports is valid and
// caches nothing.
type Reports struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// Connect dials Redis and returns nil when Addr is empty or the server does
// not answer a ping, in which case callers run uncached.
func Connect(cfg config.RedisConfig, log *zap.Logger) *Reports {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, report cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		rdb.Close()
		return nil
	}
	return New(rdb, cfg.TTL, log)
}

// New wraps an existing client.
func New(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Reports {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Reports{rdb: rdb, ttl: ttl, log: log}
}

// Workshop returns the cached report for id, if any.
func (c *Reports) Workshop(ctx context.Context, id string) (report.Workshop, bool) {
	if c == nil {
		return report.Workshop{}, false
	}
	bs, err := c.rdb.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("report cache read failed", zap.String("workshop_id", id), zap.Error(err))
		}
		return report.Workshop{}, false
	}
	var r report.Workshop
	if err := json.Unmarshal(bs, &r); err != nil {
		c.log.Warn("report cache entry corrupt", zap.String("workshop_id", id), zap.Error(err))
		return report.Workshop{}, false
	}
	return r, true
}

// Version returns the current invalidation counter of a workshop. ok is
// false when Redis cannot be read, in which case nothing should be cached.
func (c *Reports) Version(ctx context.Context, id string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	v, err := c.rdb.Get(ctx, VersionKey(id)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		c.log.Warn("report version read failed", zap.String("workshop_id", id), zap.Error(err))
		return 0, false
	}
	return v, true
}

// PutWorkshop stores r under its workshop key if the workshop's version is
// still version. The version key is watched, so an Invalidate that lands
// between the check and the write aborts the transaction.
func (c *Reports) PutWorkshop(ctx context.Context, r report.Workshop, version int64) {
	if c == nil {
		return
	}
	bs, err := json.Marshal(r)
	if err != nil {
		return
	}
	vkey := VersionKey(r.WorkshopID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, Key(r.WorkshopID), bs, c.ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("stale report not cached", zap.String("workshop_id", r.WorkshopID), zap.Int64("version", version))
	default:
		c.log.Warn("report cache write failed", zap.String("workshop_id", r.WorkshopID), zap.Error(err))
	}
}

// Invalidate bumps the workshop's version and drops its cached report.
func (c *Reports) Invalidate(ctx context.Context, workshopID string) {
	if c == nil {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, VersionKey(workshopID))
		p.Del(ctx, Key(workshopID))
		return nil
	})
	if err != nil {
		c.log.Warn("report cache invalidate failed", zap.String("workshop_id", workshopID), zap.Error(err))
	}
}

// Close releases the Redis connection pool.
func (c *Reports) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
