package storage

import (
	"context"
	"time"

	"wavechat/logger"
	rds "wavechat/service/storage/redis"
)

// UserCache is a read-through byte cache for public user documents,
// keyed by user id. All failures are soft: a broken or absent Redis
// just means every lookup falls through to Mongo.
type UserCache struct {
	ttl time.Duration
}

func NewUserCache(ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UserCache{ttl: ttl}
}

func key(userID string) string { return "uc:" + userID }

func (c *UserCache) Get(ctx context.Context, userID string) ([]byte, bool) {
	r := rds.GetRedis()
	if r == nil {
		return nil, false
	}
	b, err := r.Get(ctx, key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *UserCache) Set(ctx context.Context, userID string, doc []byte) {
	r := rds.GetRedis()
	if r == nil {
		return
	}
	if err := r.Set(ctx, key(userID), doc, c.ttl).Err(); err != nil {
		logger.Debug("user cache set failed: " + err.Error())
	}
}

func (c *UserCache) Invalidate(ctx context.Context, userID string) {
	r := rds.GetRedis()
	if r == nil {
		return
	}
	if err := r.Del(ctx, key(userID)).Err(); err != nil {
		logger.Debug("user cache invalidate failed: " + err.Error())
	}
}
