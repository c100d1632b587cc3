package stores

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
	"webknight/app/server/constants"
)

// RedisSessions 会话吊销列表，记录保留到令牌本身过期为止
type RedisSessions struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb, now: time.Now}
}

func (s *RedisSessions) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl < constants.CacheExpireSessionRevokedMin {
		ttl = constants.CacheExpireSessionRevokedMin
	}

	cacheKey := fmt.Sprintf(constants.CacheKeySessionRevoked, sessionID)
	if err := s.rdb.Set(ctx, cacheKey, until.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set revoked session: %w", err)
	}
	return nil
}

func (s *RedisSessions) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	cacheKey := fmt.Sprintf(constants.CacheKeySessionRevoked, sessionID)
	exist, err := s.rdb.Exists(ctx, cacheKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query revoked session: %w", err)
	}
	return exist > 0, nil
}
