package constants

import "time"

const (
	CacheKeySessionRevoked = "knight:session:revoked:%s" // %s -> session id
	CacheKeyLimiterPrefix  = "knight:limiter:signin"
)

const (
	// 吊销记录至少保留这么久，避免时钟偏差导致令牌“复活”
	CacheExpireSessionRevokedMin = 1 * time.Minute
)
