package constants

const (
	AuthAudienceSession = "authenticated" // 会话令牌
	AuthAudienceStorage = "storage"       // 对象签名令牌
	AuthTokenType       = "bearer"
)
