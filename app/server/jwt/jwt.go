package jwt

import (
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"time"
	"webknight/app/server/constants"
)

type JWT struct {
	key []byte
	now func() time.Time
}

// Session 会话令牌中携带的身份信息
type Session struct {
	UserID    string
	Email     string
	SessionID string
	IssuedAt  time.Time
	Expires   time.Time
}

// Grant 对象签名令牌，只授权读取一个对象
type Grant struct {
	Bucket  string
	Path    string
	Expires time.Time
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type grantClaims struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	jwt.RegisteredClaims
}

func New(key string) (*JWT, error) {
	if len(key) == 0 {
		return nil, errors.New("key is empty")
	}

	return &JWT{key: []byte(key), now: time.Now}, nil
}

// WithClock 替换时间来源，测试用
func (j *JWT) WithClock(now func() time.Time) *JWT {
	return &JWT{key: j.key, now: now}
}

func (j *JWT) Now() time.Time {
	return j.now()
}

func (j *JWT) keyFunc(*jwt.Token) (interface{}, error) {
	return j.key, nil
}

func (j *JWT) parse(tokenString string, claims jwt.Claims, audience string) error {
	// 检查是否有效
	if len(tokenString) == 0 {
		return errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return fmt.Errorf("parse jwt failed: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}

	return nil
}

func (j *JWT) ParseSession(tokenString string) (*Session, error) {
	var claims sessionClaims
	if err := j.parse(tokenString, &claims, constants.AuthAudienceSession); err != nil {
		return nil, err
	}

	// 匹配内容
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("token missing subject or session id")
	}

	session := &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.ID,
		Expires:   claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}

	return session, nil
}

func (j *JWT) SignSession(session *Session) (string, error) {
	// 创建声明
	claims := sessionClaims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ID:        session.SessionID,
			Audience:  jwt.ClaimStrings{constants.AuthAudienceSession},
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.Expires),
		},
	}

	// 创建令牌，签名并返回
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.key)
}

func (j *JWT) ParseGrant(tokenString string) (*Grant, error) {
	var claims grantClaims
	if err := j.parse(tokenString, &claims, constants.AuthAudienceStorage); err != nil {
		return nil, err
	}

	return &Grant{
		Bucket:  claims.Bucket,
		Path:    claims.Path,
		Expires: claims.ExpiresAt.Time,
	}, nil
}

// SignGrant 签出从当前时间开始、有效期为 ttl 的对象令牌
func (j *JWT) SignGrant(bucket, path string, ttl time.Duration) (string, *Grant, error) {
	now := j.now()
	grant := &Grant{
		Bucket:  bucket,
		Path:    path,
		Expires: now.Add(ttl),
	}

	claims := grantClaims{
		Bucket: bucket,
		Path:   path,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{constants.AuthAudienceStorage},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(grant.Expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign grant: %w", err)
	}

	return token, grant, nil
}
