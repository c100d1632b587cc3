package handlers

import (
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
	"time"
	"webknight/app/server/jwt"
	"webknight/app/server/stores"
)

type App struct {
	l        *zap.Logger      // 日志
	users    stores.Users     // 用户
	roles    stores.Roles     // 角色表，使用服务端自身的权限访问
	objects  stores.Objects   // 对象存储
	sessions stores.Sessions  // 会话吊销列表（Redis）
	limiter  *limiter.Limiter // 登录频率限制
	jwt      *jwt.JWT         // JWT ，用于无状态验证与签名链接
	esk      []byte           // 加密用密钥 (EncryptSecretKey)
	pinger   Pinger           // 健康检查依赖

	publicURL       string        // 对外访问地址
	defaultBucket   string        // 默认存储桶
	sessionDuration time.Duration // 会话有效期
	maxUploadSize   int64         // 上传大小上限
}

type Options struct {
	PublicURL       string
	DefaultBucket   string
	SessionDuration time.Duration
	MaxUploadSize   int64
}

type Stores struct {
	Users    stores.Users
	Roles    stores.Roles
	Objects  stores.Objects
	Sessions stores.Sessions
}

func NewApp(l *zap.Logger, s Stores, lim *limiter.Limiter, j *jwt.JWT, esk string, pinger Pinger, opts Options) *App {
	return &App{
		l:        l,
		users:    s.Users,
		roles:    s.Roles,
		objects:  s.Objects,
		sessions: s.Sessions,
		limiter:  lim,
		jwt:      j,
		esk:      []byte(esk),
		pinger:   pinger,

		publicURL:       opts.PublicURL,
		defaultBucket:   opts.DefaultBucket,
		sessionDuration: opts.SessionDuration,
		maxUploadSize:   opts.MaxUploadSize,
	}
}
