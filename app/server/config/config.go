package config

import (
	"strings"
	"time"
)

type Config struct {
	System struct {
		Mode                  string `env:"MODE" envDefault:"development"`         // 运行模式，以 p 开头视为生产环境
		Listen                string `env:"LISTEN" envDefault:":1323"`             // 监听地址
		PublicURL             string `env:"PUBLIC_URL" envDefault:"http://localhost:1323"` // 对外访问地址，用于拼接签名链接
		DBConnectionString    string `env:"DB_CONN,required"`                      // Postgres 数据库的连接字符串
		RedisConnectionString string `env:"REDIS_CONN,required"`                   // Redis 数据库的连接字符串
	}
	Security struct {
		EncryptSecretKey   string        `env:"ENCRYPT_SECRET_KEY,required"`           // 加密密钥，用于加密存储中的文件内容（例如简历），设定后不能更改
		SignatureSecretKey string        `env:"SIGNATURE_SECRET_KEY,required"`         // 签名密钥，用于产生签名（会话 JWT 与签名链接），更新会导致旧有会话失效
		SessionDuration    time.Duration `env:"SESSION_DURATION" envDefault:"1h"`      // 会话有效期
		SignInRate         string        `env:"SIGNIN_RATE" envDefault:"10-M"`         // 登录频率限制，ulule/limiter 格式
	}
	Storage struct {
		DefaultBucket string `env:"DEFAULT_BUCKET" envDefault:"knight21-uploads"` // 未指定时使用的存储桶
		MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`        // 单个上传文件的大小上限（字节）
	}
	Bootstrap struct {
		AdminEmail    string `env:"ADMIN_EMAIL"`    // 初始管理员邮箱，留空则不创建
		AdminPassword string `env:"ADMIN_PASSWORD"` // 初始管理员密码
	}
}

func (c *Config) IsProd() bool {
	return strings.HasPrefix(strings.ToLower(c.System.Mode), "p")
}
