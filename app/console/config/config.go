package config

import (
	"strings"
	"time"
)

type Config struct {
	// 基础配置
	Mode string `env:"MODE" envDefault:"development"`

	// 与 Server 通信配置
	ServerEndpoint string        `env:"SERVER_ENDPOINT,required"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// 本地会话文件，留空时放在用户配置目录下
	SessionFile string `env:"SESSION_FILE"`
}

func (c *Config) IsProd() bool {
	return strings.HasPrefix(strings.ToLower(c.Mode), "p")
}
