package inits

import (
	"fmt"
	"github.com/caarlos0/env/v11"
	"webknight/app/server/config"
)

func Config() (*config.Config, error) {
	var cfg config.Config

	// 从环境变量映射配置
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// AES 密钥长度只能是 16 / 24 / 32
	switch len(cfg.Security.EncryptSecretKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("ENCRYPT_SECRET_KEY should be 16, 24 or 32 bytes long, got %d", len(cfg.Security.EncryptSecretKey))
	}

	if cfg.Security.SessionDuration <= 0 {
		return nil, fmt.Errorf("SESSION_DURATION should be positive")
	}

	if (cfg.Bootstrap.AdminEmail == "") != (cfg.Bootstrap.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD should be set together")
	}

	return &cfg, nil
}
