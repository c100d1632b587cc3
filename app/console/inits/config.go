package inits

import (
	"fmt"
	"github.com/caarlos0/env/v11"
	"os"
	"path/filepath"
	"webknight/app/console/config"
)

func Config() (*config.Config, error) {
	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("TIMEOUT should be positive")
	}

	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("SESSION_FILE not set and no user config dir: %w", err)
		}
		cfg.SessionFile = filepath.Join(dir, "webknight", "session.json")
	}

	return &cfg, nil
}
