package inits

import (
	"context"
	"errors"
	"fmt"
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"webknight/app/server/config"
	"webknight/app/server/models"
	"webknight/app/server/stores"
)

func DB(conn string) (db *gorm.DB, err error) {
	// 打开连接，开启错误转换以便识别唯一键冲突
	if db, err = gorm.Open(postgres.Open(conn), &gorm.Config{
		TranslateError: true,
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 迁移
	if err = mig(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 返回
	return db, nil
}

func mig(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Object{},
	)
}

// BootstrapAdmin 带外提权的唯一入口：按配置创建初始管理员
func BootstrapAdmin(ctx context.Context, cfg *config.Config, users stores.Users, roles stores.Roles) (created bool, err error) {
	if cfg.Bootstrap.AdminEmail == "" {
		// 没有配置，跳过
		return false, nil
	}

	// 已经存在就不动它，管理员身份由运维维护
	if _, err = users.ByEmail(ctx, cfg.Bootstrap.AdminEmail); err == nil {
		return false, nil
	} else if !errors.Is(err, stores.ErrNotFound) {
		return false, fmt.Errorf("failed to find admin user: %w", err)
	}

	// 创建密码
	password, err := argon2id.CreateHash(cfg.Bootstrap.AdminPassword, argon2id.DefaultParams)
	if err != nil {
		return false, fmt.Errorf("failed to generate password: %w", err)
	}

	// 插入记录（注册时默认为普通用户）
	user := &models.User{
		ID:       uuid.New(),
		Email:    cfg.Bootstrap.AdminEmail,
		Password: password,
	}
	if err = users.Register(ctx, user); err != nil {
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}

	// 提权
	if err = roles.Assign(ctx, user.ID, models.RoleAdmin); err != nil {
		return false, fmt.Errorf("failed to assign admin role: %w", err)
	}

	return true, nil
}
