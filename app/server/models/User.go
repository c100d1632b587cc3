package models

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// 基础信息
	Email string `gorm:"column:email;uniqueIndex"` // 登录邮箱，全局唯一（统一小写）

	// 登录认证相关
	Password string `gorm:"column:password"` // 密码，使用 argon2id 储存
}
