package models

import (
	"github.com/google/uuid"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Role 每个用户最多一行，没有记录即没有任何特权
type Role struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Role      string    `gorm:"column:role;not null"` // admin | user ，只允许在带外（例如初始化或运维操作）提权
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Role) TableName() string {
	return "user_roles"
}
