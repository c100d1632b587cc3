package stores

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"time"
	"webknight/app/server/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

type Users interface {
	// Register 创建用户，并在同一事务中写入角色 user
	Register(ctx context.Context, user *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Roles interface {
	// RoleOf 没有记录时返回 ErrNotFound
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
	Assign(ctx context.Context, userID uuid.UUID, role string) error
}

type Objects interface {
	Put(ctx context.Context, object *models.Object) error
	Get(ctx context.Context, bucket, path string) (*models.Object, error)
	// Stat 同 Get ，但不读取文件内容
	Stat(ctx context.Context, bucket, path string) (*models.Object, error)
	// List 不返回文件内容
	List(ctx context.Context, bucket string, offset, limit int) ([]models.Object, error)
	Count(ctx context.Context, bucket string) (int64, error)
}

type Sessions interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
