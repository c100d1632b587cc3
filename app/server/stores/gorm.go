package stores

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"strings"
	"webknight/app/server/models"
)

type GormUsers struct {
	db *gorm.DB
}

type GormRoles struct {
	db *gorm.DB
}

type GormObjects struct {
	db *gorm.DB
}

func NewGormUsers(db *gorm.DB) *GormUsers     { return &GormUsers{db: db} }
func NewGormRoles(db *gorm.DB) *GormRoles     { return &GormRoles{db: db} }
func NewGormObjects(db *gorm.DB) *GormObjects { return &GormObjects{db: db} }

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

func (s *GormUsers) Register(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", translate(err))
		}

		// 注册只会得到普通角色
		if err := tx.Create(&models.Role{
			UserID: user.ID,
			Role:   models.RoleUser,
		}).Error; err != nil {
			return fmt.Errorf("failed to create role: %w", translate(err))
		}

		return nil
	})
}

func (s *GormUsers) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUsers) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormRoles) RoleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "user_id = ?", userID).Error; err != nil {
		return "", translate(err)
	}
	return role.Role, nil
}

func (s *GormRoles) Assign(ctx context.Context, userID uuid.UUID, role string) error {
	// 一个用户只有一行，存在则覆盖
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&models.Role{
		UserID: userID,
		Role:   role,
	}).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *GormObjects) Put(ctx context.Context, object *models.Object) error {
	if err := s.db.WithContext(ctx).Create(object).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *GormObjects) Get(ctx context.Context, bucket, path string) (*models.Object, error) {
	var object models.Object
	if err := s.db.WithContext(ctx).First(&object, "bucket = ? AND path = ?", bucket, path).Error; err != nil {
		return nil, translate(err)
	}
	return &object, nil
}

func (s *GormObjects) Stat(ctx context.Context, bucket, path string) (*models.Object, error) {
	var object models.Object
	if err := s.db.WithContext(ctx).Omit("content").First(&object, "bucket = ? AND path = ?", bucket, path).Error; err != nil {
		return nil, translate(err)
	}
	return &object, nil
}

func (s *GormObjects) List(ctx context.Context, bucket string, offset, limit int) ([]models.Object, error) {
	var objects []models.Object
	if err := s.db.WithContext(ctx).
		Model(&models.Object{}).
		Omit("content").
		Where("bucket = ?", bucket).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&objects).Error; err != nil {
		return nil, translate(err)
	}
	return objects, nil
}

func (s *GormObjects) Count(ctx context.Context, bucket string) (int64, error) {
	var counter int64
	if err := s.db.WithContext(ctx).Model(&models.Object{}).Where("bucket = ?", bucket).Count(&counter).Error; err != nil {
		return 0, translate(err)
	}
	return counter, nil
}
