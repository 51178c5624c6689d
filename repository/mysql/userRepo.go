package mysql

import (
	"context"
	"errors"
	"fmt" // 引入 fmt 包用于错误包装
	"github.com/Xushengqwer/go-common/commonerrors"

	"github.com/Xushengqwer/kath_hub/models/entities"

	"gorm.io/gorm"
)

// UserRepository 定义了与核心用户（User）数据存储相关的操作接口。
type UserRepository interface {
	// CreateUser 持久化一个新的核心用户记录。
	// - 使用传入的 db 对象执行操作，使其能够参与外部事务。
	CreateUser(ctx context.Context, db *gorm.DB, user *entities.User) error

	// GetUserByID 根据用户 ID 检索单个核心用户的完整信息。
	// - 如果未找到匹配的用户，将返回 commonerrors.ErrRepoNotFound。
	GetUserByID(ctx context.Context, userID string) (*entities.User, error)

	// SyncGoogleProfile 用最新的 Google 账号信息覆盖显示名、邮箱与头像。
	SyncGoogleProfile(ctx context.Context, db *gorm.DB, userID, displayName, email, photoURL string) error
}

// userRepository 是 UserRepository 接口基于 GORM 的实现。
type userRepository struct {
	db *gorm.DB // db 是 GORM 数据库连接实例
}

// NewUserRepository 创建一个新的 userRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser 实现接口方法，持久化用户记录。
func (r *userRepository) CreateUser(ctx context.Context, db *gorm.DB, user *entities.User) error {
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("userRepo.CreateUser: 创建用户失败: %w", err)
	}
	return nil
}

// GetUserByID 实现接口方法，根据 ID 获取用户信息。
func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, commonerrors.ErrRepoNotFound
		}
		return nil, fmt.Errorf("userRepo.GetUserByID: 查询用户失败 (UserID: %s): %w", userID, err)
	}
	return &user, nil
}

// SyncGoogleProfile 实现接口方法。
// 使用 map 更新以便空字符串也能写入（Updates 传结构体时会忽略零值）。
func (r *userRepository) SyncGoogleProfile(ctx context.Context, db *gorm.DB, userID, displayName, email, photoURL string) error {
	result := db.WithContext(ctx).Model(&entities.User{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"display_name": displayName,
		"email":        email,
		"photo_url":    photoURL,
	})
	if result.Error != nil {
		return fmt.Errorf("userRepo.SyncGoogleProfile: 同步 Google 账号信息失败 (UserID: %s): %w", userID, result.Error)
	}
	return nil
}
